package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/session"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// OrderCache is what OrderSync keeps up to date.
type OrderCache interface {
	Refresh(ctx context.Context) error
	Reset()
}

// SyncMetrics counts refresh attempts for the status endpoint.
type SyncMetrics struct {
	TotalRefreshes  int64     `json:"totalRefreshes"`
	FailedRefreshes int64     `json:"failedRefreshes"`
	EventsReceived  int64     `json:"eventsReceived"`
	AvgResponseTime int64     `json:"avgResponseTimeMs"`
	LastError       string    `json:"lastError,omitempty"`
	LastRefresh     time.Time `json:"lastRefresh,omitempty"`
}

// OrderSync reconciles the order cache from two independent triggers: a
// polling ticker and push notifications. Both end in the same idempotent
// refresh. Notifications arriving while one is pending collapse into it,
// and the limiter spaces out bursts.
type OrderSync struct {
	Cache          OrderCache
	Interval       time.Duration
	RefreshTimeout time.Duration
	StopChan       chan struct{}

	limiter  *rate.Limiter
	pending  chan struct{}
	stopOnce sync.Once

	mutex   sync.Mutex
	metrics SyncMetrics
}

// NewOrderSync polls every interval; zero disables polling and leaves only
// notifications.
func NewOrderSync(cache OrderCache, interval time.Duration) *OrderSync {
	return &OrderSync{
		Cache:          cache,
		Interval:       interval,
		RefreshTimeout: 15 * time.Second,
		StopChan:       make(chan struct{}),
		limiter:        rate.NewLimiter(rate.Every(time.Second), 1),
		pending:        make(chan struct{}, 1),
	}
}

// SetRateLimit changes how often notification driven refreshes may run.
func (s *OrderSync) SetRateLimit(every time.Duration, burst int) {
	s.limiter.SetLimit(rate.Every(every))
	s.limiter.SetBurst(burst)
}

func (s *OrderSync) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-s.StopChan
		cancel()
	}()

	go func() {
		var tick <-chan time.Time
		if s.Interval > 0 {
			ticker := time.NewTicker(s.Interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		s.refresh(ctx)
		for {
			select {
			case <-tick:
				s.refresh(ctx)
			case <-s.pending:
				if err := s.limiter.Wait(ctx); err != nil {
					return
				}
				s.refresh(ctx)
			case <-s.StopChan:
				return
			}
		}
	}()
}

func (s *OrderSync) Stop() {
	s.stopOnce.Do(func() {
		close(s.StopChan)
	})
}

// Notify schedules a refresh without blocking.
func (s *OrderSync) Notify() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// HandleEvent is the realtime bridge callback.
func (s *OrderSync) HandleEvent(ev realtime.Event) {
	s.mutex.Lock()
	s.metrics.EventsReceived++
	s.mutex.Unlock()

	utils.InfoLogger.Debugf("order event %s for %q", ev.Name, ev.OrderID)
	s.Notify()
}

// FollowSession drops the cache and refetches whenever the tenant or branch
// changes.
func (s *OrderSync) FollowSession(sess session.Context) (unsubscribe func()) {
	return sess.Subscribe(func(old, current models.SessionState) {
		if old.BranchID == current.BranchID && old.TenantSlug == current.TenantSlug && old.RestaurantID == current.RestaurantID {
			return
		}
		utils.InfoLogger.Infof("branch scope changed to %q, reloading orders", current.BranchID)
		s.Cache.Reset()
		s.Notify()
	})
}

// RefreshNow refreshes synchronously, used for explicit operator requests.
func (s *OrderSync) RefreshNow(ctx context.Context) error {
	return s.run(ctx)
}

// Metrics returns a copy of the counters.
func (s *OrderSync) Metrics() SyncMetrics {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.metrics
}

func (s *OrderSync) refresh(ctx context.Context) {
	if err := s.run(ctx); err != nil {
		utils.ErrorLogger.Warnf("order refresh failed: %v", err)
	}
}

func (s *OrderSync) run(ctx context.Context) error {
	if s.RefreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RefreshTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.Cache.Refresh(ctx)
	elapsed := time.Since(start).Milliseconds()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.metrics.TotalRefreshes++
	s.metrics.AvgResponseTime = (s.metrics.AvgResponseTime*(s.metrics.TotalRefreshes-1) + elapsed) / s.metrics.TotalRefreshes
	if err != nil {
		s.metrics.FailedRefreshes++
		s.metrics.LastError = err.Error()
		return err
	}
	s.metrics.LastError = ""
	s.metrics.LastRefresh = time.Now()
	return nil
}
