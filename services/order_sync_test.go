package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/session"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type countingCache struct {
	mu      sync.Mutex
	count   int
	resets  int
	err     error
	blockCh chan struct{}
}

func (c *countingCache) Refresh(context.Context) error {
	c.mu.Lock()
	block := c.blockCh
	c.mu.Unlock()
	if block != nil {
		<-block
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.err
}

func (c *countingCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

func (c *countingCache) refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func TestOrderSync_CoalescesNotifications(t *testing.T) {
	utils.SilenceLoggers()
	block := make(chan struct{})
	cache := &countingCache{blockCh: block}
	s := NewOrderSync(cache, 0)
	s.SetRateLimit(time.Millisecond, 1)
	s.Start()
	defer s.Stop()

	for i := 0; i < 10; i++ {
		s.HandleEvent(realtime.Event{Name: realtime.EventOrderUpdated, OrderID: "o-1"})
	}

	cache.mu.Lock()
	cache.blockCh = nil
	cache.mu.Unlock()
	close(block)

	require.Eventually(t, func() bool { return cache.refreshes() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, cache.refreshes())
	assert.Equal(t, int64(10), s.Metrics().EventsReceived)
}

func TestOrderSync_PollsOnInterval(t *testing.T) {
	utils.SilenceLoggers()
	cache := &countingCache{}
	s := NewOrderSync(cache, 10*time.Millisecond)
	s.Start()

	require.Eventually(t, func() bool { return cache.refreshes() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	time.Sleep(30 * time.Millisecond)
	settled := cache.refreshes()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, cache.refreshes())
}

func TestOrderSync_RefreshNowRecordsMetrics(t *testing.T) {
	utils.SilenceLoggers()
	cache := &countingCache{err: errors.New("api unreachable")}
	s := NewOrderSync(cache, 0)

	err := s.RefreshNow(context.Background())
	require.Error(t, err)

	m := s.Metrics()
	assert.Equal(t, int64(1), m.TotalRefreshes)
	assert.Equal(t, int64(1), m.FailedRefreshes)
	assert.Equal(t, "api unreachable", m.LastError)

	cache.mu.Lock()
	cache.err = nil
	cache.mu.Unlock()
	require.NoError(t, s.RefreshNow(context.Background()))
	m = s.Metrics()
	assert.Empty(t, m.LastError)
	assert.False(t, m.LastRefresh.IsZero())
}

func TestOrderSync_FollowSessionResetsOnBranchChange(t *testing.T) {
	utils.SilenceLoggers()
	cache := &countingCache{}
	sess := session.NewMemoryStore(models.SessionState{TenantSlug: "warung", BranchID: "br-1"})
	s := NewOrderSync(cache, 0)
	s.SetRateLimit(time.Millisecond, 1)
	unsubscribe := s.FollowSession(sess)
	defer unsubscribe()
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return cache.refreshes() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, sess.Update(func(st *models.SessionState) { st.AccessToken = "rotated" }))
	require.NoError(t, sess.Update(func(st *models.SessionState) { st.BranchID = "br-2" }))

	require.Eventually(t, func() bool { return cache.refreshes() == 2 }, time.Second, 5*time.Millisecond)
	cache.mu.Lock()
	assert.Equal(t, 1, cache.resets)
	cache.mu.Unlock()
}
