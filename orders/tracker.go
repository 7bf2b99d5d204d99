package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// RecentWindow is how long terminal orders stay in the recent view, counted
// from their creation.
const RecentWindow = 48 * time.Hour

var (
	ErrUnknownOrder    = errors.New("order not found")
	ErrNoNextStatus    = errors.New("order has no next status")
	ErrAdvanceInFlight = errors.New("status change already in progress for this order")
)

// Backend is the part of the API the tracker needs.
type Backend interface {
	ListOrders(ctx context.Context) ([]models.OrderRecord, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.OrderRecord, error)
}

// Tracker is an eventually consistent cache of the branch's orders. Only the
// backend changes an order; the tracker observes it through refreshes, push
// driven refreshes and the acknowledgements of its own status requests.
type Tracker struct {
	backend  Backend
	branchID func() string
	now      func() time.Time

	mu         sync.Mutex
	orders     map[string]models.OrderRecord
	busy       map[string]bool
	generation uint64
	applied    uint64
	epoch      uint64
	lastSync   time.Time

	subMu sync.Mutex
	subID int
	subs  map[int]func()
}

func NewTracker(backend Backend, branchID func() string) *Tracker {
	if branchID == nil {
		branchID = func() string { return "" }
	}
	return &Tracker{
		backend:  backend,
		branchID: branchID,
		now:      time.Now,
		orders:   make(map[string]models.OrderRecord),
		busy:     make(map[string]bool),
		subs:     make(map[int]func()),
	}
}

// Refresh replaces the cache with the backend's list. A response is dropped
// when a later refresh or status acknowledgement has already been applied,
// or when the branch changed while it was in flight. On error the cache keeps
// its last good contents.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	branch := t.branchID()
	list, err := t.backend.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("refresh orders: %w", err)
	}

	t.mu.Lock()
	if gen < t.applied || branch != t.branchID() {
		utils.InfoLogger.Debugf("discarding order refresh generation %d", gen)
		t.mu.Unlock()
		return nil
	}
	t.applied = gen

	fresh := make(map[string]models.OrderRecord, len(list))
	for _, rec := range list {
		rec.Status = Canonical(rec.Status)
		if cached, ok := t.orders[rec.ID]; ok && len(rec.Items) == 0 {
			rec.Items = cached.Items
		}
		fresh[rec.ID] = rec
	}
	t.orders = fresh
	t.lastSync = t.now()
	t.mu.Unlock()

	t.publish()
	return nil
}

// Advance asks the backend to move an order to its next status. The cache is
// only updated once the backend accepts; at most one request per order is in
// flight. An acknowledgement arriving after a Reset or branch change is
// returned but not cached.
func (t *Tracker) Advance(ctx context.Context, id string) (models.OrderRecord, error) {
	branch := t.branchID()

	t.mu.Lock()
	epoch := t.epoch
	rec, ok := t.orders[id]
	if !ok {
		t.mu.Unlock()
		return models.OrderRecord{}, ErrUnknownOrder
	}
	next, ok := NextStatus(rec.Status)
	if !ok {
		t.mu.Unlock()
		return rec, ErrNoNextStatus
	}
	if t.busy[id] {
		t.mu.Unlock()
		return rec, ErrAdvanceInFlight
	}
	t.busy[id] = true
	t.mu.Unlock()
	t.publish()

	updated, err := t.backend.UpdateOrderStatus(ctx, id, next)

	t.mu.Lock()
	sameScope := epoch == t.epoch && branch == t.branchID()
	if epoch == t.epoch {
		delete(t.busy, id)
	}
	if err != nil {
		t.mu.Unlock()
		t.publish()
		return rec, fmt.Errorf("advance order %s to %s: %w", id, next, err)
	}

	current, ok := t.orders[id]
	if !ok {
		current = rec
	}
	if updated != nil && updated.ID == id {
		if len(updated.Items) == 0 {
			updated.Items = current.Items
		}
		current = *updated
		current.Status = Canonical(current.Status)
	} else {
		current.Status = next
	}

	if !sameScope {
		t.mu.Unlock()
		utils.InfoLogger.Debugf("order %s acknowledged after a scope change, not cached", id)
		t.publish()
		return current, nil
	}
	t.orders[id] = current
	t.supersedeLocked()
	t.mu.Unlock()

	t.publish()
	return current, nil
}

// Upsert records an order the agent learned about outside a refresh, such as
// a checkout acknowledgement.
func (t *Tracker) Upsert(rec models.OrderRecord) {
	if rec.ID == "" {
		return
	}
	rec.Status = Canonical(rec.Status)

	t.mu.Lock()
	if cached, ok := t.orders[rec.ID]; ok && len(rec.Items) == 0 {
		rec.Items = cached.Items
	}
	t.orders[rec.ID] = rec
	t.supersedeLocked()
	t.mu.Unlock()

	t.publish()
}

// supersedeLocked marks refreshes started before a direct cache write as
// stale, so an older list cannot roll the write back.
func (t *Tracker) supersedeLocked() {
	t.generation++
	t.applied = t.generation
}

// Reset forgets every cached order, used when the branch scope changes.
// Refreshes started before the reset are discarded.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.orders = make(map[string]models.OrderRecord)
	t.busy = make(map[string]bool)
	t.epoch++
	t.supersedeLocked()
	t.lastSync = time.Time{}
	t.mu.Unlock()

	t.publish()
}

func (t *Tracker) Get(id string) (models.OrderRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.orders[id]
	return rec, ok
}

// Busy reports whether a status change for id is in flight.
func (t *Tracker) Busy(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy[id]
}

// LastSync is the time of the last applied refresh.
func (t *Tracker) LastSync() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSync
}

// Active returns non-terminal orders, newest first.
func (t *Tracker) Active() []models.OrderRecord {
	list := t.filter(func(r models.OrderRecord) bool { return IsActive(r.Status) })
	sortByCreated(list, false)
	return list
}

// KitchenDisplay returns non-terminal orders oldest first, the order the
// kitchen works them in.
func (t *Tracker) KitchenDisplay() []models.OrderRecord {
	list := t.filter(func(r models.OrderRecord) bool { return IsActive(r.Status) })
	sortByCreated(list, true)
	return list
}

// Recent returns active orders plus terminal orders created within
// RecentWindow of now, newest first.
func (t *Tracker) Recent(now time.Time) []models.OrderRecord {
	cutoff := now.Add(-RecentWindow)
	list := t.filter(func(r models.OrderRecord) bool {
		return IsActive(r.Status) || !r.CreatedAt.Before(cutoff)
	})
	sortByCreated(list, false)
	return list
}

// Subscribe registers fn to be called after every cache change.
func (t *Tracker) Subscribe(fn func()) func() {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	id := t.subID
	t.subID++
	t.subs[id] = fn
	return func() {
		t.subMu.Lock()
		defer t.subMu.Unlock()
		delete(t.subs, id)
	}
}

func (t *Tracker) filter(keep func(models.OrderRecord) bool) []models.OrderRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := make([]models.OrderRecord, 0, len(t.orders))
	for _, rec := range t.orders {
		if keep(rec) {
			list = append(list, rec)
		}
	}
	return list
}

func sortByCreated(list []models.OrderRecord, oldestFirst bool) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		if oldestFirst {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func (t *Tracker) publish() {
	t.subMu.Lock()
	fns := make([]func(), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
