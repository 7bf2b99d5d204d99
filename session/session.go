// Package session holds the auth and branch scope shared by the REST client,
// the realtime bridge and the order cache. Consumers depend on the Context
// interface so the backing store can be swapped or faked.
package session

import (
	"sync"

	"github.com/yeremiapane/restaurant-pos/models"
)

// Listener is called after every committed change with the previous and the
// new state.
type Listener func(old, current models.SessionState)

// Context is the injected session scope.
type Context interface {
	Get() models.SessionState
	Set(state models.SessionState) error
	Update(fn func(*models.SessionState)) error
	Clear() error
	Subscribe(fn Listener) (unsubscribe func())
}

// listeners is the subscription registry shared by the store implementations.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns, id)
		})
	}
}

func (l *listeners) notify(old, current models.SessionState) {
	l.mu.Lock()
	fns := make([]Listener, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(old, current)
	}
}

// MemoryStore keeps the session in process memory only.
type MemoryStore struct {
	mu    sync.RWMutex
	state models.SessionState
	subs  listeners
}

func NewMemoryStore(initial models.SessionState) *MemoryStore {
	return &MemoryStore{state: initial}
}

func (s *MemoryStore) Get() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *MemoryStore) Set(state models.SessionState) error {
	s.mu.Lock()
	old := s.state
	state.Revision = old.Revision + 1
	s.state = state
	s.mu.Unlock()

	s.subs.notify(old, state)
	return nil
}

func (s *MemoryStore) Update(fn func(*models.SessionState)) error {
	s.mu.Lock()
	old := s.state
	next := old
	fn(&next)
	next.Revision = old.Revision + 1
	s.state = next
	s.mu.Unlock()

	s.subs.notify(old, next)
	return nil
}

func (s *MemoryStore) Clear() error {
	return s.Set(models.SessionState{})
}

func (s *MemoryStore) Subscribe(fn Listener) func() {
	return s.subs.add(fn)
}
