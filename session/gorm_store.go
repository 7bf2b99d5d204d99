package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const sessionRowID = 1

// GormStore persists the session in a single row so it survives restarts and
// can be shared by several agent processes on the same station. Watch polls
// the row and notifies subscribers of changes written by another process.
type GormStore struct {
	db       *gorm.DB
	mu       sync.RWMutex
	state    models.SessionState
	subs     listeners
	Interval time.Duration
	StopChan chan struct{}
	stopOnce sync.Once
}

// NewGormStore loads the persisted row, creating it from initial when absent.
func NewGormStore(db *gorm.DB, initial models.SessionState) (*GormStore, error) {
	s := &GormStore{
		db:       db,
		Interval: 2 * time.Second,
		StopChan: make(chan struct{}),
	}

	var row models.SessionState
	err := db.First(&row, sessionRowID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		initial.ID = sessionRowID
		initial.UpdatedAt = time.Now()
		if err := db.Create(&initial).Error; err != nil {
			return nil, fmt.Errorf("create session row: %w", err)
		}
		row = initial
	case err != nil:
		return nil, fmt.Errorf("load session row: %w", err)
	}

	s.state = row
	return s, nil
}

func (s *GormStore) Get() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *GormStore) Set(state models.SessionState) error {
	return s.Update(func(st *models.SessionState) {
		*st = state
	})
}

func (s *GormStore) Update(fn func(*models.SessionState)) error {
	s.mu.Lock()
	old := s.state
	next := old
	fn(&next)
	next.ID = sessionRowID
	next.Revision = s.latestRevision(old.Revision) + 1
	next.UpdatedAt = time.Now()

	if err := s.db.Save(&next).Error; err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save session: %w", err)
	}
	s.state = next
	s.mu.Unlock()

	s.subs.notify(old, next)
	return nil
}

// latestRevision guards against reusing a revision another process already
// committed; Watch relies on revisions growing.
func (s *GormStore) latestRevision(local int64) int64 {
	var stored models.SessionState
	if err := s.db.Select("revision").First(&stored, sessionRowID).Error; err != nil {
		return local
	}
	if stored.Revision > local {
		return stored.Revision
	}
	return local
}

func (s *GormStore) Clear() error {
	return s.Set(models.SessionState{})
}

func (s *GormStore) Subscribe(fn Listener) func() {
	return s.subs.add(fn)
}

// Watch starts polling the row for foreign writes.
func (s *GormStore) Watch() {
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkChanges()
			case <-s.StopChan:
				return
			}
		}
	}()
}

// Stop ends Watch.
func (s *GormStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.StopChan)
	})
}

func (s *GormStore) checkChanges() {
	var row models.SessionState
	if err := s.db.First(&row, sessionRowID).Error; err != nil {
		utils.ErrorLogger.Warnf("session watch: %v", err)
		return
	}

	s.mu.Lock()
	old := s.state
	if row.Revision <= old.Revision {
		s.mu.Unlock()
		return
	}
	s.state = row
	s.mu.Unlock()

	utils.InfoLogger.Infof("session changed by another process (revision %d)", row.Revision)
	s.subs.notify(old, row)
}
