package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
)

var (
	ErrUnknownItem     = errors.New("menu item not found")
	ErrItemUnavailable = errors.New("menu item is not available")
)

// MenuSource lists the branch priced menu.
type MenuSource interface {
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
}

// MenuCatalog caches the menu of the current branch. The cache is dropped
// when it expires or the branch changes.
type MenuCatalog struct {
	source   MenuSource
	branchID func() string
	TTL      time.Duration

	mutex     sync.Mutex
	items     []models.MenuItem
	branch    string
	fetchedAt time.Time
}

func NewMenuCatalog(source MenuSource, branchID func() string) *MenuCatalog {
	return &MenuCatalog{
		source:   source,
		branchID: branchID,
		TTL:      5 * time.Minute,
	}
}

// List returns the cached menu, fetching it when stale.
func (m *MenuCatalog) List(ctx context.Context) ([]models.MenuItem, error) {
	branch := m.branchID()

	m.mutex.Lock()
	if m.items != nil && m.branch == branch && time.Since(m.fetchedAt) < m.TTL {
		items := append([]models.MenuItem(nil), m.items...)
		m.mutex.Unlock()
		return items, nil
	}
	m.mutex.Unlock()

	return m.reload(ctx, branch)
}

// Find returns an orderable item. An id missing from the cache triggers one
// reload before giving up.
func (m *MenuCatalog) Find(ctx context.Context, id string) (models.MenuItem, error) {
	items, err := m.List(ctx)
	if err != nil {
		return models.MenuItem{}, err
	}
	item, ok := findItem(items, id)
	if !ok {
		if items, err = m.reload(ctx, m.branchID()); err != nil {
			return models.MenuItem{}, err
		}
		if item, ok = findItem(items, id); !ok {
			return models.MenuItem{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
		}
	}
	if !item.Available {
		return item, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
	}
	return item, nil
}

// Invalidate forces the next List to fetch.
func (m *MenuCatalog) Invalidate() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.items = nil
}

func (m *MenuCatalog) reload(ctx context.Context, branch string) ([]models.MenuItem, error) {
	items, err := m.source.ListMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}
	if items == nil {
		items = []models.MenuItem{}
	}

	m.mutex.Lock()
	m.items = items
	m.branch = branch
	m.fetchedAt = time.Now()
	m.mutex.Unlock()

	return append([]models.MenuItem(nil), items...), nil
}

func findItem(items []models.MenuItem, id string) (models.MenuItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return models.MenuItem{}, false
}
