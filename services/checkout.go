package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/session"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var ErrCheckoutInFlight = errors.New("an order is already being submitted")

// OrderCreator submits orders to the API server.
type OrderCreator interface {
	CreateOrder(ctx context.Context, order models.PendingOrder, idempotencyKey string) (*models.CreatedOrder, error)
}

// OrderRecorder receives acknowledged orders.
type OrderRecorder interface {
	Upsert(rec models.OrderRecord)
}

// CheckoutService turns the cart into a submitted order. A failed submission
// leaves the cart untouched; retrying the same cart reuses the idempotency
// key so the server can recognize a duplicate.
type CheckoutService struct {
	cart    *cart.Engine
	creator OrderCreator
	orders  OrderRecorder
	syncer  *OrderSync
	session session.Context

	mutex       sync.Mutex
	submitting  bool
	lastPayload string
	lastKey     string
}

func NewCheckoutService(engine *cart.Engine, creator OrderCreator, orders OrderRecorder, orderSync *OrderSync, sess session.Context) *CheckoutService {
	return &CheckoutService{
		cart:    engine,
		creator: creator,
		orders:  orders,
		syncer:  orderSync,
		session: sess,
	}
}

// Submit waits for pending deal evaluation, then creates the order.
func (s *CheckoutService) Submit(ctx context.Context) (*models.CreatedOrder, error) {
	s.mutex.Lock()
	if s.submitting {
		s.mutex.Unlock()
		return nil, ErrCheckoutInFlight
	}
	s.submitting = true
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		s.submitting = false
		s.mutex.Unlock()
	}()

	s.cart.WaitDeals()
	branch := s.session.Get().BranchID
	lines := s.cart.Lines()
	pending, err := s.cart.PendingOrder(branch)
	if err != nil {
		return nil, err
	}

	key := s.keyFor(pending)
	created, err := s.creator.CreateOrder(ctx, pending, key)
	if err != nil {
		utils.ErrorLogger.Warnf("checkout failed, cart kept: %v", err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.mutex.Lock()
	s.lastPayload, s.lastKey = "", ""
	s.mutex.Unlock()

	if cart.Signature(s.cart.Lines()) == cart.Signature(lines) {
		s.cart.Clear()
	} else {
		s.cart.RemoveSubmitted(pending.Items)
	}

	if s.session.Get().BranchID != branch {
		utils.InfoLogger.Infof("order %s created for branch %s after a branch switch, not cached", created.OrderNumber, branch)
	} else if s.orders != nil {
		s.orders.Upsert(acknowledged(created, pending, lines))
	}
	if s.syncer != nil {
		s.syncer.Notify()
	}

	utils.InfoLogger.Infof("order %s created, total %s", created.OrderNumber, utils.FormatCurrency(created.Total))
	return created, nil
}

// keyFor returns the idempotency key of the previous failed attempt when the
// payload is unchanged, and a fresh one otherwise.
func (s *CheckoutService) keyFor(p models.PendingOrder) string {
	raw, _ := json.Marshal(p)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.lastKey != "" && s.lastPayload == string(raw) {
		return s.lastKey
	}
	s.lastPayload = string(raw)
	s.lastKey = uuid.NewString()
	return s.lastKey
}

func acknowledged(created *models.CreatedOrder, p models.PendingOrder, lines []models.CartLine) models.OrderRecord {
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Note:      l.Note,
		})
	}

	status := created.Status
	if status == "" {
		status = models.StatusNewOrder
	}
	createdAt := created.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	total := created.Total
	if total.IsZero() {
		total = p.Total
	}

	return models.OrderRecord{
		ID:            created.ID,
		OrderNumber:   created.OrderNumber,
		Status:        status,
		Items:         items,
		Total:         total,
		CreatedAt:     createdAt,
		BranchID:      p.BranchID,
		TableNumber:   p.TableNumber,
		CustomerName:  p.CustomerName,
		OrderType:     p.OrderType,
		PaymentMethod: p.PaymentMethod,
		AppliedDeals:  p.AppliedDeals,
	}
}
