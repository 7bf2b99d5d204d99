// Package cart owns the in-progress order of one terminal: its lines, the
// operator's manual discount, the deal selection and the order metadata.
package cart

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrDealNotApplicable = errors.New("deal is not applicable to this cart")
)

// DefaultLookupTimeout bounds a single deal lookup.
var DefaultLookupTimeout = 10 * time.Second

const (
	defaultOrderType     = models.OrderDineIn
	defaultPaymentMethod = models.PaymentPending
)

// DealFinder returns the deals applicable to a cart, best first.
type DealFinder interface {
	FindApplicableDeals(ctx context.Context, q models.DealQuery) ([]models.Deal, error)
}

// Details is the order metadata captured alongside the lines.
type Details struct {
	OrderType     models.OrderType     `json:"orderType"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	TableNumber   string               `json:"tableNumber,omitempty"`
	CustomerName  string               `json:"customerName,omitempty"`
	CustomerID    string               `json:"customerId,omitempty"`
}

// State is a consistent copy of the whole cart.
type State struct {
	Lines          []models.CartLine  `json:"lines"`
	Summary        models.CartSummary `json:"summary"`
	ApplicableDeal []models.Deal      `json:"applicableDeals"`
	SelectedDeals  []string           `json:"selectedDeals"`
	Details        Details            `json:"details"`
	EvaluatingDeal bool               `json:"evaluatingDeals"`
}

// Engine is safe for concurrent use. Mutations are synchronous and cannot
// fail; deal lookups run in the background and only the response to the
// latest request is applied.
type Engine struct {
	finder        DealFinder
	branchID      func() string
	LookupTimeout time.Duration

	mu             sync.Mutex
	idle           *sync.Cond
	lines          []models.CartLine
	manualDiscount decimal.Decimal
	applicable     []models.Deal
	selected       []models.Deal
	details        Details
	manualChoice   bool
	generation     uint64
	inflight       int

	subMu sync.Mutex
	subID int
	subs  map[int]func(State)
}

// Option configures an Engine.
type Option func(*Engine)

// WithBranch supplies the branch id sent with deal lookups.
func WithBranch(fn func() string) Option {
	return func(e *Engine) { e.branchID = fn }
}

// NewEngine returns an empty cart. finder may be nil, in which case no deals
// are ever applicable.
func NewEngine(finder DealFinder, opts ...Option) *Engine {
	e := &Engine{
		finder:        finder,
		LookupTimeout: DefaultLookupTimeout,
		details:       Details{OrderType: defaultOrderType, PaymentMethod: defaultPaymentMethod},
		subs:          make(map[int]func(State)),
	}
	e.idle = sync.NewCond(&e.mu)
	for _, o := range opts {
		o(e)
	}
	return e
}

// AddItem stages qty units of item, merging into an existing line. The price
// is fixed at add time from the item's branch-aware effective price.
func (e *Engine) AddItem(item models.MenuItem, qty int) {
	if qty < 1 {
		qty = 1
	}

	e.mu.Lock()
	if i := e.indexLocked(item.ID); i >= 0 {
		e.lines[i].Quantity += qty
	} else {
		e.lines = append(e.lines, models.CartLine{
			ItemID:    item.ID,
			Name:      item.Name,
			UnitPrice: item.EffectivePrice(),
			Quantity:  qty,
		})
	}
	e.evaluateLocked()
	e.commit()
}

// UpdateQuantity adds delta to a line, removing it once it drops to zero.
func (e *Engine) UpdateQuantity(itemID string, delta int) {
	e.mu.Lock()
	i := e.indexLocked(itemID)
	if i < 0 || delta == 0 {
		e.mu.Unlock()
		return
	}
	e.lines[i].Quantity += delta
	if e.lines[i].Quantity <= 0 {
		e.lines = append(e.lines[:i], e.lines[i+1:]...)
	}
	e.evaluateLocked()
	e.commit()
}

// RemoveItem drops a line unconditionally.
func (e *Engine) RemoveItem(itemID string) {
	e.mu.Lock()
	i := e.indexLocked(itemID)
	if i < 0 {
		e.mu.Unlock()
		return
	}
	e.lines = append(e.lines[:i], e.lines[i+1:]...)
	e.evaluateLocked()
	e.commit()
}

// SetNote attaches free text to a line.
func (e *Engine) SetNote(itemID, note string) {
	e.mu.Lock()
	i := e.indexLocked(itemID)
	if i < 0 {
		e.mu.Unlock()
		return
	}
	e.lines[i].Note = strings.TrimSpace(note)
	e.commit()
}

// Clear empties the cart and resets discount, deal selection and details in
// one step. In-flight deal lookups become stale.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.lines = nil
	e.resetOrderLocked()
	e.generation++
	e.commit()
}

// RemoveSubmitted takes the quantities of a submitted order out of the cart.
// Lines added while the order was in flight stay; the discount, deal choice
// and details went out with the order and are reset.
func (e *Engine) RemoveSubmitted(items []models.PendingOrderItem) {
	e.mu.Lock()
	for _, it := range items {
		i := e.indexLocked(it.ItemID)
		if i < 0 {
			continue
		}
		e.lines[i].Quantity -= it.Quantity
		if e.lines[i].Quantity <= 0 {
			e.lines = append(e.lines[:i], e.lines[i+1:]...)
		}
	}
	e.resetOrderLocked()
	e.evaluateLocked()
	e.commit()
}

func (e *Engine) resetOrderLocked() {
	e.manualDiscount = decimal.Zero
	e.applicable = nil
	e.selected = nil
	e.manualChoice = false
	e.details = Details{OrderType: defaultOrderType, PaymentMethod: defaultPaymentMethod}
}

// SetManualDiscount stores an operator discount. Negative amounts count as
// zero; amounts above the subtotal are absorbed by the total floor.
func (e *Engine) SetManualDiscount(amount decimal.Decimal) {
	e.mu.Lock()
	e.manualDiscount = utils.ClampMin(amount, decimal.Zero)
	e.commit()
}

// SetDetails replaces the order metadata; unknown enum values fall back to
// the defaults. A different customer re-runs the deal lookup.
func (e *Engine) SetDetails(d Details) {
	if !d.OrderType.Valid() {
		d.OrderType = defaultOrderType
	}
	if !d.PaymentMethod.Valid() {
		d.PaymentMethod = defaultPaymentMethod
	}

	e.mu.Lock()
	customerChanged := e.details.CustomerID != d.CustomerID
	e.details = d
	if customerChanged {
		e.evaluateLocked()
	}
	e.commit()
}

// SelectDeal selects an applicable deal. It joins the current selection only
// when it and every selected deal allow stacking; otherwise it replaces it.
// Selecting manually turns off auto-selection until the cart is cleared.
func (e *Engine) SelectDeal(dealID string) error {
	e.mu.Lock()
	var deal *models.Deal
	for i := range e.applicable {
		if e.applicable[i].ID == dealID {
			deal = &e.applicable[i]
			break
		}
	}
	if deal == nil {
		e.mu.Unlock()
		return ErrDealNotApplicable
	}

	e.manualChoice = true
	if selectedIndex(e.selected, dealID) >= 0 {
		e.commit()
		return nil
	}

	stack := deal.AllowStacking
	for _, s := range e.selected {
		stack = stack && s.AllowStacking
	}
	if stack {
		e.selected = append(e.selected, *deal)
	} else {
		e.selected = []models.Deal{*deal}
	}
	e.commit()
	return nil
}

// DeselectDeal removes a deal from the selection.
func (e *Engine) DeselectDeal(dealID string) {
	e.mu.Lock()
	e.manualChoice = true
	if i := selectedIndex(e.selected, dealID); i >= 0 {
		e.selected = append(e.selected[:i:i], e.selected[i+1:]...)
	}
	e.commit()
}

// Lines returns a copy of the current lines.
func (e *Engine) Lines() []models.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.CartLine(nil), e.lines...)
}

// Summary computes the monetary summary of the current state.
func (e *Engine) Summary() models.CartSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ComputeSummary(e.lines, e.selected, e.manualDiscount)
}

// Snapshot returns a consistent copy of the whole cart.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// WaitDeals blocks until no deal lookup is in flight.
func (e *Engine) WaitDeals() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.inflight > 0 {
		e.idle.Wait()
	}
}

// PendingOrder derives the creation payload from the current state.
func (e *Engine) PendingOrder(branchID string) (models.PendingOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.lines) == 0 {
		return models.PendingOrder{}, ErrEmptyCart
	}

	summary := ComputeSummary(e.lines, e.selected, e.manualDiscount)
	items := make([]models.PendingOrderItem, 0, len(e.lines))
	for _, l := range e.lines {
		items = append(items, models.PendingOrderItem{ItemID: l.ItemID, Quantity: l.Quantity, Note: l.Note})
	}

	var dealIDs []string
	for _, d := range e.selected {
		if DealValue(d, summary.Subtotal).IsPositive() {
			dealIDs = append(dealIDs, d.ID)
		}
	}

	return models.PendingOrder{
		Items:          items,
		OrderType:      e.details.OrderType,
		PaymentMethod:  e.details.PaymentMethod,
		Subtotal:       summary.Subtotal,
		DiscountTotal:  summary.DealDiscount.Add(summary.ManualDiscount),
		DealDiscount:   summary.DealDiscount,
		ManualDiscount: summary.ManualDiscount,
		Total:          summary.Total,
		DealIDs:        dealIDs,
		AppliedDeals:   summary.AppliedDeals,
		TableNumber:    e.details.TableNumber,
		CustomerName:   e.details.CustomerName,
		CustomerID:     e.details.CustomerID,
		BranchID:       branchID,
	}, nil
}

// Subscribe registers fn to receive the state after every change. fn runs
// outside the engine lock and may call back into the engine.
func (e *Engine) Subscribe(fn func(State)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.subID
	e.subID++
	e.subs[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subs, id)
	}
}

// Signature identifies the item set and quantities deal lookups depend on.
func Signature(lines []models.CartLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, l.ItemID+"x"+strconv.Itoa(l.Quantity)+"@"+l.UnitPrice.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (e *Engine) indexLocked(itemID string) int {
	for i := range e.lines {
		if e.lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

func selectedIndex(deals []models.Deal, id string) int {
	for i := range deals {
		if deals[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) snapshotLocked() State {
	ids := make([]string, 0, len(e.selected))
	for _, d := range e.selected {
		ids = append(ids, d.ID)
	}
	return State{
		Lines:          append([]models.CartLine{}, e.lines...),
		Summary:        ComputeSummary(e.lines, e.selected, e.manualDiscount),
		ApplicableDeal: append([]models.Deal{}, e.applicable...),
		SelectedDeals:  ids,
		Details:        e.details,
		EvaluatingDeal: e.inflight > 0,
	}
}

// commit snapshots, releases e.mu and publishes. Callers hold e.mu.
func (e *Engine) commit() {
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

func (e *Engine) publish(s State) {
	e.subMu.Lock()
	fns := make([]func(State), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
