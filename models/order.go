package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers to the API server.
	decimal.MarshalJSONWithoutQuotes = true
}

type OrderStatus string

const (
	StatusNewOrder   OrderStatus = "NEW_ORDER"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusReady      OrderStatus = "READY"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"

	// Legacy names still returned by older API deployments.
	StatusUnprocessed OrderStatus = "UNPROCESSED"
	StatusPending     OrderStatus = "PENDING"
	StatusCompleted   OrderStatus = "COMPLETED"
)

type OrderType string

const (
	OrderDineIn   OrderType = "DINE_IN"
	OrderTakeaway OrderType = "TAKEAWAY"
	OrderDelivery OrderType = "DELIVERY"
)

// Valid reports whether t is one of the known order types.
func (t OrderType) Valid() bool {
	switch t {
	case OrderDineIn, OrderTakeaway, OrderDelivery:
		return true
	}
	return false
}

// OrderRecord is the server's view of a placed order. The agent caches it
// read-only; Items never change after creation.
type OrderRecord struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	Status        OrderStatus     `json:"status"`
	Items         []OrderItem     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt,omitempty"`
	BranchID      string          `json:"branchId,omitempty"`
	TableNumber   string          `json:"tableNumber,omitempty"`
	CustomerName  string          `json:"customerName,omitempty"`
	OrderType     OrderType       `json:"orderType,omitempty"`
	PaymentMethod PaymentMethod   `json:"paymentMethod,omitempty"`
	AppliedDeals  []string        `json:"appliedDeals,omitempty"`
}

// PendingOrder is the order creation payload derived from a cart.
type PendingOrder struct {
	Items          []PendingOrderItem `json:"items"`
	OrderType      OrderType          `json:"orderType"`
	PaymentMethod  PaymentMethod      `json:"paymentMethod"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountTotal  decimal.Decimal    `json:"discount"`
	DealDiscount   decimal.Decimal    `json:"dealDiscount"`
	ManualDiscount decimal.Decimal    `json:"manualDiscount"`
	Total          decimal.Decimal    `json:"total"`
	DealIDs        []string           `json:"dealIds,omitempty"`
	AppliedDeals   []string           `json:"appliedDeals,omitempty"`
	TableNumber    string             `json:"tableNumber,omitempty"`
	CustomerName   string             `json:"customerName,omitempty"`
	CustomerID     string             `json:"customerId,omitempty"`
	BranchID       string             `json:"branchId,omitempty"`
}

// CreatedOrder is the acknowledgement of PUT /api/pos/orders.
type CreatedOrder struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	Total       decimal.Decimal `json:"total"`
	Status      OrderStatus     `json:"status,omitempty"`
	CreatedAt   time.Time       `json:"createdAt,omitempty"`
}
