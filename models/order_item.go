package models

import "github.com/shopspring/decimal"

// OrderItem is the immutable snapshot of a line of a submitted order.
type OrderItem struct {
	ID        string          `json:"id,omitempty"`
	ItemID    string          `json:"menuItemId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Note      string          `json:"notes,omitempty"`
}

// PendingOrderItem is one line of the order creation payload.
type PendingOrderItem struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Note     string `json:"notes,omitempty"`
}
