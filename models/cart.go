package models

import "github.com/shopspring/decimal"

// CartLine is one distinct menu item staged for an order. ItemID is unique
// within a cart.
type CartLine struct {
	ItemID    string          `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Note      string          `json:"note,omitempty"`
}

// LineTotal is UnitPrice x Quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSummary is the monetary view shown to the operator before submission.
type CartSummary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DealDiscount   decimal.Decimal `json:"dealDiscount"`
	ManualDiscount decimal.Decimal `json:"manualDiscount"`
	Total          decimal.Decimal `json:"total"`
	AppliedDeals   []string        `json:"appliedDeals"`
	ItemCount      int             `json:"itemCount"`
}
