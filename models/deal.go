package models

import "github.com/shopspring/decimal"

type DealType string

const (
	DealPercentageDiscount DealType = "PERCENTAGE_DISCOUNT"
	DealFixedDiscount      DealType = "FIXED_DISCOUNT"
	DealMinimumPurchase    DealType = "MINIMUM_PURCHASE"
)

// Deal is a server-defined promotion. The agent only evaluates it.
type Deal struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	DealType           DealType        `json:"dealType"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	MinimumPurchase    decimal.Decimal `json:"minimumPurchase"`
	AllowStacking      bool            `json:"allowStacking"`
}

// DealItem is one cart line as sent to the deal lookup endpoint.
type DealItem struct {
	ItemID    string          `json:"itemId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// DealQuery is the body of POST /api/deals/find-applicable.
type DealQuery struct {
	OrderItems []DealItem      `json:"orderItems"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	CustomerID string          `json:"customerId,omitempty"`
	BranchID   string          `json:"branchId,omitempty"`
}
