package models

import "github.com/shopspring/decimal"

// MenuItem is one entry of the branch-priced catalog served by the API.
type MenuItem struct {
	ID          string           `json:"id"`
	CategoryID  string           `json:"categoryId,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	BranchPrice *decimal.Decimal `json:"branchPrice,omitempty"`
	Available   bool             `json:"isAvailable"`
}

// EffectivePrice is the branch override when the server sent one, the list
// price otherwise.
func (m MenuItem) EffectivePrice() decimal.Decimal {
	if m.BranchPrice != nil {
		return *m.BranchPrice
	}
	return m.Price
}
