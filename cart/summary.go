package cart

import (
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var hundred = decimal.NewFromInt(100)

// Subtotal is the exact sum of UnitPrice x Quantity over lines.
func Subtotal(lines []models.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// DealValue is what a single deal takes off subtotal, never negative. The
// value is exact; rounding is left to display.
// MINIMUM_PURCHASE deals pay out their percentage when one is set and their
// flat amount otherwise, only once subtotal reaches the threshold.
func DealValue(d models.Deal, subtotal decimal.Decimal) decimal.Decimal {
	var v decimal.Decimal
	switch d.DealType {
	case models.DealPercentageDiscount:
		v = subtotal.Mul(d.DiscountPercentage).Div(hundred)
	case models.DealFixedDiscount:
		v = d.DiscountAmount
	case models.DealMinimumPurchase:
		if subtotal.LessThan(d.MinimumPurchase) {
			return decimal.Zero
		}
		if d.DiscountPercentage.IsPositive() {
			v = subtotal.Mul(d.DiscountPercentage).Div(hundred)
		} else {
			v = d.DiscountAmount
		}
	default:
		return decimal.Zero
	}
	return utils.ClampMin(v, decimal.Zero)
}

// ComputeSummary derives the monetary summary of a cart. dealDiscount is
// clamped to [0, subtotal] and total to >= 0.
func ComputeSummary(lines []models.CartLine, selected []models.Deal, manualDiscount decimal.Decimal) models.CartSummary {
	subtotal := Subtotal(lines)

	dealDiscount := decimal.Zero
	applied := []string{}
	for _, d := range selected {
		v := DealValue(d, subtotal)
		if v.IsPositive() {
			dealDiscount = dealDiscount.Add(v)
			applied = append(applied, d.Name)
		}
	}
	dealDiscount = utils.Clamp(dealDiscount, decimal.Zero, subtotal)

	manual := utils.ClampMin(manualDiscount, decimal.Zero)
	total := utils.ClampMin(subtotal.Sub(dealDiscount).Sub(manual), decimal.Zero)

	count := 0
	for _, l := range lines {
		count += l.Quantity
	}

	return models.CartSummary{
		Subtotal:       subtotal,
		DealDiscount:   dealDiscount,
		ManualDiscount: manual,
		Total:          total,
		AppliedDeals:   applied,
		ItemCount:      count,
	}
}
