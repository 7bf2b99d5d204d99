package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency formats an amount with dot thousands separators and a comma
// before two decimals, e.g. 15000.5 -> "Rp 15.000,50".
func FormatCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	formatted := amount.StringFixed(2)
	parts := strings.SplitN(formatted, ".", 2)
	integerPart := parts[0]
	decimalPart := parts[1]

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	return sign + "Rp " + strings.Join(groups, ".") + "," + decimalPart
}

// ClampMin returns amount, or floor when amount is below it.
func ClampMin(amount, floor decimal.Decimal) decimal.Decimal {
	if amount.LessThan(floor) {
		return floor
	}
	return amount
}

// Clamp bounds amount to [lo, hi].
func Clamp(amount, lo, hi decimal.Decimal) decimal.Decimal {
	if amount.LessThan(lo) {
		return lo
	}
	if amount.GreaterThan(hi) {
		return hi
	}
	return amount
}
