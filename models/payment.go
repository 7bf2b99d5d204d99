package models

type PaymentMethod string

const (
	PaymentPending PaymentMethod = "PENDING"
	PaymentCash    PaymentMethod = "CASH"
	PaymentCard    PaymentMethod = "CARD"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentPending, PaymentCash, PaymentCard:
		return true
	}
	return false
}
