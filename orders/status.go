// Package orders tracks placed orders through their kitchen lifecycle.
package orders

import (
	"strings"

	"github.com/yeremiapane/restaurant-pos/models"
)

// Forward chain. DELIVERED and CANCELLED have no successor.
var successors = map[models.OrderStatus]models.OrderStatus{
	models.StatusNewOrder:   models.StatusProcessing,
	models.StatusProcessing: models.StatusReady,
	models.StatusReady:      models.StatusDelivered,
}

var aliases = map[models.OrderStatus]models.OrderStatus{
	models.StatusUnprocessed: models.StatusNewOrder,
	models.StatusPending:     models.StatusProcessing,
	models.StatusCompleted:   models.StatusDelivered,
}

// Canonical resolves legacy status names and normalizes case.
func Canonical(s models.OrderStatus) models.OrderStatus {
	s = models.OrderStatus(strings.ToUpper(strings.TrimSpace(string(s))))
	if c, ok := aliases[s]; ok {
		return c
	}
	return s
}

// NextStatus returns the single state following current. ok is false for
// terminal and unrecognized states.
func NextStatus(current models.OrderStatus) (models.OrderStatus, bool) {
	next, ok := successors[Canonical(current)]
	return next, ok
}

// Known reports whether s is a modern or legacy status name.
func Known(s models.OrderStatus) bool {
	c := Canonical(s)
	_, ok := successors[c]
	return ok || c == models.StatusDelivered || c == models.StatusCancelled
}

func IsTerminal(s models.OrderStatus) bool {
	c := Canonical(s)
	return c == models.StatusDelivered || c == models.StatusCancelled
}

// IsActive is true for everything that is not terminal, including states
// this agent does not recognize.
func IsActive(s models.OrderStatus) bool {
	return !IsTerminal(s)
}
