package services

import (
	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/orders"
	"github.com/yeremiapane/restaurant-pos/realtime"
)

// OrdersView is the payload of orders_update.
type OrdersView struct {
	Active  []models.OrderRecord `json:"active"`
	Kitchen []models.OrderRecord `json:"kitchen"`
}

func CurrentOrdersView(tracker *orders.Tracker) OrdersView {
	return OrdersView{
		Active:  tracker.Active(),
		Kitchen: tracker.KitchenDisplay(),
	}
}

// WireScreens pushes cart, order and connection changes to the local
// screens attached to the kds hub.
func WireScreens(engine *cart.Engine, tracker *orders.Tracker, bridge *realtime.Bridge) (unsubscribe func()) {
	stopCart := engine.Subscribe(func(s cart.State) {
		kds.BroadcastCartUpdate(s)
	})
	stopOrders := tracker.Subscribe(func() {
		kds.BroadcastOrdersUpdate(CurrentOrdersView(tracker))
	})
	if bridge != nil {
		bridge.OnStateChange(kds.BroadcastConnectionUpdate)
	}

	return func() {
		stopCart()
		stopOrders()
	}
}
