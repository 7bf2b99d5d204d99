package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/orders"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local screens only; the operator PIN guards the route
	},
}

type KDSController struct {
	Cart    *cart.Engine
	Tracker *orders.Tracker
	Bridge  *realtime.Bridge
}

// KDSHandler -> websocket endpoint for local screens
func (kc *KDSController) KDSHandler(c *gin.Context) {
	role := c.GetString("role")
	if !kds.ValidRole(role) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	kds.RegisterClient(ws, role)
	kc.sendInitialState(ws, role)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	kds.UnregisterClient(ws)
}

func (kc *KDSController) sendInitialState(ws *websocket.Conn, role string) {
	initial := []kds.Message{
		{Event: kds.EventOrdersUpdate, Data: services.CurrentOrdersView(kc.Tracker)},
	}
	if role == kds.RolePOS {
		initial = append(initial, kds.Message{Event: kds.EventCartUpdate, Data: kc.Cart.Snapshot()})
	}
	if kc.Bridge != nil {
		initial = append(initial, kds.Message{Event: kds.EventConnectionUpdate, Data: map[string]bool{"connected": kc.Bridge.Connected()}})
	}

	for _, msg := range initial {
		if err := kds.SendTo(ws, msg); err != nil {
			utils.ErrorLogger.Warnf("kds: initial %s: %v", msg.Event, err)
			return
		}
	}
}
