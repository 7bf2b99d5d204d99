package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/orders"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type OrderController struct {
	Tracker *orders.Tracker
	Sync    *services.OrderSync
}

func NewOrderController(tracker *orders.Tracker, sync *services.OrderSync) *OrderController {
	return &OrderController{Tracker: tracker, Sync: sync}
}

// GetActiveOrders -> every non-terminal order, newest first
func (oc *OrderController) GetActiveOrders(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Active orders", oc.Tracker.Active())
}

// GetRecentOrders -> active orders plus those finished in the last 48 hours
func (oc *OrderController) GetRecentOrders(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Recent orders", oc.Tracker.Recent(time.Now()))
}

// GetKitchenDisplay -> active orders in cooking order
func (oc *OrderController) GetKitchenDisplay(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Kitchen display", oc.Tracker.KitchenDisplay())
}

// AdvanceOrder -> move an order to its next status
func (oc *OrderController) AdvanceOrder(c *gin.Context) {
	rec, err := oc.Tracker.Advance(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", rec)
}

// RefreshOrders -> reload the cache from the API server now
func (oc *OrderController) RefreshOrders(c *gin.Context) {
	if err := oc.Sync.RefreshNow(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orders refreshed", oc.Tracker.Active())
}
