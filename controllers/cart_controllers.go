package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type CartController struct {
	Cart     *cart.Engine
	Menu     *services.MenuCatalog
	Checkout *services.CheckoutService
}

func NewCartController(engine *cart.Engine, menu *services.MenuCatalog, checkout *services.CheckoutService) *CartController {
	return &CartController{Cart: engine, Menu: menu, Checkout: checkout}
}

// GetCart -> full cart state with summary
func (cc *CartController) GetCart(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Cart", cc.Cart.Snapshot())
}

// AddItem -> stage a menu item
func (cc *CartController) AddItem(c *gin.Context) {
	var body struct {
		ItemID   string `json:"itemId" binding:"required"`
		Quantity int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := cc.Menu.Find(c.Request.Context(), body.ItemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	cc.Cart.AddItem(item, body.Quantity)
	utils.RespondJSON(c, http.StatusOK, "Item added", cc.Cart.Snapshot())
}

// UpdateQuantity -> change a line by delta, removing it at zero
func (cc *CartController) UpdateQuantity(c *gin.Context) {
	var body struct {
		Delta int `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	cc.Cart.UpdateQuantity(c.Param("item_id"), body.Delta)
	utils.RespondJSON(c, http.StatusOK, "Quantity updated", cc.Cart.Snapshot())
}

func (cc *CartController) SetNote(c *gin.Context) {
	var body struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	cc.Cart.SetNote(c.Param("item_id"), body.Note)
	utils.RespondJSON(c, http.StatusOK, "Note saved", cc.Cart.Snapshot())
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	cc.Cart.RemoveItem(c.Param("item_id"))
	utils.RespondJSON(c, http.StatusOK, "Item removed", cc.Cart.Snapshot())
}

func (cc *CartController) ClearCart(c *gin.Context) {
	cc.Cart.Clear()
	utils.RespondJSON(c, http.StatusOK, "Cart cleared", cc.Cart.Snapshot())
}

// SetDiscount -> operator discount, never below zero
func (cc *CartController) SetDiscount(c *gin.Context) {
	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Amount.IsNegative() {
		utils.RespondError(c, http.StatusBadRequest, errors.New("discount must not be negative"))
		return
	}

	cc.Cart.SetManualDiscount(body.Amount)
	utils.RespondJSON(c, http.StatusOK, "Discount set", cc.Cart.Snapshot())
}

// SetDetails -> order type, payment method, table and customer
func (cc *CartController) SetDetails(c *gin.Context) {
	var body cart.Details
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.OrderType != "" && !body.OrderType.Valid() {
		utils.RespondError(c, http.StatusBadRequest, errors.New("unknown order type"))
		return
	}
	if body.PaymentMethod != "" && !body.PaymentMethod.Valid() {
		utils.RespondError(c, http.StatusBadRequest, errors.New("unknown payment method"))
		return
	}

	cc.Cart.SetDetails(body)
	utils.RespondJSON(c, http.StatusOK, "Details saved", cc.Cart.Snapshot())
}

func (cc *CartController) SelectDeal(c *gin.Context) {
	if err := cc.Cart.SelectDeal(c.Param("deal_id")); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Deal selected", cc.Cart.Snapshot())
}

func (cc *CartController) DeselectDeal(c *gin.Context) {
	cc.Cart.DeselectDeal(c.Param("deal_id"))
	utils.RespondJSON(c, http.StatusOK, "Deal removed", cc.Cart.Snapshot())
}

// SubmitOrder -> submit the cart as an order
func (cc *CartController) SubmitOrder(c *gin.Context) {
	created, err := cc.Checkout.Submit(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", created)
}
