package Controllers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/client"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/testutil"
)

func TestOperatorPinRequired(t *testing.T) {
	_, a := setupAgent(t)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartLifecycle(t *testing.T) {
	_, a := setupAgent(t)

	addItem(t, a, "nasi-goreng", 2)
	addItem(t, a, "es-teh", 1)

	w := a.Do(http.MethodPatch, "/cart/items/nasi-goreng", map[string]int{"delta": -1})
	testutil.StatusOK(t, w, http.StatusOK)

	w = a.Do(http.MethodPut, "/cart/items/es-teh/note", map[string]string{"note": "less sugar"})
	testutil.StatusOK(t, w, http.StatusOK)

	w = a.Do(http.MethodPut, "/cart/discount", map[string]int{"amount": 3000})
	testutil.StatusOK(t, w, http.StatusOK)

	var state cart.State
	testutil.DecodeData(t, w, &state)
	require.Len(t, state.Lines, 2)
	assert.Equal(t, 1, state.Lines[0].Quantity)
	assert.Equal(t, "less sugar", state.Lines[1].Note)
	assert.True(t, state.Summary.Subtotal.Equal(decimal.NewFromInt(33000)))
	assert.True(t, state.Summary.Total.Equal(decimal.NewFromInt(30000)))

	w = a.Do(http.MethodDelete, "/cart/items/es-teh", nil)
	testutil.StatusOK(t, w, http.StatusOK)
	testutil.DecodeData(t, w, &state)
	require.Len(t, state.Lines, 1)

	w = a.Do(http.MethodDelete, "/cart", nil)
	testutil.StatusOK(t, w, http.StatusOK)
	testutil.DecodeData(t, w, &state)
	assert.Empty(t, state.Lines)
	assert.True(t, state.Summary.Total.IsZero())
}

func TestAddItemErrors(t *testing.T) {
	_, a := setupAgent(t)

	w := a.Do(http.MethodPost, "/cart/items", map[string]interface{}{"itemId": "sate", "quantity": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	var data map[string]interface{}
	testutil.DecodeData(t, w, &data)
	assert.Equal(t, client.CodeItemUnavailable, data["code"])

	w = a.Do(http.MethodPost, "/cart/items", map[string]interface{}{"itemId": "rendang", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.Do(http.MethodPost, "/cart/items", map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.Do(http.MethodPut, "/cart/discount", map[string]int{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.Do(http.MethodPut, "/cart/details", map[string]string{"orderType": "DRIVE_THRU"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDealsAppliedFromServer(t *testing.T) {
	backend, a := setupAgent(t)
	backend.SetDeals(
		models.Deal{ID: "hemat10", Name: "Hemat 10%", DealType: models.DealPercentageDiscount, DiscountPercentage: decimal.NewFromInt(10)},
		models.Deal{ID: "min100", Name: "Belanja 100rb", DealType: models.DealMinimumPurchase, DiscountAmount: decimal.NewFromInt(20000), MinimumPurchase: decimal.NewFromInt(100000)},
	)

	addItem(t, a, "nasi-goreng", 2)
	a.Cart.WaitDeals()

	var state cart.State
	testutil.DecodeData(t, a.Do(http.MethodGet, "/cart", nil), &state)
	require.Len(t, state.ApplicableDeal, 1)
	assert.Equal(t, []string{"hemat10"}, state.SelectedDeals)
	assert.True(t, state.Summary.DealDiscount.Equal(decimal.NewFromInt(5000)))
	assert.True(t, state.Summary.Total.Equal(decimal.NewFromInt(45000)))

	w := a.Do(http.MethodPost, "/cart/deals/min100", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.Do(http.MethodDelete, "/cart/deals/hemat10", nil)
	testutil.StatusOK(t, w, http.StatusOK)
	testutil.DecodeData(t, w, &state)
	assert.Empty(t, state.SelectedDeals)
	assert.True(t, state.Summary.Total.Equal(decimal.NewFromInt(50000)))

	w = a.Do(http.MethodPost, "/cart/deals/hemat10", nil)
	testutil.StatusOK(t, w, http.StatusOK)
	testutil.DecodeData(t, w, &state)
	assert.Equal(t, []string{"hemat10"}, state.SelectedDeals)
}

func TestCheckoutCreatesOrder(t *testing.T) {
	backend, a := setupAgent(t)

	w := a.Do(http.MethodPost, "/cart/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	addItem(t, a, "nasi-goreng", 1)
	w = a.Do(http.MethodPut, "/cart/details", map[string]string{
		"orderType":     string(models.OrderDineIn),
		"paymentMethod": string(models.PaymentCash),
		"tableNumber":   "7",
	})
	testutil.StatusOK(t, w, http.StatusOK)

	w = a.Do(http.MethodPost, "/cart/checkout", nil)
	testutil.StatusOK(t, w, http.StatusCreated)

	var created models.CreatedOrder
	testutil.DecodeData(t, w, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusNewOrder, created.Status)
	assert.Equal(t, 1, backend.OrderCount())

	rec, ok := backend.Order(created.ID)
	require.True(t, ok)
	assert.Equal(t, "br-1", rec.BranchID)
	assert.Equal(t, "7", rec.TableNumber)

	var state cart.State
	testutil.DecodeData(t, a.Do(http.MethodGet, "/cart", nil), &state)
	assert.Empty(t, state.Lines)

	var active []models.OrderRecord
	testutil.DecodeData(t, a.Do(http.MethodGet, "/orders/active", nil), &active)
	require.Len(t, active, 1)
	assert.Equal(t, created.ID, active[0].ID)
}

func TestCheckoutRejectedKeepsCart(t *testing.T) {
	backend, a := setupAgent(t)
	backend.RejectOrders(http.StatusForbidden, client.CodeSubscriptionInactive)

	addItem(t, a, "es-teh", 3)
	w := a.Do(http.MethodPost, "/cart/checkout", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var data map[string]interface{}
	testutil.DecodeData(t, w, &data)
	assert.Equal(t, client.CodeSubscriptionInactive, data["code"])

	var state cart.State
	testutil.DecodeData(t, a.Do(http.MethodGet, "/cart", nil), &state)
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 3, state.Lines[0].Quantity)
	assert.Equal(t, 0, backend.OrderCount())
}

func TestCheckoutRetryReusesKey(t *testing.T) {
	backend, a := setupAgent(t)
	backend.FailOrders(http.StatusServiceUnavailable)

	addItem(t, a, "nasi-goreng", 1)
	w := a.Do(http.MethodPost, "/cart/checkout", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	backend.FailOrders(0)
	w = a.Do(http.MethodPost, "/cart/checkout", nil)
	testutil.StatusOK(t, w, http.StatusCreated)

	var keys []string
	for _, r := range backend.Requests() {
		if r.Path == "/api/pos/orders" {
			keys = append(keys, r.Idempotency)
		}
	}
	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1])
}
