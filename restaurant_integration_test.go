package main

import (
	"net/http"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/testutil"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func TestMain(m *testing.M) {
	utils.SilenceLoggers()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestEndToEndIntegration runs the main terminal flow against a fake API
// server:
// 0. Seed menu and deals, wire the agent
// 1. Ring up items, deal applied automatically
// 2. Checkout => order created, cart cleared
// 3. Cashier advances the order => PROCESSING
// 4. Kitchen marks it READY on another device => push => cache follows
// 5. Access token expires => next call refreshes it transparently
// 6. Server rejects the next order => cart kept, code surfaced
func TestEndToEndIntegration(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	seedBackend(backend)
	agent := testutil.NewAgent(t, backend)

	testutil.Eventually(t, func() bool { return backend.ConnCount() == 1 }, "realtime never subscribed")

	ringUpTest(t, agent)
	orderID := checkoutTest(t, agent, backend)
	advanceTest(t, agent, orderID)
	kitchenPushTest(t, agent, backend, orderID)
	expiredTokenTest(t, agent, backend)
	rejectedOrderTest(t, agent, backend)
}

func seedBackend(backend *testutil.FakeBackend) {
	backend.SetMenu(
		models.MenuItem{ID: "nasi-goreng", Name: "Nasi Goreng", Price: decimal.NewFromInt(15000), Available: true},
		models.MenuItem{ID: "es-jeruk", Name: "Es Jeruk", Price: decimal.NewFromInt(7000), Available: true},
	)
	backend.SetDeals(models.Deal{
		ID:              "min30",
		Name:            "Belanja 30rb hemat 5rb",
		DealType:        models.DealMinimumPurchase,
		DiscountAmount:  decimal.NewFromInt(5000),
		MinimumPurchase: decimal.NewFromInt(30000),
	})
}

func ringUpTest(t *testing.T, a *testutil.Agent) {
	for _, body := range []map[string]interface{}{
		{"itemId": "nasi-goreng", "quantity": 2},
		{"itemId": "es-jeruk", "quantity": 1},
	} {
		w := a.Do(http.MethodPost, "/cart/items", body)
		if w.Code != http.StatusOK {
			t.Fatalf("ringUpTest fail: code=%d, body=%s", w.Code, w.Body.String())
		}
	}
	a.Cart.WaitDeals()

	var state cart.State
	testutil.DecodeData(t, a.Do(http.MethodGet, "/cart", nil), &state)
	if !state.Summary.Subtotal.Equal(decimal.NewFromInt(37000)) {
		t.Fatalf("expected subtotal 37000, got %s", state.Summary.Subtotal)
	}
	if !state.Summary.Total.Equal(decimal.NewFromInt(32000)) {
		t.Fatalf("expected deal applied, total=%s deals=%v", state.Summary.Total, state.SelectedDeals)
	}

	w := a.Do(http.MethodPut, "/cart/details", map[string]string{
		"orderType":     string(models.OrderTakeaway),
		"paymentMethod": string(models.PaymentCash),
		"customerName":  "Budi",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set details fail: code=%d, body=%s", w.Code, w.Body.String())
	}
}

func checkoutTest(t *testing.T, a *testutil.Agent, backend *testutil.FakeBackend) string {
	w := a.Do(http.MethodPost, "/cart/checkout", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("checkoutTest fail: code=%d, body=%s", w.Code, w.Body.String())
	}

	var created models.CreatedOrder
	testutil.DecodeData(t, w, &created)

	rec, ok := backend.Order(created.ID)
	if !ok {
		t.Fatalf("order %s not on server", created.ID)
	}
	if !rec.Total.Equal(decimal.NewFromInt(32000)) {
		t.Fatalf("server total = %s, want 32000", rec.Total)
	}
	if len(rec.AppliedDeals) != 1 {
		t.Fatalf("expected one applied deal, got %v", rec.AppliedDeals)
	}

	if lines := a.Cart.Lines(); len(lines) != 0 {
		t.Fatalf("cart not cleared after checkout: %v", lines)
	}
	if _, ok := a.Tracker.Get(created.ID); !ok {
		t.Fatalf("order %s missing from tracker", created.ID)
	}
	return created.ID
}

func advanceTest(t *testing.T, a *testutil.Agent, orderID string) {
	w := a.Do(http.MethodPost, "/orders/"+orderID+"/advance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("advanceTest fail: code=%d, body=%s", w.Code, w.Body.String())
	}
	var rec models.OrderRecord
	testutil.DecodeData(t, w, &rec)
	if rec.Status != models.StatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", rec.Status)
	}
}

func kitchenPushTest(t *testing.T, a *testutil.Agent, backend *testutil.FakeBackend, orderID string) {
	if err := backend.SetStatus(orderID, models.StatusReady); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, func() bool {
		rec, ok := a.Tracker.Get(orderID)
		return ok && rec.Status == models.StatusReady
	}, "push never reached the tracker")

	var kitchen []models.OrderRecord
	testutil.DecodeData(t, a.Do(http.MethodGet, "/kitchen/display", nil), &kitchen)
	if len(kitchen) != 1 || kitchen[0].Status != models.StatusReady {
		t.Fatalf("kitchen display = %+v", kitchen)
	}
}

func expiredTokenTest(t *testing.T, a *testutil.Agent, backend *testutil.FakeBackend) {
	old := a.Store.Get().AccessToken
	backend.ExpireAccessToken()

	w := a.Do(http.MethodPost, "/orders/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh with expired token fail: code=%d, body=%s", w.Code, w.Body.String())
	}
	if a.Store.Get().AccessToken == old {
		t.Fatal("access token not rotated")
	}

	testutil.Eventually(t, func() bool { return backend.ConnCount() == 1 }, "realtime did not resubscribe")
}

func rejectedOrderTest(t *testing.T, a *testutil.Agent, backend *testutil.FakeBackend) {
	backend.RejectOrders(http.StatusUnprocessableEntity, "BRANCH_CLOSED")
	before := backend.OrderCount()

	w := a.Do(http.MethodPost, "/cart/items", map[string]interface{}{"itemId": "es-jeruk", "quantity": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("add item fail: code=%d", w.Code)
	}

	w = a.Do(http.MethodPost, "/cart/checkout", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var data map[string]interface{}
	testutil.DecodeData(t, w, &data)
	if data["code"] != "BRANCH_CLOSED" {
		t.Fatalf("expected BRANCH_CLOSED, got %v", data["code"])
	}
	if len(a.Cart.Lines()) != 1 {
		t.Fatal("cart should survive a rejected order")
	}
	if backend.OrderCount() != before {
		t.Fatal("rejected order was stored")
	}
}
