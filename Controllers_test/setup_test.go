package Controllers_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/testutil"
)

func seedMenu() []models.MenuItem {
	return []models.MenuItem{
		{ID: "nasi-goreng", Name: "Nasi Goreng", Price: decimal.NewFromInt(25000), Available: true},
		{ID: "es-teh", Name: "Es Teh", Price: decimal.NewFromInt(8000), Available: true},
		{ID: "sate", Name: "Sate Ayam", Price: decimal.NewFromInt(30000), Available: false},
	}
}

func setupAgent(t *testing.T) (*testutil.FakeBackend, *testutil.Agent) {
	backend := testutil.NewFakeBackend(t)
	backend.SetMenu(seedMenu()...)
	return backend, testutil.NewAgent(t, backend)
}

func addItem(t *testing.T, a *testutil.Agent, itemID string, qty int) {
	t.Helper()
	w := a.Do("POST", "/cart/items", map[string]interface{}{"itemId": itemID, "quantity": qty})
	testutil.StatusOK(t, w, 200)
}
