package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/client"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/session"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func loggedIn() models.SessionState {
	return models.SessionState{AccessToken: "access-1", RefreshToken: "refresh-1", TenantSlug: "warung", BranchID: "br-1"}
}

func TestCart_FollowSession(t *testing.T) {
	utils.SilenceLoggers()
	sess := session.NewMemoryStore(loggedIn())
	e := NewEngine(nil)
	unsubscribe := e.FollowSession(sess)
	defer unsubscribe()

	e.AddItem(menuItem("A", 100), 2)
	e.SetManualDiscount(dec(10))

	// rotated credential, same scope
	require.NoError(t, sess.Update(func(s *models.SessionState) { s.AccessToken, s.RefreshToken = "access-2", "refresh-2" }))
	assert.Len(t, e.Lines(), 1)

	require.NoError(t, sess.Update(func(s *models.SessionState) { s.BranchID = "br-2" }))
	assert.Empty(t, e.Lines())
	assert.True(t, e.Summary().ManualDiscount.IsZero())

	e.AddItem(menuItem("B", 50), 1)
	require.NoError(t, sess.Clear())
	assert.Empty(t, e.Lines())
}

func TestCart_ClearedWhenRefreshRejected(t *testing.T) {
	utils.SilenceLoggers()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":false,"message":"unauthorized"}`))
	}))
	defer server.Close()

	sess := session.NewMemoryStore(loggedIn())
	api := client.New(server.URL, sess)
	e := NewEngine(nil)
	defer e.FollowSession(sess)()

	e.AddItem(menuItem("A", 100), 1)
	e.SetDetails(Details{OrderType: models.OrderTakeaway, CustomerName: "Budi"})

	_, err := api.ListOrders(context.Background())
	require.ErrorIs(t, err, client.ErrAuthentication)

	assert.Empty(t, sess.Get().AccessToken)
	snap := e.Snapshot()
	assert.Empty(t, snap.Lines)
	assert.Empty(t, snap.Details.CustomerName)
}
