package Controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/testutil"
)

type statusBody struct {
	TenantSlug        string `json:"tenantSlug"`
	BranchID          string `json:"branchId"`
	CredentialOK      bool   `json:"credentialOk"`
	RealtimeConnected bool   `json:"realtimeConnected"`
}

func TestTerminalStatus(t *testing.T) {
	_, a := setupAgent(t)

	testutil.Eventually(t, a.Bridge.Connected, "realtime never connected")

	var st statusBody
	testutil.DecodeData(t, a.Do(http.MethodGet, "/status", nil), &st)
	assert.Equal(t, "warung", st.TenantSlug)
	assert.Equal(t, "br-1", st.BranchID)
	assert.True(t, st.CredentialOK)
	assert.True(t, st.RealtimeConnected)
}

func TestSwitchBranchRescopes(t *testing.T) {
	backend, a := setupAgent(t)
	first := seedOrder("a", models.StatusNewOrder, time.Now())
	second := seedOrder("b", models.StatusNewOrder, time.Now())
	second.BranchID = "br-2"
	backend.AddOrder(first)
	backend.AddOrder(second)

	active := refreshOrders(t, a)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].ID)
	addItem(t, a, "nasi-goreng", 1)

	w := a.Do(http.MethodPut, "/session/branch", map[string]string{"branchId": "br-2"})
	testutil.StatusOK(t, w, http.StatusOK)
	assert.Equal(t, "br-2", a.Store.Get().BranchID)

	// lines priced for br-1 are not carried over
	var state cart.State
	testutil.DecodeData(t, a.Do(http.MethodGet, "/cart", nil), &state)
	assert.Empty(t, state.Lines)

	testutil.Eventually(t, func() bool {
		list := a.Tracker.Active()
		return len(list) == 1 && list[0].ID == "b"
	}, "tracker never reloaded for the new branch")

	w = a.Do(http.MethodPut, "/session/branch", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKitchenScreenReceivesOrders(t *testing.T) {
	backend, a := setupAgent(t)
	server := httptest.NewServer(a.Router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/kds/ws?role=kitchen&pin=" + testutil.OperatorPin
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first kds.Message
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, kds.EventOrdersUpdate, first.Event)

	testutil.Eventually(t, func() bool { return backend.ConnCount() == 1 }, "realtime never subscribed")
	backend.AddOrder(seedOrder("k1", models.StatusNewOrder, time.Now()))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.NotEqual(t, kds.EventCartUpdate, msg.Event)
		if msg.Event != kds.EventOrdersUpdate {
			continue
		}
		var view struct {
			Kitchen []models.OrderRecord `json:"kitchen"`
		}
		require.NoError(t, json.Unmarshal(msg.Data, &view))
		if len(view.Kitchen) == 1 {
			assert.Equal(t, "k1", view.Kitchen[0].ID)
			return
		}
	}
}

func TestScreenRoleRejected(t *testing.T) {
	_, a := setupAgent(t)
	w := a.Do(http.MethodGet, "/kds/ws?role=printer", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
