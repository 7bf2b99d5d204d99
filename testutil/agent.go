package testutil

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/client"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/orders"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/session"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// OperatorPin is the PIN every test agent accepts.
const OperatorPin = "1234"

// Agent is a fully wired terminal agent running against a FakeBackend.
type Agent struct {
	Backend  *FakeBackend
	Store    *session.GormStore
	Client   *client.Client
	Cart     *cart.Engine
	Tracker  *orders.Tracker
	Sync     *services.OrderSync
	Menu     *services.MenuCatalog
	Checkout *services.CheckoutService
	Bridge   *realtime.Bridge
	Router   *gin.Engine
}

// NewAgent wires every component the way main does, with a sqlite session
// store in a temporary directory and polling disabled.
func NewAgent(t *testing.T, backend *FakeBackend) *Agent {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SilenceLoggers()

	cfg := &config.Config{
		SessionDriver: "sqlite",
		SessionDSN:    filepath.Join(t.TempDir(), "session.db"),
	}
	db, err := config.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	store, err := session.NewGormStore(db, backend.Session("warung", "br-1"))
	require.NoError(t, err)

	branchID := func() string { return store.Get().BranchID }
	api := client.New(backend.URL(), store, client.WithTimeout(5*time.Second))

	a := &Agent{Backend: backend, Store: store, Client: api}
	a.Cart = cart.NewEngine(api, cart.WithBranch(branchID))
	unfollowCart := a.Cart.FollowSession(store)
	a.Tracker = orders.NewTracker(api, branchID)
	a.Menu = services.NewMenuCatalog(api, branchID)
	a.Sync = services.NewOrderSync(a.Tracker, 0)
	a.Sync.SetRateLimit(time.Millisecond, 1)
	unfollow := a.Sync.FollowSession(store)

	a.Bridge = realtime.NewBridge(backend.WSURL(), store, a.Sync.HandleEvent)
	a.Bridge.ReconnectDelay = 50 * time.Millisecond
	unwire := services.WireScreens(a.Cart, a.Tracker, a.Bridge)

	a.Checkout = services.NewCheckoutService(a.Cart, api, a.Tracker, a.Sync, store)

	hash, err := bcrypt.GenerateFromPassword([]byte(OperatorPin), bcrypt.MinCost)
	require.NoError(t, err)

	a.Router = router.SetupRouter(router.Deps{
		Session:       store,
		Cart:          a.Cart,
		Tracker:       a.Tracker,
		Sync:          a.Sync,
		Checkout:      a.Checkout,
		Menu:          a.Menu,
		Bridge:        a.Bridge,
		PinHash:       string(hash),
		CORSOrigin:    "http://localhost:3000",
		RateLimit:     1000,
		UpstreamEvery: time.Millisecond,
		UpstreamBurst: 100,
	})

	a.Sync.Start()
	a.Bridge.Start()

	t.Cleanup(func() {
		a.Bridge.Close()
		a.Sync.Stop()
		unwire()
		unfollow()
		unfollowCart()
		store.Stop()
		a.Cart.WaitDeals()
	})
	return a
}

// Do sends a request through the router with the operator PIN.
func (a *Agent) Do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middlewares.HeaderOperatorPin, OperatorPin)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

// Envelope is the local API response body.
type Envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// DecodeData unmarshals the data field of a local API response into out.
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
	}
	return env
}

// Eventually polls cond for up to two seconds.
func Eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond, msg)
}

// StatusOK fails the test unless w carries want.
func StatusOK(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}

