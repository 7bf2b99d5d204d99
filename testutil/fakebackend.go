// Package testutil provides an in-process stand-in for the restaurant API
// server: REST endpoints, credential refresh and the order push channel.
package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// RecordedRequest is what the fake saw of one API call.
type RecordedRequest struct {
	Method      string
	Path        string
	BranchID    string
	TenantSlug  string
	Idempotency string
}

type FakeBackend struct {
	Server *httptest.Server
	Secret []byte

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	menu         []models.MenuItem
	deals        []models.Deal
	orders       map[string]models.OrderRecord
	byKey        map[string]string
	nextID       int
	rotations    int
	rejectCode   string
	rejectStatus int
	failStatus   int
	requests     []RecordedRequest
	conns        map[*websocket.Conn]bool
	upgrader     websocket.Upgrader
}

func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeBackend{
		Secret: []byte("fake-backend-secret"),
		orders: make(map[string]models.OrderRecord),
		byKey:  make(map[string]string),
		conns:  make(map[*websocket.Conn]bool),
	}
	f.rotateTokens()

	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Close)
	return f
}

func (f *FakeBackend) routes() *gin.Engine {
	r := gin.New()
	r.Use(f.record)

	r.POST("/api/auth/refresh", f.refresh)
	r.GET("/ws", f.push)

	api := r.Group("/api")
	api.Use(f.auth)
	api.GET("/menu-items", f.listMenu)
	api.POST("/deals/find-applicable", f.findDeals)
	api.GET("/admin/orders", f.listOrders)
	api.PUT("/admin/orders/:id/status", f.updateStatus)
	api.PUT("/pos/orders", f.createOrder)
	return r
}

func (f *FakeBackend) Close() {
	f.mu.Lock()
	for conn := range f.conns {
		conn.Close()
	}
	f.conns = map[*websocket.Conn]bool{}
	f.mu.Unlock()
	f.Server.Close()
}

func (f *FakeBackend) URL() string { return f.Server.URL }

func (f *FakeBackend) WSURL() string {
	return "ws" + strings.TrimPrefix(f.Server.URL, "http") + "/ws"
}

// Session returns a scope holding the current credentials.
func (f *FakeBackend) Session(tenant, branch string) models.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.SessionState{
		AccessToken:  f.accessToken,
		RefreshToken: f.refreshToken,
		TenantSlug:   tenant,
		BranchID:     branch,
	}
}

// ExpireAccessToken invalidates the current access token; the refresh token
// stays valid.
func (f *FakeBackend) ExpireAccessToken() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessToken = "revoked-" + f.accessToken
}

func (f *FakeBackend) SetMenu(items ...models.MenuItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menu = items
}

func (f *FakeBackend) SetDeals(deals ...models.Deal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deals = deals
}

// RejectOrders makes order creation fail with a domain code until cleared
// with an empty code.
func (f *FakeBackend) RejectOrders(status int, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectStatus, f.rejectCode = status, code
}

// FailOrders makes order creation fail with a plain status until reset to 0.
func (f *FakeBackend) FailOrders(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus = status
}

// AddOrder inserts an order as if another terminal had created it.
func (f *FakeBackend) AddOrder(rec models.OrderRecord) {
	f.mu.Lock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	f.orders[rec.ID] = rec
	f.mu.Unlock()

	f.Push("order:created", rec)
}

// SetStatus changes an order as the kitchen would and pushes order:updated.
func (f *FakeBackend) SetStatus(id string, status models.OrderStatus) error {
	f.mu.Lock()
	rec, ok := f.orders[id]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("no order %s", id)
	}
	rec.Status = status
	rec.UpdatedAt = time.Now()
	f.orders[id] = rec
	f.mu.Unlock()

	f.Push("order:updated", rec)
	return nil
}

func (f *FakeBackend) Order(id string) (models.OrderRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.orders[id]
	return rec, ok
}

func (f *FakeBackend) OrderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *FakeBackend) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

func (f *FakeBackend) ConnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// Push sends {event, data} to every open push connection.
func (f *FakeBackend) Push(event string, data interface{}) {
	msg, err := json.Marshal(gin.H{"event": event, "data": data})
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			delete(f.conns, conn)
			conn.Close()
		}
	}
}

func (f *FakeBackend) rotateTokens() {
	access, err := utils.SignTestToken(f.Secret, "cashier-1", "cashier", "warung", time.Hour)
	if err != nil {
		panic(err)
	}
	f.rotations++
	f.accessToken = access
	f.refreshToken = fmt.Sprintf("refresh-%d-%d", f.rotations, time.Now().UnixNano())
}

func (f *FakeBackend) record(c *gin.Context) {
	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method:      c.Request.Method,
		Path:        c.Request.URL.Path,
		BranchID:    c.GetHeader("x-branch-id"),
		TenantSlug:  c.GetHeader("x-tenant-slug"),
		Idempotency: c.GetHeader("Idempotency-Key"),
	})
	f.mu.Unlock()
	c.Next()
}

func (f *FakeBackend) auth(c *gin.Context) {
	f.mu.Lock()
	want := "Bearer " + f.accessToken
	f.mu.Unlock()

	if c.GetHeader("Authorization") != want {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
		c.Abort()
		return
	}
	c.Next()
}

func (f *FakeBackend) refresh(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if body.RefreshToken != f.refreshToken {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("refresh token rejected"))
		return
	}
	f.rotateTokens()
	utils.RespondJSON(c, http.StatusOK, "Token refreshed", gin.H{
		"accessToken":  f.accessToken,
		"refreshToken": f.refreshToken,
	})
}

func (f *FakeBackend) push(c *gin.Context) {
	f.mu.Lock()
	valid := c.Query("token") == f.accessToken
	f.mu.Unlock()
	if !valid {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conns[conn] = true
	f.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	delete(f.conns, conn)
	f.mu.Unlock()
	conn.Close()
}

func (f *FakeBackend) listMenu(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	utils.RespondJSON(c, http.StatusOK, "List of menu items", f.menu)
}

func (f *FakeBackend) findDeals(c *gin.Context) {
	var q models.DealQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	applicable := []models.Deal{}
	for _, d := range f.deals {
		if d.DealType == models.DealMinimumPurchase && q.Subtotal.LessThan(d.MinimumPurchase) {
			continue
		}
		applicable = append(applicable, d)
	}
	utils.RespondJSON(c, http.StatusOK, "Applicable deals", applicable)
}

func (f *FakeBackend) listOrders(c *gin.Context) {
	branch := c.GetHeader("x-branch-id")

	f.mu.Lock()
	defer f.mu.Unlock()
	list := []models.OrderRecord{}
	for _, rec := range f.orders {
		if branch == "" || rec.BranchID == "" || rec.BranchID == branch {
			list = append(list, rec)
		}
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", list)
}

func (f *FakeBackend) updateStatus(c *gin.Context) {
	var body struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	f.mu.Lock()
	rec, ok := f.orders[c.Param("id")]
	if !ok {
		f.mu.Unlock()
		utils.RespondError(c, http.StatusNotFound, errors.New("order not found"))
		return
	}
	rec.Status = body.Status
	rec.UpdatedAt = time.Now()
	f.orders[rec.ID] = rec
	f.mu.Unlock()

	f.Push("order:updated", rec)
	utils.RespondJSON(c, http.StatusOK, "Order status updated", rec)
}

func (f *FakeBackend) createOrder(c *gin.Context) {
	var p models.PendingOrder
	if err := c.ShouldBindJSON(&p); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	key := c.GetHeader("Idempotency-Key")

	f.mu.Lock()
	if f.failStatus != 0 {
		status := f.failStatus
		f.mu.Unlock()
		utils.RespondError(c, status, errors.New("order service unavailable"))
		return
	}
	if f.rejectCode != "" {
		status, code := f.rejectStatus, f.rejectCode
		f.mu.Unlock()
		c.JSON(status, gin.H{"status": false, "message": "order rejected", "code": code})
		return
	}
	if id, seen := f.byKey[key]; key != "" && seen {
		rec := f.orders[id]
		f.mu.Unlock()
		utils.RespondJSON(c, http.StatusOK, "Order already created", created(rec))
		return
	}

	f.nextID++
	rec := models.OrderRecord{
		ID:            fmt.Sprintf("ord-%d", f.nextID),
		OrderNumber:   fmt.Sprintf("ORD-%04d", f.nextID),
		Status:        models.StatusNewOrder,
		Total:         p.Total,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
		BranchID:      p.BranchID,
		TableNumber:   p.TableNumber,
		CustomerName:  p.CustomerName,
		OrderType:     p.OrderType,
		PaymentMethod: p.PaymentMethod,
		AppliedDeals:  p.AppliedDeals,
	}
	for _, it := range p.Items {
		name, price := f.lookupLocked(it.ItemID)
		rec.Items = append(rec.Items, models.OrderItem{
			ItemID:    it.ItemID,
			Name:      name,
			Quantity:  it.Quantity,
			UnitPrice: price,
			Note:      it.Note,
		})
	}
	f.orders[rec.ID] = rec
	if key != "" {
		f.byKey[key] = rec.ID
	}
	f.mu.Unlock()

	f.Push("order:created", rec)
	utils.RespondJSON(c, http.StatusCreated, "Order created", created(rec))
}

func (f *FakeBackend) lookupLocked(itemID string) (string, decimal.Decimal) {
	for _, m := range f.menu {
		if m.ID == itemID {
			return m.Name, m.EffectivePrice()
		}
	}
	return itemID, decimal.Zero
}

func created(rec models.OrderRecord) models.CreatedOrder {
	return models.CreatedOrder{
		ID:          rec.ID,
		OrderNumber: rec.OrderNumber,
		Total:       rec.Total,
		Status:      rec.Status,
		CreatedAt:   rec.CreatedAt,
	}
}
