// Package realtime keeps the push connection to the API server's order event
// stream for the current tenant and branch.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/session"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	EventOrderCreated = "order:created"
	EventOrderUpdated = "order:updated"
)

// DefaultReconnectDelay is the pause between connection attempts.
var DefaultReconnectDelay = 3 * time.Second

// Message is the frame the server pushes.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Event is an order change signal. OrderID is empty when the payload did not
// carry one.
type Event struct {
	Name    string
	OrderID string
	Data    json.RawMessage
}

// Bridge holds at most one connection, opened for the session's current
// (tenant, branch, credential) scope. A scope change closes it and opens a
// new one; without a usable credential and tenant no connection is made.
type Bridge struct {
	URL            string
	Dialer         *websocket.Dialer
	ReconnectDelay time.Duration

	session session.Context
	handler func(Event)

	mu          sync.Mutex
	conn        *websocket.Conn
	cancel      context.CancelFunc
	connected   bool
	closed      bool
	unsubscribe func()
	stateFns    []func(bool)
	wg          sync.WaitGroup
}

func NewBridge(rawURL string, sess session.Context, handler func(Event)) *Bridge {
	return &Bridge{
		URL:            rawURL,
		Dialer:         websocket.DefaultDialer,
		ReconnectDelay: DefaultReconnectDelay,
		session:        sess,
		handler:        handler,
	}
}

// OnStateChange registers fn to be called whenever the connection opens or
// drops. Register before Start.
func (b *Bridge) OnStateChange(fn func(connected bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stateFns = append(b.stateFns, fn)
}

// Start connects for the current scope and follows session changes.
func (b *Bridge) Start() {
	b.mu.Lock()
	if b.closed || b.unsubscribe != nil {
		b.mu.Unlock()
		return
	}
	b.unsubscribe = b.session.Subscribe(func(old, current models.SessionState) {
		if !old.SameScope(current) {
			b.rescope(current)
		}
	})
	b.mu.Unlock()

	b.rescope(b.session.Get())
}

// Connected reports whether a connection is currently open.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Close tears down the connection and stops following the session.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	b.stopLocked()
	b.mu.Unlock()

	b.wg.Wait()
	b.setConnected(false)
}

func (b *Bridge) rescope(scope models.SessionState) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.stopLocked()
	notify := b.setConnectedLocked(false)

	err := usable(scope)
	if err == nil {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		b.wg.Add(1)
		go b.run(ctx, scope)
	}
	b.mu.Unlock()

	notify()
	if err != nil {
		utils.InfoLogger.Infof("realtime: not connecting: %v", err)
	}
}

// stopLocked cancels the running loop and closes its connection.
func (b *Bridge) stopLocked() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

func (b *Bridge) run(ctx context.Context, scope models.SessionState) {
	defer b.wg.Done()

	for {
		if err := usable(scope); err != nil {
			utils.InfoLogger.Infof("realtime: credential no longer usable: %v", err)
			return
		}

		conn, err := b.dial(ctx, scope)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			utils.ErrorLogger.Warnf("realtime: connect failed: %v", err)
		case b.adopt(ctx, conn):
			utils.InfoLogger.Infof("realtime: connected for branch %s", scope.BranchID)
			b.readLoop(conn)
			if !b.drop(ctx, conn) {
				return
			}
			utils.ErrorLogger.Warn("realtime: connection lost")
		default:
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(b.ReconnectDelay):
		}
	}
}

func (b *Bridge) dial(ctx context.Context, scope models.SessionState) (*websocket.Conn, error) {
	u, err := url.Parse(b.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", scope.AccessToken)
	if scope.BranchID != "" {
		q.Set("branchId", scope.BranchID)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+scope.AccessToken)
	if scope.TenantSlug != "" {
		header.Set("x-tenant-slug", scope.TenantSlug)
	}
	if scope.BranchID != "" {
		header.Set("x-branch-id", scope.BranchID)
	}

	conn, _, err := b.Dialer.DialContext(ctx, u.String(), header)
	return conn, err
}

// adopt makes conn the live connection unless the loop was cancelled while
// dialing. Cancellation happens under b.mu, so the check is exact.
func (b *Bridge) adopt(ctx context.Context, conn *websocket.Conn) bool {
	b.mu.Lock()
	if ctx.Err() != nil {
		b.mu.Unlock()
		conn.Close()
		return false
	}
	b.conn = conn
	notify := b.setConnectedLocked(true)
	b.mu.Unlock()

	notify()
	return true
}

// drop forgets a connection whose read loop ended. It reports whether the
// loop should try again.
func (b *Bridge) drop(ctx context.Context, conn *websocket.Conn) bool {
	b.mu.Lock()
	if b.conn == conn {
		b.conn.Close()
		b.conn = nil
	}
	if ctx.Err() != nil {
		b.mu.Unlock()
		return false
	}
	notify := b.setConnectedLocked(false)
	b.mu.Unlock()

	notify()
	return true
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			utils.ErrorLogger.Warnf("realtime: bad frame: %v", err)
			continue
		}
		if msg.Event != EventOrderCreated && msg.Event != EventOrderUpdated {
			continue
		}
		if b.handler != nil {
			b.handler(Event{Name: msg.Event, OrderID: orderID(msg.Data), Data: msg.Data})
		}
	}
}

func (b *Bridge) setConnected(v bool) {
	b.mu.Lock()
	notify := b.setConnectedLocked(v)
	b.mu.Unlock()
	notify()
}

// setConnectedLocked records v and returns the callback that informs state
// listeners; it must be called after b.mu is released.
func (b *Bridge) setConnectedLocked(v bool) func() {
	if b.connected == v {
		return func() {}
	}
	b.connected = v
	fns := append([]func(bool){}, b.stateFns...)
	return func() {
		for _, fn := range fns {
			fn(v)
		}
	}
}

func usable(scope models.SessionState) error {
	if !scope.HasScope() {
		return errNoTenant
	}
	return utils.TokenUsable(scope.AccessToken, time.Now())
}

func orderID(data json.RawMessage) string {
	var payload struct {
		ID      string `json:"id"`
		OrderID string `json:"orderId"`
	}
	if len(data) == 0 || json.Unmarshal(data, &payload) != nil {
		return ""
	}
	if payload.OrderID != "" {
		return payload.OrderID
	}
	return payload.ID
}
