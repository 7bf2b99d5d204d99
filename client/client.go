// Package client talks to the restaurant API server on behalf of the terminal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/session"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	HeaderBranch      = "x-branch-id"
	HeaderTenant      = "x-tenant-slug"
	HeaderRequestID   = "x-request-id"
	HeaderIdempotency = "Idempotency-Key"
)

// Client is the REST client. Every call carries the bearer credential and the
// tenant/branch scope of Session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    session.Context

	refreshMu sync.Mutex
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the per request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

func New(baseURL string, sess session.Context, opts ...Option) *Client {
	c := &Client{
		BaseURL: baseURL,
		Session: sess,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type request struct {
	method  string
	path    string
	body    any
	out     any
	headers map[string]string
}

// do runs req, refreshing the credential once on 401/403.
func (c *Client) do(ctx context.Context, req request) error {
	var payload []byte
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
		payload = b
	}

	token := c.Session.Get().AccessToken
	status, body, err := c.send(ctx, req, payload, token)
	if err != nil {
		return err
	}

	if isAuthStatus(status) && !hasDomainCode(status, body) {
		utils.InfoLogger.Infof("%s %s answered %d, refreshing credential", req.method, req.path, status)
		if err := c.refreshFrom(ctx, token); err != nil {
			return err
		}
		status, body, err = c.send(ctx, req, payload, c.Session.Get().AccessToken)
		if err != nil {
			return err
		}
		if isAuthStatus(status) && !hasDomainCode(status, body) {
			c.dropSession()
			return ErrAuthentication
		}
	}

	if status < 200 || status >= 300 {
		return c.statusError(req, status, body)
	}

	if req.out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := decode(body, req.out); err != nil {
			return &APIError{Method: req.method, Path: req.path, Status: status, Message: "malformed response", Err: err}
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, req request, payload []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.BaseURL+req.path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}

	state := c.Session.Get()
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if state.BranchID != "" {
		httpReq.Header.Set(HeaderBranch, state.BranchID)
	}
	if state.TenantSlug != "" {
		httpReq.Header.Set(HeaderTenant, state.TenantSlug)
	}
	httpReq.Header.Set(HeaderRequestID, uuid.NewString())
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return 0, nil, &APIError{Method: req.method, Path: req.path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &APIError{Method: req.method, Path: req.path, Status: resp.StatusCode, Message: "read body", Err: err}
	}

	utils.InfoLogger.Debugf("%s %s -> %d", req.method, req.path, resp.StatusCode)
	return resp.StatusCode, body, nil
}

func (c *Client) statusError(req request, status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	if isDomainStatus(status) && eb.Code != "" {
		return &DomainError{Status: status, Code: eb.Code, Message: eb.text()}
	}

	msg := eb.text()
	if eb.Message == "" && eb.Error == "" && len(body) > 0 && len(body) < 256 {
		msg = string(bytes.TrimSpace(body))
	}
	return &APIError{Method: req.method, Path: req.path, Status: status, Message: msg}
}

func hasDomainCode(status int, body []byte) bool {
	if !isDomainStatus(status) {
		return false
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return false
	}
	return eb.Code != ""
}

// decode accepts both bare payloads and the {"data": ...} envelope.
func decode(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
			return json.Unmarshal(env.Data, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshFrom exchanges the refresh token unless another caller already
// replaced staleToken while this one waited.
func (c *Client) refreshFrom(ctx context.Context, staleToken string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	state := c.Session.Get()
	if state.AccessToken != "" && state.AccessToken != staleToken {
		return nil
	}
	if state.RefreshToken == "" {
		c.dropSession()
		return ErrAuthentication
	}

	req := request{method: http.MethodPost, path: "/api/auth/refresh"}
	payload, err := json.Marshal(refreshRequest{RefreshToken: state.RefreshToken})
	if err != nil {
		return err
	}

	status, body, err := c.send(ctx, req, payload, "")
	if err != nil {
		// The refresh endpoint could not be reached; the session may still be
		// valid, so keep it and report the transient failure.
		return err
	}
	if status < 200 || status >= 300 {
		utils.ErrorLogger.Warnf("credential refresh rejected with %d", status)
		c.dropSession()
		return ErrAuthentication
	}

	var tokens refreshResponse
	if err := decode(body, &tokens); err != nil || tokens.AccessToken == "" {
		c.dropSession()
		return ErrAuthentication
	}

	return c.Session.Update(func(s *models.SessionState) {
		s.AccessToken = tokens.AccessToken
		if tokens.RefreshToken != "" {
			s.RefreshToken = tokens.RefreshToken
		}
	})
}

func (c *Client) dropSession() {
	utils.ErrorLogger.Warn("authentication lost, clearing session")
	if err := c.Session.Clear(); err != nil {
		utils.ErrorLogger.Errorf("clear session: %v", err)
	}
}

// Refresh forces a credential refresh.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshFrom(ctx, c.Session.Get().AccessToken)
}

// ListOrders calls GET /api/admin/orders.
func (c *Client) ListOrders(ctx context.Context) ([]models.OrderRecord, error) {
	var out []models.OrderRecord
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/orders", out: &out})
	return out, err
}

// CreateOrder calls PUT /api/pos/orders. idempotencyKey lets the server drop
// a duplicate submission of the same cart.
func (c *Client) CreateOrder(ctx context.Context, order models.PendingOrder, idempotencyKey string) (*models.CreatedOrder, error) {
	var out models.CreatedOrder
	req := request{method: http.MethodPut, path: "/api/pos/orders", body: order, out: &out}
	if idempotencyKey != "" {
		req.headers = map[string]string{HeaderIdempotency: idempotencyKey}
	}
	if err := c.do(ctx, req); err != nil {
		return nil, err
	}
	return &out, nil
}

type statusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// UpdateOrderStatus calls PUT /api/admin/orders/:id/status.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.OrderRecord, error) {
	var out models.OrderRecord
	path := "/api/admin/orders/" + url.PathEscape(id) + "/status"
	if err := c.do(ctx, request{method: http.MethodPut, path: path, body: statusRequest{Status: status}, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindApplicableDeals calls POST /api/deals/find-applicable.
func (c *Client) FindApplicableDeals(ctx context.Context, q models.DealQuery) ([]models.Deal, error) {
	var out []models.Deal
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/deals/find-applicable", body: q, out: &out})
	return out, err
}

// ListMenuItems calls GET /api/menu-items; prices carry the branch override.
func (c *Client) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	var out []models.MenuItem
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/menu-items", out: &out})
	return out, err
}
