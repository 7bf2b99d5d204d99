package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthentication means the credential was rejected and could not be
// refreshed. The session has been cleared when this is returned.
var ErrAuthentication = errors.New("authentication failed, sign in again")

// APIError is a transient failure: the request did not reach the server or
// the server answered with a non-2xx status that is not a domain rejection.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: api %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// DomainError is a business rule rejection such as an inactive subscription.
// The terminal renders these as read-only or upgrade notices.
type DomainError struct {
	Status  int
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("rejected by server (%s): %s", e.Code, e.Message)
}

// Known domain codes.
const (
	CodeSubscriptionInactive = "SUBSCRIPTION_INACTIVE"
	CodeBranchClosed         = "BRANCH_CLOSED"
	CodeItemUnavailable      = "ITEM_UNAVAILABLE"
)

// errorBody is the error envelope of the API server.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	if b.Error != "" {
		return b.Error
	}
	return "unknown error"
}

func isDomainStatus(status int) bool {
	switch status {
	case http.StatusPaymentRequired, http.StatusForbidden, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// IsDomain reports whether err carries a DomainError.
func IsDomain(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// IsTransient reports whether err carries an APIError.
func IsTransient(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}
