package authhttp

import (
	"encoding/json"
	"fmt"
	"net/http"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// StatusError is a non-2xx answer from an auth endpoint. It unwraps to the matching
// goAuthClient sentinel when there is one.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
	sentinel   error
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.sentinel
}

func newStatusError(op string, status int, body []byte) *StatusError {
	e := &StatusError{Op: op, StatusCode: status}

	var payload ErrorResponse
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Error
	}

	switch {
	case op == "refresh" && (status == http.StatusUnauthorized || status == http.StatusForbidden):
		e.sentinel = goAuthClient.ErrRefreshRejected
	case op == "login" && status == http.StatusUnauthorized:
		e.sentinel = goAuthClient.ErrInvalidCredentials
	case op == "register" && status == http.StatusConflict:
		e.sentinel = goAuthClient.ErrAccountExists
	}
	return e
}
