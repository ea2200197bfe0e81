package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoSession is returned when a protected call is attempted without a
// bearer token. The call is never issued; callers should send the user to
// the login flow instead of showing an error banner.
var ErrNoSession = errors.New("no session token")

// StatusError is any non-success HTTP response. Detail carries the
// server-supplied message when the body had one.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Detail)
}

// IsUnauthorized reports whether err is a 401 response. Callers must treat
// this as session death: clear the stored session and return to login.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusUnauthorized
}

// ValidationError means the server answered with a success status but the
// body did not match the endpoint's contract. Distinct from StatusError so
// callers can tell a malformed backend from a rejecting one.
type ValidationError struct {
	Endpoint string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid response from %s: %s", e.Endpoint, e.Reason)
}

// errorDetail extracts the human-readable message from an error body. The
// backend uses {"detail": ...}; register uses {"msg": ...}; anything else
// falls back to the raw text.
func errorDetail(body []byte) string {
	var m struct {
		Detail string `json:"detail"`
		Msg    string `json:"msg"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &m); err == nil {
		switch {
		case m.Detail != "":
			return m.Detail
		case m.Msg != "":
			return m.Msg
		case m.Error != "":
			return m.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
