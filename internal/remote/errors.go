package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse is returned when a 2xx body cannot be decoded or misses
// required fields. Callers treat it like any other remote failure.
var ErrMalformedResponse = errors.New("remote: malformed response")

// APIError is a non-2xx answer from the remote API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: status %d", e.Status)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

func (e *APIError) Forbidden() bool { return e.Status == http.StatusForbidden }

// StatusOf extracts the remote status and message from err.
// ok is false when err did not come from a remote answer (transport failure, decode error).
func StatusOf(err error) (status int, message string, ok bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Message, true
	}
	return 0, "", false
}
