// ABOUTME: Sentinel errors for console API calls
// ABOUTME: Maps HTTP status codes onto stable error values

package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/2389/relay-console/internal/relay"
)

var (
	// ErrUnauthorized is returned for missing or wrong API keys.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when the server has no such resource.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when the server refuses a duplicate.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable is returned when the server cannot be reached.
	ErrUnavailable = errors.New("server unavailable")
)

type errorBody struct {
	Error string `json:"error"`
}

// mapStatus converts a non-2xx response into a sentinel error, keeping
// the server's message where one was sent.
func mapStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := http.StatusText(resp.StatusCode)
	var parsed errorBody
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		message = parsed.Error
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = ErrUnauthorized
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusConflict:
		sentinel = ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel = relay.ErrValidation
	default:
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, message)
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}
