package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// NetworkError is a failure to get any response: connection errors,
// timeouts, cancellation and an open circuit breaker.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0 if it has none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsServerError reports whether err is a 5xx response.
func IsServerError(err error) bool {
	return StatusCode(err) >= http.StatusInternalServerError
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// Message returns the human-readable text to show for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if IsNetwork(err) {
		return "the server could not be reached"
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
