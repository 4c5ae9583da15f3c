package bitbucket

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// maxErrorBodyLen bounds the response body carried in an APIError so a
	// pathological server cannot blow up memory or logs.
	maxErrorBodyLen = 2000
	// truncationMarker is appended when an error body exceeds the bound.
	truncationMarker = "... (truncated)"
)

// Status codes used for failures that never reached the server.
const (
	// StatusNetworkError marks DNS, connection and other transport-level
	// failures where no HTTP status exists.
	StatusNetworkError = 0
	// StatusTimeout marks a client-enforced timeout abort.
	StatusTimeout = http.StatusRequestTimeout
)

// APIError represents a failed Bitbucket API call. StatusCode is 0 for
// network-level failures, 408 for a client-side timeout, and the server's
// real HTTP status otherwise. Message is the response body, truncated.
type APIError struct {
	StatusCode int
	Message    string
}

// Error returns the error message in the form "API error {status}: {body}".
func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// newAPIError builds an APIError from a status code and raw response body,
// applying the body length bound.
func newAPIError(statusCode int, body []byte) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    truncateBody(string(body)),
	}
}

// truncateBody caps a response body at maxErrorBodyLen characters, appending
// the truncation marker when anything was cut.
func truncateBody(body string) string {
	if len(body) <= maxErrorBodyLen {
		return body
	}
	return body[:maxErrorBodyLen] + truncationMarker
}

// IsAPIError extracts the *APIError from err, if any.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	apiErr, ok := IsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// IsAuthError reports whether err is an authentication or permission
// failure (401 or 403).
func IsAuthError(err error) bool {
	apiErr, ok := IsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// IsTimeout reports whether err is a client-enforced timeout.
func IsTimeout(err error) bool {
	apiErr, ok := IsAPIError(err)
	return ok && apiErr.StatusCode == StatusTimeout
}

// IsNetworkError reports whether err is a transport-level failure that
// never produced an HTTP status.
func IsNetworkError(err error) bool {
	apiErr, ok := IsAPIError(err)
	return ok && apiErr.StatusCode == StatusNetworkError
}
