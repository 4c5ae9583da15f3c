package bitbucket

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIErrorMessage(t *testing.T) {
	err := newAPIError(404, []byte(`{"error": {"message": "not found"}}`))
	if got := err.Error(); got != `API error 404: {"error": {"message": "not found"}}` {
		t.Errorf("Error() = %q", got)
	}
}

func TestTruncateBody(t *testing.T) {
	short := strings.Repeat("a", maxErrorBodyLen)
	if got := truncateBody(short); got != short {
		t.Error("body at the bound must not be truncated")
	}

	long := strings.Repeat("a", maxErrorBodyLen+1)
	got := truncateBody(long)
	if len(got) != maxErrorBodyLen+len(truncationMarker) {
		t.Errorf("len = %d", len(got))
	}
	if !strings.HasSuffix(got, truncationMarker) {
		t.Error("truncated body must end with the marker")
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		status  int
		check   func(error) bool
		name    string
		matches bool
	}{
		{404, IsNotFound, "IsNotFound/404", true},
		{403, IsNotFound, "IsNotFound/403", false},
		{401, IsAuthError, "IsAuthError/401", true},
		{403, IsAuthError, "IsAuthError/403", true},
		{500, IsAuthError, "IsAuthError/500", false},
		{StatusTimeout, IsTimeout, "IsTimeout/408", true},
		{StatusNetworkError, IsNetworkError, "IsNetworkError/0", true},
		{200, IsNetworkError, "IsNetworkError/200", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &APIError{StatusCode: tt.status, Message: "x"}
			if got := tt.check(err); got != tt.matches {
				t.Errorf("got %v, want %v", got, tt.matches)
			}
		})
	}
}

func TestClassifiersIgnoreOtherErrors(t *testing.T) {
	plain := errors.New("nope")
	if IsNotFound(plain) || IsAuthError(plain) || IsTimeout(plain) || IsNetworkError(plain) {
		t.Error("plain errors must not match any classifier")
	}
}

func TestIsAPIErrorUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", &APIError{StatusCode: 409, Message: "conflict"})
	apiErr, ok := IsAPIError(wrapped)
	if !ok {
		t.Fatal("IsAPIError() should find a wrapped *APIError")
	}
	if apiErr.StatusCode != 409 {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
}
