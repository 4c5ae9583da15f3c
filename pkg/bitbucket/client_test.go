package bitbucket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestClient starts an httptest server with the given handler and
// returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient("dev@example.com", "secret",
		WithBaseURL(srv.URL),
		WithTimeout(5*time.Second),
	)
	return client, srv
}

func TestBasicAuthHeader(t *testing.T) {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("dev@example.com:secret"))

	var got string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	var out map[string]interface{}
	if err := client.Get(context.Background(), "user", nil, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got != want {
		t.Errorf("Authorization = %q, want %q", got, want)
	}
}

func TestBaseURLTrailingSlashStripped(t *testing.T) {
	client := NewClient("a", "b", WithBaseURL("https://example.com/2.0///"))
	if client.BaseURL() != "https://example.com/2.0" {
		t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), "https://example.com/2.0")
	}
}

func TestQueryParamsOmitEmptyValues(t *testing.T) {
	var rawQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	var out map[string]interface{}
	err := client.Get(context.Background(), "things", map[string]string{"a": "1", "b": ""}, &out)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if !strings.Contains(rawQuery, "a=1") {
		t.Errorf("query %q should contain a=1", rawQuery)
	}
	if strings.Contains(rawQuery, "b=") {
		t.Errorf("query %q should not contain a b parameter", rawQuery)
	}
}

func TestAbsoluteURLBypassesBaseURL(t *testing.T) {
	baseHit := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		baseHit = true
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	otherHit := false
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		otherHit = true
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer other.Close()

	var out map[string]interface{}
	if err := client.Get(context.Background(), other.URL+"/elsewhere", nil, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if baseHit {
		t.Error("request to an absolute URL must not hit the configured base URL")
	}
	if !otherHit {
		t.Error("request to an absolute URL should hit that exact URL")
	}
}

func TestErrorStatusPropagated(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "Repository not found"}}`, http.StatusNotFound)
	})

	var out map[string]interface{}
	err := client.Get(context.Background(), "repositories/ws/missing", nil, &out)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}

	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error message %q should contain the status code", err.Error())
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound() should be true for a 404 error")
	}
}

func TestErrorBodyTruncated(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", 3000)))
	})

	var out map[string]interface{}
	err := client.Get(context.Background(), "things", nil, &out)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	if len(err.Error()) >= 2100 {
		t.Errorf("error message length = %d, want < 2100", len(err.Error()))
	}
	if !strings.HasSuffix(err.Error(), truncationMarker) {
		t.Errorf("error message should end with the truncation marker")
	}
}

func TestClientTimeoutMapsTo408(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("a", "b", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))

	var out map[string]interface{}
	err := client.Get(context.Background(), "slow", nil, &out)
	if err == nil {
		t.Fatal("expected timeout error")
	}

	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != StatusTimeout {
		t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, StatusTimeout)
	}
	if !IsTimeout(err) {
		t.Error("IsTimeout() should be true")
	}
}

func TestTimeoutDuringBodyStreamMapsTo408(t *testing.T) {
	// The deadline expires after the 2xx status line but before the JSON
	// body arrives, so the failure happens inside decoding.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"slug": "widgets"}`))
	}))
	defer srv.Close()

	client := NewClient("a", "b", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))

	var out map[string]interface{}
	err := client.Get(context.Background(), "slow-body", nil, &out)
	if err == nil {
		t.Fatal("expected timeout error")
	}

	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != StatusTimeout {
		t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, StatusTimeout)
	}
	if !IsTimeout(err) {
		t.Error("IsTimeout() should be true")
	}
}

func TestNetworkFailureMapsToStatusZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	unreachable := srv.URL
	srv.Close()

	client := NewClient("a", "b", WithBaseURL(unreachable), WithTimeout(time.Second))

	var out map[string]interface{}
	err := client.Get(context.Background(), "anything", nil, &out)
	if err == nil {
		t.Fatal("expected network error")
	}

	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != StatusNetworkError {
		t.Errorf("StatusCode = %d, want 0", apiErr.StatusCode)
	}
	if !IsNetworkError(err) {
		t.Error("IsNetworkError() should be true")
	}
}

func TestGetRawForcesText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// JSON content type, but the caller asked for raw text.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hello": "world"}`))
	})

	text, err := client.GetRaw(context.Background(), "raw", nil)
	if err != nil {
		t.Fatalf("GetRaw() error = %v", err)
	}
	if text != `{"hello": "world"}` {
		t.Errorf("GetRaw() = %q, want the verbatim body", text)
	}
}

func TestNonJSONResponseIntoStruct(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain text"))
	})

	var out map[string]interface{}
	err := client.Get(context.Background(), "things", nil, &out)
	if err == nil {
		t.Fatal("expected error when decoding a text response into a struct")
	}
}

func TestNonJSONResponseIntoString(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("diff --git a b"))
	})

	var text string
	if err := client.Get(context.Background(), "diff", nil, &text); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if text != "diff --git a b" {
		t.Errorf("text = %q", text)
	}
}

func TestPostSendsJSONBody(t *testing.T) {
	var contentType string
	var received map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	})

	var out map[string]interface{}
	err := client.Post(context.Background(), "things", map[string]string{"title": "hello"}, &out)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if received["title"] != "hello" {
		t.Errorf("body = %v, want title=hello", received)
	}
}

func TestPostFormSetsMultipartContentType(t *testing.T) {
	var contentType, message, fileContent string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
		}
		message = r.FormValue("message")
		fileContent = r.FormValue("docs/readme.md")
		w.WriteHeader(http.StatusCreated)
	})

	form, err := NewFileForm(map[string]string{
		"message":        "update docs",
		"docs/readme.md": "# hi",
	})
	if err != nil {
		t.Fatalf("NewFileForm() error = %v", err)
	}

	if err := client.PostForm(context.Background(), "repositories/ws/site/src", form, nil); err != nil {
		t.Fatalf("PostForm() error = %v", err)
	}

	if !strings.HasPrefix(contentType, "multipart/form-data; boundary=") {
		t.Errorf("Content-Type = %q, want multipart/form-data with boundary", contentType)
	}
	if message != "update docs" {
		t.Errorf("message field = %q", message)
	}
	if fileContent != "# hi" {
		t.Errorf("file field = %q", fileContent)
	}
}

func TestJSONContentTypeDetection(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"application/vnd.api+json", true},
		{"text/plain", false},
		{"text/plain; charset=utf-8", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isJSONContent(tt.contentType); got != tt.want {
			t.Errorf("isJSONContent(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
