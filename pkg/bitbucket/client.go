// Package bitbucket is a typed client for the Bitbucket Cloud 2.0 REST API.
//
// The client performs authenticated HTTP calls against a configurable base
// URL, normalizes transport and protocol failures into a single *APIError
// type, and offers a generic pagination aggregator that follows the "next"
// links Bitbucket embeds in its collection envelopes. It never retries and
// never caches: every failure is surfaced immediately to the caller.
package bitbucket

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/or2ooo/bitbucket-mcp/pkg/config"
)

const (
	// DefaultBaseURL is the Bitbucket Cloud API root
	DefaultBaseURL = "https://api.bitbucket.org/2.0"

	// DefaultTimeout is the per-request timeout when none is configured
	DefaultTimeout = 30 * time.Second
)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for the Bitbucket API
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets a custom per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client (used by tests to inject a
// recorder transport)
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// Client is a Bitbucket Cloud API client. All fields are set once at
// construction and never mutated, so a single Client is safe for use by
// concurrent callers; each request carries its own deadline context.
type Client struct {
	authHeader string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a client authenticated with HTTP Basic auth from the
// given email/token credential pair. Empty credentials produce an
// unauthenticated client, useful for replaying recorded fixtures.
func NewClient(email, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
	}
	if email != "" || token != "" {
		c.authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+token))
	}

	for _, opt := range opts {
		opt(c)
	}

	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

// NewOAuthClient creates a client authenticated with a bearer access token
// (workspace or repository access token). The oauth2 transport injects the
// Authorization header on every request.
func NewOAuthClient(ctx context.Context, token string, opts ...ClientOption) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)
	return NewClient("", "", append([]ClientOption{WithHTTPClient(httpClient)}, opts...)...)
}

// NewClientFromConfig builds a client from the process configuration,
// preferring the bearer token when both credential forms are set.
func NewClientFromConfig(ctx context.Context, cfg *config.Config) *Client {
	opts := []ClientOption{
		WithBaseURL(cfg.BaseURL),
		WithTimeout(cfg.Timeout),
	}
	if cfg.AccessToken != "" {
		return NewOAuthClient(ctx, cfg.AccessToken, opts...)
	}
	return NewClient(cfg.Email, cfg.APIToken, opts...)
}

// BaseURL returns the normalized base URL the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FormPayload is a pre-built request body that sets its own content type,
// used for multipart file commits.
type FormPayload struct {
	ContentType string
	Body        io.Reader
}

// NewFileForm builds a multipart form payload from field name/value pairs.
// For the src endpoint, each file path is a field name and the field value
// is the new file content.
func NewFileForm(fields map[string]string) (*FormPayload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	// Deterministic field order keeps recorded fixtures stable.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := w.WriteField(name, fields[name]); err != nil {
			return nil, fmt.Errorf("failed to write form field %q: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form payload: %w", err)
	}

	return &FormPayload{ContentType: w.FormDataContentType(), Body: &buf}, nil
}

// requestOptions carries the optional parts of a request. body and form are
// mutually exclusive; form wins when both are set.
type requestOptions struct {
	query map[string]string
	body  interface{}
	form  *FormPayload
	raw   bool
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	return c.send(ctx, http.MethodGet, path, &requestOptions{query: query}, out)
}

// GetRaw issues a GET request and returns the response body as text
// regardless of its content type, for diff and file-content endpoints.
func (c *Client) GetRaw(ctx context.Context, path string, query map[string]string) (string, error) {
	var text string
	if err := c.send(ctx, http.MethodGet, path, &requestOptions{query: query, raw: true}, &text); err != nil {
		return "", err
	}
	return text, nil
}

// Post issues a POST request with a JSON body and decodes the response into
// out (which may be nil for endpoints that return nothing useful).
func (c *Client) Post(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.send(ctx, http.MethodPost, path, &requestOptions{body: body}, out)
}

// PostForm issues a POST request with a multipart form payload.
func (c *Client) PostForm(ctx context.Context, path string, form *FormPayload, out interface{}) error {
	return c.send(ctx, http.MethodPost, path, &requestOptions{form: form}, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.send(ctx, http.MethodPut, path, &requestOptions{body: body}, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.send(ctx, http.MethodDelete, path, &requestOptions{}, nil)
}

// send is the core request operation shared by all verbs. path is either
// relative (joined to the base URL) or an absolute URL used verbatim, which
// lets pagination follow server-provided next links transparently.
func (c *Client) send(ctx context.Context, method, path string, opts *requestOptions, out interface{}) error {
	if opts == nil {
		opts = &requestOptions{}
	}

	target := path
	if !strings.HasPrefix(path, "http") {
		target = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}

	if len(opts.query) > 0 {
		q := url.Values{}
		for key, value := range opts.query {
			// Empty values are omitted entirely, not serialized as empty.
			if value != "" {
				q.Set(key, value)
			}
		}
		if encoded := q.Encode(); encoded != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + encoded
		}
	}

	var bodyReader io.Reader
	contentType := ""
	switch {
	case opts.form != nil:
		// The form payload sets its own content type and boundary.
		bodyReader = opts.form.Body
		contentType = opts.form.ContentType
	case opts.body != nil:
		data, err := json.Marshal(opts.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return &APIError{StatusCode: StatusNetworkError, Message: err.Error()}
	}
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if opts.raw || !isJSONContent(resp.Header.Get("Content-Type")) {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return c.transportError(ctx, err)
		}
		text, ok := out.(*string)
		if !ok {
			return fmt.Errorf("unexpected non-JSON response (content type %q)", resp.Header.Get("Content-Type"))
		}
		*text = string(data)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// The body streams after the status line, so the deadline can expire
		// mid-decode; that is still a timeout, not a malformed response.
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return c.transportError(ctx, err)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// transportError maps a failure that produced no HTTP status: a deadline
// expiry becomes a 408 APIError, anything else a status-0 APIError.
func (c *Client) transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return &APIError{
			StatusCode: StatusTimeout,
			Message:    fmt.Sprintf("request timed out after %s", c.timeout),
		}
	}
	return &APIError{StatusCode: StatusNetworkError, Message: err.Error()}
}

func isJSONContent(contentType string) bool {
	mediaType := contentType
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
