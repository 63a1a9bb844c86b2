package common_tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/kindtohomeless/outreach/models"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent identifies the scraper to upstream sites.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) agentic-bot/0.1 (+nocrawl; contact=none)"

const (
	defaultGetTimeout  = 15 * time.Second
	defaultHeadTimeout = 10 * time.Second
	maxBodyBytes       = 5 * 1024 * 1024 // 5MB limit
)

var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

var retryMethods = map[string]bool{
	http.MethodHead:    true,
	http.MethodGet:     true,
	http.MethodOptions: true,
	http.MethodPost:    true,
}

// NetworkError is a transport failure: DNS, connection, TLS or timeout.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a completed exchange with a non-2xx status.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d from %s %s", e.Status, e.Method, e.URL)
	}
	return fmt.Sprintf("HTTP %d from %s %s: %s", e.Status, e.Method, e.URL, e.Body)
}

// Request describes one outbound call.
type Request struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
	// Timeout bounds the whole call including retries. Zero picks the
	// per-method default.
	Timeout time.Duration
	// AllowStatus returns non-2xx responses instead of an *HTTPError.
	AllowStatus bool
}

// Response is a fully read upstream response.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
	// URL is the final URL after redirects.
	URL string
}

// Client is the shared outbound HTTP client. It retries transient failures
// and sends a fixed User-Agent. Safe for concurrent use.
type Client struct {
	UserAgent string
	http      *retryablehttp.Client
	logger    *slog.Logger
}

type ClientOption func(*Client)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.UserAgent = ua
		}
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) ClientOption {
	return func(c *Client) { c.http.RetryMax = n }
}

// WithBackoff sets the first and the maximum wait between retries.
func WithBackoff(min, max time.Duration) ClientOption {
	return func(c *Client) {
		c.http.RetryWaitMin = min
		c.http.RetryWaitMax = max
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http.HTTPClient = hc
		}
	}
}

func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient builds a Client with 3 retries and exponential backoff
// starting at 500ms.
func NewClient(opts ...ClientOption) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 8 * time.Second
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		UserAgent: DefaultUserAgent,
		http:      rc,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	rc.Logger = retryLogger{c.logger}
	return c
}

// retryPolicy retries transport errors and the transient statuses for the
// idempotent-safe methods. Everything else goes back to the caller.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp.Request != nil && !retryMethods[resp.Request.Method] {
		return false, nil
	}
	return retryStatuses[resp.StatusCode], nil
}

// Fetch performs req and reads the body (at most 5MB).
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultGetTimeout
		if method == http.MethodHead {
			timeout = defaultHeadTimeout
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body interface{}
	if req.Body != nil {
		body = req.Body
	}
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: req.URL, Err: err}
	}
	httpReq.Header.Set("User-Agent", c.UserAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Method: method, URL: req.URL, Err: fmt.Errorf("reading response: %w", err)}
	}

	out := &Response{Status: resp.StatusCode, Headers: resp.Header, Body: data, URL: req.URL}
	if resp.Request != nil && resp.Request.URL != nil {
		out.URL = resp.Request.URL.String()
	}
	if !req.AllowStatus && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return out, &HTTPError{Method: method, URL: req.URL, Status: resp.StatusCode, Body: snippet(data, 300)}
	}
	return out, nil
}

// GetHTML fetches a page and decodes it to UTF-8 using the declared or
// sniffed charset.
func (c *Client) GetHTML(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.Fetch(ctx, Request{
		URL:     rawURL,
		Headers: map[string]string{"Accept": "text/html,application/xhtml+xml,text/plain"},
	})
	if err != nil {
		return "", err
	}
	return decodeBody(resp), nil
}

func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.Fetch(ctx, Request{URL: rawURL})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetStatus issues a HEAD request and returns the final status code.
func (c *Client) GetStatus(ctx context.Context, rawURL string) (int, error) {
	resp, err := c.Fetch(ctx, Request{Method: http.MethodHead, URL: rawURL, AllowStatus: true})
	if err != nil {
		return 0, err
	}
	return resp.Status, nil
}

// GetHeaders issues a HEAD request and returns the response headers.
func (c *Client) GetHeaders(ctx context.Context, rawURL string) (http.Header, error) {
	resp, err := c.Fetch(ctx, Request{Method: http.MethodHead, URL: rawURL, AllowStatus: true})
	if err != nil {
		return nil, err
	}
	return resp.Headers, nil
}

// GetJSON fetches rawURL with the given query parameters and decodes the
// body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	target := rawURL
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		target = rawURL + sep + params.Encode()
	}
	resp, err := c.Fetch(ctx, Request{URL: target, Headers: map[string]string{"Accept": "application/json"}})
	if err != nil {
		return err
	}
	return decodeJSON(target, resp.Body, out)
}

// PostForm sends an application/x-www-form-urlencoded body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, timeout time.Duration) (*Response, error) {
	return c.Fetch(ctx, Request{
		Method:  http.MethodPost,
		URL:     rawURL,
		Body:    []byte(form.Encode()),
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Timeout: timeout,
	})
}

// PostJSON encodes payload, posts it and decodes the reply into out when
// out is non-nil.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	resp, err := c.Fetch(ctx, Request{
		Method: http.MethodPost,
		URL:    rawURL,
		Body:   body,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeJSON(rawURL, resp.Body, out)
}

func decodeJSON(source string, body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &models.MalformedResponseError{Source: source, Body: snippet(body, 300), Err: err}
	}
	return nil
}

func decodeBody(resp *Response) string {
	r, err := charset.NewReader(bytes.NewReader(resp.Body), resp.Headers.Get("Content-Type"))
	if err != nil {
		return string(resp.Body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(resp.Body)
	}
	return string(decoded)
}

func snippet(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// retryLogger routes retryablehttp's chatter to slog at debug level.
type retryLogger struct{ l *slog.Logger }

func (r retryLogger) Error(msg string, kv ...interface{}) { r.l.Debug(msg, kv...) }
func (r retryLogger) Info(msg string, kv ...interface{})  { r.l.Debug(msg, kv...) }
func (r retryLogger) Debug(msg string, kv ...interface{}) { r.l.Debug(msg, kv...) }
func (r retryLogger) Warn(msg string, kv ...interface{})  { r.l.Debug(msg, kv...) }
