package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/cmapi/internal/constants"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/hashicorp/go-retryablehttp"
)

// Logger interface for HTTP client logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// TokenProvider supplies bearer tokens.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// Request describes one API call. Path is relative to the base URL unless it is
// an absolute http(s) URL, as found in HAL links.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Client is the HTTP transport shared by all resource clients. It never retries:
// every exchange is attempted exactly once.
type Client struct {
	baseURL       string
	tokenProvider TokenProvider
	httpClient    *retryablehttp.Client
	interceptors  *cmapi.InterceptorChain
	headers       map[string]string
	logger        Logger
	debug         bool
	userAgent     string
	timeout       time.Duration
}

// Option configures the HTTP client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout sets the timeout of a single exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHeaders adds headers sent with every request; empty values are skipped.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for key, value := range headers {
			c.headers[key] = value
		}
	}
}

// WithInterceptors adds request and response interceptors run after the built-in ones.
func WithInterceptors(requestInterceptors []cmapi.RequestInterceptor, responseInterceptors []cmapi.ResponseInterceptor) Option {
	return func(c *Client) {
		for _, interceptor := range requestInterceptors {
			c.interceptors.AddRequestInterceptor(interceptor)
		}

		for _, interceptor := range responseInterceptors {
			c.interceptors.AddResponseInterceptor(interceptor)
		}
	}
}

// NewClient creates a new HTTP client. tokenProvider may be nil for
// unauthenticated requests.
func NewClient(baseURL string, tokenProvider TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		tokenProvider: tokenProvider,
		interceptors:  cmapi.NewInterceptorChain(),
		headers:       make(map[string]string),
		userAgent:     constants.DefaultUserAgent,
		timeout:       constants.DefaultHTTPTimeout,
	}

	builtin := cmapi.NewInterceptorChain()

	for _, opt := range opts {
		opt(c)
	}

	if c.tokenProvider != nil {
		builtin.AddRequestInterceptor(cmapi.AuthenticationInterceptor(c.tokenProvider.GetToken))
	}

	builtin.AddRequestInterceptor(cmapi.HeaderInterceptor(c.headers))

	if c.debug && c.logger != nil {
		builtin.AddRequestInterceptor(cmapi.LoggingInterceptor(c.logger))
		builtin.AddResponseInterceptor(cmapi.LoggingResponseInterceptor(c.logger))
	}

	c.interceptors = mergeChains(builtin, c.interceptors)
	c.httpClient = newRetryableClient(c.timeout, c.logger, c.debug)

	return c
}

func mergeChains(first, second *cmapi.InterceptorChain) *cmapi.InterceptorChain {
	merged := cmapi.NewInterceptorChain()

	merged.AddRequestInterceptor(first.ExecuteRequestInterceptors)
	merged.AddRequestInterceptor(second.ExecuteRequestInterceptors)
	merged.AddResponseInterceptor(first.ExecuteResponseInterceptors)
	merged.AddResponseInterceptor(second.ExecuteResponseInterceptors)

	return merged
}

func newRetryableClient(timeout time.Duration, logger Logger, debug bool) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = noRetry
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Timeout = timeout

	client.Logger = nil
	if logger != nil {
		client.Logger = &leveledLogger{logger: logger, debug: debug}
	}

	return client
}

// noRetry stops after the first attempt and only reports context cancellation.
func noRetry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	return false, nil
}

// BaseURL returns the API root the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveURL returns the absolute URL of path.
func (c *Client) ResolveURL(path string, query url.Values) string {
	target := path
	if !isAbsolute(path) {
		target = c.baseURL + "/" + strings.TrimPrefix(path, "/")
	}

	if len(query) == 0 {
		return target
	}

	separator := "?"
	if strings.Contains(target, "?") {
		separator = "&"
	}

	return target + separator + query.Encode()
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Do performs the request. Non-2xx responses are returned together with an error
// wrapping cmapi.ErrUnexpectedStatus so callers can translate them. Transport
// failures return a nil response.
func (c *Client) Do(ctx context.Context, req *Request) (*cmapi.Response, error) {
	apiReq := &cmapi.Request{
		Method:   req.Method,
		URL:      c.ResolveURL(req.Path, req.Query),
		Headers:  make(http.Header),
		Metadata: make(map[string]interface{}),
	}

	apiReq.Headers.Set("Accept", "application/json")
	apiReq.Headers.Set("User-Agent", c.userAgent)

	if req.Body != nil {
		body, err := encodeBody(req.Body)
		if err != nil {
			return nil, err
		}

		apiReq.Body = body
		apiReq.Headers.Set("Content-Type", "application/json")
	}

	for key, value := range req.Headers {
		apiReq.Headers.Set(key, value)
	}

	err := c.interceptors.ExecuteRequestInterceptors(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("preparing request: %w", err)
	}

	var body interface{}
	if apiReq.Body != nil {
		body = apiReq.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, apiReq.Method, apiReq.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for key, values := range apiReq.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if httpResp != nil && httpResp.Body != nil {
			_ = httpResp.Body.Close()
		}

		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &cmapi.Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		URL:        apiReq.URL,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, apiReq, resp)
	if err != nil {
		return resp, fmt.Errorf("processing response: %w", err)
	}

	if !resp.IsSuccess() {
		return resp, fmt.Errorf("%w: %s %s returned %s", cmapi.ErrUnexpectedStatus, apiReq.Method, apiReq.URL, resp.Status)
	}

	return resp, nil
}

func encodeBody(body interface{}) ([]byte, error) {
	if raw, ok := body.([]byte); ok {
		return raw, nil
	}

	buf := &bytes.Buffer{}

	err := json.NewEncoder(buf).Encode(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*cmapi.Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*cmapi.Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*cmapi.Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*cmapi.Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*cmapi.Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// leveledLogger adapts Logger to retryablehttp.LeveledLogger. Debug and info
// lines are only forwarded in debug mode.
type leveledLogger struct {
	logger Logger
	debug  bool
}

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	if l.debug {
		l.logger.Info(msg, fieldsOf(keysAndValues))
	}
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l.debug {
		l.logger.Debug(msg, fieldsOf(keysAndValues))
	}
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
