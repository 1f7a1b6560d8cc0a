package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	cmhttp "github.com/fivetwenty-io/cmapi/internal/http"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoToken = errors.New("no token")

// MockTokenManager for testing.
type MockTokenManager struct {
	token string
	err   error
}

func (m *MockTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.token, m.err
}

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.add("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{})  { l.add("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{})  { l.add("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.add("error", msg, fields) }

func (l *MockLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := make([]string, 0, len(l.logs))
	for _, entry := range l.logs {
		msgs = append(msgs, entry["msg"].(string))
	}

	return msgs
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/programs", request.URL.Path)
			assert.Equal(t, http.MethodGet, request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, "client-id", request.Header.Get("x-api-key"))
			assert.Equal(t, "ORG@AdobeOrg", request.Header.Get("x-gw-ims-org-id"))

			_ = json.NewEncoder(writer).Encode(map[string]string{"id": "1", "name": "program"})
		}))
		defer server.Close()

		client := cmhttp.NewClient(server.URL, &MockTokenManager{token: "test-token"},
			cmhttp.WithHeaders(map[string]string{"x-api-key": "client-id", "x-gw-ims-org-id": "ORG@AdobeOrg"}))

		resp, err := client.Do(context.Background(), &cmhttp.Request{Method: http.MethodGet, Path: "/api/programs"})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, server.URL+"/api/programs", resp.URL)

		var result map[string]string

		err = json.Unmarshal(resp.Body, &result)
		require.NoError(t, err)
		assert.Equal(t, "program", result["name"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/program/1/repositories", request.URL.Path)
			assert.Equal(t, "limit=2&start=4", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := cmhttp.NewClient(server.URL+"/", nil)

		resp, err := client.Get(context.Background(), "api/program/1/repositories", url.Values{"start": {"4"}, "limit": {"2"}})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("absolute link", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/program/1/pipeline/2/execution/3", request.URL.Path)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := cmhttp.NewClient("https://cloudmanager.invalid", nil)

		_, err := client.Get(context.Background(), server.URL+"/api/program/1/pipeline/2/execution/3", nil)
		require.NoError(t, err)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPut, request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]bool

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.True(t, body["approved"])

			writer.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		client := cmhttp.NewClient(server.URL, nil)

		resp, err := client.Put(context.Background(), "/advance", map[string]bool{"approved": true})
		require.NoError(t, err)
		assert.Equal(t, 202, resp.StatusCode)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(http.StatusPreconditionFailed)
			_, _ = writer.Write([]byte(`{"error_code":"busy","message":"already running"}`))
		}))
		defer server.Close()

		client := cmhttp.NewClient(server.URL, nil)

		resp, err := client.Put(context.Background(), "/api/program/1/pipeline/2/execution", nil)
		require.ErrorIs(t, err, cmapi.ErrUnexpectedStatus)
		require.NotNil(t, resp)
		assert.Equal(t, 412, resp.StatusCode)
		assert.Equal(t, "412 Precondition Failed", resp.Status)
		assert.JSONEq(t, `{"error_code":"busy","message":"already running"}`, string(resp.Body))
		assert.Equal(t, "application/json", resp.Headers.Get("Content-Type"))
	})

	t.Run("token failure", func(t *testing.T) {
		t.Parallel()

		var called atomic.Bool

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			called.Store(true)
		}))
		defer server.Close()

		client := cmhttp.NewClient(server.URL, &MockTokenManager{err: errNoToken})

		resp, err := client.Get(context.Background(), "/api/programs", nil)
		require.ErrorIs(t, err, errNoToken)
		assert.Nil(t, resp)
		assert.False(t, called.Load())
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			assert.Equal(t, "cmapi-test", request.Header.Get("User-Agent"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := cmhttp.NewClient(server.URL, nil, cmhttp.WithUserAgent("cmapi-test"))

		resp, err := client.Do(context.Background(), &cmhttp.Request{
			Method:  http.MethodGet,
			Path:    "/api/programs",
			Headers: map[string]string{"X-Custom-Header": "custom-value"},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := cmhttp.NewClient(server.URL, nil, cmhttp.WithLogger(logger), cmhttp.WithDebug(true))

		_, err := client.Get(context.Background(), "/api/programs", nil)
		require.NoError(t, err)

		msgs := logger.messages()
		require.GreaterOrEqual(t, len(msgs), 2)
		assert.Equal(t, "HTTP Request", msgs[0])
		assert.Equal(t, "HTTP Response", msgs[len(msgs)-1])
	})

	t.Run("without debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := cmhttp.NewClient(server.URL, nil, cmhttp.WithLogger(logger))

		_, err := client.Get(context.Background(), "/api/programs", nil)
		require.NoError(t, err)
		assert.Empty(t, logger.messages())
	})

	t.Run("response interceptor", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		var seen int

		client := cmhttp.NewClient(server.URL, nil, cmhttp.WithInterceptors(nil, []cmapi.ResponseInterceptor{
			func(ctx context.Context, req *cmapi.Request, resp *cmapi.Response) error {
				seen = resp.StatusCode

				return nil
			},
		}))

		_, err := client.Delete(context.Background(), "/api/program/1")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, seen)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*cmhttp.Client, context.Context) (*cmapi.Response, error)
	}{
		{
			name:   "GET",
			method: http.MethodGet,
			fn: func(c *cmhttp.Client, ctx context.Context) (*cmapi.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "POST",
			method: http.MethodPost,
			fn: func(c *cmhttp.Client, ctx context.Context) (*cmapi.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: http.MethodPut,
			fn: func(c *cmhttp.Client, ctx context.Context) (*cmapi.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: http.MethodPatch,
			fn: func(c *cmhttp.Client, ctx context.Context) (*cmapi.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: http.MethodDelete,
			fn: func(c *cmhttp.Client, ctx context.Context) (*cmapi.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := cmhttp.NewClient(server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

func TestClient_NeverRetries(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusTooManyRequests} {
		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(status)
		}))

		client := cmhttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())

		server.Close()
	}
}

func TestClient_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {}))
	serverURL := server.URL
	server.Close()

	client := cmhttp.NewClient(serverURL, nil, cmhttp.WithTimeout(time.Second))

	resp, err := client.Get(context.Background(), "/test", nil)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.NotErrorIs(t, err, cmapi.ErrUnexpectedStatus)
}

func TestClient_CancelledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cmhttp.NewClient(server.URL, nil).Get(ctx, "/test", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_ResolveURL(t *testing.T) {
	t.Parallel()

	client := cmhttp.NewClient("https://cloudmanager.adobe.io/", nil)

	assert.Equal(t, "https://cloudmanager.adobe.io", client.BaseURL())
	assert.Equal(t, "https://cloudmanager.adobe.io/api/programs", client.ResolveURL("/api/programs", nil))
	assert.Equal(t, "https://cloudmanager.adobe.io/api/programs?limit=1", client.ResolveURL("api/programs", url.Values{"limit": {"1"}}))
	assert.Equal(t, "https://other/x?a=1&b=2", client.ResolveURL("https://other/x?a=1", url.Values{"b": {"2"}}))
}
