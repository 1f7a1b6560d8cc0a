package cmapi_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	chain := cmapi.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *cmapi.Request) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *cmapi.Request) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	req := &cmapi.Request{Method: http.MethodGet, URL: "https://cloudmanager.adobe.io/api/programs"}

	err := chain.ExecuteRequestInterceptors(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	chain := cmapi.NewInterceptorChain()
	errBoom := errors.New("boom")
	called := false

	chain.AddResponseInterceptor(func(ctx context.Context, req *cmapi.Request, resp *cmapi.Response) error {
		return errBoom
	})
	chain.AddResponseInterceptor(func(ctx context.Context, req *cmapi.Request, resp *cmapi.Response) error {
		called = true

		return nil
	})

	err := chain.ExecuteResponseInterceptors(context.Background(), &cmapi.Request{}, &cmapi.Response{})
	require.ErrorIs(t, err, errBoom)
	assert.False(t, called)
}

func TestAuthenticationInterceptor(t *testing.T) {
	interceptor := cmapi.AuthenticationInterceptor(func(context.Context) (string, error) {
		return "token-123", nil
	})

	req := &cmapi.Request{}
	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "Bearer token-123", req.Headers.Get("Authorization"))

	failing := cmapi.AuthenticationInterceptor(func(context.Context) (string, error) {
		return "", errors.New("no token")
	})
	require.Error(t, failing(context.Background(), &cmapi.Request{}))
}

func TestHeaderInterceptor(t *testing.T) {
	interceptor := cmapi.HeaderInterceptor(map[string]string{
		"x-api-key":       "client-id",
		"x-gw-ims-org-id": "ORG@AdobeOrg",
		"x-empty":         "",
	})

	req := &cmapi.Request{}
	require.NoError(t, interceptor(context.Background(), req))

	assert.Equal(t, "client-id", req.Headers.Get("x-api-key"))
	assert.Equal(t, "ORG@AdobeOrg", req.Headers.Get("x-gw-ims-org-id"))
	_, present := req.Headers["X-Empty"]
	assert.False(t, present)
}

func TestLoggingInterceptors(t *testing.T) {
	logger := &recordingLogger{}
	req := &cmapi.Request{Method: http.MethodGet, URL: "https://x/api/programs"}

	require.NoError(t, cmapi.LoggingInterceptor(logger)(context.Background(), req))
	require.NoError(t, cmapi.LoggingResponseInterceptor(logger)(context.Background(), req, &cmapi.Response{StatusCode: 200}))

	assert.Equal(t, []string{"debug", "debug"}, logger.levels())
	assert.True(t, (&cmapi.Response{StatusCode: 204}).IsSuccess())
	assert.False(t, (&cmapi.Response{StatusCode: 412}).IsSuccess())
}
