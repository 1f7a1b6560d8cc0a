package cmclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/fivetwenty-io/cmapi/pkg/cmclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates client with config", func(t *testing.T) {
		t.Parallel()

		client, err := cmclient.New(&cmapi.Config{
			OrgID:       "ORG@AdobeOrg",
			APIKey:      "api-key",
			AccessToken: "token",
		})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		_, err := cmclient.New(nil)
		require.ErrorIs(t, err, cmapi.ErrConfigRequired)
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()

		_, err := cmclient.New(&cmapi.Config{OrgID: "ORG@AdobeOrg", APIKey: "api-key"})
		require.ErrorIs(t, err, cmapi.ErrCredentialsRequired)
	})

	t.Run("config is not modified", func(t *testing.T) {
		t.Parallel()

		config := &cmapi.Config{BaseURL: "cm.example.com/", OrgID: "o", APIKey: "k", AccessToken: "t"}

		_, err := cmclient.New(config)
		require.NoError(t, err)
		assert.Equal(t, "cm.example.com/", config.BaseURL)
	})
}

func TestNewWithToken(t *testing.T) {
	t.Parallel()

	client, err := cmclient.NewWithToken("ORG@AdobeOrg", "api-key", "test-token")
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, err = cmclient.NewWithToken("", "api-key", "test-token")
	require.ErrorIs(t, err, cmapi.ErrOrgIDRequired)
}

func TestNewWithClientCredentials(t *testing.T) {
	t.Parallel()

	client, err := cmclient.NewWithClientCredentials("ORG@AdobeOrg", "client-id", "client-secret")
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, err = cmclient.NewWithClientCredentials("ORG@AdobeOrg", "client-id", "")
	require.ErrorIs(t, err, cmapi.ErrCredentialsRequired)
}

func TestClientIntegration(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "api-key", request.Header.Get("x-api-key"))
		assert.Equal(t, "ORG@AdobeOrg", request.Header.Get("x-gw-ims-org-id"))
		assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))

		switch request.URL.Path {
		case "/api/programs":
			writer.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(writer).Encode(map[string]interface{}{
				"_embedded": map[string]interface{}{
					"programs": []cmapi.Program{{ID: "1", Name: "Program One"}},
				},
			})
		case "/api/program/1/pipeline/2/execution":
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(http.StatusPreconditionFailed)
			_, _ = writer.Write([]byte(`{"message":"Pipeline is already running"}`))
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := cmclient.New(&cmapi.Config{
		BaseURL:     server.URL + "/",
		OrgID:       "ORG@AdobeOrg",
		APIKey:      "api-key",
		AccessToken: "test-token",
	})
	require.NoError(t, err)

	programs, err := client.Programs().List(context.Background())
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, "Program One", programs[0].Name)

	_, err = client.Executions().Start(context.Background(), "1", "2")
	require.Error(t, err)
	assert.True(t, cmapi.IsBusy(err))
	assert.Contains(t, err.Error(), "Detail: Pipeline is already running")
}
