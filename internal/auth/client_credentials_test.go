package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/cmapi/internal/auth"
	"github.com/fivetwenty-io/cmapi/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPersist = errors.New("disk full")

func newIMSServer(t *testing.T, requests *atomic.Int32, expiresIn int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)

		assert.Equal(t, "/ims/token/v3", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		err := r.ParseForm()
		assert.NoError(t, err)
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		assert.Equal(t, "client-secret", r.Form.Get("client_secret"))
		assert.Equal(t, "openid,AdobeID", r.Form.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-" + string(rune('0'+n)),
			"token_type":   "bearer",
			"expires_in":   expiresIn,
		})
	}))
}

func newManager(t *testing.T, server *httptest.Server) *auth.ClientCredentialsTokenManager {
	t.Helper()

	manager, err := auth.NewClientCredentialsTokenManager(&auth.ClientCredentialsConfig{
		TokenURL:     server.URL + "/ims/token/v3",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       []string{"openid", "AdobeID"},
		HTTPClient:   server.Client(),
	})
	require.NoError(t, err)

	return manager
}

func TestClientCredentialsTokenManager_GetToken(t *testing.T) {
	t.Parallel()

	t.Run("fetches once while valid", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32

		server := newIMSServer(t, &requests, 86399)
		defer server.Close()

		manager := newManager(t, server)

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)

		token, err = manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
		assert.Equal(t, int32(1), requests.Load())

		current := manager.Current()
		require.NotNil(t, current)
		assert.True(t, current.ExpiresAt.After(time.Now().Add(23*time.Hour)))
	})

	t.Run("fetches again when expiring", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32

		server := newIMSServer(t, &requests, 10)
		defer server.Close()

		manager := newManager(t, server)

		first, err := manager.GetToken(context.Background())
		require.NoError(t, err)

		second, err := manager.GetToken(context.Background())
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.Equal(t, int32(2), requests.Load())
	})

	t.Run("seeded token is reused", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32

		server := newIMSServer(t, &requests, 86399)
		defer server.Close()

		manager := newManager(t, server)
		manager.SetToken("saved", time.Now().Add(time.Hour))

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "saved", token)
		assert.Equal(t, int32(0), requests.Load())

		require.NoError(t, manager.RefreshToken(context.Background()))

		token, err = manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
	})

	t.Run("token endpoint failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
		}))
		defer server.Close()

		manager := newManager(t, server)

		_, err := manager.GetToken(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requesting access token")
	})
}

func TestNewClientCredentialsTokenManager_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config auth.ClientCredentialsConfig
		want   error
	}{
		{"missing token URL", auth.ClientCredentialsConfig{ClientID: "id", ClientSecret: "secret"}, constants.ErrTokenURLRequired},
		{"missing client ID", auth.ClientCredentialsConfig{TokenURL: "https://x", ClientSecret: "secret"}, constants.ErrClientIDRequired},
		{"missing secret", auth.ClientCredentialsConfig{TokenURL: "https://x", ClientID: "id"}, constants.ErrClientSecretEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := auth.NewClientCredentialsTokenManager(&tt.config)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

type memoryPersister struct {
	saved []string
	err   error
}

func (p *memoryPersister) SaveToken(token string, expiresAt time.Time) error {
	p.saved = append(p.saved, token)

	return p.err
}

func TestConfigTokenManager(t *testing.T) {
	t.Parallel()

	t.Run("persists fetched tokens once", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32

		server := newIMSServer(t, &requests, 86399)
		defer server.Close()

		persister := &memoryPersister{}
		manager := auth.NewConfigTokenManager(newManager(t, server), persister, "", time.Time{}, nil)

		for range 3 {
			token, err := manager.GetToken(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "token-1", token)
		}

		assert.Equal(t, []string{"token-1"}, persister.saved)
		assert.False(t, manager.TokenExpiry().IsZero())
	})

	t.Run("seeded token is not persisted again", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32

		server := newIMSServer(t, &requests, 86399)
		defer server.Close()

		persister := &memoryPersister{}
		manager := auth.NewConfigTokenManager(newManager(t, server), persister, "saved", time.Now().Add(time.Hour), nil)

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "saved", token)
		assert.Empty(t, persister.saved)
		assert.Equal(t, int32(0), requests.Load())
	})

	t.Run("persist failure is reported", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32

		server := newIMSServer(t, &requests, 86399)
		defer server.Close()

		var reported error

		persister := &memoryPersister{err: errPersist}
		manager := auth.NewConfigTokenManager(newManager(t, server), persister, "", time.Time{}, func(err error) {
			reported = err
		})

		_, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		require.ErrorIs(t, reported, errPersist)
	})
}

func TestStaticTokenManager(t *testing.T) {
	t.Parallel()

	manager := auth.NewStaticTokenManager("static")

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", token)

	require.ErrorIs(t, manager.RefreshToken(context.Background()), auth.ErrStaticTokenCannotRefresh)

	manager.SetToken("replaced", time.Time{})

	token, err = manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "replaced", token)
}
