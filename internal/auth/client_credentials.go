package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/cmapi/internal/constants"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentialsConfig configures the IMS client_credentials grant.
type ClientCredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	// Scopes are sent comma-separated, as IMS expects.
	Scopes []string
	// HTTPClient is used for token requests; nil uses a client with ShortHTTPTimeout.
	HTTPClient *http.Client
}

// ClientCredentialsTokenManager obtains tokens with the client_credentials grant
// and fetches a new one when the current token is about to expire.
type ClientCredentialsTokenManager struct {
	config     *clientcredentials.Config
	httpClient *http.Client
	store      *TokenStore
	mu         sync.Mutex
}

// NewClientCredentialsTokenManager validates config and creates a manager.
func NewClientCredentialsTokenManager(config *ClientCredentialsConfig) (*ClientCredentialsTokenManager, error) {
	if config.TokenURL == "" {
		return nil, constants.ErrTokenURLRequired
	}

	if config.ClientID == "" {
		return nil, constants.ErrClientIDRequired
	}

	if config.ClientSecret == "" {
		return nil, constants.ErrClientSecretEmpty
	}

	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = constants.DefaultScopes
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.ShortHTTPTimeout}
	}

	return &ClientCredentialsTokenManager{
		config: &clientcredentials.Config{
			ClientID:       config.ClientID,
			ClientSecret:   config.ClientSecret,
			TokenURL:       config.TokenURL,
			EndpointParams: url.Values{"scope": {strings.Join(scopes, ",")}},
			AuthStyle:      oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		store:      NewTokenStore(),
	}, nil
}

// GetToken returns the current token, fetching a new one if it is missing or expiring.
func (m *ClientCredentialsTokenManager) GetToken(ctx context.Context) (string, error) {
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	token, err := m.fetch(ctx)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// RefreshToken fetches a new token regardless of the current one.
func (m *ClientCredentialsTokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.fetch(ctx)

	return err
}

// SetToken seeds the manager with a token obtained elsewhere, e.g. a persisted one.
func (m *ClientCredentialsTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt})
}

// Current returns the stored token, or nil.
func (m *ClientCredentialsTokenManager) Current() *Token {
	return m.store.Get()
}

func (m *ClientCredentialsTokenManager) fetch(ctx context.Context) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	oauthToken, err := m.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting access token: %w", err)
	}

	if oauthToken.AccessToken == "" {
		return nil, constants.ErrNoAccessToken
	}

	token := &Token{
		AccessToken:  oauthToken.AccessToken,
		RefreshToken: oauthToken.RefreshToken,
		TokenType:    oauthToken.TokenType,
		ExpiresAt:    oauthToken.Expiry,
	}

	if !token.ExpiresAt.IsZero() {
		token.ExpiresIn = int(time.Until(token.ExpiresAt).Seconds())
	}

	m.store.Set(token)

	return token, nil
}
