package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// ConfigPersister stores tokens so later CLI invocations can reuse them.
type ConfigPersister interface {
	SaveToken(token string, expiresAt time.Time) error
}

// PersistFailureHandler is called when a fetched token cannot be persisted.
type PersistFailureHandler func(err error)

// ConfigTokenManager wraps ClientCredentialsTokenManager and persists every newly
// fetched token. Persistence failures do not fail the request.
type ConfigTokenManager struct {
	manager   *ClientCredentialsTokenManager
	persister ConfigPersister
	onFailure PersistFailureHandler

	mutex       sync.Mutex
	knownToken  string
	knownExpiry time.Time
}

// NewConfigTokenManager creates a persisting manager, seeded with a previously
// saved token when initialToken is not empty.
func NewConfigTokenManager(manager *ClientCredentialsTokenManager, persister ConfigPersister, initialToken string, initialExpiry time.Time, onFailure PersistFailureHandler) *ConfigTokenManager {
	if initialToken != "" {
		manager.SetToken(initialToken, initialExpiry)
	}

	return &ConfigTokenManager{
		manager:     manager,
		persister:   persister,
		onFailure:   onFailure,
		knownToken:  initialToken,
		knownExpiry: initialExpiry,
	}
}

// GetToken returns a valid access token, persisting it if it was just fetched.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.manager.GetToken(ctx)
	if err != nil {
		return "", err
	}

	m.persistIfChanged()

	return token, nil
}

// RefreshToken forces a new token and persists it.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	err := m.manager.RefreshToken(ctx)
	if err != nil {
		return err
	}

	m.persistIfChanged()

	return nil
}

// SetToken manually sets the access token without persisting it.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.manager.SetToken(token, expiresAt)
	m.knownToken = token
	m.knownExpiry = expiresAt
}

// TokenExpiry returns the current token's expiration time.
func (m *ConfigTokenManager) TokenExpiry() time.Time {
	token := m.manager.Current()
	if token == nil {
		return time.Time{}
	}

	return token.ExpiresAt
}

func (m *ConfigTokenManager) persistIfChanged() {
	current := m.manager.Current()
	if current == nil {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current.AccessToken == m.knownToken && current.ExpiresAt.Equal(m.knownExpiry) {
		return
	}

	m.knownToken = current.AccessToken
	m.knownExpiry = current.ExpiresAt

	err := m.persist(current)
	if err != nil && m.onFailure != nil {
		m.onFailure(err)
	}
}

func (m *ConfigTokenManager) persist(token *Token) error {
	if m.persister == nil {
		return ErrNoConfigPersister
	}

	err := m.persister.SaveToken(token.AccessToken, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}
