package cmclient

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/cmapi/internal/client"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
)

// New creates a new Cloud Manager API client. config is not modified.
func New(config *cmapi.Config) (cmapi.Client, error) {
	if config == nil {
		return nil, cmapi.ErrConfigRequired
	}

	normalized := *config
	normalized.BaseURL = normalizeEndpoint(config.BaseURL)

	cli, err := client.New(&normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return cli, nil
}

// normalizeEndpoint trims a trailing slash and adds https:// when no scheme is given.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return ""
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// NewWithToken creates a client that sends a bearer token obtained elsewhere.
func NewWithToken(orgID, apiKey, token string) (cmapi.Client, error) {
	return New(&cmapi.Config{
		OrgID:       orgID,
		APIKey:      apiKey,
		AccessToken: token,
	})
}

// NewWithClientCredentials creates a client that obtains tokens with the OAuth2
// client_credentials grant. The client ID doubles as the API key.
func NewWithClientCredentials(orgID, clientID, clientSecret string) (cmapi.Client, error) {
	return New(&cmapi.Config{
		OrgID:        orgID,
		APIKey:       clientID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}
