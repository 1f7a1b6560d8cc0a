package client

import (
	"fmt"

	"github.com/fivetwenty-io/cmapi/internal/auth"
	"github.com/fivetwenty-io/cmapi/internal/constants"
	"github.com/fivetwenty-io/cmapi/internal/http"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
)

// Client implements the cmapi.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       cmapi.Logger

	// Resource clients
	programs     *ProgramsClient
	pipelines    *PipelinesClient
	executions   *ExecutionsClient
	environments *EnvironmentsClient
	repositories *RepositoriesClient
}

// New validates config and creates a client authenticated by the token manager
// the credentials in config call for.
func New(config *cmapi.Config) (*Client, error) {
	err := validateConfig(config)
	if err != nil {
		return nil, err
	}

	tokenManager, err := createTokenManager(config)
	if err != nil {
		return nil, err
	}

	return newClient(config, tokenManager), nil
}

// NewWithTokenManager creates a client that obtains its tokens from tokenManager.
// Credentials in config are ignored.
func NewWithTokenManager(config *cmapi.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config == nil {
		return nil, cmapi.ErrConfigRequired
	}

	if config.OrgID == "" {
		return nil, cmapi.ErrOrgIDRequired
	}

	if config.APIKey == "" {
		return nil, cmapi.ErrAPIKeyRequired
	}

	return newClient(config, tokenManager), nil
}

func validateConfig(config *cmapi.Config) error {
	if config == nil {
		return cmapi.ErrConfigRequired
	}

	if config.OrgID == "" {
		return cmapi.ErrOrgIDRequired
	}

	if config.APIKey == "" {
		return cmapi.ErrAPIKeyRequired
	}

	if config.AccessToken == "" && (config.ClientID == "" || config.ClientSecret == "") {
		return cmapi.ErrCredentialsRequired
	}

	return nil
}

// createTokenManager picks the static token first, then the client_credentials grant.
func createTokenManager(config *cmapi.Config) (auth.TokenManager, error) {
	if config.AccessToken != "" {
		return auth.NewStaticTokenManager(config.AccessToken), nil
	}

	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = constants.DefaultTokenURL
	}

	manager, err := auth.NewClientCredentialsTokenManager(&auth.ClientCredentialsConfig{
		TokenURL:     tokenURL,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       config.Scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("creating token manager: %w", err)
	}

	return manager, nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *cmapi.Config) []http.Option {
	httpOpts := []http.Option{
		http.WithHeaders(map[string]string{
			constants.HeaderAPIKey: config.APIKey,
			constants.HeaderOrgID:  config.OrgID,
		}),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	return httpOpts
}

func newClient(config *cmapi.Config, tokenManager auth.TokenManager) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = constants.DefaultBaseURL
	}

	client := &Client{
		httpClient:   http.NewClient(baseURL, tokenManager, createHTTPClientOptions(config)...),
		tokenManager: tokenManager,
		baseURL:      baseURL,
		logger:       config.Logger,
	}

	client.initializeResourceClients()

	return client
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	c.programs = NewProgramsClient(c.httpClient)
	c.pipelines = NewPipelinesClient(c.httpClient)
	c.executions = NewExecutionsClient(c.httpClient, c.logger)
	c.environments = NewEnvironmentsClient(c.httpClient)
	c.repositories = NewRepositoriesClient(c.httpClient, c.logger)
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Programs implements cmapi.Client.Programs.
func (c *Client) Programs() cmapi.ProgramsClient {
	return c.programs
}

// Pipelines implements cmapi.Client.Pipelines.
func (c *Client) Pipelines() cmapi.PipelinesClient {
	return c.pipelines
}

// Executions implements cmapi.Client.Executions.
func (c *Client) Executions() cmapi.ExecutionsClient {
	return c.executions
}

// Environments implements cmapi.Client.Environments.
func (c *Client) Environments() cmapi.EnvironmentsClient {
	return c.environments
}

// Repositories implements cmapi.Client.Repositories.
func (c *Client) Repositories() cmapi.RepositoriesClient {
	return c.repositories
}
