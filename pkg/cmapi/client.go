package cmapi

import (
	"context"
	"time"
)

// ProgramsClient manages programs.
type ProgramsClient interface {
	List(ctx context.Context) ([]Program, error)
	Get(ctx context.Context, programID string) (*Program, error)
	Delete(ctx context.Context, programID string) error
}

// PipelinesClient manages the pipelines of a program.
type PipelinesClient interface {
	List(ctx context.Context, programID string) ([]Pipeline, error)
	Get(ctx context.Context, programID, pipelineID string) (*Pipeline, error)
	Update(ctx context.Context, programID, pipelineID string, request *PipelineUpdateRequest) (*Pipeline, error)
	Delete(ctx context.Context, programID, pipelineID string) error
	InvalidateCache(ctx context.Context, programID, pipelineID string) error
	ListVariables(ctx context.Context, programID, pipelineID string) ([]Variable, error)
	SetVariables(ctx context.Context, programID, pipelineID string, variables []Variable) ([]Variable, error)
}

// ExecutionsClient manages pipeline executions.
type ExecutionsClient interface {
	// Start starts the pipeline. A pipeline that is already running fails with KindOperationBusy.
	Start(ctx context.Context, programID, pipelineID string) (*PipelineExecution, error)
	GetCurrent(ctx context.Context, programID, pipelineID string) (*PipelineExecution, error)
	Get(ctx context.Context, programID, pipelineID, executionID string) (*PipelineExecution, error)
	// GetByURL fetches an execution by its absolute API URL, as carried by events.
	GetByURL(ctx context.Context, executionURL string) (*PipelineExecution, error)
	List(ctx context.Context, programID, pipelineID string, cursor PageCursor) (*Paginator[PipelineExecution], error)
	// Advance approves or overrides the waiting step of execution.
	Advance(ctx context.Context, execution *PipelineExecution) error
	// Cancel rejects the waiting step of execution, or cancels its running step.
	Cancel(ctx context.Context, execution *PipelineExecution) error
	// GetStepLogs returns the download link of the logs of the step performing action.
	GetStepLogs(ctx context.Context, execution *PipelineExecution, action, file string) (*Redirect, error)
}

// EnvironmentsClient manages the environments of a program.
type EnvironmentsClient interface {
	List(ctx context.Context, programID, environmentType string) ([]Environment, error)
	Get(ctx context.Context, programID, environmentID string) (*Environment, error)
	// Create fails with KindUnsupportedOnResourceVariant when the program tier cannot host the environment.
	Create(ctx context.Context, programID string, request *EnvironmentCreateRequest) (*Environment, error)
	Delete(ctx context.Context, programID, environmentID string) error
	ListVariables(ctx context.Context, programID, environmentID string) ([]Variable, error)
	SetVariables(ctx context.Context, programID, environmentID string, variables []Variable) ([]Variable, error)
	ListLogs(ctx context.Context, programID, environmentID string, query LogQuery) ([]EnvironmentLog, error)
	// Reset resets a rapid development environment; other environments fail with
	// KindUnsupportedOnResourceVariant.
	Reset(ctx context.Context, programID, environmentID string) error
}

// RepositoriesClient reads the repositories of a program.
type RepositoriesClient interface {
	List(ctx context.Context, programID string, cursor PageCursor) (*Paginator[Repository], error)
	Get(ctx context.Context, programID, repositoryID string) (*Repository, error)
	ListBranches(ctx context.Context, programID, repositoryID string) ([]Branch, error)
}

// Client provides access to all resource family clients.
type Client interface {
	Programs() ProgramsClient
	Pipelines() PipelinesClient
	Executions() ExecutionsClient
	Environments() EnvironmentsClient
	Repositories() RepositoriesClient
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a cmapi.Client.
//
// # Authentication precedence
//
//  1. AccessToken: used directly as a static Bearer token.
//  2. ClientID/ClientSecret: tokens are obtained from TokenURL with the OAuth2
//     client_credentials grant and refreshed before they expire.
//
// OrgID and APIKey are always required; they are sent as the x-gw-ims-org-id and
// x-api-key headers.
type Config struct {
	// BaseURL: API root, defaults to https://cloudmanager.adobe.io. cmclient.New
	// trims a trailing slash and adds "https://" if no scheme is present.
	BaseURL string
	// OrgID: IMS organization ID.
	OrgID string
	// APIKey: client ID of the integration, sent as x-api-key.
	APIKey string

	AccessToken  string
	ClientID     string
	ClientSecret string
	// Scopes requested with the client_credentials grant.
	Scopes []string
	// TokenURL: IMS token endpoint, defaults to the v3 endpoint.
	TokenURL string

	// HTTPTimeout: timeout of a single HTTP exchange. Zero uses the default.
	HTTPTimeout time.Duration
	// Debug: enables HTTP request/response logging when a Logger is provided.
	Debug     bool
	Logger    Logger
	UserAgent string
}
