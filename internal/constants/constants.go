package constants

import "time"

// API endpoints.
const (
	// DefaultBaseURL is the Cloud Manager API root.
	DefaultBaseURL = "https://cloudmanager.adobe.io"

	// DefaultTokenURL is the IMS token endpoint used for the client_credentials grant.
	DefaultTokenURL = "https://ims-na1.adobelogin.com/ims/token/v3"

	// DefaultUserAgent is sent when the configuration does not override it.
	DefaultUserAgent = "cmapi-go/1.0"
)

// Request headers.
const (
	// HeaderAPIKey carries the integration client ID.
	HeaderAPIKey = "x-api-key"

	// HeaderOrgID carries the IMS organization ID.
	HeaderOrgID = "x-gw-ims-org-id"
)

// DefaultScopes are requested with the client_credentials grant when none are configured.
var DefaultScopes = []string{"openid", "AdobeID", "read_organizations", "additional_info.projectedProductContext", "read_pc.dma_aem_ams"}

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Configuration file location.
const (
	// ConfigDirName is the directory under $HOME holding the CLI configuration.
	ConfigDirName = ".cmapi"

	// ConfigFileName is the CLI configuration file name, without extension.
	ConfigFileName = "config"

	// ConfigFileType is the CLI configuration file format.
	ConfigFileType = "yml"

	// EnvPrefix prefixes environment variables read by the CLI.
	EnvPrefix = "CMAPI"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for token requests.
	ShortHTTPTimeout = 10 * time.Second

	// WebhookReadHeaderTimeout bounds header reads of the webhook server.
	WebhookReadHeaderTimeout = 10 * time.Second

	// WebhookShutdownTimeout bounds graceful shutdown of the webhook server.
	WebhookShutdownTimeout = 15 * time.Second
)

// Authentication.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// Pagination and display limits.
const (
	// StandardPageSize is the page size used by the CLI.
	StandardPageSize = 50

	// DescriptionDisplayLength is the length for displaying descriptions in tables.
	DescriptionDisplayLength = 60
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// None is used when no value is present.
	None = "none"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// Relay constants.
const (
	// DefaultSubjectPrefix prefixes NATS subjects of relayed events.
	DefaultSubjectPrefix = "cloudmanager.events"

	// DefaultWebhookAddr is the listen address of the webhook server.
	DefaultWebhookAddr = ":8080"

	// DefaultWebhookPath is the path the webhook server handles.
	DefaultWebhookPath = "/webhook"
)
