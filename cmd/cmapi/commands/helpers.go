package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fivetwenty-io/cmapi/internal/auth"
	"github.com/fivetwenty-io/cmapi/internal/client"
	"github.com/fivetwenty-io/cmapi/internal/constants"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/fivetwenty-io/cmapi/pkg/cmclient"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const defaultJSONIndent = constants.JSONIndentSize

// StandardJSONRenderer writes data to stdout as indented JSON.
func StandardJSONRenderer[T any](data T) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to JSON: %w", err)
	}

	return nil
}

// StandardYAMLRenderer writes data to stdout as YAML.
func StandardYAMLRenderer[T any](data T) error {
	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(defaultJSONIndent)

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to YAML: %w", err)
	}

	return nil
}

// renderOutput dispatches on the --output flag.
func renderOutput[T any](data T, table func(T) error) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		return StandardJSONRenderer(data)
	case constants.FormatYAML:
		return StandardYAMLRenderer(data)
	default:
		return table(data)
	}
}

func validateOutputFormat(format string) error {
	switch format {
	case "", constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrInvalidOutputFormat, format)
	}
}

// displayStatus renders API enums such as NOT_STARTED as "Not Started".
func displayStatus(status string) string {
	if status == "" {
		return constants.NotAvailable
	}

	return cases.Title(language.English).String(strings.ToLower(strings.ReplaceAll(status, "_", " ")))
}

// displayKind renders an event kind such as step-waiting as "Step Waiting".
func displayKind(kind cmapi.EventKind) string {
	return cases.Title(language.English).String(strings.ReplaceAll(kind.String(), "-", " "))
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return constants.NotAvailable
	}

	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}

	return s[:length-3] + "..."
}

func splitList(value string) []string {
	var items []string

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}

// parseVariables parses NAME=VALUE arguments.
func parseVariables(args []string, variableType string) ([]cmapi.Variable, error) {
	if len(args) == 0 {
		return nil, constants.ErrNoVariables
	}

	variables := make([]cmapi.Variable, 0, len(args))

	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidVariable, arg)
		}

		variables = append(variables, cmapi.Variable{
			Name:  strings.TrimSpace(name),
			Value: value,
			Type:  variableType,
		})
	}

	return variables, nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s (y/N): ", prompt)

	var response string

	_, _ = fmt.Scanln(&response)

	return response == "y" || response == "Y"
}

// stderrLogger implements cmapi.Logger, printing debug lines only with --verbose.
type stderrLogger struct {
	out     io.Writer
	verbose bool
}

func newLogger() *stderrLogger {
	return &stderrLogger{out: os.Stderr, verbose: viper.GetBool("verbose")}
}

func (l *stderrLogger) Debug(msg string, fields map[string]interface{}) {
	if l.verbose {
		l.write("DEBUG", msg, fields)
	}
}

func (l *stderrLogger) Info(msg string, fields map[string]interface{}) {
	if l.verbose {
		l.write("INFO", msg, fields)
	}
}

func (l *stderrLogger) Warn(msg string, fields map[string]interface{}) {
	l.write("WARN", msg, fields)
}

func (l *stderrLogger) Error(msg string, fields map[string]interface{}) {
	l.write("ERROR", msg, fields)
}

func (l *stderrLogger) write(level, msg string, fields map[string]interface{}) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var line strings.Builder

	line.WriteString("[" + level + "] " + msg)

	for _, key := range keys {
		fmt.Fprintf(&line, " %s=%v", key, fields[key])
	}

	line.WriteString("\n")

	_, _ = io.WriteString(l.out, line.String())
}

// clientConfigFromViper merges the config file, CMAPI_* variables and flags.
func clientConfigFromViper(logger cmapi.Logger) *cmapi.Config {
	config := &cmapi.Config{
		BaseURL:      viper.GetString(KeyBaseURL),
		OrgID:        viper.GetString(KeyOrgID),
		APIKey:       viper.GetString(KeyAPIKey),
		AccessToken:  viper.GetString(KeyAccessToken),
		ClientID:     viper.GetString(KeyClientID),
		ClientSecret: viper.GetString(KeyClientSecret),
		TokenURL:     viper.GetString(KeyTokenURL),
		Scopes:       viper.GetStringSlice(KeyScopes),
		Debug:        viper.GetBool("verbose"),
		Logger:       logger,
	}

	if config.APIKey == "" {
		config.APIKey = config.ClientID
	}

	if config.TokenURL == "" {
		config.TokenURL = constants.DefaultTokenURL
	}

	baseURL := strings.TrimSuffix(strings.TrimSpace(config.BaseURL), "/")
	if baseURL != "" && !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}

	config.BaseURL = baseURL

	return config
}

// CreateClient creates a Cloud Manager client from the CLI configuration. Tokens
// fetched with client credentials are cached in the configuration file.
func CreateClient() (cmapi.Client, error) {
	logger := newLogger()
	config := clientConfigFromViper(logger)

	if config.OrgID == "" {
		return nil, constants.ErrOrgIDNotConfigured
	}

	if config.AccessToken != "" {
		return cmclient.New(config)
	}

	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, constants.ErrNoCredentials
	}

	manager, err := auth.NewClientCredentialsTokenManager(&auth.ClientCredentialsConfig{
		TokenURL:     config.TokenURL,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       config.Scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	var (
		cachedToken  string
		cachedExpiry time.Time
	)

	fileConfig, err := loadConfig()
	if err == nil && fileConfig.Token != "" && fileConfig.TokenExpiresAt != nil {
		cachedToken = fileConfig.Token
		cachedExpiry = *fileConfig.TokenExpiresAt
	}

	tokenManager := auth.NewConfigTokenManager(manager, NewConfigPersister(), cachedToken, cachedExpiry, func(err error) {
		logger.Warn("failed to cache access token", map[string]interface{}{"error": err.Error()})
	})

	cmClient, err := client.NewWithTokenManager(config, tokenManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return cmClient, nil
}
