package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fivetwenty-io/cmapi/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Configuration keys, shared by the config file, viper and CMAPI_* environment variables.
const (
	KeyBaseURL       = "base_url"
	KeyOrgID         = "org_id"
	KeyAPIKey        = "api_key"
	KeyClientID      = "client_id"
	KeyClientSecret  = "client_secret"
	KeyAccessToken   = "access_token"
	KeyTokenURL      = "token_url"
	KeyScopes        = "scopes"
	KeyOutput        = "output"
	KeyWebhookSecret = "webhook_secret"
	KeyNATSURL       = "nats_url"
	KeySubjectPrefix = "subject_prefix"
)

// Config represents the CLI configuration file.
type Config struct {
	BaseURL      string   `json:"base_url,omitempty"      yaml:"base_url,omitempty"`
	OrgID        string   `json:"org_id,omitempty"        yaml:"org_id,omitempty"`
	APIKey       string   `json:"api_key,omitempty"       yaml:"api_key,omitempty"`
	ClientID     string   `json:"client_id,omitempty"     yaml:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	AccessToken  string   `json:"access_token,omitempty"  yaml:"access_token,omitempty"`
	TokenURL     string   `json:"token_url,omitempty"     yaml:"token_url,omitempty"`
	Scopes       []string `json:"scopes,omitempty"        yaml:"scopes,omitempty"`
	Output       string   `json:"output,omitempty"        yaml:"output,omitempty"`

	WebhookSecret string `json:"webhook_secret,omitempty" yaml:"webhook_secret,omitempty"`
	NATSURL       string `json:"nats_url,omitempty"       yaml:"nats_url,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty" yaml:"subject_prefix,omitempty"`

	// Cached client_credentials token.
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
}

type configField struct {
	secret bool
	get    func(c *Config) string
	set    func(c *Config, value string) error
}

var configFields = map[string]configField{
	KeyBaseURL: {
		get: func(c *Config) string { return c.BaseURL },
		set: func(c *Config, v string) error { c.BaseURL = strings.TrimSuffix(v, "/"); return nil },
	},
	KeyOrgID: {
		get: func(c *Config) string { return c.OrgID },
		set: func(c *Config, v string) error { c.OrgID = v; return nil },
	},
	KeyAPIKey: {
		get: func(c *Config) string { return c.APIKey },
		set: func(c *Config, v string) error { c.APIKey = v; return nil },
	},
	KeyClientID: {
		get: func(c *Config) string { return c.ClientID },
		set: func(c *Config, v string) error { c.ClientID = v; c.clearToken(); return nil },
	},
	KeyClientSecret: {
		secret: true,
		get:    func(c *Config) string { return c.ClientSecret },
		set:    func(c *Config, v string) error { c.ClientSecret = v; c.clearToken(); return nil },
	},
	KeyAccessToken: {
		secret: true,
		get:    func(c *Config) string { return c.AccessToken },
		set:    func(c *Config, v string) error { c.AccessToken = v; return nil },
	},
	KeyTokenURL: {
		get: func(c *Config) string { return c.TokenURL },
		set: func(c *Config, v string) error { c.TokenURL = v; c.clearToken(); return nil },
	},
	KeyScopes: {
		get: func(c *Config) string { return strings.Join(c.Scopes, ",") },
		set: func(c *Config, v string) error { c.Scopes = splitList(v); c.clearToken(); return nil },
	},
	KeyOutput: {
		get: func(c *Config) string { return c.Output },
		set: func(c *Config, v string) error {
			err := validateOutputFormat(v)
			if err != nil {
				return err
			}

			c.Output = v

			return nil
		},
	},
	KeyWebhookSecret: {
		secret: true,
		get:    func(c *Config) string { return c.WebhookSecret },
		set:    func(c *Config, v string) error { c.WebhookSecret = v; return nil },
	},
	KeyNATSURL: {
		get: func(c *Config) string { return c.NATSURL },
		set: func(c *Config, v string) error { c.NATSURL = v; return nil },
	},
	KeySubjectPrefix: {
		get: func(c *Config) string { return c.SubjectPrefix },
		set: func(c *Config, v string) error { c.SubjectPrefix = v; return nil },
	},
}

func (c *Config) clearToken() {
	c.Token = ""
	c.TokenExpiresAt = nil
}

// normalizeConfigKey accepts both org-id and org_id.
func normalizeConfigKey(key string) (string, error) {
	normalized := strings.ToLower(strings.ReplaceAll(key, "-", "_"))
	if _, ok := configFields[normalized]; !ok {
		return "", fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return normalized, nil
}

// Set assigns value to the field named by key.
func (c *Config) Set(key, value string) error {
	normalized, err := normalizeConfigKey(key)
	if err != nil {
		return err
	}

	return configFields[normalized].set(c, value)
}

// Unset clears the field named by key.
func (c *Config) Unset(key string) error {
	normalized, err := normalizeConfigKey(key)
	if err != nil {
		return err
	}

	if normalized == KeyScopes {
		c.Scopes = nil
		c.clearToken()

		return nil
	}

	return configFields[normalized].set(c, "")
}

// Masked returns a copy of c with secrets replaced by a placeholder.
func (c *Config) Masked() *Config {
	masked := *c
	masked.ClientSecret = maskSecret(c.ClientSecret)
	masked.AccessToken = maskSecret(c.AccessToken)
	masked.WebhookSecret = maskSecret(c.WebhookSecret)
	masked.Token = maskSecret(c.Token)

	return &masked
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}

	return constants.MaskedSecret
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage cmapi CLI configuration including credentials and webhook settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigCredentialsCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the configuration file contents with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			masked := config.Masked()

			switch viper.GetString("output") {
			case constants.FormatJSON:
				return StandardJSONRenderer(masked)
			case constants.FormatYAML:
				return StandardYAMLRenderer(masked)
			default:
				return displayConfigTable(masked)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: "Set a configuration value. Keys: " + strings.Join(configKeys(), ", ") + ".\n" +
			"Changing client credentials or scopes discards the cached token.",
		Args: cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig("Set", args[0], func(config *Config) error {
				return config.Set(args[0], args[1])
			})
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value from the configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig("Unset", args[0], func(config *Config) error {
				return config.Unset(args[0])
			})
		},
	}
}

func newConfigCredentialsCommand() *cobra.Command {
	var (
		orgID    string
		clientID string
	)

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Store client credentials",
		Long:  "Store the organization and client credentials of an integration. The client secret is read from the terminal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			reader := bufio.NewReader(os.Stdin)

			if orgID == "" {
				orgID, err = promptLine(reader, "IMS organization ID: ")
				if err != nil {
					return err
				}
			}

			if clientID == "" {
				clientID, err = promptLine(reader, "Client ID: ")
				if err != nil {
					return err
				}
			}

			secret, err := promptSecret(reader, "Client secret: ")
			if err != nil {
				return err
			}

			config.OrgID = orgID
			config.ClientID = clientID
			config.ClientSecret = secret
			config.clearToken()

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult("Stored", "credentials", clientID)
		},
	}

	cmd.Flags().StringVar(&orgID, "org-id", "", "IMS organization ID")
	cmd.Flags().StringVar(&clientID, "client-id", "", "integration client ID")

	return cmd
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	_, _ = os.Stderr.WriteString(prompt)

	line, err := reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo from a terminal, or a plain line from a pipe.
func promptSecret(reader *bufio.Reader, prompt string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) { //nolint:unconvert
		return promptLine(reader, prompt)
	}

	_, _ = os.Stderr.WriteString(prompt)

	secretBytes, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert
	_, _ = os.Stderr.WriteString("\n")

	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	return strings.TrimSpace(string(secretBytes)), nil
}

func updateConfig(action, key string, apply func(*Config) error) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	err = apply(config)
	if err != nil {
		return err
	}

	err = saveConfigStruct(config)
	if err != nil {
		return err
	}

	normalized, _ := normalizeConfigKey(key)
	value := ""

	if action == "Set" {
		value = configFields[normalized].get(config)
		if configFields[normalized].secret {
			value = constants.MaskedSecret
		}
	}

	return outputConfigUpdateResult(action, normalized, value)
}

func configKeys() []string {
	keys := make([]string, 0, len(configFields))
	for key := range configFields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// configFilePath returns the file viper read, or $HOME/.cmapi/config.yml.
func configFilePath() (string, error) {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName+"."+constants.ConfigFileType), nil
}

// loadConfig reads the configuration file only; flags and environment variables are
// not merged in, so saving never persists them.
func loadConfig() (*Config, error) {
	configFile, err := configFilePath()
	if err != nil {
		return nil, err
	}

	return readConfigFile(configFile)
}

func readConfigFile(configFile string) (*Config, error) {
	config := &Config{}

	// configFile comes from the --config flag or the user home directory
	// #nosec G304
	data, err := os.ReadFile(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	return config, nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	return writeConfigFile(configFile, config)
}

func writeConfigFile(configFile string, config *Config) error {
	err := os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func displayConfigTable(config *Config) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	for _, key := range configKeys() {
		value := configFields[key].get(config)
		if value == "" {
			value = constants.None
		}

		_ = table.Append([]string{key, value})
	}

	tokenState := constants.None
	if config.Token != "" {
		tokenState = "cached"
		if config.TokenExpiresAt != nil {
			tokenState = "expires " + formatTime(config.TokenExpiresAt)
		}
	}

	_ = table.Append([]string{"token", tokenState})

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func outputConfigUpdateResult(action, key, value string) error {
	result := map[string]string{
		"action": action,
		"key":    key,
	}

	if value != "" {
		result["value"] = value
	}

	switch viper.GetString("output") {
	case constants.FormatJSON:
		return StandardJSONRenderer(result)
	case constants.FormatYAML:
		return StandardYAMLRenderer(result)
	default:
		if value != "" {
			fmt.Printf("%s %s to %s\n", action, key, value)
		} else {
			fmt.Printf("%s %s\n", action, key)
		}

		return nil
	}
}
