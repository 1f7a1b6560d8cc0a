//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	OrgID        string
	ClientID     string
	ClientSecret string
	BaseURL      string
	CmapiPath    string
	Verbose      bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		OrgID:        os.Getenv("CM_TEST_ORG_ID"),
		ClientID:     os.Getenv("CM_TEST_CLIENT_ID"),
		ClientSecret: os.Getenv("CM_TEST_CLIENT_SECRET"),
		BaseURL:      os.Getenv("CM_TEST_BASE_URL"),
		CmapiPath:    getCmapiPath(),
		Verbose:      os.Getenv("CMAPI_VERBOSE") == "true",
	}
}

// getCmapiPath determines the path to the cmapi binary
func getCmapiPath() string {
	if path := os.Getenv("CMAPI_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../cmapi",
		"./cmapi",
		"../cmapi",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "cmapi"
}

// SkipIfMissingBinary skips the test when the cmapi binary cannot be found
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.CmapiPath); err != nil {
		t.Skipf("cmapi binary not found at %s, skipping integration test", config.CmapiPath)
	}
}

// SkipIfMissingCredentials skips tests that talk to Cloud Manager
func (config *TestConfig) SkipIfMissingCredentials(t *testing.T) {
	t.Helper()

	if config.OrgID == "" || config.ClientID == "" || config.ClientSecret == "" {
		t.Skip("CM_TEST_ORG_ID, CM_TEST_CLIENT_ID or CM_TEST_CLIENT_SECRET not set, skipping")
	}
}

// CommandRunner runs cmapi with an isolated home directory
type CommandRunner struct {
	config *TestConfig
	home   string
	t      *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{
		config: config,
		home:   t.TempDir(),
		t:      t,
	}
}

// Run executes a cmapi command and returns output
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a cmapi command with stdin input
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command(runner.config.CmapiPath, args...)
	cmd.Env = []string{"HOME=" + runner.home}

	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, "CMAPI_") && !strings.HasPrefix(entry, "HOME=") {
			cmd.Env = append(cmd.Env, entry)
		}
	}

	if runner.config.BaseURL != "" {
		cmd.Env = append(cmd.Env, "CMAPI_BASE_URL="+runner.config.BaseURL)
	}

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader(input)

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.CmapiPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// AssertJSONOutput verifies command output is valid JSON
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	if !json.Valid([]byte(strings.TrimSpace(output))) {
		t.Errorf("Output is not valid JSON: %s", output)
	}
}

// AssertYAMLOutput verifies command output is valid YAML
func AssertYAMLOutput(t *testing.T, output string) {
	t.Helper()

	var document interface{}
	if err := yaml.Unmarshal([]byte(output), &document); err != nil || document == nil {
		t.Errorf("Output is not valid YAML: %s", output)
	}
}
