package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	internalhttp "github.com/fivetwenty-io/cmapi/internal/http"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
)

// EnvironmentsClient implements cmapi.EnvironmentsClient.
type EnvironmentsClient struct {
	resource
}

// NewEnvironmentsClient creates a new environments client.
func NewEnvironmentsClient(httpClient *internalhttp.Client) *EnvironmentsClient {
	return &EnvironmentsClient{
		resource: newResource(httpClient, cmapi.FamilyEnvironments),
	}
}

// List implements cmapi.EnvironmentsClient.List. An empty environmentType lists
// every environment.
func (c *EnvironmentsClient) List(ctx context.Context, programID, environmentType string) ([]cmapi.Environment, error) {
	var query url.Values
	if environmentType != "" {
		query = url.Values{"type": {environmentType}}
	}

	resp, err := c.get(ctx, cmapi.OpListEnvironments, programPath(programID)+"/environments", query)
	if err != nil {
		return nil, err
	}

	return decodeItems[cmapi.Environment](resp, "environments")
}

// Get implements cmapi.EnvironmentsClient.Get.
func (c *EnvironmentsClient) Get(ctx context.Context, programID, environmentID string) (*cmapi.Environment, error) {
	resp, err := c.get(ctx, cmapi.OpGetEnvironment, environmentPath(programID, environmentID), nil)
	if err != nil {
		return nil, err
	}

	return decode[cmapi.Environment](resp, "environment")
}

// Create implements cmapi.EnvironmentsClient.Create.
func (c *EnvironmentsClient) Create(ctx context.Context, programID string, request *cmapi.EnvironmentCreateRequest) (*cmapi.Environment, error) {
	resp, err := c.send(ctx, cmapi.OpCreateEnvironment, http.MethodPost, programPath(programID)+"/environments", request)
	if err != nil {
		return nil, err
	}

	return decode[cmapi.Environment](resp, "environment")
}

// Delete implements cmapi.EnvironmentsClient.Delete.
func (c *EnvironmentsClient) Delete(ctx context.Context, programID, environmentID string) error {
	_, err := c.send(ctx, cmapi.OpDeleteEnvironment, http.MethodDelete, environmentPath(programID, environmentID), nil)

	return err
}

// ListVariables implements cmapi.EnvironmentsClient.ListVariables.
func (c *EnvironmentsClient) ListVariables(ctx context.Context, programID, environmentID string) ([]cmapi.Variable, error) {
	resp, err := c.get(ctx, cmapi.OpListEnvironmentVariables, environmentPath(programID, environmentID)+"/variables", nil)
	if err != nil {
		return nil, err
	}

	return decodeItems[cmapi.Variable](resp, "variables")
}

// SetVariables implements cmapi.EnvironmentsClient.SetVariables.
func (c *EnvironmentsClient) SetVariables(ctx context.Context, programID, environmentID string, variables []cmapi.Variable) ([]cmapi.Variable, error) {
	path := environmentPath(programID, environmentID) + "/variables"

	resp, err := c.send(ctx, cmapi.OpSetEnvironmentVariables, http.MethodPatch, path, variables)
	if err != nil {
		return nil, err
	}

	return decodeItems[cmapi.Variable](resp, "variables")
}

// ListLogs implements cmapi.EnvironmentsClient.ListLogs.
func (c *EnvironmentsClient) ListLogs(ctx context.Context, programID, environmentID string, query cmapi.LogQuery) ([]cmapi.EnvironmentLog, error) {
	values := url.Values{}

	if query.Service != "" {
		values.Set("service", query.Service)
	}

	if query.Name != "" {
		values.Set("name", query.Name)
	}

	days := query.Days
	if days <= 0 {
		days = 1
	}

	values.Set("days", strconv.Itoa(days))

	resp, err := c.get(ctx, cmapi.OpListEnvironmentLogs, environmentPath(programID, environmentID)+"/logs", values)
	if err != nil {
		return nil, err
	}

	return decodeItems[cmapi.EnvironmentLog](resp, "downloads")
}

// Reset implements cmapi.EnvironmentsClient.Reset.
func (c *EnvironmentsClient) Reset(ctx context.Context, programID, environmentID string) error {
	_, err := c.send(ctx, cmapi.OpResetEnvironment, http.MethodPut, environmentPath(programID, environmentID)+"/reset", nil)

	return err
}
