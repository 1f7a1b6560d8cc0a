package client

import (
	"context"
	"net/http"

	internalhttp "github.com/fivetwenty-io/cmapi/internal/http"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
)

// PipelinesClient implements cmapi.PipelinesClient.
type PipelinesClient struct {
	resource
}

// NewPipelinesClient creates a new pipelines client.
func NewPipelinesClient(httpClient *internalhttp.Client) *PipelinesClient {
	return &PipelinesClient{
		resource: newResource(httpClient, cmapi.FamilyPipelines),
	}
}

// List implements cmapi.PipelinesClient.List.
func (c *PipelinesClient) List(ctx context.Context, programID string) ([]cmapi.Pipeline, error) {
	resp, err := c.get(ctx, cmapi.OpListPipelines, programPath(programID)+"/pipelines", nil)
	if err != nil {
		return nil, err
	}

	return decodeItems[cmapi.Pipeline](resp, "pipelines")
}

// Get implements cmapi.PipelinesClient.Get.
func (c *PipelinesClient) Get(ctx context.Context, programID, pipelineID string) (*cmapi.Pipeline, error) {
	resp, err := c.get(ctx, cmapi.OpGetPipeline, pipelinePath(programID, pipelineID), nil)
	if err != nil {
		return nil, err
	}

	return decode[cmapi.Pipeline](resp, "pipeline")
}

// Update implements cmapi.PipelinesClient.Update.
func (c *PipelinesClient) Update(ctx context.Context, programID, pipelineID string, request *cmapi.PipelineUpdateRequest) (*cmapi.Pipeline, error) {
	resp, err := c.send(ctx, cmapi.OpUpdatePipeline, http.MethodPatch, pipelinePath(programID, pipelineID), request)
	if err != nil {
		return nil, err
	}

	return decode[cmapi.Pipeline](resp, "pipeline")
}

// Delete implements cmapi.PipelinesClient.Delete.
func (c *PipelinesClient) Delete(ctx context.Context, programID, pipelineID string) error {
	_, err := c.send(ctx, cmapi.OpDeletePipeline, http.MethodDelete, pipelinePath(programID, pipelineID), nil)

	return err
}

// InvalidateCache implements cmapi.PipelinesClient.InvalidateCache.
func (c *PipelinesClient) InvalidateCache(ctx context.Context, programID, pipelineID string) error {
	path := pipelinePath(programID, pipelineID) + "/cache"

	_, err := c.send(ctx, cmapi.OpInvalidatePipelineCache, http.MethodDelete, path, nil)

	return err
}

// ListVariables implements cmapi.PipelinesClient.ListVariables.
func (c *PipelinesClient) ListVariables(ctx context.Context, programID, pipelineID string) ([]cmapi.Variable, error) {
	resp, err := c.get(ctx, cmapi.OpListPipelineVariables, pipelinePath(programID, pipelineID)+"/variables", nil)
	if err != nil {
		return nil, err
	}

	return decodeItems[cmapi.Variable](resp, "variables")
}

// SetVariables implements cmapi.PipelinesClient.SetVariables. Variables not named
// are left unchanged; a variable with an empty value is removed.
func (c *PipelinesClient) SetVariables(ctx context.Context, programID, pipelineID string, variables []cmapi.Variable) ([]cmapi.Variable, error) {
	path := pipelinePath(programID, pipelineID) + "/variables"

	resp, err := c.send(ctx, cmapi.OpSetPipelineVariables, http.MethodPatch, path, variables)
	if err != nil {
		return nil, err
	}

	return decodeItems[cmapi.Variable](resp, "variables")
}
