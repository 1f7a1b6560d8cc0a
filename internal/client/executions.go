package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	internalhttp "github.com/fivetwenty-io/cmapi/internal/http"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
)

// ExecutionsClient implements cmapi.ExecutionsClient.
type ExecutionsClient struct {
	resource

	logger cmapi.Logger
}

// NewExecutionsClient creates a new executions client. logger receives page
// fetch failures of List and may be nil.
func NewExecutionsClient(httpClient *internalhttp.Client, logger cmapi.Logger) *ExecutionsClient {
	return &ExecutionsClient{
		resource: newResource(httpClient, cmapi.FamilyExecutions),
		logger:   logger,
	}
}

func executionPath(programID, pipelineID, executionID string) string {
	return pipelinePath(programID, pipelineID) + "/execution/" + url.PathEscape(executionID)
}

// stepPath is used when a step state carries no action link.
func stepPath(execution *cmapi.PipelineExecution, step *cmapi.StepState) string {
	return executionPath(execution.ProgramID, execution.PipelineID, execution.ID) +
		"/phase/" + url.PathEscape(step.PhaseID) +
		"/step/" + url.PathEscape(step.ID)
}

// Start implements cmapi.ExecutionsClient.Start.
func (c *ExecutionsClient) Start(ctx context.Context, programID, pipelineID string) (*cmapi.PipelineExecution, error) {
	resp, err := c.send(ctx, cmapi.OpStartExecution, http.MethodPut, pipelinePath(programID, pipelineID)+"/execution", nil)
	if err != nil {
		return nil, err
	}

	if len(resp.Body) == 0 {
		return c.GetCurrent(ctx, programID, pipelineID)
	}

	return decode[cmapi.PipelineExecution](resp, "execution")
}

// GetCurrent implements cmapi.ExecutionsClient.GetCurrent.
func (c *ExecutionsClient) GetCurrent(ctx context.Context, programID, pipelineID string) (*cmapi.PipelineExecution, error) {
	resp, err := c.get(ctx, cmapi.OpGetCurrentExecution, pipelinePath(programID, pipelineID)+"/execution", nil)
	if err != nil {
		return nil, err
	}

	return decode[cmapi.PipelineExecution](resp, "execution")
}

// Get implements cmapi.ExecutionsClient.Get.
func (c *ExecutionsClient) Get(ctx context.Context, programID, pipelineID, executionID string) (*cmapi.PipelineExecution, error) {
	resp, err := c.get(ctx, cmapi.OpGetExecution, executionPath(programID, pipelineID, executionID), nil)
	if err != nil {
		return nil, err
	}

	return decode[cmapi.PipelineExecution](resp, "execution")
}

// GetByURL implements cmapi.ExecutionsClient.GetByURL.
func (c *ExecutionsClient) GetByURL(ctx context.Context, executionURL string) (*cmapi.PipelineExecution, error) {
	resp, err := c.get(ctx, cmapi.OpGetExecution, executionURL, nil)
	if err != nil {
		return nil, err
	}

	return decode[cmapi.PipelineExecution](resp, "execution")
}

// List implements cmapi.ExecutionsClient.List.
func (c *ExecutionsClient) List(ctx context.Context, programID, pipelineID string, cursor cmapi.PageCursor) (*cmapi.Paginator[cmapi.PipelineExecution], error) {
	path := pipelinePath(programID, pipelineID) + "/executions"

	return paginate[cmapi.PipelineExecution](ctx, c.resource, cmapi.OpListExecutions, path, "executions", cursor, c.logger)
}

// Advance implements cmapi.ExecutionsClient.Advance.
func (c *ExecutionsClient) Advance(ctx context.Context, execution *cmapi.PipelineExecution) error {
	step, err := cmapi.CurrentStep(execution)
	if err != nil {
		return err
	}

	if step.Status != cmapi.StepStatusWaiting {
		return fmt.Errorf("%w: %s is %s", cmapi.ErrStepNotWaiting, step.Action, step.Status)
	}

	target := step.Links.Href(cmapi.RelAdvance)
	if target == "" {
		target = stepPath(execution, step) + "/advance"
	}

	_, err = c.send(ctx, cmapi.OpAdvanceExecution, http.MethodPut, target, decisionBody(step.Action, true))

	return err
}

// Cancel implements cmapi.ExecutionsClient.Cancel.
func (c *ExecutionsClient) Cancel(ctx context.Context, execution *cmapi.PipelineExecution) error {
	step, err := cmapi.CurrentStep(execution)
	if err != nil {
		return err
	}

	target := step.Links.Href(cmapi.RelCancel)
	if target == "" {
		target = stepPath(execution, step) + "/cancel"
	}

	body := map[string]bool{"cancel": true}
	if step.Status == cmapi.StepStatusWaiting {
		body = decisionBody(step.Action, false)
	}

	_, err = c.send(ctx, cmapi.OpCancelExecution, http.MethodPut, target, body)

	return err
}

// decisionBody is the body answering a waiting step: approval steps take
// "approved", quality gates take "override".
func decisionBody(action string, accept bool) map[string]bool {
	switch action {
	case cmapi.StepActionApproval:
		return map[string]bool{"approved": accept}
	case cmapi.StepActionCodeQuality, cmapi.StepActionSecurity, cmapi.StepActionPerformance:
		return map[string]bool{"override": accept}
	default:
		if accept {
			return map[string]bool{}
		}

		return map[string]bool{"cancel": true}
	}
}

// GetStepLogs implements cmapi.ExecutionsClient.GetStepLogs.
func (c *ExecutionsClient) GetStepLogs(ctx context.Context, execution *cmapi.PipelineExecution, action, file string) (*cmapi.Redirect, error) {
	step, err := cmapi.FindStep(execution, action)
	if err != nil {
		return nil, err
	}

	target := step.Links.Href(cmapi.RelLogs)
	if target == "" {
		target = stepPath(execution, step) + "/logs"
	}

	var query url.Values
	if file != "" {
		query = url.Values{"file": {file}}
	}

	resp, err := c.get(ctx, cmapi.OpGetStepLogs, target, query)
	if err != nil {
		return nil, err
	}

	redirect, err := decode[cmapi.Redirect](resp, "step logs")
	if err != nil {
		return nil, err
	}

	if redirect.Redirect == "" {
		return nil, cmapi.ErrNoRedirectLink
	}

	return redirect, nil
}
