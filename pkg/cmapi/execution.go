package cmapi

import (
	"context"
	"fmt"
)

// CurrentStep returns the first running or waiting step of record.
func CurrentStep(record *PipelineExecution) (*StepState, error) {
	if record == nil {
		return nil, ErrExecutionRecordEmpty
	}

	for i := range record.Embedded.StepStates {
		if record.Embedded.StepStates[i].Active() {
			return &record.Embedded.StepStates[i], nil
		}
	}

	return nil, ErrNoActiveStep
}

// FindStep returns the step of record performing action.
func FindStep(record *PipelineExecution, action string) (*StepState, error) {
	if record == nil {
		return nil, ErrExecutionRecordEmpty
	}

	for i := range record.Embedded.StepStates {
		if record.Embedded.StepStates[i].Action == action {
			return &record.Embedded.StepStates[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrStepNotFound, action)
}

// Execution pairs an execution record with the client that owns it.
type Execution struct {
	Record *PipelineExecution

	client ExecutionsClient
}

// NewExecution wraps record.
func NewExecution(client ExecutionsClient, record *PipelineExecution) *Execution {
	return &Execution{
		Record: record,
		client: client,
	}
}

// IsRunning reports whether the execution has not reached a final status.
func (e *Execution) IsRunning() bool {
	if e.Record == nil {
		return false
	}

	switch e.Record.Status {
	case ExecutionStatusNotStarted, ExecutionStatusRunning, ExecutionStatusCancelling:
		return true
	default:
		return false
	}
}

// CurrentStep returns the active step.
func (e *Execution) CurrentStep() (*StepState, error) {
	return CurrentStep(e.Record)
}

// Refresh reloads the record from its self link, or from its IDs when it has none.
func (e *Execution) Refresh(ctx context.Context) error {
	if e.Record == nil {
		return ErrExecutionRecordEmpty
	}

	var (
		record *PipelineExecution
		err    error
	)

	if self := e.Record.Links.Href(RelSelf); self != "" {
		record, err = e.client.GetByURL(ctx, self)
	} else {
		record, err = e.client.Get(ctx, e.Record.ProgramID, e.Record.PipelineID, e.Record.ID)
	}

	if err != nil {
		return err
	}

	e.Record = record

	return nil
}

// Advance approves or overrides the waiting step.
func (e *Execution) Advance(ctx context.Context) error {
	if e.Record == nil {
		return ErrExecutionRecordEmpty
	}

	return e.client.Advance(ctx, e.Record)
}

// Cancel rejects the waiting step or cancels the running one.
func (e *Execution) Cancel(ctx context.Context) error {
	if e.Record == nil {
		return ErrExecutionRecordEmpty
	}

	return e.client.Cancel(ctx, e.Record)
}

// StepLogs returns the log download link of the step performing action.
func (e *Execution) StepLogs(ctx context.Context, action, file string) (*Redirect, error) {
	if e.Record == nil {
		return nil, ErrExecutionRecordEmpty
	}

	return e.client.GetStepLogs(ctx, e.Record, action, file)
}
