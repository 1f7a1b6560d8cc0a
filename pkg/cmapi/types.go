package cmapi

import (
	"encoding/json"
	"fmt"
	"time"
)

// Links represents HAL resource links.
type Links map[string]Link

// Link represents a single link.
type Link struct {
	Href      string `json:"href"                yaml:"href"`
	Templated bool   `json:"templated,omitempty" yaml:"templated,omitempty"`
}

// Href returns the href of the named relation, or "".
func (l Links) Href(rel string) string {
	if link, ok := l[rel]; ok {
		return link.Href
	}

	return ""
}

// Link relations used by the API.
const (
	RelSelf         = "self"
	RelNext         = "next"
	RelAdvance      = "http://ns.adobe.com/adobecloud/rel/pipeline/advance"
	RelCancel       = "http://ns.adobe.com/adobecloud/rel/pipeline/cancel"
	RelLogs         = "http://ns.adobe.com/adobecloud/rel/pipeline/logs"
	RelExecution    = "http://ns.adobe.com/adobecloud/rel/execution"
	RelLogsDownload = "http://ns.adobe.com/adobecloud/rel/logs/download"
)

// PageInfo is the server-side page descriptor of a collection response.
type PageInfo struct {
	Limit int  `json:"limit"          yaml:"limit"`
	Next  *int `json:"next,omitempty" yaml:"next,omitempty"`
	Prev  *int `json:"prev,omitempty" yaml:"prev,omitempty"`
}

// Page is one page of a collection resource.
type Page[T any] struct {
	TotalItems int      `json:"total_items" yaml:"total_items"`
	Info       PageInfo `json:"page"        yaml:"page"`
	Items      []T      `json:"items"       yaml:"items"`
	Links      Links    `json:"links"       yaml:"links"`
}

type pageEnvelope struct {
	TotalItems int                        `json:"_totalNumberOfItems"`
	Info       PageInfo                   `json:"_page"`
	Embedded   map[string]json.RawMessage `json:"_embedded"`
	Links      Links                      `json:"_links"`
}

// DecodePage decodes a collection response whose items live under _embedded.<key>.
// A missing or null item list decodes as an empty page.
func DecodePage[T any](data []byte, embeddedKey string) (*Page[T], error) {
	var envelope pageEnvelope

	err := json.Unmarshal(data, &envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing %s page: %w", embeddedKey, err)
	}

	page := &Page[T]{
		TotalItems: envelope.TotalItems,
		Info:       envelope.Info,
		Links:      envelope.Links,
	}

	raw, ok := envelope.Embedded[embeddedKey]
	if !ok || len(raw) == 0 {
		return page, nil
	}

	err = json.Unmarshal(raw, &page.Items)
	if err != nil {
		return nil, fmt.Errorf("parsing %s items: %w", embeddedKey, err)
	}

	return page, nil
}

// Program represents a Cloud Manager program.
type Program struct {
	ID       string `json:"id"                 yaml:"id"`
	Name     string `json:"name"               yaml:"name"`
	Enabled  bool   `json:"enabled"            yaml:"enabled"`
	TenantID string `json:"tenantId,omitempty" yaml:"tenant_id,omitempty"`
	ImsOrgID string `json:"imsOrgId,omitempty" yaml:"ims_org_id,omitempty"`
	Status   string `json:"status,omitempty"   yaml:"status,omitempty"`
	Type     string `json:"type,omitempty"     yaml:"type,omitempty"`
	Links    Links  `json:"_links,omitempty"   yaml:"links,omitempty"`
}

// Pipeline statuses.
const (
	PipelineStatusIdle    = "IDLE"
	PipelineStatusBusy    = "BUSY"
	PipelineStatusWaiting = "WAITING"
)

// Pipeline represents a CI/CD pipeline of a program.
type Pipeline struct {
	ID             string          `json:"id"                       yaml:"id"`
	ProgramID      string          `json:"programId"                yaml:"program_id"`
	Name           string          `json:"name"                     yaml:"name"`
	Trigger        string          `json:"trigger,omitempty"        yaml:"trigger,omitempty"`
	Status         string          `json:"status,omitempty"         yaml:"status,omitempty"`
	Type           string          `json:"type,omitempty"           yaml:"type,omitempty"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty"      yaml:"created_at,omitempty"`
	UpdatedAt      *time.Time      `json:"updatedAt,omitempty"      yaml:"updated_at,omitempty"`
	LastStartedAt  *time.Time      `json:"lastStartedAt,omitempty"  yaml:"last_started_at,omitempty"`
	LastFinishedAt *time.Time      `json:"lastFinishedAt,omitempty" yaml:"last_finished_at,omitempty"`
	Phases         []PipelinePhase `json:"phases,omitempty"         yaml:"phases,omitempty"`
	Links          Links           `json:"_links,omitempty"         yaml:"links,omitempty"`
}

// PipelinePhase is one phase of a pipeline definition.
type PipelinePhase struct {
	Name            string `json:"name,omitempty"            yaml:"name,omitempty"`
	Type            string `json:"type"                      yaml:"type"`
	RepositoryID    string `json:"repositoryId,omitempty"    yaml:"repository_id,omitempty"`
	Branch          string `json:"branch,omitempty"          yaml:"branch,omitempty"`
	EnvironmentID   string `json:"environmentId,omitempty"   yaml:"environment_id,omitempty"`
	EnvironmentType string `json:"environmentType,omitempty" yaml:"environment_type,omitempty"`
}

// PipelineUpdateRequest updates mutable pipeline settings; nil fields are left unchanged.
type PipelineUpdateRequest struct {
	Name   *string         `json:"name,omitempty"   yaml:"name,omitempty"`
	Phases []PipelinePhase `json:"phases,omitempty" yaml:"phases,omitempty"`
}

// Execution statuses.
const (
	ExecutionStatusNotStarted = "NOT_STARTED"
	ExecutionStatusRunning    = "RUNNING"
	ExecutionStatusCancelling = "CANCELLING"
	ExecutionStatusCancelled  = "CANCELLED"
	ExecutionStatusFinished   = "FINISHED"
	ExecutionStatusError      = "ERROR"
	ExecutionStatusFailed     = "FAILED"
)

// Step statuses.
const (
	StepStatusNotStarted = "NOT_STARTED"
	StepStatusRunning    = "RUNNING"
	StepStatusWaiting    = "WAITING"
	StepStatusFinished   = "FINISHED"
	StepStatusError      = "ERROR"
	StepStatusFailed     = "FAILED"
	StepStatusCancelled  = "CANCELLED"
)

// Step actions that take input when waiting.
const (
	StepActionApproval    = "approval"
	StepActionSchedule    = "schedule"
	StepActionCodeQuality = "codeQuality"
	StepActionSecurity    = "securityTest"
	StepActionPerformance = "performanceTest"
)

// PipelineExecution represents one run of a pipeline.
type PipelineExecution struct {
	ID               string            `json:"id"                         yaml:"id"`
	ProgramID        string            `json:"programId"                  yaml:"program_id"`
	PipelineID       string            `json:"pipelineId"                 yaml:"pipeline_id"`
	ArtifactsVersion string            `json:"artifactsVersion,omitempty" yaml:"artifacts_version,omitempty"`
	User             string            `json:"user,omitempty"             yaml:"user,omitempty"`
	Status           string            `json:"status"                     yaml:"status"`
	Trigger          string            `json:"trigger,omitempty"          yaml:"trigger,omitempty"`
	ExecutionMode    string            `json:"executionMode,omitempty"    yaml:"execution_mode,omitempty"`
	CreatedAt        *time.Time        `json:"createdAt,omitempty"        yaml:"created_at,omitempty"`
	UpdatedAt        *time.Time        `json:"updatedAt,omitempty"        yaml:"updated_at,omitempty"`
	FinishedAt       *time.Time        `json:"finishedAt,omitempty"       yaml:"finished_at,omitempty"`
	Embedded         ExecutionEmbedded `json:"_embedded"                  yaml:"embedded"`
	Links            Links             `json:"_links,omitempty"           yaml:"links,omitempty"`
}

// ExecutionEmbedded holds the step states of an execution.
type ExecutionEmbedded struct {
	StepStates []StepState `json:"stepStates" yaml:"step_states"`
}

// StepState is the state of one execution step.
type StepState struct {
	ID              string     `json:"id"                        yaml:"id"`
	StepID          string     `json:"stepId"                    yaml:"step_id"`
	PhaseID         string     `json:"phaseId"                   yaml:"phase_id"`
	Action          string     `json:"action"                    yaml:"action"`
	Repository      string     `json:"repository,omitempty"      yaml:"repository,omitempty"`
	Branch          string     `json:"branch,omitempty"          yaml:"branch,omitempty"`
	Environment     string     `json:"environment,omitempty"     yaml:"environment,omitempty"`
	EnvironmentType string     `json:"environmentType,omitempty" yaml:"environment_type,omitempty"`
	Status          string     `json:"status"                    yaml:"status"`
	StartedAt       *time.Time `json:"startedAt,omitempty"       yaml:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"      yaml:"finished_at,omitempty"`
	Links           Links      `json:"_links,omitempty"          yaml:"links,omitempty"`
}

// Active reports whether the step is running or waiting.
func (s StepState) Active() bool {
	return s.Status == StepStatusRunning || s.Status == StepStatusWaiting
}

// Environment represents a program environment.
type Environment struct {
	ID          string `json:"id"                    yaml:"id"`
	ProgramID   string `json:"programId"             yaml:"program_id"`
	Name        string `json:"name"                  yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string `json:"type"                  yaml:"type"`
	Status      string `json:"status,omitempty"      yaml:"status,omitempty"`
	Region      string `json:"region,omitempty"      yaml:"region,omitempty"`
	Namespace   string `json:"namespace,omitempty"   yaml:"namespace,omitempty"`
	Links       Links  `json:"_links,omitempty"      yaml:"links,omitempty"`
}

// EnvironmentCreateRequest represents a request to create an environment.
type EnvironmentCreateRequest struct {
	Name        string `json:"name"                  yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string `json:"type"                  yaml:"type"`
	Region      string `json:"region,omitempty"      yaml:"region,omitempty"`
}

// Variable types.
const (
	VariableTypeString       = "string"
	VariableTypeSecretString = "secretString"
)

// Variable is a pipeline or environment variable.
type Variable struct {
	Name    string `json:"name"              yaml:"name"`
	Value   string `json:"value,omitempty"   yaml:"value,omitempty"`
	Type    string `json:"type"              yaml:"type"`
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	Status  string `json:"status,omitempty"  yaml:"status,omitempty"`
}

// EnvironmentLog describes one downloadable log file.
type EnvironmentLog struct {
	Service string `json:"service"          yaml:"service"`
	Name    string `json:"name"             yaml:"name"`
	Date    string `json:"date"             yaml:"date"`
	Links   Links  `json:"_links,omitempty" yaml:"links,omitempty"`
}

// LogQuery selects environment log files.
type LogQuery struct {
	Service string
	Name    string
	Days    int
}

// Repository represents a source repository of a program.
type Repository struct {
	ID          string `json:"id"                    yaml:"id"`
	Repo        string `json:"repo"                  yaml:"repo"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ProgramID   string `json:"programId,omitempty"   yaml:"program_id,omitempty"`
	Links       Links  `json:"_links,omitempty"      yaml:"links,omitempty"`
}

// Branch represents a repository branch.
type Branch struct {
	Name string `json:"name" yaml:"name"`
}

// Redirect is the body returned by endpoints that hand out a temporary download URL.
type Redirect struct {
	Redirect string `json:"redirect" yaml:"redirect"`
}
