package cmapi

import "fmt"

// Family groups the operations of one resource interface.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyPrograms
	FamilyPipelines
	FamilyExecutions
	FamilyEnvironments
	FamilyRepositories
)

var familyNames = map[Family]string{
	FamilyUnknown:      "unknown",
	FamilyPrograms:     "programs",
	FamilyPipelines:    "pipelines",
	FamilyExecutions:   "executions",
	FamilyEnvironments: "environments",
	FamilyRepositories: "repositories",
}

// String returns the family name.
func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}

	return fmt.Sprintf("Family(%d)", int(f))
}

// Operation identifies one remote call.
type Operation int

// Operations, grouped by family.
const (
	OperationUnknown Operation = iota

	OpListPrograms
	OpGetProgram
	OpDeleteProgram

	OpListPipelines
	OpGetPipeline
	OpUpdatePipeline
	OpDeletePipeline
	OpInvalidatePipelineCache
	OpListPipelineVariables
	OpSetPipelineVariables

	OpStartExecution
	OpGetCurrentExecution
	OpGetExecution
	OpListExecutions
	OpAdvanceExecution
	OpCancelExecution
	OpGetStepLogs

	OpListEnvironments
	OpGetEnvironment
	OpCreateEnvironment
	OpDeleteEnvironment
	OpListEnvironmentVariables
	OpSetEnvironmentVariables
	OpListEnvironmentLogs
	OpResetEnvironment

	OpListRepositories
	OpGetRepository
	OpListBranches

	operationCount
)

// statusTemplate overrides the entry's kind for one HTTP status.
type statusTemplate struct {
	kind     Kind
	severity Severity
	template string
}

type registryEntry struct {
	family    Family
	signature string
	kind      Kind
	severity  Severity
	template  string
	byStatus  map[int]statusTemplate
}

// resolve picks the kind/template for a status code.
func (e registryEntry) resolve(status int) (Kind, Severity, string) {
	if override, ok := e.byStatus[status]; ok {
		return override.kind, override.severity, override.template
	}

	return e.kind, e.severity, e.template
}

const statusPreconditionFailed = 412

var registry = map[Operation]registryEntry{
	OpListPrograms:  {family: FamilyPrograms, signature: "programs.list", kind: KindListFailed, template: "Cannot retrieve programs: %s"},
	OpGetProgram:    {family: FamilyPrograms, signature: "programs.get", kind: KindGetFailed, template: "Cannot retrieve program: %s"},
	OpDeleteProgram: {family: FamilyPrograms, signature: "programs.delete", kind: KindDeleteFailed, template: "Cannot delete program: %s"},

	OpListPipelines:           {family: FamilyPipelines, signature: "pipelines.list", kind: KindListFailed, template: "Cannot retrieve pipelines: %s"},
	OpGetPipeline:             {family: FamilyPipelines, signature: "pipelines.get", kind: KindGetFailed, template: "Cannot retrieve pipeline: %s"},
	OpUpdatePipeline:          {family: FamilyPipelines, signature: "pipelines.update", kind: KindUpdateFailed, template: "Cannot update pipeline: %s"},
	OpDeletePipeline:          {family: FamilyPipelines, signature: "pipelines.delete", kind: KindDeleteFailed, template: "Cannot delete pipeline: %s"},
	OpInvalidatePipelineCache: {family: FamilyPipelines, signature: "pipelines.invalidate-cache", kind: KindDeleteFailed, template: "Cannot invalidate pipeline cache: %s"},
	OpListPipelineVariables:   {family: FamilyPipelines, signature: "pipelines.variables.list", kind: KindListFailed, template: "Cannot list pipeline variables: %s"},
	OpSetPipelineVariables:    {family: FamilyPipelines, signature: "pipelines.variables.set", kind: KindUpdateFailed, template: "Cannot set pipeline variables: %s"},

	OpStartExecution: {
		family:    FamilyExecutions,
		signature: "executions.start",
		kind:      KindCreateFailed,
		template:  "Cannot start execution: %s",
		byStatus: map[int]statusTemplate{
			statusPreconditionFailed: {
				kind:     KindOperationBusy,
				severity: SeverityWarning,
				template: "Cannot start execution, pipeline is already running: %s",
			},
		},
	},
	OpGetCurrentExecution: {family: FamilyExecutions, signature: "executions.current", kind: KindGetFailed, template: "Cannot retrieve current execution: %s"},
	OpGetExecution:        {family: FamilyExecutions, signature: "executions.get", kind: KindGetFailed, template: "Cannot retrieve execution: %s"},
	OpListExecutions:      {family: FamilyExecutions, signature: "executions.list", kind: KindListFailed, template: "Cannot list executions: %s"},
	OpAdvanceExecution:    {family: FamilyExecutions, signature: "executions.advance", kind: KindUpdateFailed, template: "Cannot advance execution: %s"},
	OpCancelExecution:     {family: FamilyExecutions, signature: "executions.cancel", kind: KindUpdateFailed, template: "Cannot cancel execution: %s"},
	OpGetStepLogs:         {family: FamilyExecutions, signature: "executions.step-logs", kind: KindGetFailed, template: "Cannot retrieve step logs: %s"},

	OpListEnvironments: {family: FamilyEnvironments, signature: "environments.list", kind: KindListFailed, template: "Cannot retrieve environments: %s"},
	OpGetEnvironment:   {family: FamilyEnvironments, signature: "environments.get", kind: KindGetFailed, template: "Cannot retrieve environment: %s"},
	OpCreateEnvironment: {
		family:    FamilyEnvironments,
		signature: "environments.create",
		kind:      KindCreateFailed,
		template:  "Cannot create environment: %s",
		byStatus: map[int]statusTemplate{
			statusPreconditionFailed: {
				kind:     KindUnsupportedOnResourceVariant,
				template: "Environment type is not available for this program: %s",
			},
		},
	},
	OpDeleteEnvironment:        {family: FamilyEnvironments, signature: "environments.delete", kind: KindDeleteFailed, template: "Cannot delete environment: %s"},
	OpListEnvironmentVariables: {family: FamilyEnvironments, signature: "environments.variables.list", kind: KindListFailed, template: "Cannot list environment variables: %s"},
	OpSetEnvironmentVariables:  {family: FamilyEnvironments, signature: "environments.variables.set", kind: KindUpdateFailed, template: "Cannot set environment variables: %s"},
	OpListEnvironmentLogs:      {family: FamilyEnvironments, signature: "environments.logs", kind: KindListFailed, template: "Cannot list environment logs: %s"},
	OpResetEnvironment: {
		family:    FamilyEnvironments,
		signature: "environments.reset",
		kind:      KindUpdateFailed,
		template:  "Cannot reset environment: %s",
		byStatus: map[int]statusTemplate{
			statusPreconditionFailed: {
				kind:     KindUnsupportedOnResourceVariant,
				template: "Only rapid development environments can be reset: %s",
			},
		},
	},

	OpListRepositories: {family: FamilyRepositories, signature: "repositories.list", kind: KindListFailed, template: "Cannot list repositories: %s"},
	OpGetRepository:    {family: FamilyRepositories, signature: "repositories.get", kind: KindGetFailed, template: "Cannot retrieve repository: %s"},
	OpListBranches:     {family: FamilyRepositories, signature: "repositories.branches", kind: KindListFailed, template: "Cannot list repository branches: %s"},
}

// fallbackTemplates are used when an operation has no entry for the translator's family.
var fallbackTemplates = map[Family]string{
	FamilyUnknown:      "Unknown operation failed: %s",
	FamilyPrograms:     "Unknown programs operation failed: %s",
	FamilyPipelines:    "Unknown pipelines operation failed: %s",
	FamilyExecutions:   "Unknown executions operation failed: %s",
	FamilyEnvironments: "Unknown environments operation failed: %s",
	FamilyRepositories: "Unknown repositories operation failed: %s",
}

var operationsBySignature = func() map[string]Operation {
	index := make(map[string]Operation, len(registry))
	for op, entry := range registry {
		index[entry.signature] = op
	}

	return index
}()

// Signature returns the stable textual identity of the operation.
func (o Operation) Signature() string {
	if entry, ok := registry[o]; ok {
		return entry.signature
	}

	return "unknown"
}

// String implements fmt.Stringer.
func (o Operation) String() string {
	return o.Signature()
}

// Family returns the resource family the operation belongs to.
func (o Operation) Family() Family {
	return registry[o].family
}

// ParseOperation resolves a signature; unknown signatures yield OperationUnknown.
func ParseOperation(signature string) Operation {
	if op, ok := operationsBySignature[signature]; ok {
		return op
	}

	return OperationUnknown
}

// Operations returns every registered operation in declaration order.
func Operations() []Operation {
	ops := make([]Operation, 0, len(registry))

	for op := OperationUnknown + 1; op < operationCount; op++ {
		if _, ok := registry[op]; ok {
			ops = append(ops, op)
		}
	}

	return ops
}
