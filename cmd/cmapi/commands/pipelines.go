package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/fivetwenty-io/cmapi/internal/constants"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const buildPhaseType = "BUILD"

// NewPipelinesCommand creates the pipelines command group.
func NewPipelinesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pipelines",
		Aliases: []string{"pipeline", "pl"},
		Short:   "Manage pipelines",
		Long:    "List, inspect, update and delete the pipelines of a program",
	}

	cmd.AddCommand(newPipelinesListCommand())
	cmd.AddCommand(newPipelinesGetCommand())
	cmd.AddCommand(newPipelinesUpdateCommand())
	cmd.AddCommand(newPipelinesDeleteCommand())
	cmd.AddCommand(newPipelinesInvalidateCacheCommand())
	cmd.AddCommand(newPipelinesVariablesCommand())
	cmd.AddCommand(newPipelinesSetVariablesCommand())

	return cmd
}

func newPipelinesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list PROGRAM_ID",
		Short: "List pipelines",
		Long:  "List all pipelines of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			pipelines, err := client.Pipelines().List(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list pipelines: %w", err)
			}

			return renderOutput(pipelines, renderPipelinesTable)
		},
	}
}

func renderPipelinesTable(pipelines []cmapi.Pipeline) error {
	if len(pipelines) == 0 {
		_, _ = os.Stdout.WriteString("No pipelines found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Status", "Trigger", "Last Started")

	for _, pipeline := range pipelines {
		_ = table.Append(pipeline.ID, pipeline.Name, displayStatus(pipeline.Status),
			displayStatus(pipeline.Trigger), formatTime(pipeline.LastStartedAt))
	}

	return table.Render()
}

func newPipelinesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PROGRAM_ID PIPELINE_ID",
		Short: "Get pipeline details",
		Long:  "Display a pipeline and its phases",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			pipeline, err := client.Pipelines().Get(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to get pipeline: %w", err)
			}

			return renderOutput(pipeline, renderPipelineDetails)
		},
	}
}

func renderPipelineDetails(pipeline *cmapi.Pipeline) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	_ = table.Append("ID", pipeline.ID)
	_ = table.Append("Name", pipeline.Name)
	_ = table.Append("Status", displayStatus(pipeline.Status))
	_ = table.Append("Trigger", displayStatus(pipeline.Trigger))
	_ = table.Append("Last Started", formatTime(pipeline.LastStartedAt))
	_ = table.Append("Last Finished", formatTime(pipeline.LastFinishedAt))

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	if len(pipeline.Phases) == 0 {
		return nil
	}

	_, _ = os.Stdout.WriteString("\nPhases:\n")

	phases := tablewriter.NewWriter(os.Stdout)
	phases.Header("Type", "Name", "Repository", "Branch", "Environment")

	for _, phase := range pipeline.Phases {
		_ = phases.Append(displayStatus(phase.Type), phase.Name, phase.RepositoryID, phase.Branch, phase.EnvironmentID)
	}

	return phases.Render()
}

// applyPipelineUpdate builds an update request; a branch change is applied to the build phase.
func applyPipelineUpdate(pipeline *cmapi.Pipeline, name, branch string) *cmapi.PipelineUpdateRequest {
	request := &cmapi.PipelineUpdateRequest{}

	if name != "" {
		request.Name = &name
	}

	if branch == "" {
		return request
	}

	for _, phase := range pipeline.Phases {
		if phase.Type == buildPhaseType {
			phase.Branch = branch
			request.Phases = append(request.Phases, phase)
		}
	}

	return request
}

func newPipelinesUpdateCommand() *cobra.Command {
	var (
		name   string
		branch string
	)

	cmd := &cobra.Command{
		Use:   "update PROGRAM_ID PIPELINE_ID",
		Short: "Update a pipeline",
		Long:  "Rename a pipeline or change the branch its build phase checks out",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			pipeline, err := client.Pipelines().Get(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to get pipeline: %w", err)
			}

			updated, err := client.Pipelines().Update(ctx, args[0], args[1], applyPipelineUpdate(pipeline, name, branch))
			if err != nil {
				return fmt.Errorf("failed to update pipeline: %w", err)
			}

			return renderOutput(updated, renderPipelineDetails)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new pipeline name")
	cmd.Flags().StringVar(&branch, "branch", "", "branch built by the pipeline")

	return cmd
}

func newPipelinesDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete PROGRAM_ID PIPELINE_ID",
		Short: "Delete a pipeline",
		Long:  "Delete a pipeline from a program",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm(fmt.Sprintf("Really delete pipeline '%s'?", args[1])) {
				fmt.Println("Cancelled")

				return nil
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.Pipelines().Delete(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to delete pipeline: %w", err)
			}

			fmt.Printf("Successfully deleted pipeline '%s'\n", args[1])

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force deletion without confirmation")

	return cmd
}

func newPipelinesInvalidateCacheCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate-cache PROGRAM_ID PIPELINE_ID",
		Short: "Invalidate the build cache",
		Long:  "Invalidate the build cache of a pipeline so the next execution builds from scratch",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.Pipelines().InvalidateCache(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to invalidate cache: %w", err)
			}

			fmt.Printf("Invalidated build cache of pipeline '%s'\n", args[1])

			return nil
		},
	}
}

func newPipelinesVariablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "variables PROGRAM_ID PIPELINE_ID",
		Short: "List pipeline variables",
		Long:  "List the variables of a pipeline; secret values are not returned",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			variables, err := client.Pipelines().ListVariables(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to list pipeline variables: %w", err)
			}

			return renderOutput(variables, renderVariablesTable)
		},
	}
}

func newPipelinesSetVariablesCommand() *cobra.Command {
	var secret bool

	cmd := &cobra.Command{
		Use:   "set-variables PROGRAM_ID PIPELINE_ID NAME=VALUE...",
		Short: "Set pipeline variables",
		Long:  "Create or update pipeline variables. An empty value deletes the variable.",
		Args:  cobra.MinimumNArgs(3), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			variables, err := parseVariables(args[2:], variableType(secret))
			if err != nil {
				return err
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			updated, err := client.Pipelines().SetVariables(context.Background(), args[0], args[1], variables)
			if err != nil {
				return fmt.Errorf("failed to set pipeline variables: %w", err)
			}

			return renderOutput(updated, renderVariablesTable)
		},
	}

	cmd.Flags().BoolVar(&secret, "secret", false, "store the values as secrets")

	return cmd
}

func variableType(secret bool) string {
	if secret {
		return cmapi.VariableTypeSecretString
	}

	return cmapi.VariableTypeString
}

func renderVariablesTable(variables []cmapi.Variable) error {
	if len(variables) == 0 {
		_, _ = os.Stdout.WriteString("No variables found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Value", "Type", "Service", "Status")

	for _, variable := range variables {
		value := variable.Value
		if variable.Type == cmapi.VariableTypeSecretString {
			value = constants.MaskedSecret
		}

		_ = table.Append(variable.Name, truncate(value, constants.DescriptionDisplayLength),
			variable.Type, variable.Service, displayStatus(variable.Status))
	}

	return table.Render()
}
