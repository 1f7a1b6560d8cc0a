package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fivetwenty-io/cmapi/internal/constants"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const defaultWatchInterval = 30 * time.Second

// NewExecutionsCommand creates the executions command group.
func NewExecutionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "executions",
		Aliases: []string{"execution", "exec"},
		Short:   "Manage pipeline executions",
		Long:    "Start pipelines, follow executions and act on waiting steps",
	}

	cmd.AddCommand(newExecutionsStartCommand())
	cmd.AddCommand(newExecutionsCurrentCommand())
	cmd.AddCommand(newExecutionsGetCommand())
	cmd.AddCommand(newExecutionsListCommand())
	cmd.AddCommand(newExecutionsAdvanceCommand())
	cmd.AddCommand(newExecutionsCancelCommand())
	cmd.AddCommand(newExecutionsLogsCommand())

	return cmd
}

func newExecutionsStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start PROGRAM_ID PIPELINE_ID",
		Short: "Start a pipeline",
		Long:  "Start a new execution of a pipeline. Fails if the pipeline is already running.",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			execution, err := client.Executions().Start(context.Background(), args[0], args[1])
			if cmapi.IsBusy(err) {
				return fmt.Errorf("pipeline '%s' is already running: %w", args[1], err)
			}

			if err != nil {
				return fmt.Errorf("failed to start pipeline: %w", err)
			}

			return renderOutput(execution, renderExecutionDetails)
		},
	}
}

func newExecutionsCurrentCommand() *cobra.Command {
	var (
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "current PROGRAM_ID PIPELINE_ID",
		Short: "Get the current execution",
		Long:  "Display the current execution of a pipeline, optionally waiting until it finishes",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			record, err := client.Executions().GetCurrent(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to get current execution: %w", err)
			}

			execution := cmapi.NewExecution(client.Executions(), record)

			if wait {
				err = waitForExecution(ctx, execution, interval, newLogger())
				if err != nil {
					return err
				}
			}

			return renderOutput(execution.Record, renderExecutionDetails)
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until the execution finishes")
	cmd.Flags().DurationVar(&interval, "interval", defaultWatchInterval, "polling interval when waiting")

	return cmd
}

// waitForExecution refreshes execution every interval until it stops running.
func waitForExecution(ctx context.Context, execution *cmapi.Execution, interval time.Duration, logger cmapi.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for execution.IsRunning() {
		if step, err := execution.CurrentStep(); err == nil {
			logger.Info("execution running", map[string]interface{}{
				"execution": execution.Record.ID,
				"step":      step.Action,
				"status":    step.Status,
			})
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for execution %s: %w", execution.Record.ID, ctx.Err())
		case <-ticker.C:
		}

		err := execution.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("failed to refresh execution: %w", err)
		}
	}

	return nil
}

func newExecutionsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PROGRAM_ID PIPELINE_ID EXECUTION_ID",
		Short: "Get execution details",
		Long:  "Display an execution and the state of its steps",
		Args:  cobra.ExactArgs(3), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			execution, err := client.Executions().Get(context.Background(), args[0], args[1], args[2])
			if err != nil {
				return fmt.Errorf("failed to get execution: %w", err)
			}

			return renderOutput(execution, renderExecutionDetails)
		},
	}
}

func newExecutionsListCommand() *cobra.Command {
	var (
		limit    int
		allPages bool
	)

	cmd := &cobra.Command{
		Use:   "list PROGRAM_ID PIPELINE_ID",
		Short: "List executions",
		Long:  "List the executions of a pipeline, newest first",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			paginator, err := client.Executions().List(context.Background(), args[0], args[1], cmapi.PageCursor{Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to list executions: %w", err)
			}

			executions := collectPage(paginator, limit, allPages)
			if err := paginator.Err(); err != nil {
				return fmt.Errorf("failed to list executions: %w", err)
			}

			return renderOutput(executions, renderExecutionsTable)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", constants.StandardPageSize, "executions per page")
	cmd.Flags().BoolVar(&allPages, "all", false, "fetch all pages")

	return cmd
}

// collectPage drains paginator, stopping after limit items unless allPages is set.
func collectPage[T any](paginator *cmapi.Paginator[T], limit int, allPages bool) []T {
	items := []T{}

	for item := range paginator.Items() {
		items = append(items, item)

		if !allPages && limit > 0 && len(items) >= limit {
			break
		}
	}

	return items
}

func renderExecutionsTable(executions []cmapi.PipelineExecution) error {
	if len(executions) == 0 {
		_, _ = os.Stdout.WriteString("No executions found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Status", "Trigger", "User", "Created", "Finished")

	for _, execution := range executions {
		_ = table.Append(execution.ID, displayStatus(execution.Status), displayStatus(execution.Trigger),
			execution.User, formatTime(execution.CreatedAt), formatTime(execution.FinishedAt))
	}

	return table.Render()
}

func renderExecutionDetails(execution *cmapi.PipelineExecution) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	_ = table.Append("ID", execution.ID)
	_ = table.Append("Pipeline", execution.PipelineID)
	_ = table.Append("Status", displayStatus(execution.Status))
	_ = table.Append("Trigger", displayStatus(execution.Trigger))
	_ = table.Append("User", execution.User)
	_ = table.Append("Artifacts Version", execution.ArtifactsVersion)
	_ = table.Append("Created", formatTime(execution.CreatedAt))
	_ = table.Append("Finished", formatTime(execution.FinishedAt))

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	if len(execution.Embedded.StepStates) == 0 {
		return nil
	}

	_, _ = os.Stdout.WriteString("\nSteps:\n")

	steps := tablewriter.NewWriter(os.Stdout)
	steps.Header("Action", "Status", "Environment", "Started", "Finished")

	for _, step := range execution.Embedded.StepStates {
		_ = steps.Append(step.Action, displayStatus(step.Status), step.Environment,
			formatTime(step.StartedAt), formatTime(step.FinishedAt))
	}

	return steps.Render()
}

func newExecutionsAdvanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "advance PROGRAM_ID PIPELINE_ID",
		Short: "Advance the waiting step",
		Long:  "Approve or override the waiting step of the current execution",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStepAction(args[0], args[1], "Advanced", (*cmapi.Execution).Advance)
		},
	}
}

func newExecutionsCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel PROGRAM_ID PIPELINE_ID",
		Short: "Cancel the current execution",
		Long:  "Reject the waiting step of the current execution, or cancel its running step",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStepAction(args[0], args[1], "Cancelled", (*cmapi.Execution).Cancel)
		},
	}
}

func runStepAction(programID, pipelineID, verb string, action func(*cmapi.Execution, context.Context) error) error {
	client, err := CreateClient()
	if err != nil {
		return err
	}

	ctx := context.Background()

	record, err := client.Executions().GetCurrent(ctx, programID, pipelineID)
	if err != nil {
		return fmt.Errorf("failed to get current execution: %w", err)
	}

	execution := cmapi.NewExecution(client.Executions(), record)

	step, err := execution.CurrentStep()
	if errors.Is(err, cmapi.ErrNoActiveStep) {
		return fmt.Errorf("execution %s: %w", record.ID, err)
	}

	if err != nil {
		return err
	}

	err = action(execution, ctx)
	if err != nil {
		return fmt.Errorf("failed to act on step %s: %w", step.Action, err)
	}

	fmt.Printf("%s step '%s' of execution %s\n", verb, step.Action, record.ID)

	return nil
}

func newExecutionsLogsCommand() *cobra.Command {
	var (
		executionID string
		file        string
	)

	cmd := &cobra.Command{
		Use:   "logs PROGRAM_ID PIPELINE_ID ACTION",
		Short: "Get step logs",
		Long:  "Print the download link of the logs of the step performing ACTION (build, codeQuality, deploy, ...)",
		Args:  cobra.ExactArgs(3), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			var record *cmapi.PipelineExecution
			if executionID != "" {
				record, err = client.Executions().Get(ctx, args[0], args[1], executionID)
			} else {
				record, err = client.Executions().GetCurrent(ctx, args[0], args[1])
			}

			if err != nil {
				return fmt.Errorf("failed to get execution: %w", err)
			}

			redirect, err := cmapi.NewExecution(client.Executions(), record).StepLogs(ctx, args[2], file)
			if err != nil {
				return fmt.Errorf("failed to get step logs: %w", err)
			}

			return renderOutput(redirect, func(redirect *cmapi.Redirect) error {
				fmt.Println(redirect.Redirect)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&executionID, "execution", "", "execution ID (defaults to the current execution)")
	cmd.Flags().StringVar(&file, "file", "", "alternative log file, such as sonarLogFile")

	return cmd
}
