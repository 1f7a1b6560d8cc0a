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

// NewEnvironmentsCommand creates the environments command group.
func NewEnvironmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "environments",
		Aliases: []string{"environment", "env"},
		Short:   "Manage environments",
		Long:    "List, create, reset and delete the environments of a program",
	}

	cmd.AddCommand(newEnvironmentsListCommand())
	cmd.AddCommand(newEnvironmentsGetCommand())
	cmd.AddCommand(newEnvironmentsCreateCommand())
	cmd.AddCommand(newEnvironmentsDeleteCommand())
	cmd.AddCommand(newEnvironmentsVariablesCommand())
	cmd.AddCommand(newEnvironmentsSetVariablesCommand())
	cmd.AddCommand(newEnvironmentsLogsCommand())
	cmd.AddCommand(newEnvironmentsResetCommand())

	return cmd
}

func newEnvironmentsListCommand() *cobra.Command {
	var environmentType string

	cmd := &cobra.Command{
		Use:   "list PROGRAM_ID",
		Short: "List environments",
		Long:  "List the environments of a program, optionally filtered by type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			environments, err := client.Environments().List(context.Background(), args[0], environmentType)
			if err != nil {
				return fmt.Errorf("failed to list environments: %w", err)
			}

			return renderOutput(environments, renderEnvironmentsTable)
		},
	}

	cmd.Flags().StringVar(&environmentType, "type", "", "environment type (dev, stage, prod, rde)")

	return cmd
}

func renderEnvironmentsTable(environments []cmapi.Environment) error {
	if len(environments) == 0 {
		_, _ = os.Stdout.WriteString("No environments found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Type", "Status", "Region", "Description")

	for _, environment := range environments {
		_ = table.Append(environment.ID, environment.Name, environment.Type, displayStatus(environment.Status),
			environment.Region, truncate(environment.Description, constants.DescriptionDisplayLength))
	}

	return table.Render()
}

func renderEnvironmentDetails(environment *cmapi.Environment) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	_ = table.Append("ID", environment.ID)
	_ = table.Append("Name", environment.Name)
	_ = table.Append("Type", environment.Type)
	_ = table.Append("Status", displayStatus(environment.Status))
	_ = table.Append("Region", environment.Region)
	_ = table.Append("Namespace", environment.Namespace)
	_ = table.Append("Description", environment.Description)

	return table.Render()
}

func newEnvironmentsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PROGRAM_ID ENVIRONMENT_ID",
		Short: "Get environment details",
		Long:  "Display detailed information about a specific environment",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			environment, err := client.Environments().Get(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to get environment: %w", err)
			}

			return renderOutput(environment, renderEnvironmentDetails)
		},
	}
}

func newEnvironmentsCreateCommand() *cobra.Command {
	var request cmapi.EnvironmentCreateRequest

	cmd := &cobra.Command{
		Use:   "create PROGRAM_ID",
		Short: "Create an environment",
		Long:  "Create an environment. Programs that cannot host the requested type reject the request.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			environment, err := client.Environments().Create(context.Background(), args[0], &request)
			if err != nil {
				return fmt.Errorf("failed to create environment: %w", err)
			}

			return renderOutput(environment, renderEnvironmentDetails)
		},
	}

	cmd.Flags().StringVar(&request.Name, "name", "", "environment name")
	cmd.Flags().StringVar(&request.Type, "type", "", "environment type (dev, stage, rde)")
	cmd.Flags().StringVar(&request.Description, "description", "", "environment description")
	cmd.Flags().StringVar(&request.Region, "region", "", "deployment region")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newEnvironmentsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete PROGRAM_ID ENVIRONMENT_ID",
		Short: "Delete an environment",
		Long:  "Delete an environment from a program",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm(fmt.Sprintf("Really delete environment '%s'?", args[1])) {
				fmt.Println("Cancelled")

				return nil
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.Environments().Delete(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to delete environment: %w", err)
			}

			fmt.Printf("Successfully deleted environment '%s'\n", args[1])

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force deletion without confirmation")

	return cmd
}

func newEnvironmentsVariablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "variables PROGRAM_ID ENVIRONMENT_ID",
		Short: "List environment variables",
		Long:  "List the variables of an environment; secret values are not returned",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			variables, err := client.Environments().ListVariables(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to list environment variables: %w", err)
			}

			return renderOutput(variables, renderVariablesTable)
		},
	}
}

func newEnvironmentsSetVariablesCommand() *cobra.Command {
	var (
		secret  bool
		service string
	)

	cmd := &cobra.Command{
		Use:   "set-variables PROGRAM_ID ENVIRONMENT_ID NAME=VALUE...",
		Short: "Set environment variables",
		Long:  "Create or update environment variables. An empty value deletes the variable.",
		Args:  cobra.MinimumNArgs(3), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			variables, err := parseVariables(args[2:], variableType(secret))
			if err != nil {
				return err
			}

			for i := range variables {
				variables[i].Service = service
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			updated, err := client.Environments().SetVariables(context.Background(), args[0], args[1], variables)
			if err != nil {
				return fmt.Errorf("failed to set environment variables: %w", err)
			}

			return renderOutput(updated, renderVariablesTable)
		},
	}

	cmd.Flags().BoolVar(&secret, "secret", false, "store the values as secrets")
	cmd.Flags().StringVar(&service, "service", "", "restrict the variables to a service (author, publish, preview)")

	return cmd
}

func newEnvironmentsLogsCommand() *cobra.Command {
	var query cmapi.LogQuery

	cmd := &cobra.Command{
		Use:   "logs PROGRAM_ID ENVIRONMENT_ID",
		Short: "List environment logs",
		Long:  "List the log files available for download",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			logs, err := client.Environments().ListLogs(context.Background(), args[0], args[1], query)
			if err != nil {
				return fmt.Errorf("failed to list environment logs: %w", err)
			}

			return renderOutput(logs, renderEnvironmentLogsTable)
		},
	}

	cmd.Flags().StringVar(&query.Service, "service", "", "service (author, publish, dispatcher)")
	cmd.Flags().StringVar(&query.Name, "name", "", "log name (aemerror, aemrequest, httpdaccess, ...)")
	cmd.Flags().IntVar(&query.Days, "days", 1, "number of days")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func renderEnvironmentLogsTable(logs []cmapi.EnvironmentLog) error {
	if len(logs) == 0 {
		_, _ = os.Stdout.WriteString("No logs found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Service", "Name", "Date", "Download")

	for _, log := range logs {
		download := log.Links.Href(cmapi.RelLogsDownload)
		if download == "" {
			download = constants.NotAvailable
		}

		_ = table.Append(log.Service, log.Name, log.Date, download)
	}

	return table.Render()
}

func newEnvironmentsResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset PROGRAM_ID ENVIRONMENT_ID",
		Short: "Reset a rapid development environment",
		Long:  "Reset a rapid development environment to its initial state",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.Environments().Reset(context.Background(), args[0], args[1])
			if cmapi.IsUnsupported(err) {
				return fmt.Errorf("environment '%s' cannot be reset: %w", args[1], err)
			}

			if err != nil {
				return fmt.Errorf("failed to reset environment: %w", err)
			}

			fmt.Printf("Reset of environment '%s' started\n", args[1])

			return nil
		},
	}
}
