package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewProgramsCommand creates the programs command group.
func NewProgramsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "programs",
		Aliases: []string{"program", "prog"},
		Short:   "Manage programs",
		Long:    "List, inspect and delete Cloud Manager programs",
	}

	cmd.AddCommand(newProgramsListCommand())
	cmd.AddCommand(newProgramsGetCommand())
	cmd.AddCommand(newProgramsDeleteCommand())

	return cmd
}

func newProgramsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List programs",
		Long:  "List all programs of the organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			programs, err := client.Programs().List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list programs: %w", err)
			}

			return renderOutput(programs, renderProgramsTable)
		},
	}
}

func renderProgramsTable(programs []cmapi.Program) error {
	if len(programs) == 0 {
		_, _ = os.Stdout.WriteString("No programs found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Enabled", "Status")

	for _, program := range programs {
		_ = table.Append(program.ID, program.Name, fmt.Sprintf("%t", program.Enabled), displayStatus(program.Status))
	}

	return table.Render()
}

func newProgramsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PROGRAM_ID",
		Short: "Get program details",
		Long:  "Display detailed information about a specific program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			program, err := client.Programs().Get(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get program: %w", err)
			}

			return renderOutput(program, func(program *cmapi.Program) error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("ID", program.ID)
				_ = table.Append("Name", program.Name)
				_ = table.Append("Enabled", fmt.Sprintf("%t", program.Enabled))
				_ = table.Append("Status", displayStatus(program.Status))
				_ = table.Append("Type", program.Type)
				_ = table.Append("Tenant", program.TenantID)

				return table.Render()
			})
		},
	}
}

func newProgramsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete PROGRAM_ID",
		Short: "Delete a program",
		Long:  "Delete a program and all of its environments and pipelines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			programID := args[0]

			if !force && !confirm(fmt.Sprintf("Really delete program '%s'?", programID)) {
				fmt.Println("Cancelled")

				return nil
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			err = client.Programs().Delete(context.Background(), programID)
			if err != nil {
				return fmt.Errorf("failed to delete program: %w", err)
			}

			fmt.Printf("Successfully deleted program '%s'\n", programID)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force deletion without confirmation")

	return cmd
}
