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

// NewRepositoriesCommand creates the repositories command group.
func NewRepositoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repositories",
		Aliases: []string{"repository", "repos"},
		Short:   "Inspect repositories",
		Long:    "List the source repositories of a program and their branches",
	}

	cmd.AddCommand(newRepositoriesListCommand())
	cmd.AddCommand(newRepositoriesGetCommand())
	cmd.AddCommand(newRepositoriesBranchesCommand())

	return cmd
}

func newRepositoriesListCommand() *cobra.Command {
	var (
		limit    int
		allPages bool
	)

	cmd := &cobra.Command{
		Use:   "list PROGRAM_ID",
		Short: "List repositories",
		Long:  "List the repositories of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			paginator, err := client.Repositories().List(context.Background(), args[0], cmapi.PageCursor{Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to list repositories: %w", err)
			}

			repositories := collectPage(paginator, limit, allPages)
			if err := paginator.Err(); err != nil {
				return fmt.Errorf("failed to list repositories: %w", err)
			}

			return renderOutput(repositories, renderRepositoriesTable)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", constants.StandardPageSize, "repositories per page")
	cmd.Flags().BoolVar(&allPages, "all", false, "fetch all pages")

	return cmd
}

func renderRepositoriesTable(repositories []cmapi.Repository) error {
	if len(repositories) == 0 {
		_, _ = os.Stdout.WriteString("No repositories found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Repository", "Description")

	for _, repository := range repositories {
		_ = table.Append(repository.ID, repository.Repo, truncate(repository.Description, constants.DescriptionDisplayLength))
	}

	return table.Render()
}

func newRepositoriesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PROGRAM_ID REPOSITORY_ID",
		Short: "Get repository details",
		Long:  "Display detailed information about a specific repository",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			repository, err := client.Repositories().Get(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to get repository: %w", err)
			}

			return renderOutput(repository, func(repository *cmapi.Repository) error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Property", "Value")
				_ = table.Append("ID", repository.ID)
				_ = table.Append("Repository", repository.Repo)
				_ = table.Append("Description", repository.Description)

				return table.Render()
			})
		},
	}
}

func newRepositoriesBranchesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "branches PROGRAM_ID REPOSITORY_ID",
		Short: "List branches",
		Long:  "List the branches of a repository",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			branches, err := client.Repositories().ListBranches(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to list branches: %w", err)
			}

			return renderOutput(branches, func(branches []cmapi.Branch) error {
				if len(branches) == 0 {
					_, _ = os.Stdout.WriteString("No branches found\n")

					return nil
				}

				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Branch")

				for _, branch := range branches {
					_ = table.Append(branch.Name)
				}

				return table.Render()
			})
		},
	}
}
