package client

import (
	"context"

	internalhttp "github.com/fivetwenty-io/cmapi/internal/http"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
)

// RepositoriesClient implements cmapi.RepositoriesClient.
type RepositoriesClient struct {
	resource

	logger cmapi.Logger
}

// NewRepositoriesClient creates a new repositories client.
func NewRepositoriesClient(httpClient *internalhttp.Client, logger cmapi.Logger) *RepositoriesClient {
	return &RepositoriesClient{
		resource: newResource(httpClient, cmapi.FamilyRepositories),
		logger:   logger,
	}
}

// List implements cmapi.RepositoriesClient.List.
func (c *RepositoriesClient) List(ctx context.Context, programID string, cursor cmapi.PageCursor) (*cmapi.Paginator[cmapi.Repository], error) {
	path := programPath(programID) + "/repositories"

	return paginate[cmapi.Repository](ctx, c.resource, cmapi.OpListRepositories, path, "repositories", cursor, c.logger)
}

// Get implements cmapi.RepositoriesClient.Get.
func (c *RepositoriesClient) Get(ctx context.Context, programID, repositoryID string) (*cmapi.Repository, error) {
	resp, err := c.get(ctx, cmapi.OpGetRepository, repositoryPath(programID, repositoryID), nil)
	if err != nil {
		return nil, err
	}

	return decode[cmapi.Repository](resp, "repository")
}

// ListBranches implements cmapi.RepositoriesClient.ListBranches.
func (c *RepositoriesClient) ListBranches(ctx context.Context, programID, repositoryID string) ([]cmapi.Branch, error) {
	resp, err := c.get(ctx, cmapi.OpListBranches, repositoryPath(programID, repositoryID)+"/branches", nil)
	if err != nil {
		return nil, err
	}

	return decodeItems[cmapi.Branch](resp, "branches")
}
