package client

import (
	"context"
	"net/http"

	internalhttp "github.com/fivetwenty-io/cmapi/internal/http"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
)

// ProgramsClient implements cmapi.ProgramsClient.
type ProgramsClient struct {
	resource
}

// NewProgramsClient creates a new programs client.
func NewProgramsClient(httpClient *internalhttp.Client) *ProgramsClient {
	return &ProgramsClient{
		resource: newResource(httpClient, cmapi.FamilyPrograms),
	}
}

// List implements cmapi.ProgramsClient.List.
func (c *ProgramsClient) List(ctx context.Context) ([]cmapi.Program, error) {
	resp, err := c.get(ctx, cmapi.OpListPrograms, "/api/programs", nil)
	if err != nil {
		return nil, err
	}

	return decodeItems[cmapi.Program](resp, "programs")
}

// Get implements cmapi.ProgramsClient.Get.
func (c *ProgramsClient) Get(ctx context.Context, programID string) (*cmapi.Program, error) {
	resp, err := c.get(ctx, cmapi.OpGetProgram, programPath(programID), nil)
	if err != nil {
		return nil, err
	}

	return decode[cmapi.Program](resp, "program")
}

// Delete implements cmapi.ProgramsClient.Delete.
func (c *ProgramsClient) Delete(ctx context.Context, programID string) error {
	_, err := c.send(ctx, cmapi.OpDeleteProgram, http.MethodDelete, programPath(programID), nil)

	return err
}
