package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	internalhttp "github.com/fivetwenty-io/cmapi/internal/http"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
)

// resource sends the calls of one family. Failed responses are translated by the
// family's FaultTranslator; transport failures are wrapped and returned as is.
type resource struct {
	httpClient *internalhttp.Client
	translator *cmapi.FaultTranslator
}

func newResource(httpClient *internalhttp.Client, family cmapi.Family) resource {
	return resource{
		httpClient: httpClient,
		translator: cmapi.NewFaultTranslator(family),
	}
}

func (r resource) call(ctx context.Context, op cmapi.Operation, req *internalhttp.Request) (*cmapi.Response, error) {
	resp, err := r.httpClient.Do(ctx, req)
	if err == nil {
		return resp, nil
	}

	if resp == nil || resp.IsSuccess() {
		return nil, fmt.Errorf("calling %s: %w", op, err)
	}

	return nil, r.translator.Translate(op, resp)
}

func (r resource) get(ctx context.Context, op cmapi.Operation, path string, query url.Values) (*cmapi.Response, error) {
	return r.call(ctx, op, &internalhttp.Request{Method: http.MethodGet, Path: path, Query: query})
}

func (r resource) send(ctx context.Context, op cmapi.Operation, method, path string, body interface{}) (*cmapi.Response, error) {
	return r.call(ctx, op, &internalhttp.Request{Method: method, Path: path, Body: body})
}

// decode parses the body of resp into a new T.
func decode[T any](resp *cmapi.Response, what string) (*T, error) {
	var value T

	err := json.Unmarshal(resp.Body, &value)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", what, err)
	}

	return &value, nil
}

// decodeItems parses a collection response and returns all of its embedded items.
func decodeItems[T any](resp *cmapi.Response, embeddedKey string) ([]T, error) {
	page, err := cmapi.DecodePage[T](resp.Body, embeddedKey)
	if err != nil {
		return nil, err
	}

	if page.Items == nil {
		return []T{}, nil
	}

	return page.Items, nil
}

// paginate fetches the page at cursor and wraps it in a Paginator that fetches
// later pages with the same path and operation.
func paginate[T any](ctx context.Context, r resource, op cmapi.Operation, path, embeddedKey string, cursor cmapi.PageCursor, logger cmapi.Logger) (*cmapi.Paginator[T], error) {
	fetch := func(ctx context.Context, cursor cmapi.PageCursor) (*cmapi.Page[T], error) {
		resp, err := r.get(ctx, op, path, cursor.Values())
		if err != nil {
			return nil, err
		}

		return cmapi.DecodePage[T](resp.Body, embeddedKey)
	}

	first, err := fetch(ctx, cursor)
	if err != nil {
		return nil, err
	}

	return cmapi.NewPaginator(ctx, first, cursor, fetch, cmapi.WithPaginatorLogger(logger)), nil
}

func programPath(programID string) string {
	return "/api/program/" + url.PathEscape(programID)
}

func pipelinePath(programID, pipelineID string) string {
	return programPath(programID) + "/pipeline/" + url.PathEscape(pipelineID)
}

func environmentPath(programID, environmentID string) string {
	return programPath(programID) + "/environment/" + url.PathEscape(environmentID)
}

func repositoryPath(programID, repositoryID string) string {
	return programPath(programID) + "/repository/" + url.PathEscape(repositoryID)
}
