package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitingExecution(action string, links cmapi.Links) *cmapi.PipelineExecution {
	return &cmapi.PipelineExecution{
		ID:         "100",
		ProgramID:  "1",
		PipelineID: "10",
		Status:     cmapi.ExecutionStatusRunning,
		Embedded: cmapi.ExecutionEmbedded{
			StepStates: []cmapi.StepState{
				{ID: "1000", PhaseID: "500", Action: "build", Status: cmapi.StepStatusFinished},
				{ID: "1001", PhaseID: "501", Action: action, Status: cmapi.StepStatusWaiting, Links: links},
				{ID: "1002", PhaseID: "502", Action: "deploy", Status: cmapi.StepStatusNotStarted},
			},
		},
	}
}

func TestExecutionsClient_Start(t *testing.T) {
	t.Parallel()

	t.Run("started", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/program/1/pipeline/10/execution", r.URL.Path)
			assert.Equal(t, http.MethodPut, r.Method)

			writeJSON(w, http.StatusCreated, cmapi.PipelineExecution{ID: "100", Status: cmapi.ExecutionStatusNotStarted})
		})

		execution, err := client.Executions().Start(context.Background(), "1", "10")
		require.NoError(t, err)
		assert.Equal(t, "100", execution.ID)
	})

	t.Run("empty body falls back to current execution", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPut {
				w.WriteHeader(http.StatusCreated)

				return
			}

			writeJSON(w, http.StatusOK, cmapi.PipelineExecution{ID: "101", Status: cmapi.ExecutionStatusRunning})
		})

		execution, err := client.Executions().Start(context.Background(), "1", "10")
		require.NoError(t, err)
		assert.Equal(t, "101", execution.ID)
	})

	t.Run("already running", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusPreconditionFailed, map[string]string{"message": "pipeline is busy"})
		})

		_, err := client.Executions().Start(context.Background(), "1", "10")
		require.Error(t, err)
		assert.True(t, cmapi.IsBusy(err))

		apiErr, ok := cmapi.AsError(err)
		require.True(t, ok)
		assert.Equal(t, cmapi.SeverityWarning, apiErr.Severity)
		assert.Equal(t, cmapi.OpStartExecution, apiErr.Operation)
		assert.Equal(t, "pipeline is busy", apiErr.Detail)
		assert.Contains(t, apiErr.Message, "Cannot start execution, pipeline is already running: ")
	})

	t.Run("other failure", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.Executions().Start(context.Background(), "1", "10")
		require.Error(t, err)
		assert.True(t, cmapi.IsKind(err, cmapi.KindCreateFailed))
		assert.False(t, cmapi.IsBusy(err))
	})
}

func TestExecutionsClient_GetByURL(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/program/1/pipeline/10/execution/100", r.URL.Path)
		writeJSON(w, http.StatusOK, cmapi.PipelineExecution{ID: "100", ProgramID: "1", PipelineID: "10"})
	})

	execution, err := client.Executions().GetByURL(context.Background(), client.BaseURL()+"/api/program/1/pipeline/10/execution/100")
	require.NoError(t, err)
	assert.Equal(t, "100", execution.ID)

	execution, err = client.Executions().Get(context.Background(), "1", "10", "100")
	require.NoError(t, err)
	assert.Equal(t, "10", execution.PipelineID)
}

//nolint:funlen
func TestExecutionsClient_List(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		assert.Equal(t, "/api/program/1/pipeline/10/executions", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		start, _ := strconv.Atoi(r.URL.Query().Get("start"))

		switch start {
		case 0:
			writeJSON(w, http.StatusOK, pagedCollection("executions", []cmapi.PipelineExecution{{ID: "1"}, {ID: "2"}}, 3, 2, intPtr(2)))
		case 2:
			writeJSON(w, http.StatusOK, pagedCollection("executions", []cmapi.PipelineExecution{{ID: "3"}}, 3, 2, nil))
		default:
			writeJSON(w, http.StatusOK, pagedCollection("executions", []cmapi.PipelineExecution{}, 3, 2, nil))
		}
	})

	paginator, err := client.Executions().List(context.Background(), "1", "10", cmapi.PageCursor{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load())

	var ids []string
	for execution := range paginator.Items() {
		ids = append(ids, execution.ID)
	}

	assert.Equal(t, []string{"1", "2", "3"}, ids)
	require.NoError(t, paginator.Err())
	assert.Equal(t, int32(3), requests.Load())
}

func TestExecutionsClient_ListFirstPageFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	paginator, err := client.Executions().List(context.Background(), "1", "10", cmapi.PageCursor{})
	require.Error(t, err)
	assert.Nil(t, paginator)
	assert.True(t, cmapi.IsKind(err, cmapi.KindListFailed))
	assert.True(t, cmapi.IsUnauthorized(err))
}

func TestExecutionsClient_ListLaterPageFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		writeJSON(w, http.StatusOK, pagedCollection("executions", []cmapi.PipelineExecution{{ID: "1"}}, 5, 1, intPtr(1)))
	})

	paginator, err := client.Executions().List(context.Background(), "1", "10", cmapi.PageCursor{Limit: 1})
	require.NoError(t, err)

	items := paginator.All()
	require.Len(t, items, 1)
	assert.False(t, paginator.HasNext())
	assert.True(t, cmapi.IsKind(paginator.Err(), cmapi.KindListFailed))
}

//nolint:funlen
func TestExecutionsClient_Advance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action string
		links  cmapi.Links
		path   string
		body   map[string]bool
	}{
		{
			name:   "approval via built path",
			action: cmapi.StepActionApproval,
			path:   "/api/program/1/pipeline/10/execution/100/phase/501/step/1001/advance",
			body:   map[string]bool{"approved": true},
		},
		{
			name:   "code quality override",
			action: cmapi.StepActionCodeQuality,
			path:   "/api/program/1/pipeline/10/execution/100/phase/501/step/1001/advance",
			body:   map[string]bool{"override": true},
		},
		{
			name:   "advance link wins",
			action: cmapi.StepActionSecurity,
			links:  cmapi.Links{cmapi.RelAdvance: {Href: "/api/custom/advance"}},
			path:   "/api/custom/advance",
			body:   map[string]bool{"override": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, http.MethodPut, r.Method)

				var body map[string]bool
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, tt.body, body)

				w.WriteHeader(http.StatusAccepted)
			})

			err := client.Executions().Advance(context.Background(), waitingExecution(tt.action, tt.links))
			require.NoError(t, err)
		})
	}
}

func TestExecutionsClient_AdvanceRequiresWaitingStep(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	running := waitingExecution(cmapi.StepActionApproval, nil)
	running.Embedded.StepStates[1].Status = cmapi.StepStatusRunning

	err := client.Executions().Advance(context.Background(), running)
	require.ErrorIs(t, err, cmapi.ErrStepNotWaiting)

	finished := waitingExecution(cmapi.StepActionApproval, nil)
	finished.Embedded.StepStates[1].Status = cmapi.StepStatusFinished

	err = client.Executions().Advance(context.Background(), finished)
	require.ErrorIs(t, err, cmapi.ErrNoActiveStep)

	err = client.Executions().Advance(context.Background(), nil)
	require.ErrorIs(t, err, cmapi.ErrExecutionRecordEmpty)
}

func TestExecutionsClient_Cancel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action string
		status string
		body   map[string]bool
	}{
		{"reject approval", cmapi.StepActionApproval, cmapi.StepStatusWaiting, map[string]bool{"approved": false}},
		{"reject quality gate", cmapi.StepActionPerformance, cmapi.StepStatusWaiting, map[string]bool{"override": false}},
		{"cancel running step", "build", cmapi.StepStatusRunning, map[string]bool{"cancel": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/program/1/pipeline/10/execution/100/phase/501/step/1001/cancel", r.URL.Path)

				var body map[string]bool
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, tt.body, body)

				w.WriteHeader(http.StatusAccepted)
			})

			execution := waitingExecution(tt.action, nil)
			execution.Embedded.StepStates[1].Status = tt.status

			require.NoError(t, client.Executions().Cancel(context.Background(), execution))
		})
	}
}

func TestExecutionsClient_CancelFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"http://ns.adobe.com/adobecloud/validation-exception","errors":["step is not cancellable"]}`))
	})

	err := client.Executions().Cancel(context.Background(), waitingExecution(cmapi.StepActionApproval, nil))
	require.Error(t, err)

	apiErr, ok := cmapi.AsError(err)
	require.True(t, ok)
	assert.Equal(t, cmapi.KindUpdateFailed, apiErr.Kind)
	assert.Equal(t, []string{"step is not cancellable"}, apiErr.Validation)
}

func TestExecutionsClient_GetStepLogs(t *testing.T) {
	t.Parallel()

	t.Run("redirect", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/program/1/pipeline/10/execution/100/phase/500/step/1000/logs", r.URL.Path)
			assert.Equal(t, "sonarLogFile", r.URL.Query().Get("file"))

			writeJSON(w, http.StatusOK, cmapi.Redirect{Redirect: "https://logs.example.com/build.txt"})
		})

		redirect, err := client.Executions().GetStepLogs(context.Background(), waitingExecution(cmapi.StepActionApproval, nil), "build", "sonarLogFile")
		require.NoError(t, err)
		assert.Equal(t, "https://logs.example.com/build.txt", redirect.Redirect)
	})

	t.Run("missing redirect", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.RawQuery)
			writeJSON(w, http.StatusOK, map[string]string{})
		})

		_, err := client.Executions().GetStepLogs(context.Background(), waitingExecution(cmapi.StepActionApproval, nil), "build", "")
		require.ErrorIs(t, err, cmapi.ErrNoRedirectLink)
	})

	t.Run("unknown action", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request %s", r.URL.Path)
		})

		_, err := client.Executions().GetStepLogs(context.Background(), waitingExecution(cmapi.StepActionApproval, nil), "loadTest", "")
		require.ErrorIs(t, err, cmapi.ErrStepNotFound)
	})
}

func TestExecution_RefreshThroughClient(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/program/1/pipeline/10/execution/100", r.URL.Path)
		writeJSON(w, http.StatusOK, cmapi.PipelineExecution{ID: "100", ProgramID: "1", PipelineID: "10", Status: cmapi.ExecutionStatusFinished})
	})

	execution := cmapi.NewExecution(client.Executions(), waitingExecution(cmapi.StepActionApproval, nil))
	assert.True(t, execution.IsRunning())

	require.NoError(t, execution.Refresh(context.Background()))
	assert.False(t, execution.IsRunning())
}
