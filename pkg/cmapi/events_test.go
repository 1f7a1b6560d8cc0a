package cmapi_test

import (
	"fmt"
	"testing"

	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const executionURL = "https://cloudmanager.adobe.io/api/program/1/pipeline/2/execution/3"

func eventPayload(eventType, objectType, objectURL string) []byte {
	return []byte(fmt.Sprintf(`{
		"event_id": "ed5d6d2b-d8e3-4a0b-8b7c-1f3c6b0e2a11",
		"event": {
			"@id": "urn:oeid:cloudmanager:1",
			"@type": %q,
			"xdmEventEnvelope:objectType": %q,
			"activitystreams:published": "2026-10-01T10:00:00.000Z",
			"activitystreams:to": {"xdmImsOrg:id": "ORG@AdobeOrg", "@type": "xdmImsOrg"},
			"activitystreams:object": {"@id": %q, "@type": %q}
		}
	}`, eventType, objectType, objectURL, objectType))
}

func TestClassify_KnownPairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		eventType  string
		objectType string
		kind       cmapi.EventKind
	}{
		{"execution started", cmapi.EventTypeStarted, cmapi.ObjectTypePipelineExecution, cmapi.EventKindPipelineExecutionStarted},
		{"execution ended", cmapi.EventTypeEnded, cmapi.ObjectTypePipelineExecution, cmapi.EventKindPipelineExecutionEnded},
		{"step started", cmapi.EventTypeStarted, cmapi.ObjectTypeExecutionStep, cmapi.EventKindStepStarted},
		{"step waiting", cmapi.EventTypeWaiting, cmapi.ObjectTypeExecutionStep, cmapi.EventKindStepWaiting},
		{"step ended", cmapi.EventTypeEnded, cmapi.ObjectTypeExecutionStep, cmapi.EventKindStepEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entry, err := cmapi.Classify(eventPayload(tt.eventType, tt.objectType, executionURL))
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, tt.kind, entry.Kind)
			assert.Equal(t, tt.eventType, entry.EventType)
			assert.Equal(t, tt.objectType, entry.ObjectType)
		})
	}
}

func TestClassify_UnknownPair(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		eventType  string
		objectType string
	}{
		{"waiting execution", cmapi.EventTypeWaiting, cmapi.ObjectTypePipelineExecution},
		{"foreign event type", "https://ns.adobe.com/experience/other/event/started", cmapi.ObjectTypePipelineExecution},
		{"missing object type", cmapi.EventTypeStarted, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entry, err := cmapi.Classify(eventPayload(tt.eventType, tt.objectType, executionURL))
			require.NoError(t, err)
			assert.Nil(t, entry)

			event, err := cmapi.DecodeEvent(eventPayload(tt.eventType, tt.objectType, executionURL))
			require.NoError(t, err)
			assert.Nil(t, event)
		})
	}
}

func TestClassify_MalformedPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `event`},
		{"truncated", `{"event": {"@type": "x"`},
		{"no discriminators", `{"event_id": "1", "event": {}}`},
		{"wrong shape", `{"event": "started"}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entry, err := cmapi.Classify([]byte(tt.raw))
			require.Error(t, err)
			assert.Nil(t, entry)
			assert.True(t, cmapi.IsKind(err, cmapi.KindMalformedEventPayload))
			assert.ErrorIs(t, err, cmapi.ErrMalformedEventPayload)
		})
	}
}

func TestDecodeEvent_ExecutionStarted(t *testing.T) {
	t.Parallel()

	event, err := cmapi.DecodeEvent(eventPayload(cmapi.EventTypeStarted, cmapi.ObjectTypePipelineExecution, executionURL))
	require.NoError(t, err)

	started, ok := event.(*cmapi.PipelineExecutionStartedEvent)
	require.True(t, ok)

	assert.Equal(t, cmapi.EventKindPipelineExecutionStarted, started.Kind())
	assert.Equal(t, "ed5d6d2b-d8e3-4a0b-8b7c-1f3c6b0e2a11", started.EventID)
	assert.Equal(t, executionURL, started.ObjectURL())
	assert.Equal(t, "ORG@AdobeOrg", started.Header().To.OrgID)
	require.NotNil(t, started.Header().Published)
	assert.Equal(t, 2026, started.Header().Published.Year())
}

func TestDecodeEvent_StepEventsExposeExecution(t *testing.T) {
	t.Parallel()

	stepURL := executionURL + "/phase/4/step/5"

	event, err := cmapi.DecodeEvent(eventPayload(cmapi.EventTypeWaiting, cmapi.ObjectTypeExecutionStep, stepURL))
	require.NoError(t, err)

	waiting, ok := event.(*cmapi.StepWaitingEvent)
	require.True(t, ok)
	assert.Equal(t, stepURL, waiting.ObjectURL())
	assert.Equal(t, executionURL, waiting.ExecutionURL())
	assert.Equal(t, "step-waiting", waiting.Kind().String())
}

func TestEventTypes_Table(t *testing.T) {
	t.Parallel()

	entries := cmapi.EventTypes()
	require.Len(t, entries, 5)

	seen := map[cmapi.EventKind]bool{}
	for _, entry := range entries {
		assert.False(t, seen[entry.Kind], "duplicate kind %s", entry.Kind)
		seen[entry.Kind] = true

		looked := cmapi.LookupEventType(entry.EventType, entry.ObjectType)
		require.NotNil(t, looked)
		assert.Equal(t, entry.Kind, looked.Kind)
	}

	entries[0].Kind = cmapi.EventKindStepEnded
	assert.Equal(t, cmapi.EventKindPipelineExecutionStarted, cmapi.EventTypes()[0].Kind)
}
