package cmapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event type URIs.
const (
	EventTypeStarted = "https://ns.adobe.com/experience/cloudmanager/event/started"
	EventTypeEnded   = "https://ns.adobe.com/experience/cloudmanager/event/ended"
	EventTypeWaiting = "https://ns.adobe.com/experience/cloudmanager/event/waiting"
)

// Object type URIs.
const (
	ObjectTypePipelineExecution = "https://ns.adobe.com/experience/cloudmanager/pipeline-execution"
	ObjectTypeExecutionStep     = "https://ns.adobe.com/experience/cloudmanager/execution-step-state"
)

// EventKind is the concrete kind of a classified event.
type EventKind int

const (
	EventKindPipelineExecutionStarted EventKind = iota + 1
	EventKindPipelineExecutionEnded
	EventKindStepStarted
	EventKindStepWaiting
	EventKindStepEnded
)

var eventKindNames = map[EventKind]string{
	EventKindPipelineExecutionStarted: "pipeline-execution-started",
	EventKindPipelineExecutionEnded:   "pipeline-execution-ended",
	EventKindStepStarted:              "step-started",
	EventKindStepWaiting:              "step-waiting",
	EventKindStepEnded:                "step-ended",
}

// String returns the kind name; it is also used as a NATS subject token.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("EventKind(%d)", int(k))
}

// EventEnvelope is the part of every event that can be read before its kind is known.
type EventEnvelope struct {
	EventType  string
	ObjectType string
	Payload    json.RawMessage
}

type envelopeProbe struct {
	Event struct {
		Type       string `json:"@type"`
		ObjectType string `json:"xdmEventEnvelope:objectType"`
	} `json:"event"`
}

// ReadEnvelope decodes just the discriminator fields of raw.
func ReadEnvelope(raw []byte) (*EventEnvelope, error) {
	var probe envelopeProbe

	err := json.Unmarshal(raw, &probe)
	if err != nil {
		return nil, malformedEvent(err.Error())
	}

	if probe.Event.Type == "" && probe.Event.ObjectType == "" {
		return nil, malformedEvent("event type and object type are missing")
	}

	return &EventEnvelope{
		EventType:  probe.Event.Type,
		ObjectType: probe.Event.ObjectType,
		Payload:    json.RawMessage(raw),
	}, nil
}

func malformedEvent(reason string) *Error {
	return &Error{
		Kind:    KindMalformedEventPayload,
		Message: "Malformed event payload: " + reason,
	}
}

// Event is a decoded notification of a known kind.
type Event interface {
	Kind() EventKind
	Header() EventHeader
	ObjectURL() string
}

// EventHeader holds the fields common to every event body.
type EventHeader struct {
	ID         string     `json:"@id"                                 yaml:"id"`
	Type       string     `json:"@type"                               yaml:"type"`
	ObjectType string     `json:"xdmEventEnvelope:objectType"         yaml:"object_type"`
	Published  *time.Time `json:"activitystreams:published,omitempty" yaml:"published,omitempty"`
	To         *EventOrg  `json:"activitystreams:to,omitempty"        yaml:"to,omitempty"`
}

// EventOrg identifies the organization an event was delivered to.
type EventOrg struct {
	OrgID string `json:"xdmImsOrg:id" yaml:"org_id"`
	Type  string `json:"@type"        yaml:"type"`
}

// EventObject references the resource the event is about.
type EventObject struct {
	ID   string `json:"@id"   yaml:"id"`
	Type string `json:"@type" yaml:"type"`
}

// EventBody is the inner event document.
type EventBody struct {
	EventHeader `yaml:",inline"`

	Object EventObject `json:"activitystreams:object" yaml:"object"`
}

// Notification is the outer document delivered to webhooks.
type Notification struct {
	EventID string    `json:"event_id" yaml:"event_id"`
	Event   EventBody `json:"event"    yaml:"event"`
}

// Header returns the common event fields.
func (n *Notification) Header() EventHeader {
	return n.Event.EventHeader
}

// ObjectURL returns the API URL of the resource the event is about.
func (n *Notification) ObjectURL() string {
	return n.Event.Object.ID
}

// PipelineExecutionStartedEvent is sent when a pipeline execution starts.
type PipelineExecutionStartedEvent struct{ Notification }

// PipelineExecutionEndedEvent is sent when a pipeline execution ends.
type PipelineExecutionEndedEvent struct{ Notification }

// StepStartedEvent is sent when an execution step starts.
type StepStartedEvent struct{ Notification }

// StepWaitingEvent is sent when an execution step waits for input.
type StepWaitingEvent struct{ Notification }

// StepEndedEvent is sent when an execution step ends.
type StepEndedEvent struct{ Notification }

func (*PipelineExecutionStartedEvent) Kind() EventKind { return EventKindPipelineExecutionStarted }
func (*PipelineExecutionEndedEvent) Kind() EventKind   { return EventKindPipelineExecutionEnded }
func (*StepStartedEvent) Kind() EventKind              { return EventKindStepStarted }
func (*StepWaitingEvent) Kind() EventKind              { return EventKindStepWaiting }
func (*StepEndedEvent) Kind() EventKind                { return EventKindStepEnded }

// ExecutionURL returns the URL of the execution owning the step.
func (e *StepStartedEvent) ExecutionURL() string { return executionURL(e.ObjectURL()) }

// ExecutionURL returns the URL of the execution owning the step.
func (e *StepWaitingEvent) ExecutionURL() string { return executionURL(e.ObjectURL()) }

// ExecutionURL returns the URL of the execution owning the step.
func (e *StepEndedEvent) ExecutionURL() string { return executionURL(e.ObjectURL()) }

// executionURL strips the /phase/{id}/step/{id} suffix of a step state URL.
func executionURL(stepURL string) string {
	idx := strings.Index(stepURL, "/phase/")
	if idx < 0 {
		return stepURL
	}

	return stepURL[:idx]
}

// EventTypeEntry binds a discriminator pair to a concrete event type.
type EventTypeEntry struct {
	Kind       EventKind
	EventType  string
	ObjectType string

	newEvent func() Event
}

// Decode fully decodes raw into the entry's concrete event type.
func (e *EventTypeEntry) Decode(raw []byte) (Event, error) {
	event := e.newEvent()

	err := json.Unmarshal(raw, event)
	if err != nil {
		return nil, malformedEvent(err.Error())
	}

	return event, nil
}

type discriminator struct {
	eventType  string
	objectType string
}

var eventTypes = []EventTypeEntry{
	{
		Kind:       EventKindPipelineExecutionStarted,
		EventType:  EventTypeStarted,
		ObjectType: ObjectTypePipelineExecution,
		newEvent:   func() Event { return &PipelineExecutionStartedEvent{} },
	},
	{
		Kind:       EventKindPipelineExecutionEnded,
		EventType:  EventTypeEnded,
		ObjectType: ObjectTypePipelineExecution,
		newEvent:   func() Event { return &PipelineExecutionEndedEvent{} },
	},
	{
		Kind:       EventKindStepStarted,
		EventType:  EventTypeStarted,
		ObjectType: ObjectTypeExecutionStep,
		newEvent:   func() Event { return &StepStartedEvent{} },
	},
	{
		Kind:       EventKindStepWaiting,
		EventType:  EventTypeWaiting,
		ObjectType: ObjectTypeExecutionStep,
		newEvent:   func() Event { return &StepWaitingEvent{} },
	},
	{
		Kind:       EventKindStepEnded,
		EventType:  EventTypeEnded,
		ObjectType: ObjectTypeExecutionStep,
		newEvent:   func() Event { return &StepEndedEvent{} },
	},
}

var eventTypesByDiscriminator = func() map[discriminator]int {
	index := make(map[discriminator]int, len(eventTypes))
	for i, entry := range eventTypes {
		index[discriminator{eventType: entry.EventType, objectType: entry.ObjectType}] = i
	}

	return index
}()

// EventTypes returns a copy of the known event type table.
func EventTypes() []EventTypeEntry {
	return append([]EventTypeEntry(nil), eventTypes...)
}

// LookupEventType returns the entry for a discriminator pair, or nil.
func LookupEventType(eventType, objectType string) *EventTypeEntry {
	idx, ok := eventTypesByDiscriminator[discriminator{eventType: eventType, objectType: objectType}]
	if !ok {
		return nil
	}

	entry := eventTypes[idx]

	return &entry
}

// Classify returns the entry matching raw's discriminator pair. An unknown pair
// yields (nil, nil); only payloads that are not JSON or carry neither
// discriminator produce an error.
func Classify(raw []byte) (*EventTypeEntry, error) {
	envelope, err := ReadEnvelope(raw)
	if err != nil {
		return nil, err
	}

	return LookupEventType(envelope.EventType, envelope.ObjectType), nil
}

// DecodeEvent classifies and decodes raw. Unknown kinds yield (nil, nil).
func DecodeEvent(raw []byte) (Event, error) {
	entry, err := Classify(raw)
	if err != nil || entry == nil {
		return nil, err
	}

	return entry.Decode(raw)
}
