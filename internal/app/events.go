package app

// Workflow event types.
const (
	EventDailyCreated            = "daily.created"
	EventExplanationReady        = "daily.explanation.ready"
	EventExplanationFailed       = "daily.explanation.failed"
	EventIllustrationReady       = "daily.illustration.ready"
	EventIllustrationUnavailable = "daily.illustration.unavailable"
	EventIllustrationFailed      = "daily.illustration.failed"
)

// WorkflowEvent reports a state change for one date. It implements ports.Event.
type WorkflowEvent struct {
	Type   string
	Date   string
	Status string
	Error  string
}

// EventPayload is the serialized form of a WorkflowEvent.
type EventPayload struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// EventType implements ports.Event.
func (e WorkflowEvent) EventType() string { return e.Type }

// Payload implements ports.Event.
func (e WorkflowEvent) Payload() any {
	return EventPayload{Date: e.Date, Status: e.Status, Error: e.Error}
}
