package core

// EventKind is a notification the core emits to a connection.
type EventKind int

const (
	// EventBroadcast carries a host payload to a guest.
	EventBroadcast EventKind = iota
	// EventError reports a protocol error; Body holds one of the ErrCode values.
	EventError
)

// Event is queued on a session for its writer to deliver.
type Event struct {
	Kind EventKind
	Body string
}

// ErrorEvent builds an error event with one of the ErrCode values.
func ErrorEvent(code string) *Event {
	return &Event{Kind: EventError, Body: code}
}
