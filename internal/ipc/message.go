package ipc

import "encoding/json"

// successSentinel is the error value mpv uses for a successful command.
const successSentinel = "success"

// propertyChangeEvent is routed to property observers before listeners.
const propertyChangeEvent = "property-change"

// Message is a single decoded line from the player. It is either a
// Response or an Event. A line carrying a request_id is a Response even if
// it also names an event; mpv never sends both.
type Message interface {
	isMessage()
}

// Response answers a command that carried a request_id.
type Response struct {
	ID    int64
	Error string
	Data  any
}

func (Response) isMessage() {}

// OK reports whether the player accepted the command.
func (r Response) OK() bool {
	return r.Error == successSentinel
}

// Err returns a *CommandError when the command failed, nil otherwise.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return &CommandError{RequestID: r.ID, Message: r.Error}
}

// Event is an unsolicited notification from the player. Property is only
// set for property-change events.
type Event struct {
	Name     string
	Property string
	Data     any
	Raw      map[string]json.RawMessage
}

func (Event) isMessage() {}

// Field decodes an event-specific field into v. It reports false when the
// field is absent or does not decode.
func (e Event) Field(name string, v any) bool {
	raw, ok := e.Raw[name]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// ResponseFunc receives the response to a correlated command.
type ResponseFunc func(Response)

// PropertyFunc receives property-change events for one property.
type PropertyFunc func(Event)

// EventFunc receives events with a given name.
type EventFunc func(Event)
