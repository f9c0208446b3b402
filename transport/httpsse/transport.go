package httpsse

import (
	"encoding/json"
	"fmt"
)

// EventStreamTransport implements domain.Transport by framing each event as
// a named SSE frame ("event: <name>\ndata: <json>\n\n") and enqueueing it
// onto the outbox the stream handler drains (spec 4.6).
type EventStreamTransport struct {
	box *outbox
}

func newEventStreamTransport() *EventStreamTransport {
	return &EventStreamTransport{box: newOutbox()}
}

// eventName extracts the frame's discriminant from the marshaled payload:
// `t` for lobby-protocol envelopes, `data_type` for signaling envelopes,
// falling back to "message" for anything else. Reading the JSON rather
// than the Go value covers named map types such as the router's envelope.
func eventName(payload []byte) string {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil || m == nil {
		return "message"
	}
	if t, ok := m["t"]; ok {
		return fmt.Sprintf("%v", t)
	}
	if dt, ok := m["data_type"]; ok {
		return fmt.Sprintf("%v", dt)
	}
	return "message"
}

func (t *EventStreamTransport) Deliver(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	frame := fmt.Sprintf("event: %s\ndata: %s\n\n", eventName(payload), payload)
	return t.box.Deliver([]byte(frame))
}

func (t *EventStreamTransport) Close(reason string) {
	t.box.Close(reason)
}
