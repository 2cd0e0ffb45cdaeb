package stream

import (
	"encoding/json"
	"fmt"
)

// Event is the JSON payload carried by each SSE message on the log stream.
type Event struct {
	Message   string `json:"message"`
	Heartbeat bool   `json:"heartbeat"`
}

// DecodeEvent parses one SSE data payload.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("malformed log event: %w", err)
	}
	return ev, nil
}
