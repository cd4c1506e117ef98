package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Frame is the JSON text frame exchanged with the realtime server.
type Frame struct {
	ID        string          `json:"id,omitempty"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewFrame encodes payload as the frame's data.
func NewFrame(event string, payload any) (Frame, error) {
	f := Frame{
		ID:        uuid.NewString(),
		Event:     event,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Frame{}, ErrInvalidJSON
		}
		f.Data = data
	}
	return f, nil
}
