package websocket

import (
	"encoding/json"
	"time"
)

// Server to client push frames. The event name mirrors the socket event the
// web client listens on.

const (
	EventConnected   = "connected"
	EventTaskCreated = "task:created"
	EventTaskUpdated = "task:updated"
	EventCommentNew  = "comment:new"
)

// PushMessage is the frame written to a client connection
type PushMessage struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPushMessage(event string, data any) *PushMessage {
	return &PushMessage{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON: marshal PushMessage struct to JSON
func (m *PushMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
