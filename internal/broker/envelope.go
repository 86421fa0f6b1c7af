package broker

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Wire frames exchanged over the broker. Commands and events share the same
// request envelope; replies exist only for commands.

// Envelope wraps a command or event message for transport
type Envelope struct {
	ID      string          `json:"id"`      // correlation id for commands
	Pattern string          `json:"pattern"` // command name or event topic
	Data    json.RawMessage `json:"data"`    // payload, shape fixed per pattern
	SentAt  time.Time       `json:"sentAt"`
}

// Reply carries either a result or an error envelope, never both.
type Reply struct {
	Result json.RawMessage `json:"result,omitempty"`
	Err    *ErrorEnvelope  `json:"error,omitempty"`
}

// ErrorEnvelope is the error shape a service handler replies with. It must
// cross the transport unchanged so the gateway can rebuild the original
// failure for the client.
type ErrorEnvelope struct {
	StatusCode int          `json:"statusCode"`
	Message    ErrorMessage `json:"message"`
	Kind       string       `json:"error"`
}

// ErrorMessage is a string or a list of strings on the wire. Validation
// errors arrive as lists; everything else as a single string. Whichever
// form came in is the form that goes back out.
type ErrorMessage struct {
	parts []string
	list  bool
}

func MessageString(s string) ErrorMessage {
	return ErrorMessage{parts: []string{s}}
}

func MessageList(parts ...string) ErrorMessage {
	return ErrorMessage{parts: parts, list: true}
}

// String flattens the message for logs and single-line display.
func (m ErrorMessage) String() string {
	return strings.Join(m.parts, "; ")
}

func (m ErrorMessage) MarshalJSON() ([]byte, error) {
	if m.list {
		return json.Marshal(m.parts)
	}
	if len(m.parts) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(m.parts[0])
}

func (m *ErrorMessage) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = ErrorMessage{parts: []string{single}}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*m = ErrorMessage{parts: many, list: true}
		return nil
	}
	return fmt.Errorf("error message must be a string or a list of strings")
}

// Value returns what handlers should place in an HTTP response body:
// the original string or the original list.
func (m ErrorMessage) Value() any {
	if m.list {
		return m.parts
	}
	if len(m.parts) == 0 {
		return ""
	}
	return m.parts[0]
}

// NewEnvelope builds a request envelope around an already-marshaled payload.
func NewEnvelope(id, pattern string, data json.RawMessage) Envelope {
	return Envelope{ID: id, Pattern: pattern, Data: data, SentAt: time.Now().UTC()}
}
