// FILE: logpulse/src/internal/stream/message.go
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
)

// Server to client events
const (
	EventConnected     = "connected"
	EventInitialLogs   = "initialLogs"
	EventNewLog        = "newLog"
	EventMetricsUpdate = "metricsUpdate"
	EventLogRotation   = "logRotation"
	EventLogsData      = "logsData"
	EventError         = "error"
	EventDisconnect    = "disconnect"
)

// Client to server requests
const (
	RequestLogs    = "requestLogs"
	RequestMetrics = "requestMetrics"
)

// Message is one server-sent event. An empty Event encodes as a comment line.
type Message struct {
	Event string
	Data  []byte
}

// Request is the body of a client request posted to its session.
type Request struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewMessage marshals payload as the event data
func NewMessage(event string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	return Message{Event: event, Data: data}, nil
}

func errorMessage(text string) Message {
	msg, _ := NewMessage(EventError, map[string]string{"error": text})
	return msg
}

func comment(text string) Message {
	return Message{Data: []byte(text)}
}

// Encode writes the SSE frame. Multi-line data gets one data field per line.
func (m Message) Encode(w *bufio.Writer) error {
	if m.Event == "" {
		_, err := fmt.Fprintf(w, ": %s\n\n", m.Data)
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", m.Event); err != nil {
		return err
	}
	for _, line := range bytes.Split(bytes.TrimSuffix(m.Data, []byte{'\n'}), []byte{'\n'}) {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}
