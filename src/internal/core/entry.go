// FILE: logpulse/src/internal/core/entry.go
package core

import (
	"time"
)

// LogEntry is one ingested, timestamped, leveled log record.
// Values are copied on every hand-off, nothing mutates an entry after construction.
type LogEntry struct {
	Level            string    `json:"level"`
	Timestamp        string    `json:"timestamp"`
	Message          string    `json:"message"`
	FormattedMessage string    `json:"formattedMessage"`
	Time             time.Time `json:"-"`
}

// NewEntry builds an entry truncated to second precision. FormattedMessage is left
// for the formatter.
func NewEntry(level string, t time.Time, message string) LogEntry {
	t = t.Truncate(time.Second)
	return LogEntry{
		Level:     level,
		Timestamp: t.Format(TimestampFormat),
		Message:   message,
		Time:      t,
	}
}

// WithFormatted returns a copy carrying the formatted representation
func (e LogEntry) WithFormatted(formatted string) LogEntry {
	e.FormattedMessage = formatted
	return e
}

// DedupKey identifies an entry across the file and the in-memory buffer
func (e LogEntry) DedupKey() string {
	return e.Timestamp + "|" + e.Message
}

// ParseTimestamp parses a timestamp in TimestampFormat as local time
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampFormat, s, time.Local)
}
