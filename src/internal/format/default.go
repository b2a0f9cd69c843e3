// FILE: logpulse/src/internal/format/default.go
package format

import (
	"strings"

	"logpulse/src/internal/core"
)

// DefaultFormatter produces "[<timestamp>] [<LEVEL>]: <message>" lines
type DefaultFormatter struct{}

func NewDefaultFormatter() *DefaultFormatter {
	return &DefaultFormatter{}
}

func (f *DefaultFormatter) Format(entry core.LogEntry) ([]byte, error) {
	var b strings.Builder
	b.Grow(len(entry.Timestamp) + len(entry.Level) + len(entry.Message) + 8)
	b.WriteByte('[')
	b.WriteString(entry.Timestamp)
	b.WriteString("] [")
	b.WriteString(strings.ToUpper(entry.Level))
	b.WriteString("]: ")
	b.WriteString(entry.Message)
	return []byte(b.String()), nil
}

func (f *DefaultFormatter) Name() string {
	return "default"
}
