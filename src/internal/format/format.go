// FILE: logpulse/src/internal/format/format.go
package format

import (
	"fmt"

	"logpulse/src/internal/config"
	"logpulse/src/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter renders a LogEntry into its single-line text form, without trailing newline.
type Formatter interface {
	Format(entry core.LogEntry) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// New creates the formatter selected by cfg.Format
func New(cfg *config.Config, logger *log.Logger) (Formatter, error) {
	switch cfg.Format {
	case "", "default":
		return NewDefaultFormatter(), nil
	case "template":
		return NewTemplateFormatter(cfg.LogFormat, logger)
	case "json":
		return NewJSONFormatter(logger), nil
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", cfg.Format)
	}
}

// Func adapts a plain function into a Formatter
type Func func(level, timestamp, message string) string

func (f Func) Format(entry core.LogEntry) ([]byte, error) {
	return []byte(f(entry.Level, entry.Timestamp, entry.Message)), nil
}

func (f Func) Name() string {
	return "func"
}
