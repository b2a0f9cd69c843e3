// FILE: logpulse/src/internal/sink/console.go
package sink

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logpulse/src/internal/core"

	"github.com/logrusorgru/aurora"
)

// ConsoleSink writes formatted entries to a terminal, colorized by level
type ConsoleSink struct {
	mu     sync.Mutex
	output io.Writer
	au     aurora.Aurora

	startTime      time.Time
	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewConsoleSink writes to output, os.Stdout when nil
func NewConsoleSink(output io.Writer, color bool) *ConsoleSink {
	if output == nil {
		output = os.Stdout
	}
	s := &ConsoleSink{
		output:    output,
		au:        aurora.NewAurora(color),
		startTime: time.Now(),
	}
	s.lastProcessed.Store(time.Time{})
	return s
}

// SetColor toggles ANSI colors
func (s *ConsoleSink) SetColor(color bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.au = aurora.NewAurora(color)
}

// Write emits the formatted message of entry followed by a newline
func (s *ConsoleSink) Write(entry core.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintln(s.output, s.colorize(entry.Level, entry.FormattedMessage)); err != nil {
		return err
	}

	s.totalProcessed.Add(1)
	s.lastProcessed.Store(time.Now())
	return nil
}

func (s *ConsoleSink) colorize(level, line string) string {
	switch strings.ToLower(level) {
	case "error", "fatal", "critical":
		return s.au.Red(line).String()
	case "warn", "warning":
		return s.au.Yellow(line).String()
	case "info":
		return s.au.Green(line).String()
	case "debug", "trace":
		return s.au.Cyan(line).String()
	default:
		return line
	}
}

func (s *ConsoleSink) GetStats() SinkStats {
	lastProc, _ := s.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           "console",
		TotalProcessed: s.totalProcessed.Load(),
		StartTime:      s.startTime,
		LastProcessed:  lastProc,
		Details:        map[string]any{},
	}
}
