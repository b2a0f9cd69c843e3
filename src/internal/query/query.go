// FILE: logpulse/src/internal/query/query.go
package query

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"logpulse/src/internal/core"

	"github.com/lixenwraith/log"
)

// Matches the default line layout: [2006-01-02 15:04:05] [LEVEL]: message
var linePattern = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\] \[([^\]]+)\]: (.*)$`)

// Accepted layouts for date bounds
var dateLayouts = []string{
	core.TimestampFormat,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FileSource locates the active log file and its archives.
type FileSource interface {
	ActivePath() string
	Directory() string
}

// EntrySource exposes buffered entries, oldest first.
type EntrySource interface {
	Snapshot() []core.LogEntry
}

// Filter holds the optional query criteria. Empty fields do not filter.
type Filter struct {
	Level     string `json:"level"`
	Search    string `json:"search"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Engine answers historical queries over the active file merged with the buffer.
type Engine struct {
	files  FileSource
	buffer EntrySource
	logger *log.Logger
}

func NewEngine(files FileSource, buffer EntrySource, logger *log.Logger) *Engine {
	return &Engine{files: files, buffer: buffer, logger: logger}
}

// FilterLogs returns matching entries, newest first.
func (e *Engine) FilterLogs(f Filter) ([]core.LogEntry, error) {
	combined, err := e.readActiveFile()
	if err != nil {
		return nil, err
	}
	combined = mergeBuffered(combined, e.buffer.Snapshot())

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Timestamp > combined[j].Timestamp
	})

	return Apply(combined, f), nil
}

// Apply filters entries in place order.
func Apply(entries []core.LogEntry, f Filter) []core.LogEntry {
	start, startOK := parseBound(f.StartDate, false)
	end, endOK := parseBound(f.EndDate, true)
	search := strings.ToLower(f.Search)

	out := make([]core.LogEntry, 0, len(entries))
	for _, entry := range entries {
		if f.Level != "" && !strings.EqualFold(entry.Level, f.Level) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(entry.Message), search) &&
			!strings.Contains(strings.ToLower(entry.FormattedMessage), search) {
			continue
		}
		if startOK || endOK {
			// An unparsable entry timestamp skips date filtering for that entry
			if ts, err := core.ParseTimestamp(entry.Timestamp); err == nil {
				if startOK && ts.Before(start) {
					continue
				}
				if endOK && ts.After(end) {
					continue
				}
			}
		}
		out = append(out, entry)
	}
	return out
}

func (e *Engine) readActiveFile() ([]core.LogEntry, error) {
	f, err := os.Open(e.files.ActivePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open active log file: %w", err)
	}
	defer f.Close()

	var entries []core.LogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		entries = append(entries, ParseLine(line))
	}
	if err := scanner.Err(); err != nil {
		e.logger.Warn("msg", "Stopped reading active log file early",
			"component", "query",
			"path", e.files.ActivePath(),
			"error", err)
	}
	return entries, nil
}

// ParseLine recovers an entry from a formatted line. Lines in any other layout
// are kept whole with empty level and timestamp.
func ParseLine(line string) core.LogEntry {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return core.LogEntry{Message: line, FormattedMessage: line}
	}

	entry := core.LogEntry{
		Timestamp:        m[1],
		Level:            m[2],
		Message:          m[3],
		FormattedMessage: line,
	}
	if t, err := core.ParseTimestamp(m[1]); err == nil {
		entry.Time = t
	}
	return entry
}

func mergeBuffered(fromFile, buffered []core.LogEntry) []core.LogEntry {
	seen := make(map[string]struct{}, len(fromFile))
	for _, entry := range fromFile {
		seen[entry.DedupKey()] = struct{}{}
	}
	for _, entry := range buffered {
		key := entry.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fromFile = append(fromFile, entry)
	}
	return fromFile
}

// parseBound parses a date bound. A date-only upper bound covers the whole day.
func parseBound(s string, upper bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err != nil {
			continue
		}
		if upper && layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t, true
	}
	return time.Time{}, false
}
