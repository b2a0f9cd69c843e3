// FILE: logpulse/src/internal/format/json.go
package format

import (
	"encoding/json"
	"fmt"

	"logpulse/src/internal/core"

	"github.com/lixenwraith/log"
)

// JSONFormatter produces one JSON object per line
type JSONFormatter struct {
	logger *log.Logger
}

func NewJSONFormatter(logger *log.Logger) *JSONFormatter {
	return &JSONFormatter{logger: logger}
}

// Format merges a JSON object message into the output, standard fields take precedence
func (f *JSONFormatter) Format(entry core.LogEntry) ([]byte, error) {
	output := make(map[string]any)

	var msgData map[string]any
	if err := json.Unmarshal([]byte(entry.Message), &msgData); err == nil {
		for k, v := range msgData {
			output[k] = v
		}
		if _, hasTime := msgData["timestamp"]; hasTime {
			f.logger.Debug("msg", "Overriding timestamp from JSON message",
				"component", "json_formatter",
				"original", msgData["timestamp"])
		}
	} else {
		output["message"] = entry.Message
	}

	output["timestamp"] = entry.Timestamp
	output["level"] = entry.Level

	result, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return result, nil
}

func (f *JSONFormatter) Name() string {
	return "json"
}
