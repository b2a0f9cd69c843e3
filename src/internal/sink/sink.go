// FILE: logpulse/src/internal/sink/sink.go
package sink

import (
	"time"
)

// SinkStats contains statistics about a sink
type SinkStats struct {
	Type           string
	TotalProcessed uint64
	StartTime      time.Time
	LastProcessed  time.Time
	Details        map[string]any
}
