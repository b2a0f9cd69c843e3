// FILE: logpulse/src/cmd/logpulse/status.go
package main

import (
	"context"
	"time"
)

const statusInterval = 30 * time.Second

// statusReporter periodically logs engine and connection counters
func statusReporter(ctx context.Context, app *App) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("msg", "Panic in status reporter",
							"component", "status_reporter",
							"panic", r)
					}
				}()
				logger.Debug(app.statusFields()...)
			}()
		}
	}
}

func (a *App) statusFields() []any {
	stats := a.engine.GetStats()
	snap, _ := a.engine.Metrics()

	fields := []any{
		"msg", "Status report",
		"component", "status_reporter",
		"total_ingested", stats["total_ingested"],
		"buffered", stats["buffered"],
		"persist_failed", stats["persist_failed"],
		"errors_per_minute", snap.ErrorsPerMinute,
	}
	if a.broadcaster != nil {
		fields = append(fields, "realtime_clients", a.broadcaster.ClientCount())
	}
	if a.tail != nil {
		fields = append(fields, "tail_connections", a.tail.ActiveConnections())
	}
	if a.sessions != nil {
		fields = append(fields, "sessions", a.sessions.Count(""))
	}
	return fields
}
