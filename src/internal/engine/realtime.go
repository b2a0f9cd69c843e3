// FILE: logpulse/src/internal/engine/realtime.go
package engine

import (
	"logpulse/src/internal/core"
	"logpulse/src/internal/event"
	"logpulse/src/internal/metrics"
)

// Realtime receives live events for dashboard viewers.
type Realtime interface {
	PublishLog(entry core.LogEntry)
	PublishMetrics(snap metrics.Snapshot)
	PublishRotation(payload any)
}

// LinePublisher receives each formatted line.
type LinePublisher interface {
	Publish(line string)
}

// AttachRealtime subscribes r to new entries and rotations. Each entry is
// followed by a metrics snapshot while metrics are enabled. The returned
// function detaches r.
func (e *Engine) AttachRealtime(r Realtime) func() {
	logSub := e.bus.Subscribe(core.TopicLog, func(ev event.Event) {
		entry, ok := ev.Payload.(core.LogEntry)
		if !ok {
			return
		}
		r.PublishLog(entry)
		if snap, enabled := e.Metrics(); enabled {
			r.PublishMetrics(snap)
		}
	})
	rotSub := e.bus.Subscribe(core.TopicLogRotation, func(ev event.Event) {
		r.PublishRotation(ev.Payload)
	})

	return func() {
		e.bus.Unsubscribe(logSub)
		e.bus.Unsubscribe(rotSub)
	}
}

// AttachTail subscribes p to the formatted line of every new entry.
func (e *Engine) AttachTail(p LinePublisher) func() {
	sub := e.bus.Subscribe(core.TopicLog, func(ev event.Event) {
		if entry, ok := ev.Payload.(core.LogEntry); ok {
			p.Publish(entry.FormattedMessage)
		}
	})
	return func() { e.bus.Unsubscribe(sub) }
}
