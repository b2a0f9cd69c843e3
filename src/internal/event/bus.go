// FILE: logpulse/src/internal/event/bus.go
package event

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/log"
)

// Event is a single emission on a topic
type Event struct {
	Topic   string
	Payload any
	Time    time.Time
}

// Handler receives events synchronously on the emitting goroutine
type Handler func(Event)

// Subscription identifies a registered handler
type Subscription struct {
	Topic string
	ID    uint64
}

// Bus is an in-process publish/subscribe registry.
// Handlers run in subscription order; a panicking handler is recovered and logged.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[uint64]Handler
	nextID   atomic.Uint64
	logger   *log.Logger

	totalEmitted atomic.Uint64
	totalPanics  atomic.Uint64
}

func NewBus(logger *log.Logger) *Bus {
	return &Bus{
		handlers: make(map[string]map[uint64]Handler),
		logger:   logger,
	}
}

// Subscribe registers h for topic
func (b *Bus) Subscribe(topic string, h Handler) Subscription {
	id := b.nextID.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[uint64]Handler)
	}
	b.handlers[topic][id] = h

	return Subscription{Topic: topic, ID: id}
}

// Unsubscribe removes a handler, unknown subscriptions are ignored
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if hs, ok := b.handlers[sub.Topic]; ok {
		delete(hs, sub.ID)
		if len(hs) == 0 {
			delete(b.handlers, sub.Topic)
		}
	}
}

// Emit delivers payload to every handler of topic
func (b *Bus) Emit(topic string, payload any) {
	b.mu.RLock()
	hs := b.handlers[topic]
	ids := make([]uint64, 0, len(hs))
	for id := range hs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ordered := make([]Handler, len(ids))
	for i, id := range ids {
		ordered[i] = hs[id]
	}
	b.mu.RUnlock()

	b.totalEmitted.Add(1)
	ev := Event{Topic: topic, Payload: payload, Time: time.Now()}
	for _, h := range ordered {
		b.dispatch(h, ev)
	}
}

func (b *Bus) dispatch(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.totalPanics.Add(1)
			b.logger.Error("msg", "Event handler panicked",
				"component", "event_bus",
				"topic", ev.Topic,
				"error", fmt.Sprint(r))
		}
	}()
	h(ev)
}

// Count returns the number of handlers registered for topic
func (b *Bus) Count(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

// Clear removes every handler
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string]map[uint64]Handler)
}

func (b *Bus) GetStats() map[string]any {
	b.mu.RLock()
	topics := make(map[string]int, len(b.handlers))
	for topic, hs := range b.handlers {
		topics[topic] = len(hs)
	}
	b.mu.RUnlock()

	return map[string]any{
		"topics":        topics,
		"total_emitted": b.totalEmitted.Load(),
		"total_panics":  b.totalPanics.Load(),
	}
}
