// FILE: logpulse/src/internal/event/bus_test.go
package event

import (
	"sync"
	"testing"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
)

func newTestBus() *Bus {
	return NewBus(log.NewLogger())
}

func TestBus_SubscribeEmitOrder(t *testing.T) {
	b := newTestBus()

	var got []string
	b.Subscribe("log", func(ev Event) { got = append(got, "first:"+ev.Payload.(string)) })
	b.Subscribe("log", func(ev Event) { got = append(got, "second:"+ev.Payload.(string)) })
	b.Subscribe("other", func(ev Event) { got = append(got, "other") })

	b.Emit("log", "x")

	assert.Equal(t, []string{"first:x", "second:x"}, got)
	assert.Equal(t, 2, b.Count("log"))
}

func TestBus_Unsubscribe(t *testing.T) {
	b := newTestBus()

	calls := 0
	sub := b.Subscribe("log", func(Event) { calls++ })
	b.Emit("log", nil)
	b.Unsubscribe(sub)
	b.Emit("log", nil)
	b.Unsubscribe(sub)

	assert.Equal(t, 1, calls)
	assert.Zero(t, b.Count("log"))
}

func TestBus_PanicIsolated(t *testing.T) {
	b := newTestBus()

	reached := false
	b.Subscribe("log", func(Event) { panic("subscriber bug") })
	b.Subscribe("log", func(Event) { reached = true })

	assert.NotPanics(t, func() { b.Emit("log", nil) })
	assert.True(t, reached)
	assert.Equal(t, uint64(1), b.GetStats()["total_panics"])
}

func TestBus_EmitWithoutSubscribers(t *testing.T) {
	b := newTestBus()
	assert.NotPanics(t, func() { b.Emit("nobody", 1) })
}

func TestBus_ConcurrentSubscribeEmit(t *testing.T) {
	b := newTestBus()

	var mu sync.Mutex
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := b.Subscribe("log", func(Event) {
				mu.Lock()
				count++
				mu.Unlock()
			})
			b.Unsubscribe(sub)
		}()
		go func() {
			defer wg.Done()
			b.Emit("log", nil)
		}()
	}
	wg.Wait()

	mu.Lock()
	assert.LessOrEqual(t, count, 100)
	mu.Unlock()

	b.Clear()
	assert.Zero(t, b.Count("log"))
}
