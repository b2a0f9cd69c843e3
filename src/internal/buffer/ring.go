// FILE: logpulse/src/internal/buffer/ring.go
package buffer

import (
	"sync"

	"logpulse/src/internal/core"
)

// Ring is a fixed-capacity FIFO of recent entries, oldest evicted first.
// Reads always return copies.
type Ring struct {
	mu      sync.RWMutex
	entries []core.LogEntry
	head    int // index of the oldest entry
	size    int
}

// NewRing creates a ring holding at most capacity entries
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Ring{entries: make([]core.LogEntry, capacity)}
}

// Push appends an entry, evicting the oldest when full
func (r *Ring) Push(entry core.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.entries)
	if r.size < capacity {
		r.entries[(r.head+r.size)%capacity] = entry
		r.size++
		return
	}

	r.entries[r.head] = entry
	r.head = (r.head + 1) % capacity
}

// Snapshot returns all entries oldest-first
func (r *Ring) Snapshot() []core.LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastLocked(r.size)
}

// Last returns up to n most recent entries oldest-first
func (r *Ring) Last(n int) []core.LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > r.size {
		n = r.size
	}
	if n < 0 {
		n = 0
	}
	return r.lastLocked(n)
}

func (r *Ring) lastLocked(n int) []core.LogEntry {
	out := make([]core.LogEntry, n)
	capacity := len(r.entries)
	start := r.head + r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.entries[(start+i)%capacity]
	}
	return out
}

// Len returns the number of buffered entries
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the configured capacity
func (r *Ring) Cap() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Resize changes capacity keeping the most recent entries
func (r *Ring) Resize(capacity int) {
	if capacity <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if capacity == len(r.entries) {
		return
	}

	keep := r.size
	if keep > capacity {
		keep = capacity
	}
	kept := r.lastLocked(keep)

	r.entries = make([]core.LogEntry, capacity)
	copy(r.entries, kept)
	r.head = 0
	r.size = keep
}
