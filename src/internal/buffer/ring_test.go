// FILE: logpulse/src/internal/buffer/ring_test.go
package buffer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"logpulse/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(i int) core.LogEntry {
	return core.NewEntry("info", time.Unix(int64(i), 0), fmt.Sprintf("msg-%d", i))
}

func messages(entries []core.LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestRing_HoldsMostRecent(t *testing.T) {
	testCases := []struct {
		name     string
		capacity int
		pushed   int
	}{
		{"Empty", 5, 0},
		{"PartiallyFilled", 5, 3},
		{"ExactlyFull", 5, 5},
		{"Wrapped", 5, 12},
		{"CapacityOne", 1, 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRing(tc.capacity)
			for i := 0; i < tc.pushed; i++ {
				r.Push(entry(i))
			}

			expectedLen := min(tc.pushed, tc.capacity)
			snap := r.Snapshot()
			require.Len(t, snap, expectedLen)
			assert.Equal(t, expectedLen, r.Len())

			for i, e := range snap {
				assert.Equal(t, fmt.Sprintf("msg-%d", tc.pushed-expectedLen+i), e.Message)
			}
		})
	}
}

func TestRing_Last(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 6; i++ {
		r.Push(entry(i))
	}

	assert.Equal(t, []string{"msg-4", "msg-5"}, messages(r.Last(2)))
	assert.Equal(t, []string{"msg-2", "msg-3", "msg-4", "msg-5"}, messages(r.Last(50)))
	assert.Empty(t, r.Last(0))
}

func TestRing_SnapshotIsCopy(t *testing.T) {
	r := NewRing(3)
	r.Push(entry(1))

	snap := r.Snapshot()
	snap[0].Message = "mutated"

	assert.Equal(t, "msg-1", r.Snapshot()[0].Message)
}

func TestRing_Resize(t *testing.T) {
	r := NewRing(5)
	for i := 0; i < 7; i++ {
		r.Push(entry(i))
	}

	r.Resize(3)
	assert.Equal(t, 3, r.Cap())
	assert.Equal(t, []string{"msg-4", "msg-5", "msg-6"}, messages(r.Snapshot()))

	r.Resize(6)
	r.Push(entry(7))
	assert.Equal(t, []string{"msg-4", "msg-5", "msg-6", "msg-7"}, messages(r.Snapshot()))
}

func TestRing_Concurrent(t *testing.T) {
	r := NewRing(100)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				r.Push(entry(i))
				_ = r.Last(10)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, r.Len())
}

func TestRing_CapDuringResize(t *testing.T) {
	r := NewRing(10)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			r.Resize(i%20 + 1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c := r.Cap()
			assert.True(t, c >= 1 && c <= 20)
		}
	}()
	wg.Wait()

	assert.Equal(t, 200%20+1, r.Cap())
}
