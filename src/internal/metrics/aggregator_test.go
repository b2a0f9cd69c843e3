// FILE: logpulse/src/internal/metrics/aggregator_test.go
package metrics

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestAggregator() (*Aggregator, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewAggregator("error", WithClock(clock.Now)), clock
}

func TestAggregator_Counts(t *testing.T) {
	a, _ := newTestAggregator()

	for _, level := range []string{"info", "error", "info"} {
		a.Record(level)
	}

	snap := a.Snapshot()
	assert.Equal(t, int64(3), snap.TotalLogs)
	assert.Equal(t, map[string]int64{"info": 2, "error": 1}, snap.LogsByLevel)
	assert.Equal(t, int64(1), snap.ErrorsPerMinute)
	assert.InDelta(t, 1.0/3.0, snap.ErrorRate, 0.0001)
	assert.Empty(t, snap.LogsPerMinute)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.logsTotal.WithLabelValues("info")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.errorsPerMinGau))
}

func TestAggregator_MinuteBoundary(t *testing.T) {
	a, clock := newTestAggregator()
	start := clock.Now()

	a.Record("error")
	a.Record("error")

	clock.Advance(59 * time.Second)
	a.Record("info")
	assert.Empty(t, a.Snapshot().LogsPerMinute)

	clock.Advance(time.Second)
	a.Record("error")

	snap := a.Snapshot()
	require.Len(t, snap.LogsPerMinute, 1)
	assert.Equal(t, start.UnixMilli(), snap.LogsPerMinute[0].Timestamp)
	assert.Equal(t, int64(4), snap.LogsPerMinute[0].Count)
	assert.Equal(t, int64(1), snap.ErrorsPerMinute, "reset happens before the current error is counted")
	assert.Equal(t, clock.Now().UnixMilli(), snap.LastMinuteTimestamp)
}

func TestAggregator_IdleMinutesSkipped(t *testing.T) {
	a, clock := newTestAggregator()

	a.Record("info")
	clock.Advance(10 * time.Minute)
	a.Record("info")

	snap := a.Snapshot()
	assert.Len(t, snap.LogsPerMinute, 1)
}

func TestAggregator_SampleCap(t *testing.T) {
	a, clock := newTestAggregator()

	for i := 0; i < 75; i++ {
		clock.Advance(time.Minute)
		a.Record("info")
	}

	snap := a.Snapshot()
	require.Len(t, snap.LogsPerMinute, maxMinuteSamples)
	assert.Equal(t, int64(75), snap.LogsPerMinute[maxMinuteSamples-1].Count)
}

func TestAggregator_SnapshotIsCopy(t *testing.T) {
	a, _ := newTestAggregator()
	a.Record("info")

	snap := a.Snapshot()
	snap.LogsByLevel["info"] = 99

	assert.Equal(t, int64(1), a.Snapshot().LogsByLevel["info"])
}

func TestAggregator_EmptyErrorRate(t *testing.T) {
	a, _ := newTestAggregator()
	assert.Zero(t, a.Snapshot().ErrorRate)
}

func TestAggregator_Handler(t *testing.T) {
	a, _ := newTestAggregator()
	a.Record("warn")
	a.RecordRotation()

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/prometheus", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `logpulse_logs_total{level="warn"} 1`)
	assert.Contains(t, body, "logpulse_file_rotations_total 1")
}
