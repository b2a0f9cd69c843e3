// FILE: logpulse/src/internal/metrics/aggregator.go
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxMinuteSamples = 60
	minuteInterval   = 60 * time.Second
)

// Sample is the running total observed when a minute boundary was crossed
type Sample struct {
	Timestamp int64 `json:"timestamp"` // unix milliseconds
	Count     int64 `json:"count"`
}

// Snapshot is an independent copy of the aggregated counters
type Snapshot struct {
	TotalLogs           int64            `json:"totalLogs"`
	LogsByLevel         map[string]int64 `json:"logsByLevel"`
	LogsPerMinute       []Sample         `json:"logsPerMinute"`
	ErrorsPerMinute     int64            `json:"errorsPerMinute"`
	LastMinuteTimestamp int64            `json:"lastMinuteTimestamp"`
	ErrorRate           float64          `json:"errorRate"`
	UptimeSeconds       int64            `json:"uptimeSeconds"`
}

// Aggregator derives live counters from ingestion events.
// Minute sampling is activity gated: a minute without any Record call leaves no sample.
type Aggregator struct {
	mu         sync.Mutex
	clock      func() time.Time
	errorLevel string
	startTime  time.Time

	totalLogs       int64
	logsByLevel     map[string]int64
	logsPerMinute   []Sample
	errorsPerMinute int64
	lastMinute      time.Time

	registry        *prometheus.Registry
	logsTotal       *prometheus.CounterVec
	errorsPerMinGau prometheus.Gauge
	rotationsTotal  prometheus.Counter
}

type Option func(*Aggregator)

// WithClock replaces time.Now, used by tests to cross minute boundaries
func WithClock(clock func() time.Time) Option {
	return func(a *Aggregator) {
		a.clock = clock
	}
}

// NewAggregator creates an aggregator counting errorLevel entries as errors
func NewAggregator(errorLevel string, opts ...Option) *Aggregator {
	a := &Aggregator{
		clock:       time.Now,
		errorLevel:  errorLevel,
		logsByLevel: make(map[string]int64),
		registry:    prometheus.NewRegistry(),
		logsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logpulse_logs_total",
				Help: "Total number of ingested log entries by level",
			},
			[]string{"level"},
		),
		errorsPerMinGau: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "logpulse_errors_per_minute",
				Help: "Error entries observed in the current minute",
			},
		),
		rotationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "logpulse_file_rotations_total",
				Help: "Total number of active log file rotations",
			},
		),
	}

	for _, opt := range opts {
		opt(a)
	}

	now := a.clock()
	a.startTime = now
	a.lastMinute = now

	a.registry.MustRegister(a.logsTotal, a.errorsPerMinGau, a.rotationsTotal)
	return a
}

// Record accounts one ingested entry of the given level
func (a *Aggregator) Record(level string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalLogs++
	a.logsByLevel[level]++

	now := a.clock()
	if now.Sub(a.lastMinute) >= minuteInterval {
		a.logsPerMinute = append(a.logsPerMinute, Sample{
			Timestamp: a.lastMinute.UnixMilli(),
			Count:     a.totalLogs,
		})
		if len(a.logsPerMinute) > maxMinuteSamples {
			a.logsPerMinute = a.logsPerMinute[len(a.logsPerMinute)-maxMinuteSamples:]
		}
		a.errorsPerMinute = 0
		a.lastMinute = now
	}

	if level == a.errorLevel {
		a.errorsPerMinute++
	}

	a.logsTotal.WithLabelValues(level).Inc()
	a.errorsPerMinGau.Set(float64(a.errorsPerMinute))
}

// RecordRotation counts a completed file rotation
func (a *Aggregator) RecordRotation() {
	a.rotationsTotal.Inc()
}

// SetErrorLevel changes which level counts toward errorsPerMinute
func (a *Aggregator) SetErrorLevel(level string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errorLevel = level
}

// Snapshot returns a copy of the current counters
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	byLevel := make(map[string]int64, len(a.logsByLevel))
	for k, v := range a.logsByLevel {
		byLevel[k] = v
	}

	var rate float64
	if a.totalLogs > 0 {
		rate = float64(a.logsByLevel[a.errorLevel]) / float64(a.totalLogs)
	}

	return Snapshot{
		TotalLogs:           a.totalLogs,
		LogsByLevel:         byLevel,
		LogsPerMinute:       append([]Sample{}, a.logsPerMinute...),
		ErrorsPerMinute:     a.errorsPerMinute,
		LastMinuteTimestamp: a.lastMinute.UnixMilli(),
		ErrorRate:           rate,
		UptimeSeconds:       int64(a.clock().Sub(a.startTime).Seconds()),
	}
}

// Registry exposes the collectors of this aggregator
func (a *Aggregator) Registry() *prometheus.Registry {
	return a.registry
}

// Handler serves the Prometheus exposition format for this aggregator
func (a *Aggregator) Handler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}
