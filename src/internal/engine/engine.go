// FILE: logpulse/src/internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"logpulse/src/internal/alert"
	"logpulse/src/internal/buffer"
	"logpulse/src/internal/config"
	"logpulse/src/internal/core"
	"logpulse/src/internal/event"
	"logpulse/src/internal/format"
	"logpulse/src/internal/metrics"
	"logpulse/src/internal/query"
	"logpulse/src/internal/sink"
	"logpulse/src/internal/store"

	"github.com/lixenwraith/log"
)

const (
	persistTimeout = 10 * time.Second
	drainTimeout   = 5 * time.Second
)

// Engine owns the configuration, buffer, metrics and subscriber registry of one
// logging context. All ingestion goes through Log.
type Engine struct {
	mu        sync.RWMutex
	cfg       *config.Config
	formatter format.Formatter
	handles   map[string]*LevelLogger

	// Set when the caller supplied its own formatter or store
	fixedFormatter bool
	fixedStore     bool

	buffer  *buffer.Ring
	metrics *metrics.Aggregator
	bus     *event.Bus
	file    *sink.FileSink
	console *sink.ConsoleSink
	alerts  *alert.Dispatcher
	store   store.Store
	query   *query.Engine

	logger *log.Logger
	clock  func() time.Time

	persistWG     sync.WaitGroup
	persistFailed atomic.Uint64
	totalIngested atomic.Uint64
	closed        atomic.Bool
}

type Option func(*Engine)

// WithFormatter replaces the configured formatter for the life of the engine
func WithFormatter(f format.Formatter) Option {
	return func(e *Engine) {
		e.formatter = f
		e.fixedFormatter = true
	}
}

// WithMailer replaces the SMTP mailer used for alerts
func WithMailer(m alert.Mailer) Option {
	return func(e *Engine) {
		e.alerts = alert.NewDispatcher(e.cfg.EmailAlerts, m, e.logger)
	}
}

// WithStore replaces the store opened from the db section
func WithStore(s store.Store) Option {
	return func(e *Engine) {
		e.store = s
		e.fixedStore = true
	}
}

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithConsole redirects console output, os.Stdout by default
func WithConsole(w io.Writer) Option {
	return func(e *Engine) {
		e.console = sink.NewConsoleSink(w, e.cfg.ConsoleColor)
	}
}

// New validates cfg and builds an engine. The store named by cfg.DB is opened
// unless WithStore is given.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...Option) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	e := &Engine{
		cfg:     cfg,
		buffer:  buffer.NewRing(int(cfg.BufferSize)),
		bus:     event.NewBus(logger),
		file:    sink.NewFileSink(fileOptions(cfg), logger),
		console: sink.NewConsoleSink(os.Stdout, cfg.ConsoleColor),
		alerts:  alert.NewDispatcher(cfg.EmailAlerts, nil, logger),
		logger:  logger,
		clock:   time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.file.SetClock(e.clock)
	e.metrics = metrics.NewAggregator(cfg.ErrorLevel, metrics.WithClock(e.clock))
	e.query = query.NewEngine(e.file, e.buffer, logger)

	if !e.fixedFormatter {
		f, err := format.New(cfg, logger)
		if err != nil {
			return nil, err
		}
		e.formatter = f
	}

	if !e.fixedStore {
		s, err := store.New(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", cfg.DB.Type, err)
		}
		e.store = s
	}

	e.alerts.OnFailure(func(rule config.AlertRule, entry core.LogEntry, err error) {
		e.bus.Emit(core.TopicAlertFailed, AlertFailure{
			To:    rule.To,
			Entry: entry,
			Error: err.Error(),
		})
	})

	e.handles = buildHandles(e, cfg.Levels)

	logger.Info("msg", "Engine initialized",
		"component", "engine",
		"levels", cfg.Levels,
		"active_file", cfg.ActivePath(),
		"format", e.formatter.Name(),
		"alert_rules", len(cfg.EmailAlerts),
		"store", storeName(e.store))
	return e, nil
}

// AlertFailure is the payload of the alertFailed topic
type AlertFailure struct {
	To    []string      `json:"to"`
	Entry core.LogEntry `json:"entry"`
	Error string        `json:"error"`
}

func fileOptions(cfg *config.Config) sink.FileOptions {
	return sink.FileOptions{
		Directory: cfg.LogDir,
		Name:      cfg.LogFile,
		MaxSize:   cfg.MaxFileSize,
		Compress:  cfg.CompressOldLogs,
	}
}

func storeName(s store.Store) string {
	if s == nil {
		return "none"
	}
	return s.Name()
}

// Log ingests one entry. A level outside the configured set becomes the first
// message token and the default level is used. Output to the console and file
// is complete when Log returns; alert and persistence writes continue in the
// background.
func (e *Engine) Log(level string, values ...any) core.LogEntry {
	e.mu.RLock()
	cfg, formatter := e.cfg, e.formatter
	e.mu.RUnlock()

	if !cfg.HasLevel(level) {
		values = append([]any{level}, values...)
		level = cfg.ResolvedDefaultLevel()
	}

	entry := core.NewEntry(level, e.clock(), core.Flatten(values...))
	line := e.format(formatter, entry)
	entry = entry.WithFormatted(line)
	e.totalIngested.Add(1)

	e.metrics.Record(entry.Level)
	e.buffer.Push(entry)
	e.bus.Emit(core.TopicLog, entry)
	e.alerts.Dispatch(entry)
	e.persist(entry)

	if !cfg.FileOnly {
		if err := e.console.Write(entry); err != nil {
			e.logger.Warn("msg", "Console write failed",
				"component", "engine",
				"error", err)
		}
	}

	if !cfg.ConsoleOnly {
		rotation, err := e.file.Write(line)
		if rotation != nil {
			e.metrics.RecordRotation()
			e.bus.Emit(core.TopicLogRotation, *rotation)
		}
		if err != nil {
			e.logger.Error("msg", "File write failed",
				"component", "engine",
				"file", cfg.ActivePath(),
				"error", err)
		}
	}

	return entry
}

func (e *Engine) format(f format.Formatter, entry core.LogEntry) string {
	out, err := f.Format(entry)
	if err == nil {
		return string(out)
	}

	e.logger.Warn("msg", "Formatter failed, using default layout",
		"component", "engine",
		"formatter", f.Name(),
		"error", err)
	out, _ = format.NewDefaultFormatter().Format(entry)
	return string(out)
}

func (e *Engine) persist(entry core.LogEntry) {
	if e.store == nil {
		return
	}

	e.persistWG.Add(1)
	go func() {
		defer e.persistWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := e.store.Save(ctx, entry); err != nil {
			e.persistFailed.Add(1)
			e.logger.Error("msg", "Failed to persist entry",
				"component", "engine",
				"store", e.store.Name(),
				"error", err)
		}
	}()
}

// Config returns the active configuration. It is replaced, never mutated, by
// UpdateConfig and must be treated as read-only.
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// UpdateConfig applies mutate to a copy of the configuration, validates it and
// swaps it in. The formatter, sinks and alert rules are rebuilt and level
// handles are regenerated when the level set changes.
func (e *Engine) UpdateConfig(mutate func(c *config.Config)) error {
	e.mu.Lock()

	next := e.cfg.Clone()
	mutate(next)
	if err := config.Validate(next); err != nil {
		e.mu.Unlock()
		return err
	}

	formatter := e.formatter
	if !e.fixedFormatter {
		f, err := format.New(next, e.logger)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		formatter = f
	}

	prev := e.cfg
	e.file.Reconfigure(fileOptions(next))
	e.console.SetColor(next.ConsoleColor)
	e.buffer.Resize(int(next.BufferSize))
	e.metrics.SetErrorLevel(next.ErrorLevel)
	e.alerts.SetRules(next.EmailAlerts)

	if !slices.Equal(prev.Levels, next.Levels) {
		e.handles = buildHandles(e, next.Levels)
	}
	e.cfg = next
	e.formatter = formatter
	e.mu.Unlock()

	if prev.DB != next.DB {
		e.logger.Warn("msg", "Persistence settings changed, restart to apply",
			"component", "engine")
	}

	e.bus.Emit(core.TopicConfigChanged, next)
	return nil
}

// Recent returns up to n of the newest buffered entries, oldest first.
func (e *Engine) Recent(n int) []core.LogEntry {
	return e.buffer.Last(n)
}

func (e *Engine) Buffer() []core.LogEntry {
	return e.buffer.Snapshot()
}

// Metrics returns the current snapshot and whether metrics are enabled.
func (e *Engine) Metrics() (metrics.Snapshot, bool) {
	return e.metrics.Snapshot(), e.Config().EnableMetrics
}

func (e *Engine) PrometheusHandler() http.Handler {
	return e.metrics.Handler()
}

// FilterLogs queries the active file merged with the buffer, newest first.
func (e *Engine) FilterLogs(f query.Filter) ([]core.LogEntry, error) {
	return e.query.FilterLogs(f)
}

// ExportCSV filters and renders the result as CSV.
func (e *Engine) ExportCSV(f query.Filter) (string, error) {
	entries, err := e.query.FilterLogs(f)
	if err != nil {
		return "", err
	}
	return query.ExportCSV(entries), nil
}

// Files lists the active log file and archives, newest first.
func (e *Engine) Files() ([]query.FileInfo, error) {
	return e.query.ListFiles()
}

func (e *Engine) OpenFile(name string) (*os.File, query.FileInfo, error) {
	return e.query.OpenFile(name)
}

func (e *Engine) Bus() *event.Bus {
	return e.bus
}

// Close waits briefly for background alert and persistence work, then
// releases the store and drops all subscribers.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	if !e.alerts.Wait(drainTimeout) {
		e.logger.Warn("msg", "Pending alerts abandoned on close",
			"component", "engine")
	}
	if !waitTimeout(&e.persistWG, drainTimeout) {
		e.logger.Warn("msg", "Pending persistence writes abandoned on close",
			"component", "engine")
	}

	var err error
	if e.store != nil {
		err = e.store.Close()
	}
	e.bus.Clear()
	return err
}

func (e *Engine) GetStats() map[string]any {
	cfg := e.Config()
	return map[string]any{
		"total_ingested":  e.totalIngested.Load(),
		"buffered":        e.buffer.Len(),
		"buffer_capacity": e.buffer.Cap(),
		"levels":          cfg.Levels,
		"persist_failed":  e.persistFailed.Load(),
		"store":           storeName(e.store),
		"file":            e.file.GetStats(),
		"console":         e.console.GetStats(),
		"alerts":          e.alerts.GetStats(),
		"bus":             e.bus.GetStats(),
	}
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
