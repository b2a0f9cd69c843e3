// FILE: logpulse/src/internal/stream/broadcaster.go
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logpulse/src/internal/core"
	"logpulse/src/internal/metrics"
	"logpulse/src/internal/query"
	"logpulse/src/internal/session"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

var (
	ErrUnknownClient  = errors.New("unknown realtime client")
	ErrUnknownRequest = errors.New("unknown realtime request")
)

// Source provides the read side of the engine to viewers.
type Source interface {
	Recent(n int) []core.LogEntry
	Metrics() (metrics.Snapshot, bool)
	FilterLogs(f query.Filter) ([]core.LogEntry, error)
}

type Options struct {
	// Per-viewer queue length
	BufferSize int
	// Zero disables heartbeats
	Heartbeat time.Duration
}

// Broadcaster fans realtime events out to dashboard viewers over SSE.
// A single broker goroutine owns the viewer channels.
type Broadcaster struct {
	source   Source
	sessions *session.Manager
	opts     Options
	logger   *log.Logger

	input      chan Message
	clients    map[string]chan Message
	clientsMu  sync.RWMutex
	unregister chan string
	done       chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once

	totalBroadcast atomic.Uint64
	dropped        atomic.Uint64
}

func NewBroadcaster(source Source, sessions *session.Manager, opts Options, logger *log.Logger) *Broadcaster {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 100
	}

	b := &Broadcaster{
		source:     source,
		sessions:   sessions,
		opts:       opts,
		logger:     logger,
		input:      make(chan Message, opts.BufferSize),
		clients:    make(map[string]chan Message),
		unregister: make(chan string, 16),
		done:       make(chan struct{}),
	}

	sessions.OnExpire(session.KindRealtime, func(sessionID, remoteAddr string) {
		b.logger.Info("msg", "Closing expired realtime session",
			"component", "broadcaster",
			"session_id", sessionID,
			"remote_addr", remoteAddr)
		b.remove(sessionID)
	})
	return b
}

// Start runs the broker loop
func (b *Broadcaster) Start() {
	b.startOnce.Do(func() {
		b.wg.Add(1)
		go b.brokerLoop()
	})
}

// Stop disconnects all viewers
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()

		b.clientsMu.Lock()
		for id, ch := range b.clients {
			close(ch)
			delete(b.clients, id)
			b.sessions.Remove(id)
		}
		b.clientsMu.Unlock()
	})
}

// PublishLog queues a newLog event for every viewer.
func (b *Broadcaster) PublishLog(entry core.LogEntry) {
	b.publish(EventNewLog, entry)
}

// PublishMetrics queues a metricsUpdate event for every viewer.
func (b *Broadcaster) PublishMetrics(snap metrics.Snapshot) {
	b.publish(EventMetricsUpdate, snap)
}

// PublishRotation queues a logRotation event for every viewer.
func (b *Broadcaster) PublishRotation(payload any) {
	b.publish(EventLogRotation, payload)
}

func (b *Broadcaster) publish(event string, payload any) {
	if b.ClientCount() == 0 {
		return
	}

	msg, err := NewMessage(event, payload)
	if err != nil {
		b.logger.Error("msg", "Failed to encode realtime event",
			"component", "broadcaster",
			"event", event,
			"error", err)
		return
	}

	select {
	case b.input <- msg:
	case <-b.done:
	default:
		b.dropped.Add(1)
		b.logger.Debug("msg", "Broadcast queue full, dropped event",
			"component", "broadcaster",
			"event", event)
	}
}

func (b *Broadcaster) brokerLoop() {
	defer b.wg.Done()

	var tickerChan <-chan time.Time
	if b.opts.Heartbeat > 0 {
		ticker := time.NewTicker(b.opts.Heartbeat)
		defer ticker.Stop()
		tickerChan = ticker.C
	}

	for {
		select {
		case <-b.done:
			return

		case id := <-b.unregister:
			b.remove(id)

		case msg := <-b.input:
			b.totalBroadcast.Add(1)
			b.fanOut(msg)

		case <-tickerChan:
			b.fanOut(comment("heartbeat"))
		}
	}
}

func (b *Broadcaster) fanOut(msg Message) {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()

	slowClients := 0
	for id, ch := range b.clients {
		select {
		case ch <- msg:
		default:
			slowClients++
			b.dropped.Add(1)
			if slowClients == 1 {
				b.logger.Debug("msg", "Dropped event for slow client(s)",
					"component", "broadcaster",
					"client_id", id,
					"total_clients", len(b.clients))
			}
		}
	}
}

// remove closes the viewer channel, ending its stream
func (b *Broadcaster) remove(id string) {
	b.clientsMu.Lock()
	if ch, ok := b.clients[id]; ok {
		delete(b.clients, id)
		close(ch)
	}
	b.clientsMu.Unlock()
	b.sessions.Remove(id)
}

// subscribe registers a viewer and queues its connected and initialLogs events.
func (b *Broadcaster) subscribe(remoteAddr, username string) (string, chan Message) {
	sess := b.sessions.Create(session.KindRealtime, remoteAddr, username)
	ch := make(chan Message, b.opts.BufferSize+2)

	connected, _ := NewMessage(EventConnected, map[string]any{
		"client_id": sess.ID,
		"username":  username,
	})
	ch <- connected

	initial := b.source.Recent(core.InitialLogsCount)
	if initial == nil {
		initial = []core.LogEntry{}
	}
	if msg, err := NewMessage(EventInitialLogs, initial); err == nil {
		ch <- msg
	}

	b.clientsMu.Lock()
	b.clients[sess.ID] = ch
	b.clientsMu.Unlock()

	b.logger.Debug("msg", "Realtime client connected",
		"component", "broadcaster",
		"client_id", sess.ID,
		"remote_addr", remoteAddr,
		"active_clients", b.ClientCount())
	return sess.ID, ch
}

// Serve turns the request into an SSE stream for a new viewer.
func (b *Broadcaster) Serve(ctx *fasthttp.RequestCtx, username string) {
	ctx.Response.Header.Set("Content-Type", "text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	id, ch := b.subscribe(ctx.RemoteAddr().String(), username)
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		b.stream(w, id, ch)
	})
}

// stream writes queued events until the viewer goes away or the broadcaster stops
func (b *Broadcaster) stream(w *bufio.Writer, id string, ch chan Message) {
	defer func() {
		select {
		case b.unregister <- id:
		case <-b.done:
		}
		b.logger.Debug("msg", "Realtime client disconnected",
			"component", "broadcaster",
			"client_id", id)
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := msg.Encode(w); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
			b.sessions.Touch(id)

		case <-b.done:
			final, _ := NewMessage(EventDisconnect, map[string]string{"reason": "server_shutdown"})
			_ = final.Encode(w)
			_ = w.Flush()
			return
		}
	}
}

// HandleRequest answers a client request on that client's own stream.
func (b *Broadcaster) HandleRequest(clientID string, body []byte) error {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	b.clientsMu.RLock()
	_, ok := b.clients[clientID]
	b.clientsMu.RUnlock()
	if !ok {
		return ErrUnknownClient
	}
	b.sessions.Touch(clientID)

	var reply Message
	switch req.Event {
	case RequestLogs:
		var filter query.Filter
		if len(req.Data) > 0 {
			if err := json.Unmarshal(req.Data, &filter); err != nil {
				reply = errorMessage("invalid filter")
				break
			}
		}
		entries, err := b.source.FilterLogs(filter)
		if err != nil {
			reply = errorMessage(err.Error())
			break
		}
		if entries == nil {
			entries = []core.LogEntry{}
		}
		if reply, err = NewMessage(EventLogsData, entries); err != nil {
			reply = errorMessage(err.Error())
		}

	case RequestMetrics:
		snap, enabled := b.source.Metrics()
		if !enabled {
			reply = errorMessage("metrics are disabled")
			break
		}
		reply, _ = NewMessage(EventMetricsUpdate, snap)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownRequest, req.Event)
	}

	return b.sendTo(clientID, reply)
}

func (b *Broadcaster) sendTo(clientID string, msg Message) error {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()

	ch, ok := b.clients[clientID]
	if !ok {
		return ErrUnknownClient
	}
	select {
	case ch <- msg:
		return nil
	default:
		b.dropped.Add(1)
		return fmt.Errorf("client %s queue is full", clientID)
	}
}

func (b *Broadcaster) ClientCount() int {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) GetStats() map[string]any {
	return map[string]any{
		"active_clients":  b.ClientCount(),
		"total_broadcast": b.totalBroadcast.Load(),
		"dropped":         b.dropped.Load(),
		"buffer_size":     b.opts.BufferSize,
		"heartbeat":       b.opts.Heartbeat.String(),
	}
}
