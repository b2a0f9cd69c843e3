// FILE: logpulse/src/internal/stream/tail.go
package stream

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"logpulse/src/internal/session"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"
)

// IPFilter decides whether a raw connection may proceed.
type IPFilter interface {
	AllowsIP(ip string) bool
}

// Tail pushes every formatted line to connected TCP clients.
type Tail struct {
	host     string
	port     int64
	filter   IPFilter
	sessions *session.Manager
	logger   *log.Logger

	server   *tailServer
	engine   *gnet.Engine
	engineMu sync.Mutex

	input    chan []byte
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	activeConns    atomic.Int64
	totalProcessed atomic.Uint64
	writeErrors    atomic.Uint64

	consecutiveWriteErrors map[gnet.Conn]int
	errorMu                sync.Mutex
}

type tailServer struct {
	gnet.BuiltinEventEngine
	tail    *Tail
	clients map[gnet.Conn]string // conn -> session id
	mu      sync.RWMutex
}

func NewTail(host string, port int64, bufferSize int, filter IPFilter, sessions *session.Manager, logger *log.Logger) *Tail {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	t := &Tail{
		host:                   host,
		port:                   port,
		filter:                 filter,
		sessions:               sessions,
		logger:                 logger,
		input:                  make(chan []byte, bufferSize),
		done:                   make(chan struct{}),
		consecutiveWriteErrors: make(map[gnet.Conn]int),
	}
	t.server = &tailServer{tail: t, clients: make(map[gnet.Conn]string)}
	return t
}

// Start runs the gnet engine and the broadcast loop.
func (t *Tail) Start() error {
	t.sessions.OnExpire(session.KindTail, t.handleSessionExpiry)

	t.wg.Add(1)
	go t.broadcastLoop()

	addr := fmt.Sprintf("tcp://%s:%d", t.host, t.port)
	errChan := make(chan error, 1)
	go func() {
		t.logger.Info("msg", "Starting TCP tail server",
			"component", "tail",
			"address", addr)

		err := gnet.Run(t.server, addr,
			gnet.WithLogger(compat.NewGnetAdapter(t.logger)),
			gnet.WithMulticore(true),
			gnet.WithReusePort(true),
		)
		if err != nil {
			t.logger.Error("msg", "TCP tail server failed",
				"component", "tail",
				"address", addr,
				"error", err)
		}
		errChan <- err
	}()

	select {
	case err := <-errChan:
		t.stopOnce.Do(func() { close(t.done) })
		t.wg.Wait()
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop shuts the engine down.
func (t *Tail) Stop() {
	t.stopOnce.Do(t.stop)
}

func (t *Tail) stop() {
	close(t.done)

	t.engineMu.Lock()
	engine := t.engine
	t.engineMu.Unlock()

	if engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := (*engine).Stop(ctx); err != nil {
			t.logger.Warn("msg", "TCP tail engine stop failed",
				"component", "tail",
				"error", err)
		}
	}
	t.wg.Wait()
}

// Publish queues a formatted line. Lines are dropped when the queue is full.
func (t *Tail) Publish(line string) {
	if t.activeConns.Load() == 0 {
		return
	}
	select {
	case t.input <- []byte(line + "\n"):
	default:
	}
}

func (t *Tail) broadcastLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			return
		case data := <-t.input:
			t.totalProcessed.Add(1)
			t.broadcastData(data)
		}
	}
}

func (t *Tail) broadcastData(data []byte) {
	t.server.mu.RLock()
	defer t.server.mu.RUnlock()

	for conn, sessionID := range t.server.clients {
		t.sessions.Touch(sessionID)
		conn.AsyncWrite(data, func(c gnet.Conn, err error) error {
			if err != nil {
				t.writeErrors.Add(1)
				t.handleWriteError(c, err)
				return nil
			}
			t.errorMu.Lock()
			delete(t.consecutiveWriteErrors, c)
			t.errorMu.Unlock()
			return nil
		})
	}
}

// Close the connection after 3 consecutive write errors
func (t *Tail) handleWriteError(c gnet.Conn, err error) {
	t.errorMu.Lock()
	defer t.errorMu.Unlock()

	t.consecutiveWriteErrors[c]++
	count := t.consecutiveWriteErrors[c]
	t.logger.Debug("msg", "AsyncWrite error",
		"component", "tail",
		"remote_addr", c.RemoteAddr().String(),
		"error", err,
		"consecutive_errors", count)

	if count >= 3 {
		delete(t.consecutiveWriteErrors, c)
		c.Close()
	}
}

func (t *Tail) handleSessionExpiry(sessionID, remoteAddr string) {
	t.server.mu.RLock()
	defer t.server.mu.RUnlock()

	for conn, id := range t.server.clients {
		if id == sessionID {
			t.logger.Info("msg", "Closing expired tail connection",
				"component", "tail",
				"session_id", sessionID,
				"remote_addr", remoteAddr)
			conn.Close()
			return
		}
	}
}

func (t *Tail) ActiveConnections() int64 {
	return t.activeConns.Load()
}

func (t *Tail) GetStats() map[string]any {
	return map[string]any{
		"port":               t.port,
		"active_connections": t.activeConns.Load(),
		"total_processed":    t.totalProcessed.Load(),
		"write_errors":       t.writeErrors.Load(),
	}
}

func (s *tailServer) OnBoot(eng gnet.Engine) gnet.Action {
	s.tail.engineMu.Lock()
	s.tail.engine = &eng
	s.tail.engineMu.Unlock()
	return gnet.None
}

func (s *tailServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	remoteAddr := c.RemoteAddr().String()

	if !s.tail.filter.AllowsIP(remoteIP(c.RemoteAddr())) {
		s.tail.logger.Warn("msg", "TCP tail connection rejected",
			"component", "tail",
			"remote_addr", remoteAddr)
		return nil, gnet.Close
	}

	sess := s.tail.sessions.Create(session.KindTail, remoteAddr, "")

	s.mu.Lock()
	s.clients[c] = sess.ID
	s.mu.Unlock()

	count := s.tail.activeConns.Add(1)
	s.tail.logger.Debug("msg", "TCP tail connection opened",
		"component", "tail",
		"remote_addr", remoteAddr,
		"session_id", sess.ID,
		"active_connections", count)
	return nil, gnet.None
}

func (s *tailServer) OnClose(c gnet.Conn, err error) gnet.Action {
	s.mu.Lock()
	sessionID, exists := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	if !exists {
		return gnet.None
	}
	s.tail.sessions.Remove(sessionID)

	s.tail.errorMu.Lock()
	delete(s.tail.consecutiveWriteErrors, c)
	s.tail.errorMu.Unlock()

	count := s.tail.activeConns.Add(-1)
	s.tail.logger.Debug("msg", "TCP tail connection closed",
		"component", "tail",
		"session_id", sessionID,
		"active_connections", count,
		"error", err)
	return gnet.None
}

// Clients only listen, inbound data just refreshes the session
func (s *tailServer) OnTraffic(c gnet.Conn) gnet.Action {
	s.mu.RLock()
	sessionID, exists := s.clients[c]
	s.mu.RUnlock()

	if exists {
		s.tail.sessions.Touch(sessionID)
	}
	c.Discard(-1)
	return gnet.None
}

func remoteIP(addr net.Addr) string {
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
