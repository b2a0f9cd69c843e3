// FILE: logpulse/src/internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"logpulse/src/internal/auth"
	"logpulse/src/internal/config"
	"logpulse/src/internal/core"
	"logpulse/src/internal/metrics"
	"logpulse/src/internal/query"
	"logpulse/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Backend is the engine surface the HTTP layer reads from.
type Backend interface {
	Config() *config.Config
	FilterLogs(f query.Filter) ([]core.LogEntry, error)
	Metrics() (metrics.Snapshot, bool)
	Files() ([]query.FileInfo, error)
	OpenFile(name string) (*os.File, query.FileInfo, error)
	PrometheusHandler() http.Handler
}

// Realtime serves dashboard viewers.
type Realtime interface {
	Serve(ctx *fasthttp.RequestCtx, username string)
	HandleRequest(clientID string, body []byte) error
}

// Server is the access-gated HTTP surface.
type Server struct {
	backend  Backend
	auth     *auth.Authenticator
	realtime Realtime
	logger   *log.Logger

	server     *fasthttp.Server
	prometheus fasthttp.RequestHandler
	startTime  time.Time
}

// New builds the surface. realtime may be nil when the realtime channel is off.
func New(backend Backend, authenticator *auth.Authenticator, realtime Realtime, logger *log.Logger) *Server {
	return &Server{
		backend:    backend,
		auth:       authenticator,
		realtime:   realtime,
		logger:     logger,
		prometheus: fasthttpadaptor.NewFastHTTPHandler(backend.PrometheusHandler()),
		startTime:  time.Now(),
	}
}

// Start listens on the configured address. Returns once the listener is up or failed.
func (s *Server) Start() error {
	cfg := s.backend.Config().Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	writeTimeout := time.Duration(cfg.WriteTimeoutMs) * time.Millisecond
	s.server = &fasthttp.Server{
		Name:         version.ServerName(),
		Handler:      s.requestHandler,
		Logger:       compat.NewFastHTTPAdapter(s.logger),
		WriteTimeout: writeTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("msg", "HTTP server started",
			"component", "server",
			"address", addr,
			"auth_enabled", cfg.AuthEnabled,
			"realtime", cfg.EnableRealtime)

		if err := s.server.ListenAndServe(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server on %s: %w", addr, err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.ShutdownWithContext(ctx)
}

func (s *Server) requestHandler(ctx *fasthttp.RequestCtx) {
	cfg := s.backend.Config()
	remoteIP := ctx.RemoteIP().String()

	if err := s.auth.CheckIP(remoteIP); err != nil {
		s.logger.Warn("msg", "Request from disallowed IP",
			"component", "server",
			"remote_ip", remoteIP,
			"path", string(ctx.Path()))
		writeError(ctx, fasthttp.StatusForbidden, "Forbidden")
		return
	}

	handler, status := s.resolve(ctx, cfg)
	if handler == nil {
		msg := "Not Found"
		if status == fasthttp.StatusMethodNotAllowed {
			msg = "Method Not Allowed"
		}
		writeError(ctx, status, msg)
		return
	}

	username, err := s.auth.Authenticate(string(ctx.Request.Header.Peek("Authorization")), ctx.RemoteAddr().String())
	if err != nil {
		if errors.Is(err, auth.ErrRateLimited) {
			writeError(ctx, fasthttp.StatusTooManyRequests, "Too many requests")
			return
		}
		s.logger.Debug("msg", "Authentication failed",
			"component", "server",
			"remote_addr", ctx.RemoteAddr().String(),
			"error", err)
		ctx.Response.Header.Set("WWW-Authenticate", s.auth.Challenge())
		writeError(ctx, fasthttp.StatusUnauthorized, "Unauthorized")
		return
	}

	handler(ctx, username)
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]string{
		"error": msg,
	})
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		ctx.ResetBody()
		writeError(ctx, fasthttp.StatusInternalServerError, "Failed to encode response")
	}
}
