// FILE: logpulse/src/internal/server/server_test.go
package server

import (
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"logpulse/src/internal/auth"
	"logpulse/src/internal/buffer"
	"logpulse/src/internal/config"
	"logpulse/src/internal/core"
	"logpulse/src/internal/metrics"
	"logpulse/src/internal/query"
	"logpulse/src/internal/stream"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type testFiles struct{ dir string }

func (f testFiles) ActivePath() string { return filepath.Join(f.dir, "app.log") }
func (f testFiles) Directory() string  { return f.dir }

type fakeBackend struct {
	cfg     *config.Config
	query   *query.Engine
	metrics *metrics.Aggregator
}

func (b *fakeBackend) Config() *config.Config { return b.cfg }
func (b *fakeBackend) FilterLogs(f query.Filter) ([]core.LogEntry, error) {
	return b.query.FilterLogs(f)
}
func (b *fakeBackend) Metrics() (metrics.Snapshot, bool) {
	return b.metrics.Snapshot(), b.cfg.EnableMetrics
}
func (b *fakeBackend) Files() ([]query.FileInfo, error) { return b.query.ListFiles() }
func (b *fakeBackend) OpenFile(name string) (*os.File, query.FileInfo, error) {
	return b.query.OpenFile(name)
}
func (b *fakeBackend) PrometheusHandler() http.Handler { return b.metrics.Handler() }

type fakeRealtime struct {
	served   int
	requests map[string]string
}

func (r *fakeRealtime) Serve(ctx *fasthttp.RequestCtx, _ string) {
	r.served++
	ctx.SetContentType("text/event-stream")
}

func (r *fakeRealtime) HandleRequest(clientID string, body []byte) error {
	if clientID != "known" {
		return stream.ErrUnknownClient
	}
	r.requests[clientID] = string(body)
	return nil
}

type harness struct {
	server   *Server
	backend  *fakeBackend
	realtime *fakeRealtime
	dir      string
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.LogDir = dir
	cfg.Server.StartWebServer = true
	cfg.Server.Auth = config.UserConfig{User: "admin", Pass: "secret"}
	if mutate != nil {
		mutate(cfg)
	}

	logger := log.NewLogger()
	ring := buffer.NewRing(10)
	agg := metrics.NewAggregator(cfg.ErrorLevel)
	for _, lvl := range []string{"info", "error", "info"} {
		agg.Record(lvl)
	}

	backend := &fakeBackend{
		cfg:     cfg,
		query:   query.NewEngine(testFiles{dir: dir}, ring, logger),
		metrics: agg,
	}

	authenticator := auth.New(cfg.Server, logger, auth.WithFailureDelay(0))
	t.Cleanup(authenticator.Close)

	rt := &fakeRealtime{requests: make(map[string]string)}
	return &harness{
		server:   New(backend, authenticator, rt, logger),
		backend:  backend,
		realtime: rt,
		dir:      dir,
	}
}

type request struct {
	method string
	uri    string
	ip     string
	auth   string
	body   string
}

func (h *harness) do(r request) *fasthttp.RequestCtx {
	var req fasthttp.Request
	if r.method == "" {
		r.method = fasthttp.MethodGet
	}
	req.Header.SetMethod(r.method)
	req.SetRequestURI(r.uri)
	if r.auth != "" {
		req.Header.Set("Authorization", r.auth)
	}
	if r.body != "" {
		req.SetBodyString(r.body)
	}
	if r.ip == "" {
		r.ip = "127.0.0.1"
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, &net.TCPAddr{IP: net.ParseIP(r.ip), Port: 40000}, nil)
	h.server.requestHandler(ctx)
	return ctx
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

var adminAuth = basicAuth("admin", "secret")

func TestGate_MetricsScenarios(t *testing.T) {
	t.Run("DisabledIs404WithoutCredentials", func(t *testing.T) {
		h := newHarness(t, func(c *config.Config) { c.Server.EnableMetrics = false })
		ctx := h.do(request{uri: "/metrics"})
		assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("EnabledWithoutCredentialsIs401", func(t *testing.T) {
		h := newHarness(t, nil)
		ctx := h.do(request{uri: "/metrics"})
		assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
		assert.Equal(t, `Basic realm="logpulse"`, string(ctx.Response.Header.Peek("WWW-Authenticate")))
	})

	t.Run("WrongIPIs403BeforeCredentials", func(t *testing.T) {
		h := newHarness(t, nil)
		ctx := h.do(request{uri: "/metrics", ip: "192.168.1.50"})
		assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

		ctx = h.do(request{uri: "/metrics", ip: "192.168.1.50", auth: adminAuth})
		assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
	})

	t.Run("WrongPasswordIs401", func(t *testing.T) {
		h := newHarness(t, nil)
		ctx := h.do(request{uri: "/metrics", auth: basicAuth("admin", "wrong")})
		assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	})

	t.Run("AuthorizedSnapshot", func(t *testing.T) {
		h := newHarness(t, nil)
		ctx := h.do(request{uri: "/metrics", auth: adminAuth})
		require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

		var snap metrics.Snapshot
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &snap))
		assert.Equal(t, int64(3), snap.TotalLogs)
		assert.Equal(t, map[string]int64{"info": 2, "error": 1}, snap.LogsByLevel)
	})
}

func TestGate_AuthDisabled(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Server.AuthEnabled = false })
	ctx := h.do(request{uri: "/files", ip: "10.9.9.9"})
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}

func TestRoutes(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "app.log"), []byte(
		"[2024-01-01 10:00:00] [INFO]: said \"hi\"\n[2024-01-01 10:00:01] [ERROR]: boom\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "app_2024-01-01-09-00-00.txt.gz"), []byte{0x1f, 0x8b}, 0644))

	testCases := []struct {
		name        string
		req         request
		status      int
		contentType string
		contains    string
	}{
		{name: "UnknownPath", req: request{uri: "/nope"}, status: 404},
		{name: "Dashboard", req: request{uri: "/"}, status: 200, contentType: "text/html", contains: "EventSource"},
		{name: "LogsJSON", req: request{uri: "/logs?level=error"}, status: 200, contentType: "application/json", contains: `"message":"boom"`},
		{name: "LogsText", req: request{uri: "/logs?format=text"}, status: 200, contentType: "text/plain", contains: "[ERROR]: boom"},
		{name: "LogsCSV", req: request{uri: "/logs?format=csv"}, status: 200, contentType: "text/csv", contains: `"INFO","said ""hi"""`},
		{name: "LogsBadFormat", req: request{uri: "/logs?format=xml"}, status: 400},
		{name: "LogsWrongMethod", req: request{method: "POST", uri: "/logs"}, status: 405},
		{name: "Files", req: request{uri: "/files"}, status: 200, contains: "app_2024-01-01-09-00-00.txt.gz"},
		{name: "DownloadText", req: request{uri: "/download/app.log"}, status: 200, contentType: "text/plain", contains: "boom"},
		{name: "DownloadGzip", req: request{uri: "/download/app_2024-01-01-09-00-00.txt.gz"}, status: 200, contentType: "application/gzip"},
		{name: "DownloadMissing", req: request{uri: "/download/app_none.txt"}, status: 404},
		{name: "DownloadNotListed", req: request{uri: "/download/secrets.env"}, status: 404},
		{name: "DownloadTraversal", req: request{uri: "/download/app..log"}, status: 400},
		{name: "Prometheus", req: request{uri: "/prometheus"}, status: 200, contains: "logpulse_logs_total"},
		{name: "Realtime", req: request{uri: "/realtime"}, status: 200, contentType: "text/event-stream"},
		{name: "RealtimeRequest", req: request{method: "POST", uri: "/realtime/known", body: `{"event":"requestMetrics"}`}, status: 202},
		{name: "RealtimeUnknownClient", req: request{method: "POST", uri: "/realtime/ghost", body: `{}`}, status: 404},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.auth = adminAuth
			ctx := h.do(tc.req)
			assert.Equal(t, tc.status, ctx.Response.StatusCode())
			if tc.contentType != "" {
				assert.True(t, strings.HasPrefix(string(ctx.Response.Header.ContentType()), tc.contentType),
					"content type %s", ctx.Response.Header.ContentType())
			}
			if tc.contains != "" {
				assert.Contains(t, string(ctx.Response.Body()), tc.contains)
			}
		})
	}

	assert.Equal(t, 1, h.realtime.served)
	assert.Equal(t, `{"event":"requestMetrics"}`, h.realtime.requests["known"])
}

func TestRoutes_FeatureFlags(t *testing.T) {
	t.Run("RealtimeDisabled", func(t *testing.T) {
		h := newHarness(t, func(c *config.Config) { c.Server.EnableRealtime = false })
		ctx := h.do(request{uri: "/realtime"})
		assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
		ctx = h.do(request{method: "POST", uri: "/realtime/known"})
		assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("SearchDisabledIgnoresParam", func(t *testing.T) {
		h := newHarness(t, func(c *config.Config) { c.Server.EnableSearch = false })
		require.NoError(t, os.WriteFile(filepath.Join(h.dir, "app.log"), []byte(
			"[2024-01-01 10:00:00] [INFO]: alpha\n[2024-01-01 10:00:01] [INFO]: beta\n"), 0644))

		ctx := h.do(request{uri: "/logs?search=alpha", auth: adminAuth})
		require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

		var entries []core.LogEntry
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &entries))
		assert.Len(t, entries, 2)
	})

	t.Run("EngineMetricsDisabled", func(t *testing.T) {
		h := newHarness(t, func(c *config.Config) { c.EnableMetrics = false })
		ctx := h.do(request{uri: "/prometheus"})
		assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
		ctx = h.do(request{uri: "/metrics"})
		assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	})
}

func TestGate_RateLimited(t *testing.T) {
	h := newHarness(t, nil)
	for i := 0; i < 4; i++ {
		ctx := h.do(request{uri: "/files", auth: basicAuth("admin", "bad")})
		require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	}
	ctx := h.do(request{uri: "/files", auth: adminAuth})
	assert.Equal(t, fasthttp.StatusTooManyRequests, ctx.Response.StatusCode())
}
