// FILE: logpulse/src/internal/server/routes.go
package server

import (
	"errors"
	"fmt"
	"strings"

	"logpulse/src/internal/config"
	"logpulse/src/internal/query"
	"logpulse/src/internal/stream"

	"github.com/valyala/fasthttp"
)

type handlerFunc func(ctx *fasthttp.RequestCtx, username string)

const (
	downloadPrefix = "/download/"
	realtimePrefix = "/realtime/"
)

// resolve maps the request to a handler. Unknown paths and disabled features
// resolve to 404 before any credential check.
func (s *Server) resolve(ctx *fasthttp.RequestCtx, cfg *config.Config) (handlerFunc, int) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	var (
		h     handlerFunc
		allow = fasthttp.MethodGet
	)

	switch {
	case path == "/":
		h = s.handleDashboard
	case path == "/logs":
		h = s.handleLogs
	case path == "/metrics":
		if cfg.MetricsRouteEnabled() {
			h = s.handleMetrics
		}
	case path == "/prometheus":
		if cfg.EnableMetrics {
			h = s.handlePrometheus
		}
	case path == "/files":
		h = s.handleFiles
	case strings.HasPrefix(path, downloadPrefix) && len(path) > len(downloadPrefix):
		h = s.handleDownload
	case path == "/realtime":
		if s.realtimeEnabled(cfg) {
			h = s.handleRealtime
		}
	case strings.HasPrefix(path, realtimePrefix) && len(path) > len(realtimePrefix):
		if s.realtimeEnabled(cfg) {
			h = s.handleRealtimeRequest
			allow = fasthttp.MethodPost
		}
	}

	if h == nil {
		return nil, fasthttp.StatusNotFound
	}
	if method != allow && !(allow == fasthttp.MethodGet && method == fasthttp.MethodHead) {
		ctx.Response.Header.Set("Allow", allow)
		return nil, fasthttp.StatusMethodNotAllowed
	}
	return h, fasthttp.StatusOK
}

func (s *Server) realtimeEnabled(cfg *config.Config) bool {
	return cfg.Server.EnableRealtime && s.realtime != nil
}

func (s *Server) handleLogs(ctx *fasthttp.RequestCtx, _ string) {
	cfg := s.backend.Config()
	args := ctx.QueryArgs()

	filter := query.Filter{
		Level:     string(args.Peek("level")),
		StartDate: string(args.Peek("startDate")),
		EndDate:   string(args.Peek("endDate")),
	}
	if cfg.Server.EnableSearch {
		filter.Search = string(args.Peek("search"))
	}

	format := string(args.Peek("format"))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "text" && format != "csv" {
		writeError(ctx, fasthttp.StatusBadRequest, fmt.Sprintf("Unsupported format %q", format))
		return
	}

	entries, err := s.backend.FilterLogs(filter)
	if err != nil {
		s.logger.Error("msg", "Log query failed",
			"component", "server",
			"error", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "Failed to query logs")
		return
	}

	switch format {
	case "text":
		lines := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.FormattedMessage != "" {
				lines = append(lines, e.FormattedMessage)
			} else {
				lines = append(lines, e.Message)
			}
		}
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString(strings.Join(lines, "\n"))
	case "csv":
		ctx.SetContentType("text/csv; charset=utf-8")
		ctx.Response.Header.Set("Content-Disposition", `attachment; filename="logs.csv"`)
		ctx.SetBodyString(query.ExportCSV(entries))
	default:
		writeJSON(ctx, entries)
	}
}

func (s *Server) handleMetrics(ctx *fasthttp.RequestCtx, _ string) {
	snap, ok := s.backend.Metrics()
	if !ok {
		writeError(ctx, fasthttp.StatusNotFound, "Not Found")
		return
	}
	writeJSON(ctx, snap)
}

func (s *Server) handlePrometheus(ctx *fasthttp.RequestCtx, _ string) {
	s.prometheus(ctx)
}

func (s *Server) handleFiles(ctx *fasthttp.RequestCtx, _ string) {
	files, err := s.backend.Files()
	if err != nil {
		s.logger.Error("msg", "File listing failed",
			"component", "server",
			"error", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "Failed to list files")
		return
	}
	writeJSON(ctx, files)
}

func (s *Server) handleDownload(ctx *fasthttp.RequestCtx, _ string) {
	name := strings.TrimPrefix(string(ctx.Path()), downloadPrefix)

	f, info, err := s.backend.OpenFile(name)
	switch {
	case errors.Is(err, query.ErrInvalidFileName):
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid file name")
		return
	case errors.Is(err, query.ErrFileNotFound):
		writeError(ctx, fasthttp.StatusNotFound, "File not found")
		return
	case err != nil:
		s.logger.Error("msg", "File download failed",
			"component", "server",
			"file", name,
			"error", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "Failed to open file")
		return
	}

	if strings.HasSuffix(info.Name, ".gz") {
		ctx.SetContentType("application/gzip")
	} else {
		ctx.SetContentType("text/plain; charset=utf-8")
	}
	ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
	// fasthttp closes f once the body is sent
	ctx.SetBodyStream(f, int(info.Size))
}

func (s *Server) handleRealtime(ctx *fasthttp.RequestCtx, username string) {
	s.realtime.Serve(ctx, username)
}

func (s *Server) handleRealtimeRequest(ctx *fasthttp.RequestCtx, _ string) {
	clientID := strings.TrimPrefix(string(ctx.Path()), realtimePrefix)

	err := s.realtime.HandleRequest(clientID, ctx.PostBody())
	switch {
	case err == nil:
		ctx.SetStatusCode(fasthttp.StatusAccepted)
		writeJSON(ctx, map[string]string{"status": "accepted"})
	case errors.Is(err, stream.ErrUnknownClient):
		writeError(ctx, fasthttp.StatusNotFound, "Unknown client")
	default:
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
	}
}
