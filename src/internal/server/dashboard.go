// FILE: logpulse/src/internal/server/dashboard.go
package server

import (
	"bytes"
	"html/template"

	"logpulse/src/internal/version"

	"github.com/valyala/fasthttp"
)

type dashboardData struct {
	Version        string
	EnableRealtime bool
	EnableSearch   bool
	EnableCharts   bool
	EnableMetrics  bool
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>logpulse</title>
<style>
body { font-family: monospace; margin: 1rem; background: #111; color: #ddd; }
#logs div { white-space: pre-wrap; border-bottom: 1px solid #222; }
.ERROR, .error { color: #e55; } .WARN, .warn { color: #eb4; } .INFO, .info { color: #6c6; }
</style>
</head>
<body>
<h1>logpulse <small>{{.Version}}</small></h1>
<nav><a href="/files">files</a>{{if .EnableMetrics}} | <a href="/metrics">metrics</a>{{end}}</nav>
<form id="filters">
  <input name="level" placeholder="level">
  {{if .EnableSearch}}<input name="search" placeholder="search">{{end}}
  <input name="startDate" type="date"> <input name="endDate" type="date">
  <button>filter</button>
  <a id="csv" href="/logs?format=csv">csv</a>
</form>
{{if .EnableCharts}}<section id="charts"><pre id="rate"></pre></section>{{end}}
<section id="logs"></section>
<script>
const logs = document.getElementById("logs");
function show(entries, replace) {
  if (replace) logs.innerHTML = "";
  for (const e of entries) {
    const d = document.createElement("div");
    d.className = e.level;
    d.textContent = e.formattedMessage || e.message;
    logs.prepend(d);
  }
}
function filters() {
  return Object.fromEntries(new FormData(document.getElementById("filters")));
}
{{if .EnableRealtime}}
let clientId = null;
const es = new EventSource("/realtime");
es.addEventListener("connected", ev => { clientId = JSON.parse(ev.data).client_id; });
es.addEventListener("initialLogs", ev => show(JSON.parse(ev.data), true));
es.addEventListener("newLog", ev => show([JSON.parse(ev.data)], false));
es.addEventListener("logsData", ev => show(JSON.parse(ev.data).reverse(), true));
es.addEventListener("metricsUpdate", ev => {
  const r = document.getElementById("rate");
  if (r) r.textContent = ev.data;
});
es.addEventListener("error", ev => { if (ev.data) console.warn(ev.data); });
document.getElementById("filters").addEventListener("submit", ev => {
  ev.preventDefault();
  if (clientId) fetch("/realtime/" + clientId, {method: "POST", body: JSON.stringify({event: "requestLogs", data: filters()})});
});
{{else}}
document.getElementById("filters").addEventListener("submit", ev => {
  ev.preventDefault();
  fetch("/logs?" + new URLSearchParams(filters())).then(r => r.json()).then(d => show(d.reverse(), true));
});
fetch("/logs").then(r => r.json()).then(d => show(d.reverse(), true));
{{end}}
</script>
</body>
</html>
`))

func (s *Server) handleDashboard(ctx *fasthttp.RequestCtx, _ string) {
	cfg := s.backend.Config()
	data := dashboardData{
		Version:        version.Short(),
		EnableRealtime: s.realtimeEnabled(cfg),
		EnableSearch:   cfg.Server.EnableSearch,
		EnableCharts:   cfg.Server.EnableCharts,
		EnableMetrics:  cfg.MetricsRouteEnabled(),
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("msg", "Dashboard render failed",
			"component", "server",
			"error", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "Failed to render dashboard")
		return
	}

	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}
