// FILE: logpulse/src/cmd/logpulse/bootstrap.go
package main

import (
	"context"
	"fmt"
	"time"

	"logpulse/src/internal/auth"
	"logpulse/src/internal/config"
	"logpulse/src/internal/core"
	"logpulse/src/internal/engine"
	"logpulse/src/internal/event"
	"logpulse/src/internal/server"
	"logpulse/src/internal/session"
	"logpulse/src/internal/stream"
	"logpulse/src/internal/version"

	"github.com/lixenwraith/log"
)

// App wires the engine to its network surfaces
type App struct {
	engine      *engine.Engine
	auth        *auth.Authenticator
	sessions    *session.Manager
	broadcaster *stream.Broadcaster
	tail        *stream.Tail
	server      *server.Server
	detach      []func()
}

// bootstrapApp creates the engine and starts the web server and TCP tail when enabled
func bootstrapApp(ctx context.Context, cfg *config.Config) (*App, error) {
	eng, err := engine.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	app := &App{engine: eng}
	alertSub := eng.Bus().Subscribe(core.TopicAlertFailed, func(ev event.Event) {
		if failure, ok := ev.Payload.(engine.AlertFailure); ok {
			logger.Warn("msg", "Alert delivery failed",
				"component", "alerts",
				"to", failure.To,
				"error", failure.Error)
		}
	})
	app.detach = append(app.detach, func() { eng.Bus().Unsubscribe(alertSub) })

	srvCfg := cfg.Server
	if !srvCfg.StartWebServer && !srvCfg.TCPEnabled {
		logger.Info("msg", "LogPulse started",
			"version", version.Short(),
			"web_server", false)
		return app, nil
	}

	app.sessions = session.NewManager(time.Duration(srvCfg.SessionIdleMins) * time.Minute)
	app.auth = auth.New(srvCfg, logger)

	if srvCfg.StartWebServer {
		app.broadcaster = stream.NewBroadcaster(eng, app.sessions, stream.Options{
			BufferSize: int(srvCfg.BufferSize),
			Heartbeat:  time.Duration(srvCfg.HeartbeatSeconds) * time.Second,
		}, logger)
		app.broadcaster.Start()
		app.detach = append(app.detach, eng.AttachRealtime(app.broadcaster))

		app.server = server.New(eng, app.auth, app.broadcaster, logger)
		if err := app.server.Start(); err != nil {
			app.server = nil
			app.Shutdown(ctx)
			return nil, err
		}
		displayEndpoints(srvCfg)
	}

	if srvCfg.TCPEnabled {
		app.tail = stream.NewTail(srvCfg.Host, srvCfg.TCPPort, int(srvCfg.BufferSize), app.auth, app.sessions, logger)
		if err := app.tail.Start(); err != nil {
			app.tail = nil
			app.Shutdown(ctx)
			return nil, fmt.Errorf("failed to start TCP tail: %w", err)
		}
		app.detach = append(app.detach, eng.AttachTail(app.tail))
		Print("TCP tail: %s:%d\n", srvCfg.Host, srvCfg.TCPPort)
	}

	logger.Info("msg", "LogPulse started",
		"version", version.Short(),
		"web_server", srvCfg.StartWebServer,
		"tcp_tail", srvCfg.TCPEnabled)
	return app, nil
}

// ApplyConfig pushes a reloaded configuration into the running components
func (a *App) ApplyConfig(next *config.Config) error {
	if err := a.engine.UpdateConfig(func(c *config.Config) {
		*c = *next.Clone()
	}); err != nil {
		return err
	}
	if a.auth != nil {
		a.auth.Update(next.Server)
	}
	return nil
}

// Shutdown stops network surfaces first so in-flight requests see a live engine
func (a *App) Shutdown(ctx context.Context) {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			logger.Error("msg", "HTTP server shutdown error", "error", err)
		}
	}
	if a.broadcaster != nil {
		a.broadcaster.Stop()
	}
	if a.tail != nil {
		a.tail.Stop()
	}
	for _, detach := range a.detach {
		detach()
	}
	if a.sessions != nil {
		a.sessions.Stop()
	}
	if a.auth != nil {
		a.auth.Close()
	}
	if err := a.engine.Close(); err != nil {
		logger.Error("msg", "Engine close error", "error", err)
	}
}

func displayEndpoints(cfg config.ServerConfig) {
	base := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	Print("Dashboard:  %s/\n", base)
	Print("Logs:       %s/logs\n", base)
	if cfg.EnableMetrics {
		Print("Metrics:    %s/metrics\n", base)
	}
	if cfg.EnableRealtime {
		Print("Realtime:   %s/realtime\n", base)
	}
	if cfg.AuthEnabled && cfg.BypassIPCheck {
		Print("Warning: IP allow-list bypassed, credentials only\n")
	}
}

// initializeLogger sets up the operational logger
func initializeLogger(cfg *config.Config, quiet bool) error {
	logger = log.NewLogger()

	var configArgs []string

	if quiet {
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=false",
			"level=255")
		return logger.InitWithDefaults(configArgs...)
	}

	lc := cfg.Logging
	if lc == nil {
		lc = config.DefaultLogConfig()
	}

	levelValue, err := parseLogLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch lc.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")
	case "stdout", "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target="+lc.Output)
	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configArgs = append(configArgs, fileLoggingArgs(lc)...)
	case "both":
		configArgs = append(configArgs, "enable_stdout=true")
		configArgs = append(configArgs, fileLoggingArgs(lc)...)
		if lc.Console != nil && lc.Console.Target != "" {
			configArgs = append(configArgs, "stdout_target="+lc.Console.Target)
		}
	default:
		return fmt.Errorf("invalid log output mode: %s", lc.Output)
	}

	if lc.Console != nil && lc.Console.Format != "" {
		configArgs = append(configArgs, "format="+lc.Console.Format)
	}

	return logger.InitWithDefaults(configArgs...)
}

func fileLoggingArgs(lc *config.LogConfig) []string {
	if lc.File == nil {
		return nil
	}
	return []string{
		"directory=" + lc.File.Directory,
		"name=" + lc.File.Name,
		fmt.Sprintf("max_size_mb=%d", lc.File.MaxSizeMB),
	}
}
