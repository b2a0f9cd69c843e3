// FILE: logpulse/src/cmd/logpulse/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"logpulse/src/internal/config"
	"logpulse/src/internal/version"

	"github.com/lixenwraith/log"
)

const shutdownTimeout = 10 * time.Second

var logger *log.Logger

func main() {
	// Subcommands exit on their own
	router := NewCommandRouter()
	if err := router.Route(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	flagCfg, err := ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	InitOutputHandler(flagCfg.Quiet)

	if flagCfg.ShowVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if flagCfg.ConfigFile != "" {
		os.Setenv("LOGPULSE_CONFIG_FILE", flagCfg.ConfigFile)
	}

	cfg, err := config.Load(flagCfg.ConfigArgs)
	if err != nil {
		if flagCfg.ConfigFile != "" && strings.Contains(err.Error(), "not found") {
			FatalError(2, "Config file not found: %s\n", flagCfg.ConfigFile)
		}
		FatalError(1, "Failed to load config: %v\n", err)
	}
	flagCfg.apply(cfg)

	if flagCfg.DumpConfig {
		if err := dumpConfig(cfg); err != nil {
			FatalError(1, "Failed to dump config: %v\n", err)
		}
		os.Exit(0)
	}

	if err := initializeLogger(cfg, flagCfg.Quiet); err != nil {
		FatalError(1, "Failed to initialize logger: %v\n", err)
	}
	defer shutdownLogger()

	logger.Info("msg", "LogPulse starting",
		"version", version.String(),
		"config_file", config.GetConfigPath(),
		"log_output", cfg.Logging.Output,
		"stdin", flagCfg.Stdin)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrapApp(ctx, cfg)
	if err != nil {
		logger.Error("msg", "Failed to bootstrap", "error", err)
		FatalError(1, "Failed to start: %v\n", err)
	}

	rm := NewReloadManager(config.GetConfigPath(), app, logger)
	if flagCfg.AutoReload {
		if err := rm.Start(ctx); err != nil {
			logger.Warn("msg", "Configuration hot reload unavailable",
				"error", err)
		}
	}

	if !flagCfg.DisableStatusReporter {
		go statusReporter(ctx, app)
	}

	stdinDone := make(chan struct{})
	if flagCfg.Stdin {
		go func() {
			defer close(stdinDone)
			n, err := ingestLines(ctx, os.Stdin, app.engine)
			logger.Info("msg", "Standard input closed",
				"lines", n,
				"error", err)
		}()
	}

	sh := NewSignalHandler(rm, logger)
	defer sh.Stop()
	sh.Start(ctx)

	select {
	case sig := <-sh.Terminated():
		logger.Info("msg", "Shutdown signal received, starting graceful shutdown",
			"signal", sig)
	case <-stdinDone:
		if !cfg.Server.StartWebServer && !cfg.Server.TCPEnabled {
			logger.Info("msg", "Input exhausted, shutting down")
		} else {
			// Keep serving until signalled
			sig := <-sh.Terminated()
			logger.Info("msg", "Shutdown signal received, starting graceful shutdown",
				"signal", sig)
		}
	}

	rm.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		app.Shutdown(shutdownCtx)
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		shutdownLogger()
		os.Exit(1)
	}
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			Error("Logger shutdown error: %v\n", err)
		}
	}
}

func dumpConfig(cfg *config.Config) error {
	f, err := os.CreateTemp("", "logpulse-*.toml")
	if err != nil {
		return err
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := cfg.SaveToFile(path, true); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	Print("%s", data)
	return nil
}
