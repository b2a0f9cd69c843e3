// FILE: logpulse/src/cmd/logpulse/reload.go
package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"logpulse/src/internal/config"

	lconfig "github.com/lixenwraith/config"
	"github.com/lixenwraith/log"
)

// ReloadManager applies configuration file changes to the running app
type ReloadManager struct {
	configPath  string
	app         *App
	lcfg        *lconfig.Config
	logger      *log.Logger
	reloadingMu sync.Mutex
	isReloading bool
	shutdownCh  chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewReloadManager(configPath string, app *App, logger *log.Logger) *ReloadManager {
	return &ReloadManager{
		configPath: configPath,
		app:        app,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Start watches the config file. Signal triggered reloads work without it.
func (rm *ReloadManager) Start(ctx context.Context) error {
	if err := rm.build(); err != nil {
		return err
	}

	rm.lcfg.AutoUpdateWithOptions(lconfig.WatchOptions{
		PollInterval:      time.Second,
		Debounce:          500 * time.Millisecond,
		ReloadTimeout:     30 * time.Second,
		VerifyPermissions: true,
	})

	rm.wg.Add(1)
	go rm.watchLoop(ctx)

	rm.logger.Info("msg", "Configuration hot reload enabled",
		"config_file", rm.configPath)
	return nil
}

func (rm *ReloadManager) build() error {
	lcfg, err := lconfig.NewBuilder().
		WithDefaults(config.Default()).
		WithFile(rm.configPath).
		WithTarget(rm.app.engine.Config().Clone()).
		WithFileFormat("toml").
		WithSecurityOptions(lconfig.SecurityOptions{
			PreventPathTraversal: true,
			MaxFileSize:          10 * 1024 * 1024,
		}).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	rm.lcfg = lcfg
	return nil
}

func (rm *ReloadManager) watchLoop(ctx context.Context) {
	defer rm.wg.Done()

	changeCh := rm.lcfg.Watch()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rm.shutdownCh:
			return
		case changedPath, ok := <-changeCh:
			if !ok {
				return
			}
			switch changedPath {
			case "file_deleted":
				rm.logger.Error("msg", "Configuration file deleted",
					"action", "keeping current configuration")
				continue
			case "permissions_changed":
				rm.logger.Error("msg", "Configuration file permissions changed",
					"action", "reload blocked for security")
				continue
			case "reload_timeout":
				rm.logger.Error("msg", "Configuration reload timed out",
					"action", "keeping current configuration")
				continue
			}
			if strings.HasPrefix(changedPath, "reload_error:") {
				rm.logger.Error("msg", "Configuration reload error",
					"error", strings.TrimPrefix(changedPath, "reload_error:"),
					"action", "keeping current configuration")
				continue
			}

			if shouldReload(changedPath) {
				rm.TriggerReload(ctx)
			}
		}
	}
}

// shouldReload reports whether a changed key affects the engine.
// Operational logging and persistence settings apply on restart only.
func shouldReload(path string) bool {
	if strings.HasPrefix(path, "logging.") || path == "logging" {
		return false
	}
	if strings.HasPrefix(path, "db.") || path == "db" {
		return false
	}
	return true
}

// TriggerReload rereads the config file and applies it. Concurrent calls are dropped.
func (rm *ReloadManager) TriggerReload(ctx context.Context) {
	rm.reloadingMu.Lock()
	if rm.isReloading {
		rm.reloadingMu.Unlock()
		rm.logger.Debug("msg", "Reload already in progress, skipping")
		return
	}
	rm.isReloading = true
	rm.reloadingMu.Unlock()

	defer func() {
		rm.reloadingMu.Lock()
		rm.isReloading = false
		rm.reloadingMu.Unlock()
	}()

	if ctx.Err() != nil {
		return
	}

	rm.logger.Info("msg", "Starting configuration hot reload")
	if err := rm.performReload(); err != nil {
		rm.logger.Error("msg", "Hot reload failed",
			"error", err,
			"action", "keeping current configuration")
		return
	}
	rm.logger.Info("msg", "Configuration hot reload completed successfully")
}

// performReload takes the watched struct when the file watcher runs and
// reloads from file and environment otherwise
func (rm *ReloadManager) performReload() error {
	next, err := rm.currentFileConfig()
	if err != nil {
		return err
	}

	if err := rm.app.ApplyConfig(next); err != nil {
		return fmt.Errorf("rejected configuration: %w", err)
	}
	return nil
}

func (rm *ReloadManager) currentFileConfig() (*config.Config, error) {
	if rm.lcfg == nil {
		return config.Load(nil)
	}

	updated, err := rm.lcfg.AsStruct()
	if err != nil {
		return nil, fmt.Errorf("failed to get updated config: %w", err)
	}
	next, ok := updated.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", updated)
	}
	return next, config.Validate(next)
}

// Shutdown stops watching; it is safe to call when Start was never called
func (rm *ReloadManager) Shutdown() {
	rm.stopOnce.Do(func() {
		close(rm.shutdownCh)
		rm.wg.Wait()
		if rm.lcfg != nil {
			rm.lcfg.StopAutoUpdate()
		}
	})
}
