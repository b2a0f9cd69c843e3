// FILE: logpulse/src/cmd/logpulse/signals.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lixenwraith/log"
)

// SignalHandler triggers reloads on SIGHUP/SIGUSR1 and reports termination
type SignalHandler struct {
	reloadManager *ReloadManager
	logger        *log.Logger
	sigChan       chan os.Signal
	terminated    chan os.Signal
}

func NewSignalHandler(rm *ReloadManager, logger *log.Logger) *SignalHandler {
	sh := &SignalHandler{
		reloadManager: rm,
		logger:        logger,
		sigChan:       make(chan os.Signal, 1),
		terminated:    make(chan os.Signal, 1),
	}

	signal.Notify(sh.sigChan,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
		syscall.SIGUSR1,
	)

	return sh
}

// Start processes signals until a termination signal arrives or ctx ends
func (sh *SignalHandler) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case sig := <-sh.sigChan:
				switch sig {
				case syscall.SIGHUP, syscall.SIGUSR1:
					sh.logger.Info("msg", "Reload signal received",
						"signal", sig)
					go sh.reloadManager.TriggerReload(ctx)
				default:
					sh.terminated <- sig
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (sh *SignalHandler) Terminated() <-chan os.Signal {
	return sh.terminated
}

func (sh *SignalHandler) Stop() {
	signal.Stop(sh.sigChan)
}
