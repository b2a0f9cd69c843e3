// FILE: logpulse/src/internal/engine/level.go
package engine

import (
	"logpulse/src/internal/core"
)

// LevelLogger forwards to Engine.Log with a fixed level.
// A handle outliving a level-set change keeps working; an unknown level then
// degrades like any other.
type LevelLogger struct {
	engine *Engine
	level  string
}

func (l *LevelLogger) Log(values ...any) core.LogEntry {
	return l.engine.Log(l.level, values...)
}

func (l *LevelLogger) Level() string {
	return l.level
}

func buildHandles(e *Engine, levels []string) map[string]*LevelLogger {
	handles := make(map[string]*LevelLogger, len(levels))
	for _, lvl := range levels {
		handles[lvl] = &LevelLogger{engine: e, level: lvl}
	}
	return handles
}

// Level returns the handle for a configured level.
func (e *Engine) Level(name string) (*LevelLogger, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handles[name]
	return h, ok
}

// Levels returns the configured level names in order.
func (e *Engine) Levels() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.cfg.Levels...)
}
