// FILE: logpulse/src/cmd/logpulse/stdin.go
package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"logpulse/src/internal/config"
	"logpulse/src/internal/core"
)

const maxLineSize = 1024 * 1024

// Ingester is the part of the engine used for line ingestion
type Ingester interface {
	Log(level string, values ...any) core.LogEntry
	Config() *config.Config
}

// ingestLines logs every non-empty line read from r until EOF or ctx ends
func ingestLines(ctx context.Context, r io.Reader, ing Ingester) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	count := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		cfg := ing.Config()
		level, msg := splitLevel(line, cfg.Levels, cfg.ResolvedDefaultLevel())
		ing.Log(level, msg)
		count++
	}
	return count, scanner.Err()
}

// splitLevel extracts a leading "[level]" tag matching a configured level,
// case-insensitively. Other lines go to fallback unchanged.
func splitLevel(line string, levels []string, fallback string) (string, string) {
	if !strings.HasPrefix(line, "[") {
		return fallback, line
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return fallback, line
	}

	tag := line[1:end]
	for _, lvl := range levels {
		if strings.EqualFold(lvl, tag) {
			return lvl, strings.TrimSpace(line[end+1:])
		}
	}
	return fallback, line
}
