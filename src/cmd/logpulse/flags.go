// FILE: logpulse/src/cmd/logpulse/flags.go
package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"logpulse/src/internal/config"

	"github.com/lixenwraith/log"
)

// FlagConfig holds the parsed command line. Arguments after "--" are passed to
// the config loader as overrides, e.g. --server.port=9100.
type FlagConfig struct {
	ConfigFile            string
	ShowVersion           bool
	Quiet                 bool
	Stdin                 bool
	DumpConfig            bool
	AutoReload            bool
	DisableStatusReporter bool

	LogOutput  string
	LogLevel   string
	LogDir     string
	LogConsole string

	ConfigArgs []string
}

// ParseFlags parses args, excluding the program name
func ParseFlags(args []string) (*FlagConfig, error) {
	fc := &FlagConfig{}
	fs := flag.NewFlagSet("logpulse", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&fc.ConfigFile, "config", "", "Config file path")
	fs.BoolVar(&fc.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&fc.Quiet, "quiet", false, "Suppress all console output")
	fs.BoolVar(&fc.Stdin, "stdin", false, "Ingest lines from standard input")
	fs.BoolVar(&fc.DumpConfig, "dump-config", false, "Print the effective configuration and exit")
	fs.BoolVar(&fc.AutoReload, "config-auto-reload", false, "Apply config file changes without restart")
	fs.BoolVar(&fc.DisableStatusReporter, "disable-status-reporter", false, "Disable periodic status reports")

	fs.StringVar(&fc.LogOutput, "log-output", "", "Operational log output: file, stdout, stderr, both, none")
	fs.StringVar(&fc.LogLevel, "log-level", "", "Operational log level: debug, info, warn, error")
	fs.StringVar(&fc.LogDir, "log-dir", "", "Operational log directory (file output)")
	fs.StringVar(&fc.LogConsole, "log-console", "", "Console target: stdout, stderr")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w (run 'logpulse help' for usage)", err)
	}
	fc.ConfigArgs = fs.Args()

	if err := fc.validate(); err != nil {
		return nil, err
	}
	return fc, nil
}

func (fc *FlagConfig) validate() error {
	if fc.LogOutput != "" {
		validOutputs := map[string]bool{
			"file": true, "stdout": true, "stderr": true,
			"both": true, "none": true,
		}
		if !validOutputs[fc.LogOutput] {
			return fmt.Errorf("invalid log-output: %s (valid: file, stdout, stderr, both, none)", fc.LogOutput)
		}
	}

	if fc.LogLevel != "" {
		if _, err := parseLogLevel(fc.LogLevel); err != nil {
			return fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", fc.LogLevel)
		}
	}

	if fc.LogConsole != "" && fc.LogConsole != "stdout" && fc.LogConsole != "stderr" {
		return fmt.Errorf("invalid log-console: %s (valid: stdout, stderr)", fc.LogConsole)
	}
	return nil
}

// apply overlays the operational logging flags on cfg
func (fc *FlagConfig) apply(cfg *config.Config) {
	if cfg.Logging == nil {
		cfg.Logging = config.DefaultLogConfig()
	}
	if fc.LogOutput != "" {
		cfg.Logging.Output = fc.LogOutput
	}
	if fc.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(fc.LogLevel)
	}
	if fc.LogDir != "" && cfg.Logging.File != nil {
		cfg.Logging.File.Directory = fc.LogDir
	}
	if fc.LogConsole != "" && cfg.Logging.Console != nil {
		cfg.Logging.Console.Target = fc.LogConsole
	}
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
