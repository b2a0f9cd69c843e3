// FILE: logpulse/src/internal/config/validation.go
package config

import (
	"errors"
	"fmt"

	lconfig "github.com/lixenwraith/config"
)

// ErrExclusiveOutput is returned when console-only and file-only are both set
var ErrExclusiveOutput = errors.New("console_only and file_only are mutually exclusive")

// Validate is the centralized validator for the entire configuration
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.ConsoleOnly && cfg.FileOnly {
		return ErrExclusiveOutput
	}

	if err := validateLevels(cfg); err != nil {
		return err
	}

	if !cfg.ConsoleOnly {
		if err := lconfig.NonEmpty(cfg.LogFile); err != nil {
			return fmt.Errorf("log_file: %w", err)
		}
		if err := lconfig.NonEmpty(cfg.LogDir); err != nil {
			return fmt.Errorf("log_dir: %w", err)
		}
		if cfg.MaxFileSize <= 0 {
			return fmt.Errorf("max_file_size must be positive: %d", cfg.MaxFileSize)
		}
	}

	if cfg.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive: %d", cfg.BufferSize)
	}

	switch cfg.Format {
	case "", "default", "json":
	case "template":
		if err := lconfig.NonEmpty(cfg.LogFormat); err != nil {
			return fmt.Errorf("log_format required for template format: %w", err)
		}
	default:
		return fmt.Errorf("unknown format: %s", cfg.Format)
	}

	for i := range cfg.EmailAlerts {
		if err := validateAlertRule(i, &cfg.EmailAlerts[i]); err != nil {
			return err
		}
	}

	if err := validateDB(&cfg.DB); err != nil {
		return fmt.Errorf("db: %w", err)
	}

	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateLevels(cfg *Config) error {
	if len(cfg.Levels) == 0 {
		return fmt.Errorf("at least one level must be configured")
	}

	seen := make(map[string]bool, len(cfg.Levels))
	for i, level := range cfg.Levels {
		if err := lconfig.NonEmpty(level); err != nil {
			return fmt.Errorf("levels[%d]: %w", i, err)
		}
		if seen[level] {
			return fmt.Errorf("duplicate level: %s", level)
		}
		seen[level] = true
	}

	if cfg.DefaultLevel != "" && !seen[cfg.DefaultLevel] {
		return fmt.Errorf("default_level %q is not a configured level", cfg.DefaultLevel)
	}
	return nil
}

func validateAlertRule(index int, r *AlertRule) error {
	if err := lconfig.NonEmpty(r.Level); err != nil {
		return fmt.Errorf("email_alerts[%d].level: %w", index, err)
	}
	if err := lconfig.NonEmpty(r.SMTP.Host); err != nil {
		return fmt.Errorf("email_alerts[%d].smtp.host: %w", index, err)
	}
	if err := lconfig.Port(r.SMTP.Port); err != nil {
		return fmt.Errorf("email_alerts[%d].smtp.port: %w", index, err)
	}
	if err := lconfig.NonEmpty(r.From); err != nil {
		return fmt.Errorf("email_alerts[%d].from: %w", index, err)
	}
	if len(r.To) == 0 {
		return fmt.Errorf("email_alerts[%d].to: at least one recipient required", index)
	}
	return nil
}

func validateDB(db *DBConfig) error {
	switch db.Type {
	case "":
		return nil
	case "bolt":
		if err := lconfig.NonEmpty(db.Path); err != nil {
			return fmt.Errorf("path: %w", err)
		}
	case "mongodb":
		if err := lconfig.NonEmpty(db.URI); err != nil {
			return fmt.Errorf("uri: %w", err)
		}
		if err := lconfig.NonEmpty(db.Database); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := lconfig.NonEmpty(db.Collection); err != nil {
			return fmt.Errorf("collection: %w", err)
		}
	default:
		return fmt.Errorf("unknown type: %s", db.Type)
	}
	if db.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms cannot be negative")
	}
	return nil
}

func validateServer(s *ServerConfig) error {
	if !s.StartWebServer {
		return nil
	}

	if err := lconfig.Port(s.Port); err != nil {
		return fmt.Errorf("port: %w", err)
	}
	if s.Host != "" {
		if err := lconfig.IPAddress(s.Host); err != nil {
			return fmt.Errorf("host: %w", err)
		}
	}

	if s.AuthEnabled {
		if err := lconfig.NonEmpty(s.Auth.User); err != nil {
			return fmt.Errorf("auth.user required when auth is enabled: %w", err)
		}
		if err := lconfig.NonEmpty(s.Auth.Pass); err != nil {
			return fmt.Errorf("auth.pass required when auth is enabled: %w", err)
		}
	}

	if s.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive: %d", s.BufferSize)
	}
	if s.HeartbeatSeconds < 0 {
		return fmt.Errorf("heartbeat_seconds cannot be negative")
	}

	if s.TCPEnabled {
		if err := lconfig.Port(s.TCPPort); err != nil {
			return fmt.Errorf("tcp_port: %w", err)
		}
		if s.TCPPort == s.Port {
			return fmt.Errorf("tcp_port %d conflicts with http port", s.TCPPort)
		}
	}

	return nil
}
