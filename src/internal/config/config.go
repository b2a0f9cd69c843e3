// FILE: logpulse/src/internal/config/config.go
package config

import (
	"path/filepath"
)

// Config is the effective engine configuration.
type Config struct {
	// Ordered level set, first entry is the default unless DefaultLevel is set
	Levels       []string `toml:"levels"`
	DefaultLevel string   `toml:"default_level"`
	ErrorLevel   string   `toml:"error_level"`

	// Output mode, the two flags are mutually exclusive
	ConsoleOnly  bool `toml:"console_only"`
	FileOnly     bool `toml:"file_only"`
	ConsoleColor bool `toml:"console_color"`

	// File sink
	LogFile         string `toml:"log_file"`
	LogDir          string `toml:"log_dir"`
	MaxFileSize     int64  `toml:"max_file_size"` // bytes
	CompressOldLogs bool   `toml:"compress_old_logs"`

	EnableMetrics bool  `toml:"enable_metrics"`
	BufferSize    int64 `toml:"buffer_size"`

	// Formatter: "default", "template" or "json"
	Format    string `toml:"format"`
	LogFormat string `toml:"log_format"`

	EmailAlerts []AlertRule  `toml:"email_alerts"`
	DB          DBConfig     `toml:"db"`
	Server      ServerConfig `toml:"server"`
	Logging     *LogConfig   `toml:"logging"`
}

// AlertRule describes a single e-mail alert trigger.
type AlertRule struct {
	Level   string     `toml:"level"`
	Pattern string     `toml:"pattern"`
	SMTP    SMTPConfig `toml:"smtp"`
	From    string     `toml:"from"`
	To      []string   `toml:"to"`
	Subject string     `toml:"subject"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int64  `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// DBConfig selects the optional persistence backend.
type DBConfig struct {
	// "", "bolt" or "mongodb"
	Type string `toml:"type"`

	// bolt
	Path string `toml:"path"`

	// mongodb
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`

	TimeoutMs int64 `toml:"timeout_ms"`
}

type ServerConfig struct {
	StartWebServer bool   `toml:"start_web_server"`
	Host           string `toml:"host"`
	Port           int64  `toml:"port"`

	AuthEnabled   bool       `toml:"auth_enabled"`
	BypassIPCheck bool       `toml:"bypass_ip_check"`
	AllowedIPs    []string   `toml:"allowed_ips"`
	Auth          UserConfig `toml:"auth"`
	Realm         string     `toml:"realm"`
	JWTSigningKey string     `toml:"jwt_signing_key"`

	EnableRealtime bool `toml:"enable_realtime"`
	EnableMetrics  bool `toml:"enable_metrics"`
	EnableSearch   bool `toml:"enable_search"`
	EnableCharts   bool `toml:"enable_charts"`

	// Per-viewer channel size for the realtime channel
	BufferSize       int64 `toml:"buffer_size"`
	HeartbeatSeconds int64 `toml:"heartbeat_seconds"`
	SessionIdleMins  int64 `toml:"session_idle_mins"`
	WriteTimeoutMs   int64 `toml:"write_timeout_ms"`

	// Raw line tail over TCP
	TCPEnabled bool  `toml:"tcp_enabled"`
	TCPPort    int64 `toml:"tcp_port"`
}

type UserConfig struct {
	User string `toml:"user"`
	// Plain text or bcrypt hash
	Pass string `toml:"pass"`
}

// ResolvedDefaultLevel returns the level substituted for unknown levels.
func (c *Config) ResolvedDefaultLevel() string {
	if c.DefaultLevel != "" {
		return c.DefaultLevel
	}
	if len(c.Levels) > 0 {
		return c.Levels[0]
	}
	return ""
}

// HasLevel reports whether level is part of the configured level set.
func (c *Config) HasLevel(level string) bool {
	for _, l := range c.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// ActivePath returns the path of the active log file.
func (c *Config) ActivePath() string {
	return filepath.Join(c.LogDir, c.LogFile)
}

// MetricsRouteEnabled reports whether the metrics snapshot is served.
func (c *Config) MetricsRouteEnabled() bool {
	return c.EnableMetrics && c.Server.EnableMetrics
}

// Clone returns a deep copy safe for independent mutation.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Levels = append([]string(nil), c.Levels...)
	cp.Server.AllowedIPs = append([]string(nil), c.Server.AllowedIPs...)
	if c.EmailAlerts != nil {
		cp.EmailAlerts = make([]AlertRule, len(c.EmailAlerts))
		for i, r := range c.EmailAlerts {
			r.To = append([]string(nil), r.To...)
			cp.EmailAlerts[i] = r
		}
	}
	if c.Logging != nil {
		lc := *c.Logging
		cp.Logging = &lc
	}
	return &cp
}
