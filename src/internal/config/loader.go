// FILE: logpulse/src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

const (
	DefaultMaxFileSize = 5 * 1024 * 1024
	DefaultBufferSize  = 1000
	DefaultServerPort  = 9001
)

// Default returns a fully populated configuration with all defaults applied
func Default() *Config {
	return &Config{
		Levels:          []string{"info", "warn", "error", "debug"},
		ErrorLevel:      "error",
		ConsoleColor:    true,
		LogFile:         "app.log",
		LogDir:          "./logs",
		MaxFileSize:     DefaultMaxFileSize,
		CompressOldLogs: true,
		EnableMetrics:   true,
		BufferSize:      DefaultBufferSize,
		Format:          "default",
		DB: DBConfig{
			Database:   "logpulse",
			Collection: "logs",
			TimeoutMs:  5000,
		},
		Server: ServerConfig{
			StartWebServer:   false,
			Host:             "0.0.0.0",
			Port:             DefaultServerPort,
			AuthEnabled:      true,
			AllowedIPs:       []string{"127.0.0.1", "::1", "::ffff:127.0.0.1"},
			Realm:            "logpulse",
			EnableRealtime:   true,
			EnableMetrics:    true,
			EnableSearch:     true,
			EnableCharts:     true,
			BufferSize:       100,
			HeartbeatSeconds: 30,
			SessionIdleMins:  30,
			WriteTimeoutMs:   0,
			TCPEnabled:       false,
			TCPPort:          9002,
		},
		Logging: DefaultLogConfig(),
	}
}

// Load resolves configuration from defaults, file, environment and CLI arguments
func Load(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(Default()).
		WithEnvPrefix("LOGPULSE_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, Validate(finalConfig)
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = "LOGPULSE_" + env
	return env
}

// GetConfigPath resolves the config file location from the environment
func GetConfigPath() string {
	if configFile := os.Getenv("LOGPULSE_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("LOGPULSE_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("LOGPULSE_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "logpulse.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "logpulse.toml")
	}

	return "logpulse.toml"
}
