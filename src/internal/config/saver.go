// FILE: logpulse/src/internal/config/saver.go
package config

import (
	"fmt"

	lconfig "github.com/lixenwraith/config"
)

const redacted = "<redacted>"

// SaveToFile writes the configuration as TOML. Secrets are masked when redact is set.
func (c *Config) SaveToFile(path string, redact bool) error {
	if path == "" {
		return fmt.Errorf("cannot save config: path is empty")
	}

	target := c
	if redact {
		target = c.Redacted()
	}

	lcfg, err := lconfig.NewBuilder().
		WithFile(path).
		WithTarget(target).
		WithFileFormat("toml").
		Build()
	if err != nil {
		return fmt.Errorf("failed to create config builder: %w", err)
	}

	if err := lcfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Redacted returns a copy with credentials masked
func (c *Config) Redacted() *Config {
	cp := c.Clone()
	if cp.Server.Auth.Pass != "" {
		cp.Server.Auth.Pass = redacted
	}
	if cp.Server.JWTSigningKey != "" {
		cp.Server.JWTSigningKey = redacted
	}
	for i := range cp.EmailAlerts {
		if cp.EmailAlerts[i].SMTP.Password != "" {
			cp.EmailAlerts[i].SMTP.Password = redacted
		}
	}
	if cp.DB.URI != "" {
		cp.DB.URI = redacted
	}
	return cp
}
