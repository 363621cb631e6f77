// Package config loads lockpass settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultVaultFile is the vault database created in the working directory
// when LOCKPASS_VAULT is not set.
const DefaultVaultFile = ".lockpass"

// Config holds the runtime settings of the CLI.
type Config struct {
	// VaultPath is the bbolt file holding the sealed vault.
	VaultPath string `env:"VAULT" envDefault:".lockpass"`

	// Password, when set, is used instead of the keyring or a prompt.
	Password string `env:"PASSWORD"`

	// LogLevel is a zerolog level name for diagnostics on stderr.
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`

	// NoKeyring disables reading and writing the OS keyring.
	NoKeyring bool `env:"NO_KEYRING"`

	// OpenTimeout bounds the wait for another process holding the vault file.
	OpenTimeout time.Duration `env:"OPEN_TIMEOUT" envDefault:"1s"`
}

// Load parses LOCKPASS_* environment variables.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: "LOCKPASS_"})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.VaultPath == "" {
		return errors.New("LOCKPASS_VAULT must not be empty")
	}
	if c.OpenTimeout < 0 {
		return fmt.Errorf("LOCKPASS_OPEN_TIMEOUT must not be negative, got %s", c.OpenTimeout)
	}
	return nil
}

// PasswordBytes returns a copy of the configured password, or nil when
// none is set. The caller owns the returned slice and should clear it.
func (c *Config) PasswordBytes() []byte {
	if c.Password == "" {
		return nil
	}
	result := make([]byte, len(c.Password))
	copy(result, c.Password)
	return result
}
