// Package config provides configuration loading for the execution-context
// subsystem.
package config

import (
	"fmt"

	"github.com/netra-systems/zen-sub165/internal/logging"
)

// Environment identifies the deployment environment. The validator consumes
// this to decide whether test-only identifier prefixes are tolerated.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
	EnvTest        Environment = "test"
)

// IsDevOrTest reports whether the environment is a non-production one where
// test fixtures legitimately flow through the system.
func (e Environment) IsDevOrTest() bool {
	return e == EnvDevelopment || e == EnvTest
}

func (e Environment) valid() bool {
	switch e {
	case EnvProduction, EnvStaging, EnvDevelopment, EnvTest:
		return true
	}
	return false
}

// Config is the root configuration.
type Config struct {
	Environment Environment     `koanf:"environment"`
	Context     ContextConfig   `koanf:"context"`
	Logging     *logging.Config `koanf:"logging"`
}

// ContextConfig holds tunables for context construction and derivation.
type ContextConfig struct {
	// MaxOperationDepth caps how deep a derivation chain may grow.
	MaxOperationDepth int `koanf:"max_operation_depth"`

	// ValueTruncateLen bounds how much of an offending identifier value is
	// echoed back in validation errors.
	ValueTruncateLen int `koanf:"value_truncate_len"`
}

// NewDefaultConfig returns production defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: EnvProduction,
		Context: ContextConfig{
			MaxOperationDepth: 10,
			ValueTruncateLen:  32,
		},
		Logging: logging.NewDefaultConfig(),
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if !c.Environment.valid() {
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Context.MaxOperationDepth < 1 {
		return fmt.Errorf("context.max_operation_depth must be >= 1, got %d", c.Context.MaxOperationDepth)
	}
	if c.Context.ValueTruncateLen < 1 {
		return fmt.Errorf("context.value_truncate_len must be >= 1, got %d", c.Context.ValueTruncateLen)
	}
	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	def := NewDefaultConfig()
	if cfg.Environment == "" {
		cfg.Environment = def.Environment
	}
	if cfg.Context.MaxOperationDepth == 0 {
		cfg.Context.MaxOperationDepth = def.Context.MaxOperationDepth
	}
	if cfg.Context.ValueTruncateLen == 0 {
		cfg.Context.ValueTruncateLen = def.Context.ValueTruncateLen
	}
	if cfg.Logging == nil {
		cfg.Logging = def.Logging
	} else if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}
