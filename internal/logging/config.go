package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config holds logging configuration.
type Config struct {
	Level  zapcore.Level     `koanf:"level"`
	Format string            `koanf:"format"`
	Stderr bool              `koanf:"stderr"`
	Fields map[string]string `koanf:"fields"`
}

// NewDefaultConfig returns production-ready defaults: JSON to stdout at info.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: FormatJSON,
	}
}

// Validate checks the config for unusable values.
func (c *Config) Validate() error {
	if c.Format != FormatJSON && c.Format != FormatConsole {
		return fmt.Errorf("unknown log format %q (want %q or %q)", c.Format, FormatJSON, FormatConsole)
	}
	return nil
}

func (c *Config) output() zapcore.WriteSyncer {
	if c.Stderr {
		return zapcore.AddSync(os.Stderr)
	}
	return zapcore.AddSync(os.Stdout)
}
