package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1 << 20 // 1MB

// envPrefix namespaces the environment variables this subsystem reads.
const envPrefix = "ZEN_"

// Load reads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (ZEN_ENVIRONMENT, ZEN_CONTEXT_MAX_OPERATION_DEPTH, ...)
//  2. YAML config file, when configPath is non-empty and the file exists
//  3. Defaults
//
// Environment variables map to config keys by stripping the prefix, lowercasing,
// and splitting section from field on the first underscore:
//
//	ZEN_ENVIRONMENT                   -> environment
//	ZEN_CONTEXT_MAX_OPERATION_DEPTH   -> context.max_operation_depth
//	ZEN_LOGGING_FORMAT                -> logging.format
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if len(content) > maxConfigFileSize {
				return nil, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// transformEnvKey maps ZEN_SECTION_FIELD_NAME to section.field_name. The
// split is on the first underscore only; field names keep their underscores.
func transformEnvKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
