// Package config assembles the proxy's runtime configuration from a YAML
// file, overridable by environment variables, using a per-domain sub-struct
// layout (one file per concern) rather than one flat struct.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for archestra-proxy.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	DualLLM  DualLLMConfig  `yaml:"dual_llm"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Default returns a Config with every sub-struct's documented defaults.
func Default() *Config {
	return &Config{
		Server:   defaultServerConfig(),
		Database: defaultDatabaseConfig(),
		DualLLM:  defaultDualLLMConfig(),
		Logging:  defaultLoggingConfig(),
	}
}

// Load reads path (if non-empty and present) and layers environment variable
// overrides on top for the database URL and API keys: env vars win. A
// missing file is not an error — Default()'s values still apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.Database.applyEnv(); err != nil {
		return nil, err
	}
	cfg.DualLLM.applyEnv()
	cfg.Server.applyEnv()
	cfg.Logging.applyEnv()
	return cfg, nil
}
