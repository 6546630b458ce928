package cli

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every command. Values come from an
// optional YAML file and are overridden by flags.
type Config struct {
	LogLevel string `yaml:"log_level"`
	Format   string `yaml:"format"`
	MaxRows  int    `yaml:"max_rows"`
}

// Output formats.
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{
		LogLevel: "warn",
		Format:   FormatJSON,
	}
}

// LoadConfig reads a YAML config file on top of the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that have a fixed set of choices.
func (c Config) Validate() error {
	if c.Format != FormatJSON && c.Format != FormatTable {
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("max_rows must not be negative, got %d", c.MaxRows)
	}
	return nil
}

// NewLogger builds a production logger writing to stderr at the configured
// level.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
