package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvLibraryPath overrides library_path.
const EnvLibraryPath = "WEBBLE_SIMPLEBLE_PATH"

// Config holds application configuration
type Config struct {
	LibraryPath    string        `yaml:"library_path"`
	LogLevel       string        `yaml:"log_level" default:"warn"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"5s"`
	ScanInterval   time.Duration `yaml:"scan_interval" default:"200ms"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`
	Tracing        TracerConfig  `yaml:"tracing"`
}

// TracerConfig selects the OpenTelemetry exporter.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter" default:"stdout"` // stdout, noop
}

// DefaultConfigPath returns ~/.config/webble/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "webble", "config.yaml")
}

// Default returns default configuration values
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. A missing file is not an error when optional is set.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && optional:
		default:
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if v := os.Getenv(EnvLibraryPath); v != "" {
		cfg.LibraryPath = v
	}
	cfg.LibraryPath = expandTilde(cfg.LibraryPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0, got %s", c.RequestTimeout)
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan_interval must be > 0, got %s", c.ScanInterval)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be > 0, got %s", c.ConnectTimeout)
	}
	switch c.Tracing.Exporter {
	case "stdout", "noop", "":
	default:
		return fmt.Errorf("tracing.exporter must be \"stdout\" or \"noop\", got %q", c.Tracing.Exporter)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger
}

func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
