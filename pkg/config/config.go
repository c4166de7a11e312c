// Package config loads modelfinder settings from .modelfinder.yaml, the
// environment and .env files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Output formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{FormatText, FormatTable, FormatJSON, FormatYAML}

// Sentinel validation errors.
var (
	ErrInvalidWorkers     = errors.New("discovery workers must not be negative")
	ErrInvalidCacheSize   = errors.New("discovery cache size must not be negative")
	ErrInvalidExtension   = errors.New("discovery extension must start with a dot")
	ErrInvalidBaseModel   = errors.New("discovery base model must not be empty")
	ErrInvalidFormat      = errors.New("unsupported output format")
	ErrInvalidLogLevel    = errors.New("invalid logging level")
	ErrInvalidSampleRatio = errors.New("telemetry sample ratio must be within [0, 1]")
	ErrSchemaViolation    = errors.New("config file does not match schema")
)

// Config holds all modelfinder configuration.
type Config struct {
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
}

// DiscoveryConfig holds model discovery settings.
type DiscoveryConfig struct {
	Directory  string   `mapstructure:"directory"`
	BaseModel  string   `mapstructure:"base_model"`
	Ignore     []string `mapstructure:"ignore"`
	Focus      []string `mapstructure:"focus"`
	Extensions []string `mapstructure:"extensions"`
	TypePaths  []string `mapstructure:"type_paths"`
	Workers    int      `mapstructure:"workers"`
	CacheSize  int      `mapstructure:"cache_size"`
	Recursive  bool     `mapstructure:"recursive"`
	Strict     bool     `mapstructure:"strict"`
}

// OutputConfig holds report rendering settings.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// Neo4jConfig holds graph export settings.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Discovery.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Discovery.Workers)
	}

	if c.Discovery.CacheSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.Discovery.CacheSize)
	}

	if strings.TrimSpace(c.Discovery.BaseModel) == "" {
		return ErrInvalidBaseModel
	}

	for _, ext := range c.Discovery.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
		}
	}

	if !slices.Contains(Formats, c.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}
