// Package config provides YAML-based configuration for the log inspector
// backend. All settings have working defaults so the server runs with no
// config file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                int      `yaml:"port"`
	BindAddress         string   `yaml:"bind_address"`
	EnableCORS          bool     `yaml:"enable_cors"`
	AllowOrigins        []string `yaml:"allow_origins"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
	BodyLimit           string   `yaml:"body_limit"`
}

// PipelineConfig contains the knobs consumed by the ingestion pipeline.
type PipelineConfig struct {
	// MaxArchiveBytes caps the total decompressed size of a zip archive.
	MaxArchiveBytes int64 `yaml:"max_archive_bytes"`
	// DefaultTimezoneOffsetMinutes resolves timestamps that carry no zone.
	// Zero means treat as UTC.
	DefaultTimezoneOffsetMinutes int `yaml:"default_timezone_offset_minutes"`
	// DefaultYear resolves timestamps that carry no year. Zero means the
	// year current at load time.
	DefaultYear int `yaml:"default_year"`
	// PageSize is the default query window returned to the UI.
	PageSize int `yaml:"page_size"`
	// ChunkLines is how many logical lines are parsed between progress
	// and cancellation checks.
	ChunkLines int `yaml:"chunk_lines"`
	// Grammars is the ordered active grammar list, most specific first.
	// Unknown names are ignored; empty means all built-in grammars in
	// their default order.
	Grammars []string `yaml:"grammars"`
}

// AdvancedConfig contains tuning options.
type AdvancedConfig struct {
	EnableRequestLogging   bool `yaml:"enable_request_logging"`
	EnableCompression      bool `yaml:"enable_compression"`
	CompressionLevel       int  `yaml:"compression_level"`
	SessionTimeoutMinutes  int  `yaml:"session_timeout_minutes"`
	CleanupIntervalMinutes int  `yaml:"cleanup_interval_minutes"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                8080,
			BindAddress:         "127.0.0.1",
			EnableCORS:          true,
			AllowOrigins:        []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			ReadTimeoutSeconds:  60,
			WriteTimeoutSeconds: 60,
			IdleTimeoutSeconds:  120,
			BodyLimit:           "256M",
		},
		Pipeline: PipelineConfig{
			MaxArchiveBytes:              512 * 1024 * 1024,
			DefaultTimezoneOffsetMinutes: 0,
			DefaultYear:                  0,
			PageSize:                     500,
			ChunkLines:                   20000,
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging:   true,
			EnableCompression:      true,
			CompressionLevel:       5,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
		},
	}
}

// LoadConfig reads a YAML config file, filling in defaults for absent
// settings. A missing file is not an error; defaults are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Pipeline.MaxArchiveBytes <= 0 {
		return fmt.Errorf("pipeline.max_archive_bytes must be positive")
	}
	if c.Pipeline.PageSize <= 0 {
		return fmt.Errorf("pipeline.page_size must be positive")
	}
	if c.Pipeline.ChunkLines <= 0 {
		return fmt.Errorf("pipeline.chunk_lines must be positive")
	}
	return nil
}

// GetServerAddr returns the host:port the server listens on.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// DefaultLocation returns the time.Location used for timestamps that
// carry no zone information.
func (c *Config) DefaultLocation() *time.Location {
	if c.Pipeline.DefaultTimezoneOffsetMinutes == 0 {
		return time.UTC
	}
	offset := c.Pipeline.DefaultTimezoneOffsetMinutes
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, offset/60, offset%60)
	return time.FixedZone(name, c.Pipeline.DefaultTimezoneOffsetMinutes*60)
}

// EffectiveDefaultYear returns the configured default year, or the year
// current at load time when unset.
func (c *Config) EffectiveDefaultYear() int {
	if c.Pipeline.DefaultYear != 0 {
		return c.Pipeline.DefaultYear
	}
	return time.Now().Year()
}
