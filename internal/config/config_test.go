package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Pipeline.MaxArchiveBytes != 512*1024*1024 {
		t.Errorf("max_archive_bytes = %d", cfg.Pipeline.MaxArchiveBytes)
	}
	if cfg.Pipeline.PageSize != 500 || cfg.Pipeline.ChunkLines != 20000 {
		t.Errorf("pipeline defaults = %+v", cfg.Pipeline)
	}
	if !cfg.Advanced.EnableCompression || cfg.Advanced.SessionTimeoutMinutes != 30 {
		t.Errorf("advanced defaults = %+v", cfg.Advanced)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
  bind_address: "0.0.0.0"
pipeline:
  default_year: 2019
  default_timezone_offset_minutes: -480
  grammars:
    - syslog
    - jsonline
advanced:
  enable_request_logging: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.BindAddress != "0.0.0.0" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.GetServerAddr() != "0.0.0.0:9090" {
		t.Errorf("addr = %s", cfg.GetServerAddr())
	}
	// Unset keys keep their defaults.
	if cfg.Pipeline.PageSize != 500 {
		t.Errorf("page_size = %d, want default 500", cfg.Pipeline.PageSize)
	}
	if len(cfg.Pipeline.Grammars) != 2 || cfg.Pipeline.Grammars[0] != "syslog" {
		t.Errorf("grammars = %v", cfg.Pipeline.Grammars)
	}
	if cfg.Advanced.EnableRequestLogging {
		t.Error("enable_request_logging should be overridden to false")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port out of range", "server:\n  port: 70000\n"},
		{"zero page size", "pipeline:\n  page_size: 0\n"},
		{"negative archive cap", "pipeline:\n  max_archive_bytes: -1\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDefaultLocation(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DefaultLocation() != time.UTC {
		t.Error("zero offset should map to UTC")
	}

	cfg.Pipeline.DefaultTimezoneOffsetMinutes = 330
	loc := cfg.DefaultLocation()
	ref := time.Date(2023, 5, 1, 10, 0, 0, 0, loc)
	if ref.UTC().Hour() != 4 || ref.UTC().Minute() != 30 {
		t.Errorf("offset not applied: %v", ref.UTC())
	}

	cfg.Pipeline.DefaultTimezoneOffsetMinutes = -480
	name := cfg.DefaultLocation().String()
	if name != "UTC-08:00" {
		t.Errorf("zone name = %s", name)
	}
}

func TestEffectiveDefaultYear(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.EffectiveDefaultYear(); got != time.Now().Year() {
		t.Errorf("unset year = %d", got)
	}
	cfg.Pipeline.DefaultYear = 2019
	if got := cfg.EffectiveDefaultYear(); got != 2019 {
		t.Errorf("year = %d", got)
	}
}
