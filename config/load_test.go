package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "TEST_LEVEL":
			return "debug"
		case "TEST_DIR":
			return "/tmp/cache"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "level: ${TEST_LEVEL}",
			expected: "level: debug",
		},
		{
			name:     "with default (env set)",
			input:    "level: ${TEST_LEVEL:-warn}",
			expected: "level: debug",
		},
		{
			name:     "with default (env not set)",
			input:    "level: ${UNSET_VAR:-warn}",
			expected: "level: warn",
		},
		{
			name:     "multiple substitutions",
			input:    "path: ${TEST_DIR}/${TEST_LEVEL}.db",
			expected: "path: /tmp/cache/debug.db",
		},
		{
			name:     "unset without default",
			input:    "path: ${UNSET_VAR}",
			expected: "path: ",
		},
		{
			name:     "no substitution needed",
			input:    "static: value",
			expected: "static: value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "streamline.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return dir, configPath
}

func noEnv(string) string { return "" }

func TestLoad(t *testing.T) {
	dir, configPath := writeConfig(t, `
inspection:
  suggest_foreach: true
  language_level: 17
  disabled: forEach

logging:
  level: debug
  format: json

cache:
  path: build/cache.db

report:
  format: markdown
  output: reports/loops.md.gz
  gzip: true

watch:
  extensions: [.java, .jav]
  debounce: 1s

workers: 8
`)

	cfg, err := Load(configPath, noEnv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.Inspection.SuggestForEach || cfg.Inspection.LanguageLevel != 17 {
		t.Errorf("inspection = %+v", cfg.Inspection)
	}
	if !cfg.Inspection.Disabled.Contains("forEach") {
		t.Errorf("expected forEach disabled, got %v", cfg.Inspection.Disabled)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// unset keys keep their defaults
	if cfg.Logging.Output != "stderr" || !cfg.Cache.Enabled {
		t.Errorf("defaults lost: output %q, cache %v", cfg.Logging.Output, cfg.Cache.Enabled)
	}

	// relative paths are resolved against the config directory
	if want := filepath.Join(dir, "build", "cache.db"); cfg.Cache.Path != want {
		t.Errorf("expected cache path %q, got %q", want, cfg.Cache.Path)
	}
	if want := filepath.Join(dir, "reports", "loops.md.gz"); cfg.Report.Output != want {
		t.Errorf("expected report output %q, got %q", want, cfg.Report.Output)
	}
	if cfg.BaseDir != dir {
		t.Errorf("expected base dir %q, got %q", dir, cfg.BaseDir)
	}

	if len(cfg.Watch.Extensions) != 2 || cfg.Watch.Debounce != time.Second {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Workers)
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	_, configPath := writeConfig(t, `
inspection:
  language_level: ${JAVA_LEVEL:-11}
logging:
  level: ${STREAMLINE_LOG:-warn}
`)

	getenv := func(key string) string {
		switch key {
		case "JAVA_LEVEL":
			return "21"
		case "STREAMLINE_LOG":
			return "info"
		}
		return ""
	}

	cfg, err := Load(configPath, getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Inspection.LanguageLevel != 21 || cfg.Logging.Level != "info" {
		t.Errorf("got level %d and log level %q", cfg.Inspection.LanguageLevel, cfg.Logging.Level)
	}

	cfg, err = Load(configPath, noEnv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Inspection.LanguageLevel != 11 || cfg.Logging.Level != "warn" {
		t.Errorf("defaults not used: level %d and log level %q", cfg.Inspection.LanguageLevel, cfg.Logging.Level)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "inspection: [unclosed"},
		{"wrong type", "workers: many"},
		{"failed validation", "report:\n  format: pdf\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, configPath := writeConfig(t, tt.content)
			if _, err := Load(configPath, noEnv); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadWithPathFromEnv(t *testing.T) {
	_, configPath := writeConfig(t, "workers: 3\n")
	getenv := func(key string) string {
		if key == "STREAMLINE_CONFIG" {
			return configPath
		}
		return ""
	}

	cfg, path, err := LoadWithPath("", getenv)
	if err != nil {
		t.Fatalf("LoadWithPath failed: %v", err)
	}
	if path != configPath || cfg.Workers != 3 {
		t.Errorf("got path %q and workers %d", path, cfg.Workers)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnv); err == nil {
		t.Error("expected an error for a missing explicit path")
	}

	getenv := func(key string) string {
		if key == "STREAMLINE_CONFIG" {
			return "/does/not/exist.yaml"
		}
		return ""
	}
	if _, err := Load("", getenv); err == nil || errors.Is(err, ErrNoConfig) {
		t.Errorf("expected a not-found error for STREAMLINE_CONFIG, got %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadOrDefault("", noEnv)
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.Report.Format != "text" {
		t.Errorf("expected defaults, got %+v", cfg.Report)
	}
}
