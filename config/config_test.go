package config

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Inspection.LanguageLevel != 11 {
		t.Errorf("expected default language level 11, got %d", cfg.Inspection.LanguageLevel)
	}
	if cfg.Inspection.SuggestForEach {
		t.Error("expected suggest_foreach to be off by default")
	}
	if !cfg.Cache.Enabled {
		t.Error("expected the cache to be enabled by default")
	}
	if cfg.Report.Format != "text" {
		t.Errorf("expected default report format 'text', got %q", cfg.Report.Format)
	}
	if !cfg.Watch.Extensions.Contains(".java") {
		t.Errorf("expected .java to be watched, got %v", cfg.Watch.Extensions)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestStringOrSlice_SingleString(t *testing.T) {
	yamlData := `disabled: forEach`

	var config struct {
		Disabled StringOrSlice `yaml:"disabled"`
	}

	if err := yaml.Unmarshal([]byte(yamlData), &config); err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if len(config.Disabled) != 1 || config.Disabled[0] != "forEach" {
		t.Errorf("Expected [forEach], got %v", config.Disabled)
	}
}

func TestStringOrSlice_MultipleStrings(t *testing.T) {
	yamlData := `
disabled:
  - forEach
  - reduce
`
	var config struct {
		Disabled StringOrSlice `yaml:"disabled"`
	}

	if err := yaml.Unmarshal([]byte(yamlData), &config); err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if len(config.Disabled) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(config.Disabled))
	}
	if !config.Disabled.Contains("reduce") || config.Disabled.Contains("sum") {
		t.Errorf("Contains gave the wrong answer for %v", config.Disabled)
	}
}

func TestEngineOptions(t *testing.T) {
	yamlData := `
inspection:
  suggest_foreach: true
  language_level: 9
  disabled: [joining]
  qualify_names: true
`
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(yamlData), cfg); err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	opts := cfg.EngineOptions()
	if !opts.SuggestForEach || opts.ReplaceTrivialForEach {
		t.Errorf("forEach options = %v, %v", opts.SuggestForEach, opts.ReplaceTrivialForEach)
	}
	if opts.LanguageLevel != 9 {
		t.Errorf("expected language level 9, got %d", opts.LanguageLevel)
	}
	if len(opts.Disabled) != 1 || opts.Disabled[0] != "joining" {
		t.Errorf("expected [joining], got %v", opts.Disabled)
	}
	if !opts.QualifyNames {
		t.Error("expected qualify_names to carry over")
	}

	// the options must not share the config's slice
	opts.Disabled[0] = "sum"
	if cfg.Inspection.Disabled[0] != "joining" {
		t.Error("EngineOptions aliased the disabled list")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"old language level", func(c *Config) { c.Inspection.LanguageLevel = 7 }, "inspection.language_level"},
		{"unknown strategy", func(c *Config) { c.Inspection.Disabled = StringOrSlice{"loop"} }, "inspection.disabled: loop"},
		{"known strategy", func(c *Config) { c.Inspection.Disabled = StringOrSlice{"forEach", "find"} }, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad report format", func(c *Config) { c.Report.Format = "pdf" }, "report.format: pdf"},
		{"gzip to stdout", func(c *Config) { c.Report.Gzip = true }, "report.gzip"},
		{"gzip to file", func(c *Config) { c.Report.Gzip = true; c.Report.Output = "r.md.gz" }, ""},
		{"bad locale", func(c *Config) { c.Report.Locale = "not a locale" }, "report.locale"},
		{"extension without dot", func(c *Config) { c.Watch.Extensions = StringOrSlice{"java"} }, "watch.extensions"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"cache without path", func(c *Config) { c.Cache.Path = "" }, "cache.path"},
		{"disabled cache without path", func(c *Config) { c.Cache.Path = ""; c.Cache.Enabled = false }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected an error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Workers = -2
	cfg.Report.Format = "pdf"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := strings.Count(err.Error(), "\n  - "); got != 2 {
		t.Errorf("expected 2 problems, got %d in %q", got, err.Error())
	}
}

func TestWarnings(t *testing.T) {
	cfg := Defaults()
	if w := Warnings(cfg); len(w) != 0 {
		t.Errorf("unexpected warnings for defaults: %v", w)
	}

	cfg.Inspection.ReplaceTrivialForEach = true
	w := Warnings(cfg)
	if len(w) != 1 || !strings.Contains(w[0], "replace_trivial_foreach") {
		t.Errorf("expected a replace_trivial_foreach warning, got %v", w)
	}
}
