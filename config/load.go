package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sambeau/streamline/pkg/engine"
	jerrors "github.com/sambeau/streamline/pkg/java/errors"
)

// ErrNoConfig is returned by LoadWithPath when no path is given and none
// of the default locations holds a file. Callers fall back to Defaults().
var ErrNoConfig = errors.New("no config file found (tried STREAMLINE_CONFIG, streamline.yaml, ~/.config/streamline/streamline.yaml)")

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadOrDefault is Load, but returns Defaults() when no config file exists.
func LoadOrDefault(configPath string, getenv func(string) string) (*Config, error) {
	cfg, err := Load(configPath, getenv)
	if errors.Is(err, ErrNoConfig) {
		return Defaults(), nil
	}
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.BaseDir = baseDir

	// Resolve relative paths against the config directory
	if cfg.Cache.Path != "" && !filepath.IsAbs(cfg.Cache.Path) {
		cfg.Cache.Path = filepath.Join(baseDir, cfg.Cache.Path)
	}
	if cfg.Report.Output != "" && !filepath.IsAbs(cfg.Report.Output) {
		cfg.Report.Output = filepath.Join(baseDir, cfg.Report.Output)
	}
	if o := cfg.Logging.Output; o != "" && o != "stderr" && o != "stdout" && !filepath.IsAbs(o) {
		cfg.Logging.Output = filepath.Join(baseDir, o)
	}

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > STREAMLINE_CONFIG env > ./streamline.yaml > ~/.config/streamline/streamline.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("STREAMLINE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("STREAMLINE_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("streamline.yaml"); err == nil {
		return "streamline.yaml", nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "streamline", "streamline.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", ErrNoConfig
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

var reportFormats = map[string]bool{"text": true, "table": true, "markdown": true, "html": true, "json": true}

// Validate checks the configuration for errors. All problems are reported
// together.
func Validate(cfg *Config) error {
	var errs []string
	invalid := func(key string, value any, hint string) {
		e := jerrors.New("CONFIG-0001", map[string]any{"Key": key, "Value": value, "Hint": hint})
		errs = append(errs, e.Message+" ("+strings.Join(e.Hints, "; ")+")")
	}

	if l := cfg.Inspection.LanguageLevel; l < 8 {
		invalid("inspection.language_level", l, "streams need Java 8 or later")
	}
	known := map[string]bool{}
	for _, s := range engine.Strategies() {
		known[s.Name] = true
	}
	for _, d := range cfg.Inspection.Disabled {
		if !known[d] {
			invalid("inspection.disabled", d, "run `streamline describe` for the strategy names")
		}
	}

	if err := cfg.Logging.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if cfg.Cache.Enabled && cfg.Cache.Path == "" {
		invalid("cache.path", `""`, "set a path or disable the cache")
	}

	if !reportFormats[cfg.Report.Format] {
		invalid("report.format", cfg.Report.Format, "must be text, table, markdown, html or json")
	}
	if cfg.Report.Gzip && cfg.Report.Output == "" {
		invalid("report.gzip", true, "gzip needs report.output")
	}
	if cfg.Report.Locale != "" {
		if _, err := language.Parse(cfg.Report.Locale); err != nil {
			invalid("report.locale", cfg.Report.Locale, "use a BCP 47 tag such as en or de-CH")
		}
	}

	for _, ext := range cfg.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			invalid("watch.extensions", ext, "extensions start with a dot")
		}
	}
	if cfg.Watch.Debounce < 0 {
		invalid("watch.debounce", cfg.Watch.Debounce, "must not be negative")
	}

	if cfg.Workers < 0 {
		invalid("workers", cfg.Workers, "use 0 for one per CPU")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Warnings returns non-fatal configuration issues that should be reported to the user.
func Warnings(cfg *Config) []string {
	var warnings []string

	if cfg.Inspection.ReplaceTrivialForEach && !cfg.Inspection.SuggestForEach {
		warnings = append(warnings, "inspection.replace_trivial_foreach has no effect without inspection.suggest_foreach")
	}
	if len(cfg.Inspection.Disabled) == len(engine.Strategies()) {
		warnings = append(warnings, "every strategy is disabled - no loop will be reported")
	}
	if cfg.Report.Output == "" && cfg.Report.Format == "html" {
		warnings = append(warnings, "report.format html writes a full page to stdout")
	}

	return warnings
}
