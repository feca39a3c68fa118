package config

import (
	"time"

	"github.com/sambeau/streamline/pkg/engine"
	"github.com/sambeau/streamline/pkg/logger"
)

// Config represents the complete streamline configuration
type Config struct {
	BaseDir    string           `yaml:"-"` // Directory containing config file, for resolving relative paths
	Inspection InspectionConfig `yaml:"inspection"`
	Logging    logger.Config    `yaml:"logging"`
	Cache      CacheConfig      `yaml:"cache"`
	Report     ReportConfig     `yaml:"report"`
	Watch      WatchConfig      `yaml:"watch"`
	Workers    int              `yaml:"workers"` // Files analysed at once (0 = one per CPU)
}

// InspectionConfig holds the options of the loop inspection
type InspectionConfig struct {
	SuggestForEach        bool          `yaml:"suggest_foreach"`         // Report loops that only become forEach()
	ReplaceTrivialForEach bool          `yaml:"replace_trivial_foreach"` // Also report loops whose replacement is barely shorter
	LanguageLevel         int           `yaml:"language_level"`          // Java feature level of the analysed code (default: 11)
	Disabled              StringOrSlice `yaml:"disabled"`                // Terminal strategies to skip
	QualifyNames          bool          `yaml:"qualify_names"`           // Write java.util.stream.Collectors instead of importing it
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"` // Reuse results for unchanged files (default: true)
	Path    string `yaml:"path"`    // SQLite database file (default: ".streamline-cache.db")
}

// ReportConfig holds report output settings
type ReportConfig struct {
	Format string `yaml:"format"` // text, table, markdown, html or json (default: "text")
	Output string `yaml:"output"` // File to write, or empty for stdout
	Gzip   bool   `yaml:"gzip"`   // Compress the written file
	Locale string `yaml:"locale"` // BCP 47 tag for numbers in the summary (default: "en")
}

// WatchConfig holds watch mode settings
type WatchConfig struct {
	Extensions StringOrSlice `yaml:"extensions"` // File extensions to re-check (default: .java)
	Debounce   time.Duration `yaml:"debounce"`   // Quiet period before re-checking (default: 200ms)
}

// StringOrSlice supports YAML fields that can be either a string or a slice of strings
type StringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler to handle both string and []string
func (s *StringOrSlice) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}

	var slice []string
	if err := unmarshal(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

// Contains checks if the slice contains the given string
func (s StringOrSlice) Contains(str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Inspection: InspectionConfig{
			LanguageLevel: 11,
		},
		Logging: logger.Config{
			Level:  "warn",
			Format: "console",
			Output: "stderr",
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    ".streamline-cache.db",
		},
		Report: ReportConfig{
			Format: "text",
			Locale: "en",
		},
		Watch: WatchConfig{
			Extensions: StringOrSlice{".java"},
			Debounce:   200 * time.Millisecond,
		},
	}
}

// EngineOptions converts the inspection settings to engine options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		SuggestForEach:        c.Inspection.SuggestForEach,
		ReplaceTrivialForEach: c.Inspection.ReplaceTrivialForEach,
		LanguageLevel:         c.Inspection.LanguageLevel,
		Disabled:              append([]string(nil), c.Inspection.Disabled...),
		QualifyNames:          c.Inspection.QualifyNames,
	}
}
