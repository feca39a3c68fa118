// Package logger wraps zerolog with the small surface streamline needs:
// leveled messages with structured fields and per-component child loggers.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Standard field keys.
const (
	FieldComponent = "component"
	FieldFile      = "file"
	FieldLine      = "line"
	FieldTerminal  = "terminal"
	FieldReason    = "reason"
	FieldDuration  = "duration_ms"
)

// Config selects level, output format and destination.
type Config struct {
	Level   string `yaml:"level"`  // trace, debug, info, warn, error
	Format  string `yaml:"format"` // console or json
	Output  string `yaml:"output"` // stderr, stdout or a file path
	NoColor bool   `yaml:"no_color"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "warn"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate checks level and format names.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil || c.Level == "" {
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error (got: %s)", c.Level)
	}
	switch c.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got: %s)", c.Format)
	}
	return nil
}

// Logger wraps zerolog.Logger.
type Logger struct {
	logger zerolog.Logger
	closer io.Closer
}

// New creates a logger from cfg. A file output that cannot be opened falls
// back to stderr.
func New(cfg Config) *Logger {
	cfg.ApplyDefaults()
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.WarnLevel
	}

	var out io.Writer
	var closer io.Closer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		out = os.Stdout
	case "stderr", "":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			out = os.Stderr
		} else {
			out, closer = f, f
		}
	}

	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == "json" {
		zl = zerolog.New(out)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: "15:04:05",
		})
	}
	zl = zl.Level(level).With().Timestamp().Logger()
	return &Logger{logger: zl, closer: closer}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// NewWriter logs JSON lines at the given level to w. Tests use it to
// capture output.
func NewWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{logger: zerolog.New(w).Level(level)}
}

// WithComponent returns a child logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{logger: l.logger.With().Str(FieldComponent, name).Logger()}
}

// WithFields returns a child logger carrying fields on every message.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{logger: l.logger.With().Fields(fields).Logger()}
}

// Zerolog returns the underlying zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.logger }

// Close releases a file output.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) Debug(msg string, fields ...map[string]any) { emit(l.logger.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...map[string]any)  { emit(l.logger.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...map[string]any)  { emit(l.logger.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...map[string]any) { emit(l.logger.Error(), msg, fields) }

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level zerolog.Level) bool {
	return l.logger.GetLevel() <= level
}

func emit(e *zerolog.Event, msg string, fields []map[string]any) {
	for _, f := range fields {
		e = e.Fields(f)
	}
	e.Msg(msg)
}

// Fields builds a field map from alternating keys and values.
//
//	log.Debug("skipped", logger.Fields("line", 12, "reason", "labeled break"))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}
