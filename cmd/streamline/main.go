package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/sambeau/streamline/config"
	"github.com/sambeau/streamline/pkg/cache"
	"github.com/sambeau/streamline/pkg/engine"
	"github.com/sambeau/streamline/pkg/logger"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

// exitError carries a process exit code. An empty message prints nothing.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

var (
	errFindings   = &exitError{code: 1}
	errFileErrors = &exitError{code: 2}
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv)
	cancel()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode maps err to 0 (clean), 1 (warnings found) or 2 (errors),
// printing any message to stderr.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintf(stderr, "error: %s\n", ee.msg)
		}
		return ee.code
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 2
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		printUsage(stdout)
		return nil
	}

	switch args[0] {
	case "check":
		return checkCommand(ctx, args[1:], stdout, stderr, getenv)
	case "fix":
		return fixCommand(ctx, args[1:], stdout, stderr, getenv)
	case "watch":
		return watchCommand(ctx, args[1:], stdout, stderr, getenv)
	case "repl":
		return replCommand(args[1:], stdin, stdout, stderr, getenv)
	case "describe":
		return describeCommand(args[1:], stdout)
	case "cache":
		return cacheCommand(args[1:], stdout, stderr, getenv)
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	case "-V", "--version", "version":
		fmt.Fprintf(stdout, "streamline version %s\n", Version)
		return nil
	}
	printUsage(stderr)
	return &exitError{code: 2, msg: fmt.Sprintf("unknown command %q", args[0])}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `streamline - find Java loops that can become Stream API pipelines, version %s

Usage:
  streamline check [options] <file|dir>...
  streamline fix [-w] [options] <file>...
  streamline watch [options] <dir>...
  streamline repl [options]
  streamline describe [--json]
  streamline cache stats|prune|clear [options]

Commands:
  check                 Report loops that can be migrated
  fix                   Print the migrated source, or rewrite files with -w
  watch                 Re-check .java files as they change
  repl                  Try loops interactively
  describe              List the terminal strategies
  cache                 Inspect or empty the result cache

Common Options:
  -c, --config <file>   Config file (default: $STREAMLINE_CONFIG or ./streamline.yaml)
  -l, --level <n>       Java language level of the sources
  --suggest-foreach     Also report loops that only become forEach()
  --no-color            Disable coloured output

Check Options:
  -f, --format <name>   text, table, markdown, html or json
  -o, --output <file>   Write the report to a file
  --gzip                Compress the report file
  -v, --verbose         Show replacements under each finding
  -j, --jobs <n>        Files analysed at once
  --no-cache            Do not read or write the result cache

Exit status is 0 when nothing was found, 1 when warnings were reported and
2 when a file could not be read or parsed.

Examples:
  streamline check src/                       Check every .java file under src/
  streamline check -f markdown -o loops.md .  Write a Markdown report
  streamline fix Foo.java                     Print Foo.java with loops migrated
  streamline fix -w src/main/java/Foo.java    Migrate loops in place
  streamline watch src/                       Re-check files as they are saved
`, Version)
}

// commonFlags are accepted by every command that analyses code.
type commonFlags struct {
	configPath     string
	level          int
	suggestForEach bool
	noColor        bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "c", "", "Config file")
	fs.StringVar(&c.configPath, "config", "", "Config file")
	fs.IntVar(&c.level, "l", 0, "Java language level")
	fs.IntVar(&c.level, "level", 0, "Java language level")
	fs.BoolVar(&c.suggestForEach, "suggest-foreach", false, "Also report forEach() loops")
	fs.BoolVar(&c.noColor, "no-color", false, "Disable coloured output")
}

// load reads the configuration and applies the flag overrides.
func (c *commonFlags) load(getenv func(string) string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.configPath, getenv)
	if err != nil {
		return nil, err
	}
	if c.level != 0 {
		cfg.Inspection.LanguageLevel = c.level
	}
	if c.suggestForEach {
		cfg.Inspection.SuggestForEach = true
	}
	if c.noColor || getenv("NO_COLOR") != "" {
		cfg.Logging.NoColor = true
		color.NoColor = true
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newAnalyzer builds the analyzer for cfg, with the result cache unless
// it is disabled. The returned cleanup closes the cache and the log.
func newAnalyzer(cfg *config.Config, useCache bool, stderr io.Writer) (*engine.Analyzer, *logger.Logger, func()) {
	log := logger.New(cfg.Logging)
	for _, w := range config.Warnings(cfg) {
		log.Warn(w)
	}
	a := engine.NewAnalyzer(cfg.EngineOptions(), log).WithJobs(cfg.Workers)
	cleanup := func() { log.Close() }
	if !useCache || !cfg.Cache.Enabled {
		return a, log, cleanup
	}
	c, err := cache.Open(cfg.Cache.Path, log)
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
		return a, log, cleanup
	}
	return a.WithCache(c), log, func() {
		if _, err := c.Prune(cache.DefaultMaxEntries); err != nil {
			log.Warn("cache prune failed", logger.Fields(logger.FieldReason, err.Error()))
		}
		c.Close()
		log.Close()
	}
}
