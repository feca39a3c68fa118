package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/sambeau/streamline/config"
	"github.com/sambeau/streamline/pkg/cache"
	"github.com/sambeau/streamline/pkg/engine"
	jerrors "github.com/sambeau/streamline/pkg/java/errors"
	"github.com/sambeau/streamline/pkg/logger"
	"github.com/sambeau/streamline/pkg/repl"
	"github.com/sambeau/streamline/pkg/report"
	"github.com/sambeau/streamline/pkg/watch"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: streamline %s [options] ...\n\nRun 'streamline --help' for the full option list.\n", name)
	}
	return fs
}

// parseError turns a flag parsing failure into an exit status; -h is not
// a failure.
func parseError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return usageError("%v", err)
}

// usageError reports bad command-line input with exit status 2.
func usageError(format string, args ...any) error {
	return &exitError{code: 2, msg: fmt.Sprintf(format, args...)}
}

// checkCommand implements 'streamline check'
func checkCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := newFlagSet("check", stderr)
	var common commonFlags
	common.register(fs)
	var (
		format  string
		output  string
		gzip    bool
		verbose bool
		jobs    int
		noCache bool
	)
	fs.StringVar(&format, "f", "", "Report format")
	fs.StringVar(&format, "format", "", "Report format")
	fs.StringVar(&output, "o", "", "Report file")
	fs.StringVar(&output, "output", "", "Report file")
	fs.BoolVar(&gzip, "gzip", false, "Compress the report file")
	fs.BoolVar(&verbose, "v", false, "Show replacements")
	fs.BoolVar(&verbose, "verbose", false, "Show replacements")
	fs.IntVar(&jobs, "j", 0, "Files analysed at once")
	fs.IntVar(&jobs, "jobs", 0, "Files analysed at once")
	fs.BoolVar(&noCache, "no-cache", false, "Bypass the result cache")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	if fs.NArg() == 0 {
		return usageError("check needs at least one file or directory")
	}

	cfg, err := common.load(getenv)
	if err != nil {
		return err
	}
	if format != "" {
		cfg.Report.Format = format
	}
	if output != "" {
		cfg.Report.Output = output
	}
	if gzip {
		cfg.Report.Gzip = true
	}
	if jobs > 0 {
		cfg.Workers = jobs
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	files, err := collectFiles(fs.Args(), cfg.Watch.Extensions)
	if err != nil {
		return err
	}

	a, log, cleanup := newAnalyzer(cfg, !noCache, stderr)
	defer cleanup()
	log.Info("checking", logger.Fields("files", len(files)))

	results, err := a.AnalyzeFiles(ctx, files)
	if err != nil {
		return err
	}

	r := report.New(report.Options{
		Format:  cfg.Report.Format,
		Color:   !cfg.Logging.NoColor && cfg.Report.Output == "",
		Verbose: verbose,
		Locale:  cfg.Report.Locale,
	})
	if cfg.Report.Output != "" {
		err = r.WriteFile(cfg.Report.Output, cfg.Report.Gzip, results)
	} else {
		err = r.Write(stdout, results)
	}
	if err != nil {
		return err
	}

	s := report.Summarize(results)
	switch {
	case s.Errors > 0:
		return errFileErrors
	case s.Warnings > 0:
		return errFindings
	}
	return nil
}

// fixCommand implements 'streamline fix'
func fixCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := newFlagSet("fix", stderr)
	var common commonFlags
	common.register(fs)
	write := fs.Bool("w", false, "Write result to source file instead of stdout")
	list := fs.Bool("list", false, "List files that would change")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	if fs.NArg() == 0 {
		return usageError("fix needs at least one file")
	}

	cfg, err := common.load(getenv)
	if err != nil {
		return err
	}
	files, err := collectFiles(fs.Args(), cfg.Watch.Extensions)
	if err != nil {
		return err
	}
	a, log, cleanup := newAnalyzer(cfg, false, stderr)
	defer cleanup()

	failed := false
	for _, filename := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fixFile(a, filename, *write, *list, stdout); err != nil {
			fmt.Fprintln(stderr, err)
			failed = true
			continue
		}
		log.Debug("fixed", logger.Fields(logger.FieldFile, filename))
	}
	if failed {
		return errFileErrors
	}
	return nil
}

// fixFile migrates the loops of one file
func fixFile(a *engine.Analyzer, filename string, write, list bool, stdout io.Writer) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return jerrors.New("IO-0001", map[string]any{"Path": filename, "Err": err})
	}

	fixed, err := a.Fix(filename, content)
	if err != nil {
		var se *jerrors.SourceError
		if errors.As(err, &se) {
			return se.WithFile(filename)
		}
		return fmt.Errorf("%s: %w", filename, err)
	}
	changed := fixed != string(content)

	if list {
		if changed {
			fmt.Fprintln(stdout, filename)
		}
		return nil
	}

	if write {
		if changed {
			info, err := os.Stat(filename)
			if err != nil {
				return jerrors.New("IO-0002", map[string]any{"Path": filename, "Err": err})
			}
			if err := os.WriteFile(filename, []byte(fixed), info.Mode().Perm()); err != nil {
				return jerrors.New("IO-0002", map[string]any{"Path": filename, "Err": err})
			}
		}
		return nil
	}

	io.WriteString(stdout, fixed)
	return nil
}

// watchCommand implements 'streamline watch'
func watchCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := newFlagSet("watch", stderr)
	var common commonFlags
	common.register(fs)
	verbose := fs.Bool("v", false, "Show replacements")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	dirs := fs.Args()
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	cfg, err := common.load(getenv)
	if err != nil {
		return err
	}
	a, log, cleanup := newAnalyzer(cfg, true, stderr)
	defer cleanup()

	r := report.New(report.Options{Format: "text", Color: !cfg.Logging.NoColor, Verbose: *verbose, Locale: cfg.Report.Locale})
	handle := func(ctx context.Context, paths []string) {
		var existing []string
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				existing = append(existing, p)
			}
		}
		if len(existing) == 0 {
			return
		}
		results, err := a.AnalyzeFiles(ctx, existing)
		if err != nil {
			return
		}
		if err := r.Write(stdout, results); err != nil {
			log.Error("report failed", logger.Fields(logger.FieldReason, err.Error()))
		}
	}

	w, err := watch.New(dirs, watch.Options{Extensions: cfg.Watch.Extensions, Debounce: cfg.Watch.Debounce}, handle, log)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(stdout, "watching %s (Ctrl+C to stop)\n", strings.Join(dirs, ", "))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// replCommand implements 'streamline repl'
func replCommand(args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := newFlagSet("repl", stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	cfg, err := common.load(getenv)
	if err != nil {
		return err
	}
	a, _, cleanup := newAnalyzer(cfg, false, stderr)
	defer cleanup()
	repl.Start(stdin, stdout, Version, a)
	return nil
}

// describeCommand implements 'streamline describe'
func describeCommand(args []string, stdout io.Writer) error {
	jsonOutput := false
	for _, arg := range args {
		if arg == "--json" {
			jsonOutput = true
		}
	}

	strategies := engine.Strategies()
	if jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(strategies)
	}

	table := tablewriter.NewTable(stdout, tablewriter.WithHeaderAutoFormat(tw.Off))
	table.Header([]string{"Strategy", "Description"})
	for _, s := range strategies {
		table.Append([]string{s.Name, s.Description})
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "\nStrategies are tried in this order; disable one with inspection.disabled.")
	return nil
}

// cacheCommand implements 'streamline cache'
func cacheCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := newFlagSet("cache", stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	if fs.NArg() != 1 {
		return usageError("cache needs one of stats, prune or clear")
	}
	cfg, err := common.load(getenv)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging)
	defer log.Close()
	c, err := cache.Open(cfg.Cache.Path, log)
	if err != nil {
		return err
	}
	defer c.Close()

	switch fs.Arg(0) {
	case "stats":
		s, err := c.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %d entries\n", c.Path(), s.Entries)
	case "prune":
		n, err := c.Prune(cache.DefaultMaxEntries)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "removed %d entries\n", n)
	case "clear":
		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "cache cleared")
	default:
		return usageError("unknown cache command %q", fs.Arg(0))
	}
	return nil
}

// collectFiles expands directories into the files below them with one of
// exts, sorted. Named files are kept whatever their extension.
func collectFiles(paths []string, exts []string) ([]string, error) {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, jerrors.New("IO-0001", map[string]any{"Path": root, "Err": err})
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if want[strings.ToLower(filepath.Ext(path))] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, jerrors.New("IO-0001", map[string]any{"Path": root, "Err": err})
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}
