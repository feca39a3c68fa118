// Package report renders analysis results for people and tools: coloured
// compiler-style lines, terminal tables, Markdown, HTML or JSON.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sambeau/streamline/pkg/engine"
)

// Formats lists the accepted format names.
var Formats = []string{"text", "table", "markdown", "html", "json"}

// Options controls rendering.
type Options struct {
	Format  string // one of Formats; empty means text
	Color   bool   // colour text output
	Verbose bool   // show the replacement under each text finding
	Locale  string // BCP 47 tag for the summary numbers
}

// Summary totals a batch of results.
type Summary struct {
	Files    int `json:"files"`
	Warnings int `json:"warnings"`
	Hints    int `json:"hints"`
	Errors   int `json:"errors"`
}

// Summarize counts findings and failed files.
func Summarize(results []*engine.FileResult) Summary {
	var s Summary
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Files++
		if r.Err != nil || r.Error != "" {
			s.Errors++
			continue
		}
		w := r.Warnings()
		s.Warnings += w
		s.Hints += len(r.Findings) - w
	}
	return s
}

// Reporter writes results in one format.
type Reporter struct {
	opts Options
}

// New creates a reporter.
func New(opts Options) *Reporter {
	if opts.Format == "" {
		opts.Format = "text"
	}
	return &Reporter{opts: opts}
}

// Write renders results to w.
func (r *Reporter) Write(w io.Writer, results []*engine.FileResult) error {
	switch r.opts.Format {
	case "text":
		return r.writeText(w, results)
	case "table":
		return r.writeTable(w, results)
	case "markdown":
		_, err := io.WriteString(w, r.Markdown(results))
		return err
	case "html":
		return r.writeHTML(w, results)
	case "json":
		return r.writeJSON(w, results)
	}
	return fmt.Errorf("unknown report format %q (use %s)", r.opts.Format, strings.Join(Formats, ", "))
}

func (r *Reporter) colorize(text string, attrs ...color.Attribute) string {
	if !r.opts.Color {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

func severity(f engine.Finding) string {
	if f.Warn {
		return "warning"
	}
	return "hint"
}

func (r *Reporter) writeText(w io.Writer, results []*engine.FileResult) error {
	var b strings.Builder
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Error != "" {
			fmt.Fprintf(&b, "%s: %s %s\n", res.File, r.colorize("error:", color.FgRed, color.Bold), res.Error)
			continue
		}
		for _, f := range res.Findings {
			sev := r.colorize(severity(f)+":", color.FgYellow)
			if !f.Warn {
				sev = r.colorize(severity(f)+":", color.FgCyan)
			}
			fmt.Fprintf(&b, "%s:%d:%d: %s %s %s\n", f.File, f.Line, f.Column, sev, f.Message, r.colorize("["+f.Terminal+"]", color.Faint))
			if r.opts.Verbose && f.Replacement != "" {
				for _, line := range strings.Split(f.Replacement, "\n") {
					b.WriteString("    ")
					b.WriteString(r.colorize(line, color.FgGreen))
					b.WriteString("\n")
				}
			}
		}
	}
	b.WriteString(r.SummaryLine(Summarize(results)))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// rows flattens results into file, line, severity, terminal and message
// columns. Failed files get one row carrying the error.
func rows(results []*engine.FileResult) [][]string {
	var out [][]string
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Error != "" {
			out = append(out, []string{res.File, "", "error", "", res.Error})
			continue
		}
		for _, f := range res.Findings {
			out = append(out, []string{f.File, fmt.Sprint(f.Line), severity(f), f.Terminal, f.Message})
		}
	}
	return out
}

var header = []string{"File", "Line", "Severity", "Terminal", "Message"}

func (r *Reporter) writeTable(w io.Writer, results []*engine.FileResult) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(header)
	for _, row := range rows(results) {
		table.Append(row)
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, r.SummaryLine(Summarize(results)))
	return err
}

// Markdown renders a report document: a summary, a findings table and the
// suggested replacements.
func (r *Reporter) Markdown(results []*engine.FileResult) string {
	var b strings.Builder
	b.WriteString("# Loop migration report\n\n")
	b.WriteString(r.SummaryLine(Summarize(results)))
	b.WriteString("\n\n")

	rs := rows(results)
	if len(rs) == 0 {
		b.WriteString("_No loops to migrate_\n")
		return b.String()
	}

	alignment := make([]tw.Align, len(header))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}
	table := tablewriter.NewTable(&b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(header)
	for _, row := range rs {
		for i := range row {
			row[i] = strings.ReplaceAll(row[i], "|", `\|`)
		}
		table.Append(row)
	}
	table.Render()

	first := true
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, f := range res.Findings {
			if f.Replacement == "" {
				continue
			}
			if first {
				b.WriteString("\n## Replacements\n")
				first = false
			}
			fmt.Fprintf(&b, "\n### %s:%d\n\n```java\n%s\n```\n", f.File, f.Line, f.Replacement)
		}
	}
	return b.String()
}

const htmlHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Loop migration report</title>
<style>
body { font-family: sans-serif; max-width: 60em; margin: 2em auto; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.2em 0.5em; text-align: left; }
pre { background: #f6f8fa; padding: 0.5em; }
</style>
</head>
<body>
`

func (r *Reporter) writeHTML(w io.Writer, results []*engine.FileResult) error {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	var body bytes.Buffer
	if err := md.Convert([]byte(r.Markdown(results)), &body); err != nil {
		return fmt.Errorf("rendering html report: %w", err)
	}
	if _, err := io.WriteString(w, htmlHead); err != nil {
		return err
	}
	if _, err := body.WriteTo(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}

type jsonReport struct {
	Summary Summary              `json:"summary"`
	Files   []*engine.FileResult `json:"files"`
}

func (r *Reporter) writeJSON(w io.Writer, results []*engine.FileResult) error {
	files := make([]*engine.FileResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			files = append(files, res)
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{Summary: Summarize(results), Files: files})
}

// SummaryLine renders the totals with the locale's number formatting.
func (r *Reporter) SummaryLine(s Summary) string {
	tag, err := language.Parse(r.opts.Locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	line := p.Sprintf("%d files checked: %d warnings, %d hints, %d errors", s.Files, s.Warnings, s.Hints, s.Errors)
	switch {
	case s.Errors > 0:
		return r.colorize(line, color.FgRed)
	case s.Warnings > 0:
		return r.colorize(line, color.FgYellow)
	}
	return r.colorize(line, color.FgGreen)
}
