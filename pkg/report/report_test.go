package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambeau/streamline/pkg/engine"
)

func sample() []*engine.FileResult {
	return []*engine.FileResult{
		{
			File: "src/A.java",
			Findings: []engine.Finding{
				{
					File: "src/A.java", Line: 8, Column: 9,
					Terminal: "sum", Call: "sum()",
					Message:     "Can be replaced with 'sum()' call",
					Warn:        true,
					Replacement: "int sum = xs.stream().mapToInt(x -> x).sum();",
				},
				{
					File: "src/A.java", Line: 20, Column: 9,
					Terminal: "forEach", Call: "forEach()",
					Message: "Can be replaced with 'forEach()' call",
				},
			},
		},
		{File: "src/B.java"},
		{File: "src/Bad.java", Err: errors.New("boom"), Error: "line 1, column 7: unexpected token"},
		nil,
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{Files: 3, Warnings: 1, Hints: 1, Errors: 1}, Summarize(sample()))
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{}).Write(&buf, sample()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "src/A.java:8:9: warning: Can be replaced with 'sum()' call [sum]", lines[0])
	assert.Equal(t, "src/A.java:20:9: hint: Can be replaced with 'forEach()' call [forEach]", lines[1])
	assert.Equal(t, "src/Bad.java: error: line 1, column 7: unexpected token", lines[2])
	assert.Equal(t, "3 files checked: 1 warnings, 1 hints, 1 errors", lines[3])
}

func TestTextVerbose(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Verbose: true}).Write(&buf, sample()))
	assert.Contains(t, buf.String(), "\n    int sum = xs.stream().mapToInt(x -> x).sum();\n")
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: "table"}).Write(&buf, sample()))
	out := buf.String()
	for _, want := range []string{"File", "Terminal", "src/A.java", "forEach", "Bad.java", "3 files checked"} {
		assert.Contains(t, out, want)
	}
}

func TestMarkdown(t *testing.T) {
	out := New(Options{}).Markdown(sample())
	assert.True(t, strings.HasPrefix(out, "# Loop migration report\n\n3 files checked"))
	assert.Contains(t, out, "| src/A.java")
	assert.Contains(t, out, "## Replacements")
	assert.Contains(t, out, "### src/A.java:8\n\n```java\nint sum = xs.stream().mapToInt(x -> x).sum();\n```")
	// only findings with a replacement get a section
	assert.NotContains(t, out, "### src/A.java:20")

	empty := New(Options{}).Markdown([]*engine.FileResult{{File: "C.java"}})
	assert.Contains(t, empty, "_No loops to migrate_")
	assert.NotContains(t, empty, "|")
}

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: "html"}).Write(&buf, sample()))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<h1>Loop migration report</h1>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, `<code class="language-java">`)
	assert.Contains(t, out, "x -&gt; x")
	assert.True(t, strings.HasSuffix(out, "</html>\n"))
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: "json"}).Write(&buf, sample()))

	var got struct {
		Summary Summary              `json:"summary"`
		Files   []*engine.FileResult `json:"files"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got.Summary.Warnings)
	require.Len(t, got.Files, 3)
	assert.Equal(t, "sum", got.Files[0].Findings[0].Terminal)
	assert.Equal(t, "line 1, column 7: unexpected token", got.Files[2].Error)
}

func TestUnknownFormat(t *testing.T) {
	err := New(Options{Format: "pdf"}).Write(io.Discard, sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf")
}

func TestSummaryLineLocale(t *testing.T) {
	s := Summary{Files: 12345, Warnings: 2}
	assert.Equal(t, "12,345 files checked: 2 warnings, 0 hints, 0 errors", New(Options{Locale: "en"}).SummaryLine(s))
	assert.Equal(t, "12.345 files checked: 2 warnings, 0 hints, 0 errors", New(Options{Locale: "de"}).SummaryLine(s))
	// an unknown locale falls back to English
	assert.Equal(t, "12,345 files checked: 2 warnings, 0 hints, 0 errors", New(Options{Locale: "??"}).SummaryLine(s))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "report.md")
	require.NoError(t, New(Options{Format: "markdown"}).WriteFile(plain, false, sample()))
	data, err := os.ReadFile(plain)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Loop migration report")

	packed := filepath.Join(dir, "report.md.gz")
	require.NoError(t, New(Options{Format: "markdown"}).WriteFile(packed, true, sample()))
	f, err := os.Open(packed)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	unpacked, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(unpacked))
	assert.Equal(t, "report.md.gz", zr.Name)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary files left behind")
}

func TestWriteFileMissingDir(t *testing.T) {
	err := New(Options{}).WriteFile(filepath.Join(t.TempDir(), "no", "such", "r.txt"), false, sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot write")
}
