package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sumJava = `package demo;

import java.util.*;

class Demo {
    int total(List<Integer> xs) {
        int sum = 0;
        for (int x : xs) {
            sum += x;
        }
        return sum;
    }
}
`

const cleanJava = `package demo;

class Clean {
    int one() {
        return 1;
    }
}
`

func noEnv(string) string { return "" }

// workspace moves into an empty directory so no config file or cache
// outside the test is touched.
func workspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runCLI(args ...string) (string, string, int) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(""), &stdout, &stderr, noEnv)
	code := exitCode(err, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestRunVersion(t *testing.T) {
	out, _, code := runCLI("--version")
	if code != 0 || !strings.Contains(out, "streamline version") {
		t.Errorf("version: code %d, output %q", code, out)
	}
}

func TestRunHelp(t *testing.T) {
	out, _, code := runCLI("--help")
	if code != 0 {
		t.Errorf("help: code %d", code)
	}
	for _, want := range []string{"streamline check", "--config", "--format", "Exit status"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestRunUnknownCommand(t *testing.T) {
	_, errOut, code := runCLI("frobnicate")
	if code != 2 || !strings.Contains(errOut, `unknown command "frobnicate"`) {
		t.Errorf("code %d, stderr %q", code, errOut)
	}
}

func TestCheckExitCodes(t *testing.T) {
	workspace(t, map[string]string{
		"src/Demo.java":  sumJava,
		"src/Clean.java": cleanJava,
		"bad/Bad.java":   "class Bad { void f( }",
	})

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"clean file", []string{"check", "--no-color", "src/Clean.java"}, 0, "1 files checked"},
		{"warning", []string{"check", "--no-color", "src"}, 1, "Demo.java:8:9: warning: Can be replaced with 'sum()' call [sum]"},
		{"parse error", []string{"check", "--no-color", "bad"}, 2, "Bad.java: error:"},
		{"missing path", []string{"check", "nowhere"}, 2, ""},
		{"no arguments", []string{"check"}, 2, ""},
		{"bad format", []string{"check", "-f", "pdf", "src"}, 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut, code := runCLI(tt.args...)
			if code != tt.code {
				t.Errorf("exit code = %d, want %d (stderr %q)", code, tt.code, errOut)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
		})
	}
}

func TestCheckJSONReport(t *testing.T) {
	dir := workspace(t, map[string]string{"Demo.java": sumJava})

	out, _, code := runCLI("check", "--no-cache", "-f", "json", "Demo.java")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	var report struct {
		Summary struct {
			Files    int `json:"files"`
			Warnings int `json:"warnings"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if report.Summary.Files != 1 || report.Summary.Warnings != 1 {
		t.Errorf("summary = %+v", report.Summary)
	}

	// --no-cache leaves no database behind
	if _, err := os.Stat(filepath.Join(dir, ".streamline-cache.db")); !os.IsNotExist(err) {
		t.Errorf("cache file created: %v", err)
	}
}

func TestCheckWritesReportFile(t *testing.T) {
	dir := workspace(t, map[string]string{"Demo.java": sumJava})

	out, _, code := runCLI("check", "-f", "markdown", "-o", "loops.md", "Demo.java")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "loops.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "# Loop migration report") {
		t.Errorf("report = %q", data)
	}
}

func TestFixPrintsMigratedSource(t *testing.T) {
	workspace(t, map[string]string{"Demo.java": sumJava})

	out, _, code := runCLI("fix", "Demo.java")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "int sum = xs.stream().mapToInt(x -> x).sum();") {
		t.Errorf("fixed source = %q", out)
	}
}

func TestFixWritesInPlace(t *testing.T) {
	dir := workspace(t, map[string]string{"Demo.java": sumJava, "Clean.java": cleanJava})

	out, _, code := runCLI("fix", "-list", ".")
	if code != 0 || strings.TrimSpace(out) != "Demo.java" {
		t.Errorf("-list: code %d, output %q", code, out)
	}

	if _, _, code := runCLI("fix", "-w", "Demo.java"); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Demo.java"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "for (") {
		t.Errorf("loop left in %q", data)
	}
	info, err := os.Stat(filepath.Join(dir, "Demo.java"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestFixReportsParseErrors(t *testing.T) {
	workspace(t, map[string]string{"Bad.java": "class Bad { void f( }"})

	_, errOut, code := runCLI("fix", "Bad.java")
	if code != 2 || !strings.Contains(errOut, "Bad.java") {
		t.Errorf("code %d, stderr %q", code, errOut)
	}
}

func TestDescribe(t *testing.T) {
	out, _, code := runCLI("describe")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, name := range []string{"count", "collect", "joining", "forEach", "find"} {
		if !strings.Contains(out, name) {
			t.Errorf("describe output missing %q", name)
		}
	}

	out, _, _ = runCLI("describe", "--json")
	var strategies []map[string]string
	if err := json.Unmarshal([]byte(out), &strategies); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(strategies) != 10 {
		t.Errorf("strategies = %d, want 10", len(strategies))
	}
}

func TestCacheCommand(t *testing.T) {
	dir := workspace(t, map[string]string{"Demo.java": sumJava})

	runCLI("check", "Demo.java")
	out, errOut, code := runCLI("cache", "stats")
	if code != 0 || !strings.Contains(out, "1 entries") {
		t.Errorf("stats: code %d, out %q, stderr %q", code, out, errOut)
	}

	if _, _, code := runCLI("cache", "clear"); code != 0 {
		t.Errorf("clear: code %d", code)
	}
	out, _, _ = runCLI("cache", "stats")
	if !strings.Contains(out, "0 entries") {
		t.Errorf("stats after clear = %q", out)
	}

	if _, _, code := runCLI("cache", "rebuild"); code != 2 {
		t.Errorf("unknown subcommand: code %d, want 2", code)
	}
	if _, err := os.Stat(filepath.Join(dir, ".streamline-cache.db")); err != nil {
		t.Errorf("cache file missing: %v", err)
	}
}

func TestCollectFiles(t *testing.T) {
	dir := workspace(t, map[string]string{
		"b/B.java":         "",
		"a/A.java":         "",
		"a/notes.txt":      "",
		".git/X.java":      "",
		"a/.hidden/Y.java": "",
	})

	files, err := collectFiles([]string{dir, filepath.Join(dir, "a", "A.java")}, []string{".java"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a", "A.java"), filepath.Join(dir, "b", "B.java")}
	if strings.Join(files, "\n") != strings.Join(want, "\n") {
		t.Errorf("files = %v, want %v", files, want)
	}

	if _, err := collectFiles([]string{filepath.Join(dir, "missing")}, nil); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer
	if got := exitCode(errFindings, &stderr); got != 1 || stderr.Len() != 0 {
		t.Errorf("findings: %d, %q", got, stderr.String())
	}
	if got := exitCode(errors.New("boom"), &stderr); got != 2 || !strings.Contains(stderr.String(), "boom") {
		t.Errorf("plain error: %d, %q", got, stderr.String())
	}
}
