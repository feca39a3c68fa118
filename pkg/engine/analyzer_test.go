package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	jerrors "github.com/sambeau/streamline/pkg/java/errors"
)

const sumSource = header + `class Demo {
    int total(List<Integer> xs) {
        int sum = 0;
        for (int x : xs) {
            sum += x;
        }
        return sum;
    }
}
`

func TestAnalyzeSourceReportsPosition(t *testing.T) {
	res, err := NewAnalyzer(DefaultOptions(), nil).AnalyzeSource("Demo.java", []byte(sumSource))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(res.Findings))
	}
	f := res.Findings[0]
	if f.Line != 8 || f.Column != 9 {
		t.Errorf("position = %d:%d, want 8:9", f.Line, f.Column)
	}
	if f.Message != "Can be replaced with 'sum()' call" {
		t.Errorf("message = %q", f.Message)
	}
	if !f.Warn || f.Replacement != "int sum = xs.stream().mapToInt(x -> x).sum();" {
		t.Errorf("finding = %+v, want a warning replaced by the whole declaration", f)
	}
	if res.Fixed != "" {
		t.Errorf("fixed source computed without WithFix")
	}
	if res.Warnings() != 1 {
		t.Errorf("warnings = %d", res.Warnings())
	}
}

func TestAnalyzeSourceParseError(t *testing.T) {
	_, err := NewAnalyzer(DefaultOptions(), nil).AnalyzeSource("Bad.java", []byte("class Demo { void f( }"))
	if err == nil {
		t.Fatal("expected a parse error")
	}
	var se *jerrors.SourceError
	if !errors.As(err, &se) || !se.IsParseError() {
		t.Errorf("error = %v, want a parse error", err)
	}
}

func TestAnalyzeSnippet(t *testing.T) {
	src := `List<Integer> xs = load();
int sum = 0;
for (int x : xs) {
    sum += x;
}
`
	res, err := NewAnalyzer(DefaultOptions(), nil).WithFix(true).AnalyzeSnippet(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Findings) != 1 || res.Findings[0].Line != 3 {
		t.Fatalf("findings = %+v", res.Findings)
	}
	if !strings.Contains(squash(res.Fixed), squash("int sum = xs.stream().mapToInt(x -> x).sum();")) {
		t.Errorf("fixed = %s", res.Fixed)
	}
}

func TestAnalyzeSnippetArrayProduct(t *testing.T) {
	src := "int[] xs = load();\nint p = 1;\nfor (int x : xs) { p *= x; }"
	res, err := NewAnalyzer(DefaultOptions(), nil).WithFix(true).AnalyzeSnippet(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("findings = %+v", res.Findings)
	}
	r := res.Findings[0].Replacement
	if !strings.HasPrefix(r, "int p = ") || !strings.Contains(r, "reduce(1, (a, b) -> a * b)") {
		t.Errorf("replacement = %q", r)
	}
	if !strings.Contains(res.Fixed, "reduce(1, (a, b) -> a * b)") || strings.Contains(res.Fixed, "for (") {
		t.Errorf("fixed = %s", res.Fixed)
	}
}

const productsSource = header + `class Demo {
    int products(int[] xs, int[] ys) {
        int p = 1;
        for (int x : xs) {
            p *= x;
        }
        int q = 1;
        for (int y : ys) {
            q *= y;
        }
        return p + q;
    }
}
`

func TestLambdaNamesDoNotDependOnHistory(t *testing.T) {
	a := NewAnalyzer(DefaultOptions(), nil).WithFix(true)
	first, err := a.AnalyzeSource("Demo.java", []byte(productsSource))
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.AnalyzeSource("Demo.java", []byte(productsSource))
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Findings) != 2 || len(second.Findings) != 2 {
		t.Fatalf("findings = %d and %d, want 2", len(first.Findings), len(second.Findings))
	}
	for i, f := range first.Findings {
		if !strings.Contains(f.Replacement, "(a, b) -> a * b") {
			t.Errorf("finding %d replacement = %q", i, f.Replacement)
		}
		if second.Findings[i].Replacement != f.Replacement {
			t.Errorf("finding %d: %q then %q", i, f.Replacement, second.Findings[i].Replacement)
		}
	}
	if first.Fixed != second.Fixed || strings.Count(first.Fixed, "(a, b) -> a * b") != 2 {
		t.Errorf("fixed = %s", first.Fixed)
	}
}

func TestFixNestedLoop(t *testing.T) {
	src := header + `class Demo {
    int total(List<List<Integer>> xss) {
        int sum = 0;
        for (List<Integer> xs : xss) {
            int part = 0;
            for (int x : xs) {
                part += x;
            }
            sum += part;
        }
        return sum;
    }
}
`
	out, err := NewAnalyzer(DefaultOptions(), nil).Fix("Demo.java", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(squash(out), squash("xs.stream().mapToInt(x -> x).sum()")) {
		t.Errorf("inner loop not fixed:\n%s", out)
	}
	if strings.Count(out, "for (") > 1 {
		t.Errorf("both loops left after fixing:\n%s", out)
	}
}

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	hits   int
	stores int
}

func (c *memCache) Lookup(src []byte, salt string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[salt+string(src)]
	if ok {
		c.hits++
	}
	return d, ok
}

func (c *memCache) Store(src []byte, salt string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[salt+string(src)] = data
	c.stores++
	return nil
}

func writeFiles(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, src := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return dir, paths
}

func TestAnalyzeFiles(t *testing.T) {
	dir, _ := writeFiles(t, map[string]string{
		"A.java":   sumSource,
		"Bad.java": "class {",
	})
	paths := []string{
		filepath.Join(dir, "A.java"),
		filepath.Join(dir, "Missing.java"),
		filepath.Join(dir, "Bad.java"),
	}
	results, err := NewAnalyzer(DefaultOptions(), nil).WithJobs(2).AnalyzeFiles(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Err != nil || len(results[0].Findings) != 1 {
		t.Errorf("A.java = %+v", results[0])
	}
	var se *jerrors.SourceError
	if !errors.As(results[1].Err, &se) || se.Code != "IO-0001" {
		t.Errorf("Missing.java error = %v, want IO-0001", results[1].Err)
	}
	if !errors.As(results[2].Err, &se) || !se.IsParseError() || se.File != paths[2] {
		t.Errorf("Bad.java error = %v, want a parse error naming the file", results[2].Err)
	}
}

func TestAnalyzeFilesCancelled(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{"A.java": sumSource})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAnalyzer(DefaultOptions(), nil).AnalyzeFiles(ctx, paths)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAnalyzeFilesUsesCache(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{"A.java": sumSource})
	c := &memCache{data: map[string][]byte{}}
	a := NewAnalyzer(DefaultOptions(), nil).WithCache(c)
	first, err := a.AnalyzeFiles(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.AnalyzeFiles(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if c.stores != 1 || c.hits != 1 {
		t.Errorf("stores = %d, hits = %d, want 1 and 1", c.stores, c.hits)
	}
	if len(second[0].Findings) != len(first[0].Findings) || second[0].Findings[0].File != paths[0] {
		t.Errorf("cached result = %+v", second[0])
	}

	// other options must not reuse the entry
	opts := DefaultOptions()
	opts.SuggestForEach = true
	if _, err := NewAnalyzer(opts, nil).WithCache(c).AnalyzeFiles(context.Background(), paths); err != nil {
		t.Fatal(err)
	}
	if c.hits != 1 {
		t.Errorf("hits = %d after an options change, want 1", c.hits)
	}
}
