package engine

import (
	"strings"
	"testing"

	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/parser"
)

const header = "package demo;\n\nimport java.util.*;\n\n"

// fixFile runs the fixer over a compilation unit and returns the result.
func fixFile(t *testing.T, opts Options, src string) (*FileResult, string) {
	t.Helper()
	res, err := NewAnalyzer(opts, nil).WithFix(true).AnalyzeSource("Demo.java", []byte(header+src))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return res, res.Fixed
}

// snippetEngine resolves statements and wraps them in an engine.
func snippetEngine(t *testing.T, src string) *Engine {
	t.Helper()
	res, err := parser.ParseStatements(src)
	if err != nil {
		t.Fatalf("parse error: %s", err.Error())
	}
	return New(analysis.Resolve(res.Node, src), nil, res.Comments, DefaultOptions(), nil)
}

func variableNamed(e *Engine, name string) *analysis.Variable {
	for _, v := range e.info.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// firstBlock returns the unextracted block of the first loop.
func firstBlock(t *testing.T, e *Engine) *TerminalBlock {
	t.Helper()
	loops := e.Loops()
	if len(loops) == 0 {
		t.Fatalf("no loops")
	}
	src := e.sourceOf(loops[0])
	if src == nil {
		t.Fatalf("no stream source for first loop")
	}
	return newTerminalBlock(e, src, loops[0])
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		call    string
		want    []string // fragments of the fixed source, compared without whitespace
		notWant []string
	}{
		{
			name: "sum of mapped elements",
			src: `class Demo {
    int total(List<Integer> xs) {
        int sum = 0;
        for (int x : xs) {
            sum += x * 2;
        }
        return sum;
    }
}
`,
			call:    "sum()",
			want:    []string{"int sum = xs.stream().mapToInt(x -> x * 2).sum();", "return sum;"},
			notWant: []string{"for ("},
		},
		{
			name: "filtered collect into a fresh list",
			src: `class Demo {
    List<Integer> positive(List<Integer> xs) {
        List<Integer> result = new ArrayList<>();
        for (Integer x : xs) {
            if (x > 0) {
                result.add(x);
            }
        }
        return result;
    }
}
`,
			call: "collect()",
			want: []string{
				"import java.util.stream.Collectors;",
				"List<Integer> result = xs.stream().filter(x -> x > 0).collect(Collectors.toList());",
			},
			notWant: []string{"result.add(x)"},
		},
		{
			name: "return inside the loop",
			src: `class Demo {
    boolean anyEmpty(List<String> xs) {
        for (String x : xs) {
            if (x.isEmpty()) {
                return true;
            }
        }
        return false;
    }
}
`,
			call:    "anyMatch()",
			want:    []string{"return xs.stream().anyMatch(String::isEmpty);"},
			notWant: []string{"return false;"},
		},
		{
			name: "all elements match",
			src: `class Demo {
    boolean allEmpty(List<String> xs) {
        for (String s : xs) {
            if (!s.isEmpty()) {
                return false;
            }
        }
        return true;
    }
}
`,
			call: "allMatch()",
			want: []string{"return xs.stream().allMatch(String::isEmpty);"},
		},
		{
			name: "no element matches",
			src: `class Demo {
    boolean noneEmpty(List<String> xs) {
        for (String s : xs) {
            if (s.isEmpty()) {
                return false;
            }
        }
        return true;
    }
}
`,
			call: "noneMatch()",
			want: []string{"return xs.stream().noneMatch(String::isEmpty);"},
		},
		{
			name: "first matching element",
			src: `class Demo {
    String firstA(List<String> xs) {
        for (String s : xs) {
            if (s.startsWith("a")) {
                return s;
            }
        }
        return null;
    }
}
`,
			call: "findFirst()",
			want: []string{`return xs.stream().filter(s -> s.startsWith("a")).findFirst().orElse(null);`},
		},
		{
			name: "length guarded delimiter",
			src: `class Demo {
    String join(List<Integer> xs) {
        StringBuilder sb = new StringBuilder();
        for (Integer x : xs) {
            if (sb.length() > 0) {
                sb.append(",");
            }
            sb.append(x);
        }
        return sb.toString();
    }
}
`,
			call: "collect()",
			want: []string{
				`String sb = xs.stream().map(String::valueOf).collect(Collectors.joining(","));`,
				"return sb;",
			},
			notWant: []string{"StringBuilder", "toString()"},
		},
		{
			name: "running maximum by key",
			src: `class Demo {
    Person oldest(List<Person> people) {
        Person max = null;
        for (Person p : people) {
            if (max == null || p.age() > max.age()) {
                max = p;
            }
        }
        return max;
    }
}

record Person(String name, int age) {}
`,
			call: "max()",
			want: []string{"Person max = people.stream().max(Comparator.comparingInt(Person::age)).orElse(null);"},
		},
		{
			name: "counted with a cast",
			src: `class Demo {
    int empties(List<String> xs) {
        int count = 0;
        for (String s : xs) {
            if (s.isEmpty()) {
                count++;
            }
        }
        return count;
    }
}
`,
			call: "count()",
			want: []string{"int count = (int) xs.stream().filter(String::isEmpty).count();"},
		},
		{
			name: "array filled by index",
			src: `class Demo {
    String[] names(int n) {
        String[] arr = new String[n];
        for (int i = 0; i < n; i++) {
            arr[i] = "item" + i;
        }
        return arr;
    }
}
`,
			call: "toArray()",
			want: []string{
				"import java.util.stream.IntStream;",
				`String[] arr = IntStream.range(0, n).mapToObj(i -> "item" + i).toArray(String[]::new);`,
			},
		},
		{
			name: "dedicated counter becomes a limit",
			src: `class Demo {
    List<String> firstTen(List<String> xs) {
        int n = 0;
        List<String> out = new ArrayList<>();
        for (String s : xs) {
            out.add(s);
            if (++n >= 10) {
                break;
            }
        }
        return out;
    }
}
`,
			call:    "collect()",
			want:    []string{"List<String> out = xs.stream().limit(10).collect(Collectors.toList());"},
			notWant: []string{"int n = 0;"},
		},
		{
			name: "seen set becomes distinct",
			src: `class Demo {
    List<String> unique(List<String> xs) {
        Set<String> seen = new HashSet<>();
        List<String> out = new ArrayList<>();
        for (String s : xs) {
            if (seen.add(s)) {
                out.add(s);
            }
        }
        return out;
    }
}
`,
			call:    "collect()",
			want:    []string{"List<String> out = xs.stream().distinct().collect(Collectors.toList());"},
			notWant: []string{"seen"},
		},
		{
			name: "contains check on the target becomes distinct",
			src: `class Demo {
    List<String> unique(List<String> xs) {
        List<String> out = new ArrayList<>();
        for (String x : xs) {
            if (!out.contains(x)) out.add(x);
        }
        return out;
    }
}
`,
			call:    "collect()",
			want:    []string{"List<String> out = xs.stream().distinct().collect(Collectors.toList());"},
			notWant: []string{"contains", "for ("},
		},
		{
			name: "continue with else becomes a filter",
			src: `class Demo {
    int total(List<Integer> xs) {
        int sum = 0;
        for (Integer x : xs) {
            if (x < 0) continue;
            else {
                sum += x;
            }
        }
        return sum;
    }
}
`,
			call:    "sum()",
			want:    []string{"int sum = xs.stream().filter(x -> x >= 0)", ".sum();"},
			notWant: []string{"for (", "continue"},
		},
		{
			name: "continue chain through else if",
			src: `class Demo {
    List<String> present(List<String> xs) {
        List<String> out = new ArrayList<>();
        for (String x : xs) {
            if (x == null) continue;
            else if (x.isEmpty()) continue;
            out.add(x);
        }
        return out;
    }
}
`,
			call:    "collect()",
			want:    []string{"List<String> out = xs.stream().filter(x -> x != null).filter(x -> !x.isEmpty()).collect(Collectors.toList());"},
			notWant: []string{"continue"},
		},
		{
			name: "reassigned element becomes a map",
			src: `class Demo {
    List<String> trimmed(List<String> xs) {
        List<String> out = new ArrayList<>();
        for (String x : xs) {
            x = x.trim();
            out.add(x);
        }
        return out;
    }
}
`,
			call:    "collect()",
			want:    []string{"List<String> out = xs.stream().map(String::trim).collect(Collectors.toList());"},
			notWant: []string{"x = x.trim();"},
		},
		{
			name: "nested loop becomes flatMap",
			src: `class Demo {
    List<String> flatten(List<List<String>> xss) {
        List<String> out = new ArrayList<>();
        for (List<String> xs : xss) {
            for (String s : xs) {
                out.add(s);
            }
        }
        return out;
    }
}
`,
			call: "collect()",
			want: []string{"List<String> out = xss.stream().flatMap(xs -> xs.stream()).collect(Collectors.toList());"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, fixed := fixFile(t, DefaultOptions(), tt.src)
			if len(res.Findings) == 0 {
				t.Fatalf("no findings")
			}
			if got := res.Findings[0].Call; got != tt.call {
				t.Errorf("call = %q, want %q", got, tt.call)
			}
			flat := squash(fixed)
			for _, w := range tt.want {
				if !strings.Contains(flat, squash(w)) {
					t.Errorf("fixed source lacks %q:\n%s", w, fixed)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(flat, squash(w)) {
					t.Errorf("fixed source still has %q:\n%s", w, fixed)
				}
			}
		})
	}
}

func TestTrivialCopyIsLeftAlone(t *testing.T) {
	src := `class Demo {
    List<String> copy(List<String> xs) {
        List<String> out = new ArrayList<>();
        for (String s : xs) {
            out.add(s);
        }
        return out;
    }
}
`
	res, fixed := fixFile(t, DefaultOptions(), src)
	if len(res.Findings) != 0 {
		t.Errorf("findings = %+v, want none", res.Findings)
	}
	if fixed != header+src {
		t.Errorf("source changed:\n%s", fixed)
	}
}

func TestForEachIsAHintByDefault(t *testing.T) {
	src := `class Demo {
    void print(List<String> xs) {
        for (String s : xs) {
            System.out.println(s);
        }
    }
}
`
	res, fixed := fixFile(t, DefaultOptions(), src)
	if len(res.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(res.Findings))
	}
	f := res.Findings[0]
	if f.Call != "forEach()" || f.Warn {
		t.Errorf("finding = %+v, want a forEach() hint", f)
	}
	if fixed != header+src {
		t.Errorf("hints must not be applied:\n%s", fixed)
	}

	opts := DefaultOptions()
	opts.SuggestForEach = true
	opts.ReplaceTrivialForEach = true
	_, fixed = fixFile(t, opts, src)
	if !strings.Contains(squash(fixed), squash("xs.forEach(System.out::println);")) {
		t.Errorf("trivial forEach not applied:\n%s", fixed)
	}
}

func TestForEachFoldsTrailingMap(t *testing.T) {
	src := `class Demo {
    void print(List<String> xs) {
        for (String s : xs) {
            if (!s.isEmpty()) {
                System.out.println(s.trim());
            }
        }
    }
}
`
	opts := DefaultOptions()
	opts.SuggestForEach = true
	_, fixed := fixFile(t, opts, src)
	want := "xs.stream().filter(s -> !s.isEmpty()).map(String::trim).forEach(System.out::println);"
	if !strings.Contains(squash(fixed), squash(want)) {
		t.Errorf("fixed source lacks %q:\n%s", want, fixed)
	}
}

func TestDisabledStrategy(t *testing.T) {
	src := `class Demo {
    int total(List<Integer> xs) {
        int sum = 0;
        for (int x : xs) {
            sum += x;
        }
        return sum;
    }
}
`
	opts := DefaultOptions()
	opts.Disabled = []string{"sum"}
	res, _ := fixFile(t, opts, src)
	if len(res.Findings) != 0 {
		t.Errorf("findings = %+v, want none with sum disabled", res.Findings)
	}
}

func TestFusionKeepsOneDeclaration(t *testing.T) {
	src := `class Demo {
    long total(List<Long> xs) {
        long sum = 0L;
        for (long x : xs) {
            sum += x;
        }
        return sum;
    }
}
`
	_, fixed := fixFile(t, DefaultOptions(), src)
	if got := strings.Count(fixed, "long sum"); got != 1 {
		t.Errorf("declarations of sum = %d, want 1:\n%s", got, fixed)
	}
	if got := strings.Count(fixed, "sum ="); got != 1 {
		t.Errorf("initializers of sum = %d, want 1:\n%s", got, fixed)
	}
}

func TestAssignmentWhenDeclarationIsFar(t *testing.T) {
	src := `class Demo {
    int total(List<Integer> xs) {
        int sum = 5;
        System.out.println(sum);
        for (int x : xs) {
            sum += x;
        }
        return sum;
    }
}
`
	_, fixed := fixFile(t, DefaultOptions(), src)
	want := "sum += xs.stream().mapToInt(x -> x).sum();"
	if !strings.Contains(squash(fixed), squash(want)) {
		t.Errorf("fixed source lacks %q:\n%s", want, fixed)
	}
	if !strings.Contains(fixed, "int sum = 5;") {
		t.Errorf("declaration must be kept:\n%s", fixed)
	}
}

func TestFixIsIdempotent(t *testing.T) {
	src := `class Demo {
    int total(List<Integer> xs) {
        int sum = 0;
        for (int x : xs) {
            sum += x * 2;
        }
        return sum;
    }
}
`
	a := NewAnalyzer(DefaultOptions(), nil).WithFix(true)
	once, err := a.AnalyzeSource("Demo.java", []byte(header+src))
	if err != nil {
		t.Fatal(err)
	}
	twice, err := a.AnalyzeSource("Demo.java", []byte(once.Fixed))
	if err != nil {
		t.Fatal(err)
	}
	if len(twice.Findings) != 0 {
		t.Errorf("second pass findings = %+v", twice.Findings)
	}
	if twice.Fixed != once.Fixed {
		t.Errorf("second pass changed the source:\n%s", twice.Fixed)
	}
}

func TestExtractionIsIdempotent(t *testing.T) {
	e := snippetEngine(t, `
List<String> xs = load();
List<String> out = new ArrayList<>();
for (String s : xs) {
    if (s == null) continue;
    String t = s.trim();
    if (t.isEmpty()) {
        out.add(t);
    }
}
`)
	tb := firstBlock(t, e).extract()
	again := tb.extract()
	if len(again.ops) != len(tb.ops) || len(again.stmts) != len(tb.stmts) {
		t.Fatalf("second extraction changed the block: %d/%d ops, %d/%d stmts",
			len(again.ops), len(tb.ops), len(again.stmts), len(tb.stmts))
	}
	var names []string
	for _, op := range tb.Operations() {
		names = append(names, op.Name())
	}
	if got, want := strings.Join(names, ","), "filter,map,filter"; got != want {
		t.Errorf("operations = %s, want %s", got, want)
	}
}

func TestExtractionShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		ops   string
		stmts int
	}{
		{"continue with else", "if (s == null) continue;\nelse {\n    out.add(s);\n}", "filter", 1},
		{"else continues the chain", "if (s == null) continue;\nelse if (s.isEmpty()) continue;\nout.add(s);", "filter,filter", 1},
		{"if else without continue", "if (s == null) {\n    out.add(\"\");\n} else {\n    out.add(s);\n}", "", 1},
		{"reassigned element", "s = s.trim();\nout.add(s);", "map", 1},
		{"reassigned after a filter", "if (s == null) continue;\ns = s.trim();\nout.add(s);", "filter,map", 1},
		{"reassignment alone", "s = s.trim();", "", 1},
		{"contains guard on fresh target", "if (!out.contains(s)) out.add(s);", "distinct", 1},
		{"contains guard on shared target", "if (!shared.contains(s)) shared.add(s);", "filter", 1},
		{"contains guard on another element", "if (!out.contains(s.trim())) out.add(s);", "filter", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := snippetEngine(t, `
List<String> xs = load();
List<String> shared = load();
List<String> out = new ArrayList<>();
for (String s : xs) {
`+tt.body+`
}
`)
			tb := firstBlock(t, e).extract()
			var names []string
			for _, op := range tb.Operations() {
				names = append(names, op.Name())
			}
			if got := strings.Join(names, ","); got != tt.ops {
				t.Errorf("operations = %q, want %q", got, tt.ops)
			}
			if len(tb.Statements()) != tt.stmts {
				t.Errorf("statements left = %d, want %d", len(tb.Statements()), tt.stmts)
			}
		})
	}
}

func TestLimitDelta(t *testing.T) {
	tests := []struct {
		cond  string
		delta int
	}{
		{"++n >= 10", 0},
		{"n++ >= 10", 1},
		{"++n > 10", 1},
		{"n++ > 10", 2},
		{"10 <= ++n", 0},
		{"10 < n++", 2},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			e := snippetEngine(t, `
List<String> xs = load();
int n = 0;
for (String s : xs) {
    System.out.println(s);
    if (`+tt.cond+`) {
        break;
    }
}
`)
			tb := firstBlock(t, e).extract()
			l, ok := tb.LastOperation().(*LimitOp)
			if !ok {
				t.Fatalf("last operation = %T, want *LimitOp", tb.LastOperation())
			}
			if l.Delta != tt.delta {
				t.Errorf("delta = %d, want %d", l.Delta, tt.delta)
			}
			if c, ok := e.info.Constant(l.Bound); !ok || c.Int != 10 {
				t.Errorf("bound = %v, want 10", l.Bound)
			}
			if l.Counter == nil {
				t.Errorf("counter not recognised as dedicated")
			}
		})
	}
}

func TestLoopsInSourceOrder(t *testing.T) {
	e := snippetEngine(t, `
for (int i = 0; i < 3; i++) {
    while (ready()) {
        step();
    }
}
for (String s : names) {}
`)
	var kinds []string
	for _, l := range e.Loops() {
		switch l.(type) {
		case *ast.ForStmt:
			kinds = append(kinds, "for")
		case *ast.WhileStmt:
			kinds = append(kinds, "while")
		case *ast.ForEachStmt:
			kinds = append(kinds, "foreach")
		}
	}
	if got := strings.Join(kinds, " "); got != "for while foreach" {
		t.Errorf("loops = %s", got)
	}
}

func TestStrategiesOrder(t *testing.T) {
	var names []string
	for _, s := range Strategies() {
		names = append(names, s.Name)
		if s.Description == "" {
			t.Errorf("%s has no description", s.Name)
		}
	}
	want := "count collect joining fill sum extremum reduce forEach match find"
	if got := strings.Join(names, " "); got != want {
		t.Errorf("strategies = %s, want %s", got, want)
	}
}
