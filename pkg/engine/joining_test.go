package engine

import (
	"strings"
	"testing"

	"github.com/sambeau/streamline/pkg/java/ast"
)

func TestJoiningRecognizers(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    []string
		notWant []string
	}{
		{
			name: "plain with prefix and suffix appends",
			src: `class Demo {
    String wrap(List<String> xs) {
        StringBuilder sb = new StringBuilder();
        sb.append("<");
        for (String s : xs) {
            sb.append(s);
        }
        sb.append(">");
        return sb.toString();
    }
}
`,
			want:    []string{`String sb = xs.stream().collect(Collectors.joining("", "<", ">"));`, "return sb;"},
			notWant: []string{`sb.append(">")`, `sb.append("<")`},
		},
		{
			name: "boolean first flag",
			src: `class Demo {
    String join(List<String> xs) {
        StringBuilder sb = new StringBuilder();
        boolean first = true;
        for (String s : xs) {
            if (!first) {
                sb.append(", ");
            }
            first = false;
            sb.append(s);
        }
        return sb.toString();
    }
}
`,
			want:    []string{`String sb = xs.stream().collect(Collectors.joining(", "));`},
			notWant: []string{"boolean first"},
		},
		{
			name: "trailing delimiter truncated",
			src: `class Demo {
    String join(List<String> xs) {
        StringBuilder sb = new StringBuilder();
        for (String s : xs) {
            sb.append(s).append(",");
        }
        if (sb.length() > 0) {
            sb.setLength(sb.length() - 1);
        }
        return sb.toString();
    }
}
`,
			want:    []string{`String sb = xs.stream().collect(Collectors.joining(","));`},
			notWant: []string{"setLength"},
		},
		{
			name: "delimiter variable",
			src: `class Demo {
    String join(List<String> xs) {
        StringBuilder sb = new StringBuilder("[");
        String sep = "";
        for (String s : xs) {
            sb.append(sep).append(s);
            sep = ", ";
        }
        sb.append("]");
        return sb.toString();
    }
}
`,
			want:    []string{`String sb = xs.stream().collect(Collectors.joining(", ", "[", "]"));`},
			notWant: []string{"sep"},
		},
		{
			name: "index guarded delimiter",
			src: `class Demo {
    String join(int[] arr) {
        StringBuilder sb = new StringBuilder();
        for (int i = 0; i < arr.length; i++) {
            if (i > 0) {
                sb.append(",");
            }
            sb.append(arr[i]);
        }
        return sb.toString();
    }
}
`,
			want: []string{
				"import java.util.stream.IntStream;",
				`String sb = IntStream.range(0, arr.length).mapToObj(i -> String.valueOf(arr[i])).collect(Collectors.joining(","));`,
			},
		},
		{
			name: "first element appended before a counted loop",
			src: `class Demo {
    String join(String[] arr) {
        StringBuilder sb = new StringBuilder();
        sb.append(arr[0]);
        for (int i = 1; i < arr.length; i++) {
            sb.append(",").append(arr[i]);
        }
        return sb.toString();
    }
}
`,
			want:    []string{`String sb = IntStream.range(0, arr.length).mapToObj(i -> arr[i]).collect(Collectors.joining(","));`},
			notWant: []string{"arr[0]"},
		},
		{
			name: "suffix appended with the final toString",
			src: `class Demo {
    String wrap(List<String> xs) {
        StringBuilder sb = new StringBuilder("[");
        for (String s : xs) {
            sb.append(s);
        }
        return sb.append("]").toString();
    }
}
`,
			want: []string{`String sb = xs.stream().collect(Collectors.joining("", "[", "]"));`, "return sb;"},
		},
		{
			name: "builder field",
			src: `class Demo {
    private final StringBuilder out = new StringBuilder();

    void emit(List<String> xs) {
        for (String s : xs) {
            out.append(s).append(';');
        }
    }
}
`,
			want: []string{`out.append(xs.stream().map(s -> s + ';').collect(Collectors.joining()));`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, fixed := fixFile(t, DefaultOptions(), tt.src)
			if len(res.Findings) == 0 {
				t.Fatalf("no findings")
			}
			if f := res.Findings[0]; f.Terminal != "joining" || f.Call != "collect()" {
				t.Errorf("finding = %s %s, want joining collect()", f.Terminal, f.Call)
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

func TestJoiningRejectsEscapingBuilder(t *testing.T) {
	src := `class Demo {
    void emit(List<String> xs) {
        StringBuilder sb = new StringBuilder();
        for (String s : xs) {
            sb.append(s);
        }
        consume(sb);
    }
}
`
	res, fixed := fixFile(t, DefaultOptions(), src)
	for _, f := range res.Findings {
		if f.Terminal == "joining" {
			t.Errorf("builder passed on must not become a String: %+v", f)
		}
	}
	if fixed != header+src {
		t.Errorf("source changed:\n%s", fixed)
	}
}

func TestJoiningRejectsMismatchedGuard(t *testing.T) {
	// the prefix is one char long, so the first element would get a
	// delimiter in front of it
	src := `class Demo {
    String join(List<String> xs) {
        StringBuilder sb = new StringBuilder("[");
        for (String s : xs) {
            if (sb.length() > 0) {
                sb.append(",");
            }
            sb.append(s);
        }
        return sb.toString();
    }
}
`
	res, _ := fixFile(t, DefaultOptions(), src)
	for _, f := range res.Findings {
		if f.Terminal == "joining" {
			t.Errorf("unexpected joining finding: %+v", f)
		}
	}
}

func TestDelimiterSymmetry(t *testing.T) {
	e := snippetEngine(t, `
List<String> xs = load();
StringBuilder sb = new StringBuilder();
for (String s : xs) {
    sb.append(", ").append("<").append(s).append(">").append(" ;");
}
`)
	tb := firstBlock(t, e)
	sb := tb.builderOf(tb.stmts[0])
	if sb == nil {
		t.Fatalf("builder not found")
	}
	parts, ok := tb.appendParts(tb.stmts, sb)
	if !ok || len(parts) != 5 {
		t.Fatalf("parts = %d, ok = %v", len(parts), ok)
	}
	reversed := make([]ast.Expression, len(parts))
	for i, p := range parts {
		reversed[len(parts)-1-i] = p
	}
	for _, in := range [][]ast.Expression{parts, reversed} {
		rev := make([]ast.Expression, len(in))
		for i, p := range in {
			rev[len(in)-1-i] = p
		}
		left, _, ltext := tb.splitLeft(in)
		_, right, rtext := tb.splitRight(rev)
		if len(left) != len(right) {
			t.Fatalf("left %d parts, right %d parts", len(left), len(right))
		}
		for i := range left {
			if left[i] != right[len(right)-1-i] {
				t.Errorf("part %d differs", i)
			}
		}
		if javaLength(ltext) != javaLength(rtext) {
			t.Errorf("delimiter lengths %q and %q differ", ltext, rtext)
		}
	}
}

func TestJavaLength(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{", ", 2},
		{"é", 1},
		{"😀", 2},
	}
	for _, tt := range tests {
		if got := javaLength(tt.in); got != tt.want {
			t.Errorf("javaLength(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPrefixLength(t *testing.T) {
	tests := []struct {
		cond string
		want int
		ok   bool
	}{
		{"sb.length() > 0", 0, true},
		{"0 < sb.length()", 0, true},
		{"sb.length() >= 1", 0, true},
		{"sb.length() > 2", 2, true},
		{"sb.length() != 0", 0, true},
		{"!sb.isEmpty()", 0, true},
		{"sb.length() >= 0", 0, false},
		{"sb.length() == 0", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			e := snippetEngine(t, `
StringBuilder sb = new StringBuilder();
boolean b = `+tt.cond+`;
`)
			var cond ast.Expression
			sb := variableNamed(e, "sb")
			ast.Inspect(e.info.Root, func(n ast.Node) bool {
				if d, ok := n.(*ast.LocalVarDecl); ok && d.Vars[0].Name.Value == "b" {
					cond = d.Vars[0].Init
				}
				return true
			})
			got, ok := prefixLength(e.info, cond, sb)
			if ok != tt.ok || ok && got != tt.want {
				t.Errorf("prefixLength = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
