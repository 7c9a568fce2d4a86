package sqlinline

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

var markerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Every query constant must open with a unique "--sql <uuid>" line; the SQL
// runner logs that marker and rejects queries without it.
func TestQueriesCarryUniqueMarkers(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	seen := map[string]string{}
	count := 0
	fset := token.NewFileSet()
	for _, path := range files {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			t.Fatalf("parse %s: %v", path, err)
		}
		ast.Inspect(file, func(n ast.Node) bool {
			vs, ok := n.(*ast.ValueSpec)
			if !ok {
				return true
			}
			for i, value := range vs.Values {
				lit, ok := value.(*ast.BasicLit)
				if !ok || lit.Kind != token.STRING || i >= len(vs.Names) {
					continue
				}
				name := vs.Names[i].Name
				if !strings.HasPrefix(name, "Q") {
					continue
				}
				raw := lit.Value
				if raw[0] == '`' {
					raw = raw[1 : len(raw)-1]
				} else if raw, err = strconv.Unquote(raw); err != nil {
					t.Fatalf("%s: unquote: %v", name, err)
				}
				marker := strings.TrimSpace(strings.SplitN(strings.TrimLeft(raw, " \t\r\n"), "\n", 2)[0])
				if !markerPattern.MatchString(marker) {
					t.Fatalf("%s (%s) has invalid marker %q", name, path, marker)
				}
				if prev, dup := seen[marker]; dup {
					t.Fatalf("%s reuses the marker of %s", name, prev)
				}
				seen[marker] = name
				count++
			}
			return true
		})
	}
	if count == 0 {
		t.Fatal("no queries found")
	}
}
