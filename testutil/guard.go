// Package testutil enforces repository architecture boundaries from tests:
// which packages a directory may import, directly or transitively.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// InternalImportForbidden reports whether path names an internal package.
// Layering tests use it to keep public packages off the implementation tree.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// ThirdPartyImportForbidden returns a predicate matching every import that
// lives outside the standard library and outside module. Packages guarded
// with it stay portable: stdlib plus first-party code only.
func ThirdPartyImportForbidden(module string) func(string) bool {
	prefix := module + "/"
	return func(path string) bool {
		if path == module || strings.HasPrefix(path, prefix) {
			return false
		}
		return strings.Contains(path, ".")
	}
}

// AssertNoDirectImports parses every non-test .go file in dir and fails the
// test when an import path matches the forbidden predicate. Build tags are
// not evaluated; guarded packages should not hide imports behind them.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(path string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	report(t, reason, viols)
}

// AssertNoTransitiveDependency resolves the full dependency closure of
// pattern with `go list -deps` and fails the test when any package in the
// closure matches the forbidden predicate.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	out, err := listDeps(pattern)
	if err != nil {
		t.Fatalf("go list %s: %v\n%s", pattern, err, out)
	}
	var viols []string
	for _, dep := range strings.Fields(string(out)) {
		if forbidden(dep) {
			viols = append(viols, dep)
		}
	}
	report(t, reason, viols)
}

// listDeps is a seam so tests can exercise closure checks without invoking
// the toolchain.
var listDeps = func(pattern string) ([]byte, error) {
	return exec.Command("go", "list", "-deps", pattern).CombinedOutput()
}

func directImportViolations(dir string, forbidden func(path string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		parsed, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range parsed.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if forbidden(path) {
				viols = append(viols, path+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fataler interface {
	Fatalf(format string, args ...any)
}

func report(t fataler, reason string, viols []string) {
	if len(viols) == 0 {
		return
	}
	t.Fatalf("forbidden imports (%s):\n  %s", reason, strings.Join(viols, "\n  "))
}
