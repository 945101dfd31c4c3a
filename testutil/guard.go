// Package testutil provides helpers for enforcing package boundary invariants
// from tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// ImportPredicate reports whether an import path is forbidden.
type ImportPredicate func(path string) bool

// InternalImportForbidden matches any path below an internal/ directory.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/") || strings.HasSuffix(path, "/internal")
}

// FabricImportForbidden matches the Hyperledger Fabric SDK and protos.
func FabricImportForbidden(path string) bool {
	return strings.HasPrefix(path, "github.com/hyperledger/")
}

// DomainImportForbidden matches the producechain domain package.
func DomainImportForbidden(path string) bool {
	return strings.HasSuffix(path, "/pkg/domain") || strings.Contains(path, "/pkg/domain@")
}

// AnyOf combines predicates.
func AnyOf(preds ...ImportPredicate) ImportPredicate {
	return func(path string) bool {
		for _, p := range preds {
			if p(path) {
				return true
			}
		}
		return false
	}
}

// AssertNoDirectImports parses the non-test .go files in dir and fails when an
// import matches forbidden. Build tags are ignored.
func AssertNoDirectImports(t testing.TB, dir string, forbidden ImportPredicate, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	failOnViolations(t, "direct import", reason, viols)
}

// AssertNoTransitiveDependency loads pattern with its full dependency graph and
// fails when any reachable package matches forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden ImportPredicate, reason string) {
	t.Helper()
	viols, err := transitiveViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("load %s: %v", pattern, err)
	}
	failOnViolations(t, "transitive dependency", reason, viols)
}

var loadPackages = func(pattern string) ([]*packages.Package, error) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps}
	return packages.Load(cfg, pattern)
}

func transitiveViolations(pattern string, forbidden ImportPredicate) ([]string, error) {
	roots, err := loadPackages(pattern)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var viols []string
	var walk func(via string, pkg *packages.Package)
	walk = func(via string, pkg *packages.Package) {
		if seen[pkg.PkgPath] {
			return
		}
		seen[pkg.PkgPath] = true
		if forbidden(pkg.PkgPath) {
			viols = append(viols, pkg.PkgPath+" (via "+via+")")
		}
		for _, imp := range pkg.Imports {
			walk(pkg.PkgPath, imp)
		}
	}
	for _, root := range roots {
		for _, imp := range root.Imports {
			walk(root.PkgPath, imp)
		}
	}
	sort.Strings(viols)
	return viols, nil
}

func directImportViolations(dir string, forbidden ImportPredicate) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return nil, err
			}
			if forbidden(path) {
				viols = append(viols, path+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalf interface {
	Fatalf(format string, args ...any)
}

func failOnViolations(t fatalf, kind, reason string, viols []string) {
	if len(viols) == 0 {
		return
	}
	t.Fatalf("forbidden %s (%s):\n%s", kind, reason, strings.Join(viols, "\n"))
}
