// Package sqlite provides dependency boundary tests for the sqlite adapter.
package sqlite

import (
	"go/build"
	"strings"
	"testing"
)

var allowedLocalImports = map[string]struct{}{
	"taskcore/pkg/domain":                          {},
	"taskcore/internal/infra/persistence/sqlstore": {},
}

func TestImportsAreDomainOrStdlib(t *testing.T) {
	pkg, err := build.Default.ImportDir(".", 0)
	if err != nil {
		t.Fatalf("import dir: %v", err)
	}
	for _, imp := range pkg.Imports {
		if !strings.HasPrefix(imp, "taskcore/") {
			continue
		}
		if _, ok := allowedLocalImports[imp]; ok {
			continue
		}
		t.Fatalf("unexpected dependency: %s", imp)
	}
}
