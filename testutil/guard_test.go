package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInfraImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"taskcore/internal/infra/persistence/sqlite", true},
		{"taskcore/internal/infra/blob/s3", true},
		{"taskcore/internal/infra", true},
		{"taskcore/internal/blob", false},
		{"taskcore/internal/infrastructure", false},
	}
	for _, c := range cases {
		if got := InfraImportForbidden(c.in); got != c.want {
			t.Fatalf("InfraImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"taskcore/internal/core", true},
		{"taskcore/pkg/domain", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestOneOf(t *testing.T) {
	pred := OneOf(InfraImportForbidden, func(p string) bool { return p == "os/exec" })
	if !pred("os/exec") || !pred("taskcore/internal/infra/blob/fs") {
		t.Fatalf("expected both predicates to match")
	}
	if pred("fmt") {
		t.Fatalf("fmt should be allowed")
	}
	if OneOf()("anything") {
		t.Fatalf("empty OneOf should match nothing")
	}
}

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolationsIgnoresTestsAndDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(1) }\n")
	writeFile(t, dir, "main_test.go", "package tmp\nimport _ \"taskcore/internal/infra/blob/fs\"\n")
	writeFile(t, dir, "notes.txt", "import \"taskcore/internal/infra\"")
	if err := os.Mkdir(filepath.Join(dir, "nested.go"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := directImportViolations(dir, InfraImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 0 {
		t.Fatalf("unexpected violations %v", viols)
	}
	AssertNoDirectImports(t, dir, InfraImportForbidden, "clean package")
}

func TestDirectImportViolationsReportsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "store.go", "package tmp\nimport (\n\t\"fmt\"\n\t_ \"taskcore/internal/infra/persistence/memory\"\n)\nvar _ = fmt.Sprint\n")

	viols, err := directImportViolations(dir, InfraImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "taskcore/internal/infra/persistence/memory (in store.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InfraImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	dir := t.TempDir()
	writeFile(t, dir, "broken.go", "package tmp\nimport (\n")
	if _, err := directImportViolations(dir, InfraImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) {
	r.msg = format
	if len(args) > 0 {
		r.msg = args[0].(string) + ": " + args[1].(string)
	}
}

func TestFailIfDirectViolations(t *testing.T) {
	rec := &recordingFatal{}
	failIfDirectViolations(rec, "layering", nil)
	if rec.msg != "" {
		t.Fatalf("no violations should not fail")
	}
	failIfDirectViolations(rec, "layering", []string{"a (in x.go)", "b (in y.go)"})
	if !strings.Contains(rec.msg, "layering") || !strings.Contains(rec.msg, "a (in x.go)\nb (in y.go)") {
		t.Fatalf("unexpected message %q", rec.msg)
	}
}
