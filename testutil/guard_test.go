package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

type recordingFatal struct {
	msg string
}

func (r *recordingFatal) Fatalf(format string, args ...any) {
	r.msg = fmt.Sprintf(format, args...)
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		in       string
		internal bool
		driver   bool
	}{
		{"tankcore/internal/core", true, false},
		{"tankcore/pkg/domain", false, false},
		{"database/sql", false, true},
		{"database/sql/driver", false, true},
		{"github.com/aws/aws-sdk-go-v2/service/s3", false, true},
		{"github.com/jackc/pgx/v5/stdlib", false, true},
		{"github.com/spf13/viper", false, true},
		{"modernc.org/sqlite", false, true},
		{"gopkg.in/yaml.v3", false, false},
		{"github.com/go-playground/validator/v10", false, false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.internal {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.internal)
		}
		if got := DriverImportForbidden(c.in); got != c.driver {
			t.Fatalf("DriverImportForbidden(%q)=%v want %v", c.in, got, c.driver)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"database/sql\"\n)\nvar _ = fmt.Sprint\nvar _ sql.DB\n")
	writeSource(t, dir, "a_test.go", "package tmp\nimport \"tankcore/internal/core\"\n")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeSource(t, filepath.Join(dir, "sub"), "b.go", "package sub\nimport \"net/http\"\n")

	viols, err := directImportViolations(dir, func(p string) bool {
		return InternalImportForbidden(p) || DriverImportForbidden(p)
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "database/sql (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected missing dir error")
	}
	dir := t.TempDir()
	writeSource(t, dir, "broken.go", "package tmp\nimport (\n")
	if _, err := directImportViolations(dir, InternalImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAssertPureAcceptsCleanPackage(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "x.go", "package tmp\nimport \"gopkg.in/yaml.v3\"\nvar _ = yaml.Marshal\n")
	AssertPure(t, dir)
}

func TestFailIfViolations(t *testing.T) {
	rec := &recordingFatal{}
	failIfViolations(rec, "reason", nil)
	if rec.msg != "" {
		t.Fatalf("unexpected failure %q", rec.msg)
	}
	failIfViolations(rec, "reason", []string{"database/sql (in a.go)"})
	if !strings.Contains(rec.msg, "reason") || !strings.Contains(rec.msg, "database/sql") {
		t.Fatalf("unexpected message %q", rec.msg)
	}
}
