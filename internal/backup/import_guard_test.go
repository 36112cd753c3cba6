package backup

import (
	"strings"
	"testing"

	"taskcore/testutil"
)

// Snapshots work against domain.PersistentStore and the blob facade only.
func TestBackupStaysOffServiceAndAdapters(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.OneOf(
		testutil.InfraImportForbidden,
		func(p string) bool { return strings.HasSuffix(p, "/internal/core") },
	), "backup reads and writes through domain.PersistentStore and blob.Store")
}
