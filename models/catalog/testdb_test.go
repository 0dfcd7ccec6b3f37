package catalog_test

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
)

// newTestEngine opens a fresh in-memory SQLite engine and syncs the
// catalog schema onto it, the substitute dialect the test suite runs
// catalog-store operations against instead of a live Postgres.
func newTestEngine(t *testing.T) *db.Engine {
	t.Helper()
	engine, err := db.NewSQLite("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open sqlite engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	if err := engine.Sync(catalog.Tables()...); err != nil {
		t.Fatalf("sync schema: %v", err)
	}
	return engine
}
