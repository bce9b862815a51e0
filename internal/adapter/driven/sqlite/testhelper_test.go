package sqlite

import "testing"

// setupTestDB opens a migrated in-memory database named after the test, so
// the writer and reader pools share data and tests stay isolated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := openMemory(t.Name())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
