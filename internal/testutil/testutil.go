package testutil

import (
	"path/filepath"
	"testing"

	"github.com/vity-loop/vity-loop/internal/store"
)

// SetupTestStore creates a test database and returns the store with cleanup
// registered. Uses t.TempDir() for automatic removal on test completion.
func SetupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}
