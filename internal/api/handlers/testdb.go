package handlers

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/database"
)

// OpenTestDB returns a migrated database in a per-test temporary file.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}
