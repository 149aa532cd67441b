package testutil

import (
	"database/sql"
	"io/fs"
	"sort"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/migrations"
)

// NewTestDB creates an in-memory SQLite database with the embedded schema applied
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// a second pooled connection would see a different empty database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	files, err := fs.Glob(migrations.GetFS(), "*.sql")
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	sort.Strings(files)
	for _, name := range files {
		content, err := fs.ReadFile(migrations.GetFS(), name)
		if err != nil {
			t.Fatalf("Failed to read migration %s: %v", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			t.Fatalf("Failed to apply migration %s: %v", name, err)
		}
	}

	return db
}

// CleanupDB closes the test database
func CleanupDB(db *sql.DB) {
	if db != nil {
		db.Close()
	}
}

// NewTestLogger returns a logger that only prints errors
func NewTestLogger() *logger.Logger {
	log, _ := logger.New(logger.Config{Level: "error", Format: "json"})
	return log
}
