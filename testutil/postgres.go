// Package testutil holds shared helpers for package tests.
package testutil

import (
	"os"
	"testing"

	"github.com/onnwee/command-tender/backend/db"
	"github.com/onnwee/command-tender/backend/store"
)

// SetupPostgresStore connects to TEST_PG_DSN, runs migrations and returns an empty SQL store.
// It skips the test if TEST_PG_DSN environment variable is not set.
func SetupPostgresStore(t *testing.T) *store.SQLStore {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, dialect, err := db.Connect(dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Prepare(database, dialect); err != nil {
		_ = database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	if _, err := database.Exec(`TRUNCATE custom_commands RESTART IDENTITY`); err != nil {
		_ = database.Close()
		t.Fatalf("failed to truncate custom_commands: %v", err)
	}
	st := store.NewSQLStore(database, dialect)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// SetupSQLiteStore returns an empty SQL store on an in-memory SQLite database.
func SetupSQLiteStore(t *testing.T) *store.SQLStore {
	t.Helper()
	database, dialect, err := db.Connect("sqlite::memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.Prepare(database, dialect); err != nil {
		_ = database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	st := store.NewSQLStore(database, dialect)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}
