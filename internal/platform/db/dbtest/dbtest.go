// Package dbtest opens a migrated, file-backed SQLite database for adapter
// tests. SQLite ignores row locking clauses, so tests exercise statement
// shape and transaction boundaries, not lock contention.
package dbtest

import (
	"log/slog"
	"path/filepath"
	"testing"

	"altvote/internal/platform/db"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Open(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "altvote.db")
	conn, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), db.GormConfig("silent", slog.Default()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("resolve sqlite handle: %v", err)
	}
	// A single connection keeps SQLite writers from tripping over each other.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}
