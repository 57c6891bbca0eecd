// Package dbtest opens an isolated, migrated in-memory database for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/otcheredev/hospital-records/internal/database"
	"gorm.io/gorm"
)

var seq atomic.Int64

// Setup points database.DB at a fresh in-memory SQLite database with foreign
// keys enforced, migrates every model and restores the previous handle on cleanup.
func Setup(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, seq.Add(1))

	db, err := database.Open(sqlite.Open(dsn), "silent")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		sqlDB.Close()
	})

	if err := database.AutoMigrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
