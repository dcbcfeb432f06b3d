// Package testutil provides isolated databases for tests.
package testutil

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"servicecatalog.io/catalog/internal/infrastructure"
	"servicecatalog.io/catalog/internal/pkg/observability"
)

// OpenSQLite opens a private in-memory SQLite database with foreign keys
// enforced, the catalog schema created and the same statement callbacks as
// the PostgreSQL handle.
//
// The pool is capped at one connection: every connection to ":memory:" is a
// separate database.
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := observability.RegisterGORMCallbacks(db, observability.NewTracer(nil)); err != nil {
		t.Fatalf("register gorm callbacks: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := infrastructure.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}
