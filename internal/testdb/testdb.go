// Package testdb opens throwaway sqlite databases carrying the full schema.
package testdb

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/richardliu001/org-wallet/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns an isolated in-memory database. It holds a single connection,
// so concurrent units of work queue behind each other instead of contending
// on row locks; SQLite ignores FOR UPDATE. Tests that need the real locking
// path use Postgres.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	models := append(model.LedgerModels(), model.DirectoryModels()...)
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}
