package repo

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
)

// newTestDB opens a unique in-memory database with the full schema. A single
// connection keeps concurrent tests from tripping over SQLite table locks.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedCode(t *testing.T, db *gorm.DB, id, expiry string, maxClaims, claimed int, publishedAt time.Time) *domain.Code {
	t.Helper()
	c := &domain.Code{
		ID:           id,
		Code:         "CODE-" + id,
		Coin:         "BTC",
		MaxClaims:    maxClaims,
		ClaimedCount: claimed,
		ExpiryDate:   expiry,
		PublishedBy:  "u1",
		PublishedAt:  publishedAt,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed code %s: %v", id, err)
	}
	return c
}
