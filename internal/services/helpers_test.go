package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/events"
	"github.com/tbourn/go-codeshare-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
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

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// ----- Repo shim over the real repository -----

type dbCodeRepo struct{}

func (dbCodeRepo) CreateCode(ctx context.Context, db *gorm.DB, c *domain.Code) error {
	return repo.CreateCode(ctx, db, c)
}
func (dbCodeRepo) ListActiveCodes(ctx context.Context, db *gorm.DB, today string) ([]domain.Code, error) {
	return repo.ListActiveCodes(ctx, db, today)
}
func (dbCodeRepo) ListCodes(ctx context.Context, db *gorm.DB) ([]domain.Code, error) {
	return repo.ListCodes(ctx, db)
}
func (dbCodeRepo) GetCode(ctx context.Context, db *gorm.DB, id string) (*domain.Code, error) {
	return repo.GetCode(ctx, db, id)
}
func (dbCodeRepo) IncrementClaims(ctx context.Context, db *gorm.DB, id string, ceiling bool) (*domain.Code, error) {
	return repo.IncrementClaims(ctx, db, id, ceiling)
}
func (dbCodeRepo) DeleteCode(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteCode(ctx, db, id)
}
func (dbCodeRepo) DeleteExpiredCodes(ctx context.Context, db *gorm.DB, today string) (int64, error) {
	return repo.DeleteExpiredCodes(ctx, db, today)
}
func (dbCodeRepo) ActiveCodesStats(ctx context.Context, db *gorm.DB, today string) (repo.CodeStats, error) {
	return repo.ActiveCodesStats(ctx, db, today)
}

// failingInsertRepo fails every CreateCode after the debit has run.
type failingInsertRepo struct{ dbCodeRepo }

var errInsert = errors.New("disk full")

func (failingInsertRepo) CreateCode(context.Context, *gorm.DB, *domain.Code) error {
	return errInsert
}

// ----- Capturing publisher -----

type captured struct {
	mu  sync.Mutex
	evs []events.Event
}

func (c *captured) Publish(_ context.Context, e events.Event) {
	c.mu.Lock()
	c.evs = append(c.evs, e)
	c.mu.Unlock()
}

func (c *captured) ofType(t events.Type) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.evs {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ----- Fixtures -----

var fixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func userSession(id string) *domain.Session {
	return &domain.Session{ID: "s-" + id, UserID: id, Email: id + "@example.com"}
}

func adminSession() *domain.Session {
	return &domain.Session{ID: "s-admin", UserID: "admin-1", Email: "boss@example.com", IsAdmin: true}
}

func newCodeService(t *testing.T, db *gorm.DB, pub events.Publisher, ceiling bool) *CodeService {
	t.Helper()
	s := NewCodeService(db, dbCodeRepo{}, pub, 5, []string{"btc", "ETH"}, ceiling)
	s.Now = func() time.Time { return fixedNow }
	return s
}

func seedPoints(t *testing.T, db *gorm.DB, userID string, points int64) {
	t.Helper()
	if _, err := repo.EnsureLedgerEntry(context.Background(), db, userID); err != nil {
		t.Fatalf("ensure entry: %v", err)
	}
	if points > 0 {
		if err := repo.AddPoints(context.Background(), db, userID, points, nil); err != nil {
			t.Fatalf("add points: %v", err)
		}
	}
}

func pointsOf(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	e, err := repo.GetLedgerEntry(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	return e.Points
}

func countCodes(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.Code{}).Count(&n).Error; err != nil {
		t.Fatalf("count codes: %v", err)
	}
	return n
}

func insertCode(t *testing.T, db *gorm.DB, id, code, expiry string, maxClaims, claimed int) {
	t.Helper()
	c := &domain.Code{
		ID:           id,
		Code:         code,
		Coin:         "BTC",
		MaxClaims:    maxClaims,
		ClaimedCount: claimed,
		ExpiryDate:   expiry,
		PublishedBy:  "u1",
		PublishedAt:  fixedNow,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("insert code %s: %v", id, err)
	}
}

func wantKind(t *testing.T, err error, k Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", k)
	}
	if got := KindOf(err); got != k {
		t.Fatalf("kind = %q; want %q (err=%v)", got, k, err)
	}
}
