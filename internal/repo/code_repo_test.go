package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
)

func TestCreateAndGetCode(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	c := &domain.Code{ID: "c1", Code: "ABC123", Coin: "ETH", MaxClaims: 2, ExpiryDate: "2099-12-31", PublishedBy: "u1", PublishedAt: now}
	if err := CreateCode(ctx, db, c); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	got, err := GetCode(ctx, db, "c1")
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if got.Code != "ABC123" || got.ClaimedCount != 0 || got.MaxClaims != 2 {
		t.Fatalf("unexpected code: %+v", got)
	}

	if _, err := GetCode(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActiveCodes_FiltersByExpiryDay(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	seedCode(t, db, "past", "2025-06-09", 1, 0, base)
	seedCode(t, db, "today", "2025-06-10", 1, 0, base.Add(time.Minute))
	seedCode(t, db, "future", "2025-07-01", 1, 0, base.Add(2*time.Minute))

	got, err := ListActiveCodes(ctx, db, "2025-06-10")
	if err != nil {
		t.Fatalf("ListActiveCodes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 active codes, got %d", len(got))
	}
	// newest first
	if got[0].ID != "future" || got[1].ID != "today" {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}

	all, err := ListCodes(ctx, db)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListCodes: len=%d err=%v", len(all), err)
	}
}

func TestIncrementClaims_Unconditional_OverClaims(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedCode(t, db, "c1", "2099-01-01", 2, 0, time.Now().UTC())

	for i := 1; i <= 3; i++ {
		c, err := IncrementClaims(ctx, db, "c1", false)
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if c.ClaimedCount != i {
			t.Fatalf("claim %d: claimed_count=%d", i, c.ClaimedCount)
		}
	}
}

func TestIncrementClaims_Ceiling(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedCode(t, db, "c1", "2099-01-01", 2, 0, time.Now().UTC())

	for i := 1; i <= 2; i++ {
		if _, err := IncrementClaims(ctx, db, "c1", true); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	c, err := IncrementClaims(ctx, db, "c1", true)
	if !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed at ceiling, got %v", err)
	}
	if c == nil || c.ClaimedCount != 2 {
		t.Fatalf("claimed_count must stay at 2, got %+v", c)
	}

	if _, err := IncrementClaims(ctx, db, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown code, got %v", err)
	}
}

func TestIncrementClaims_ConcurrentIsExact(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedCode(t, db, "c1", "2099-01-01", 3, 0, time.Now().UTC())

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := IncrementClaims(ctx, db, "c1", false); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent claim: %v", err)
	}

	c, err := GetCode(ctx, db, "c1")
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if c.ClaimedCount != n {
		t.Fatalf("claimed_count = %d; want %d", c.ClaimedCount, n)
	}
}

func TestIncrementClaims_ConcurrentWithCeiling(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedCode(t, db, "c1", "2099-01-01", 3, 0, time.Now().UTC())

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		blocked int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := IncrementClaims(ctx, db, "c1", true)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConditionFailed):
				blocked++
			}
		}()
	}
	wg.Wait()

	if ok != 3 || blocked != n-3 {
		t.Fatalf("ok=%d blocked=%d; want 3 and %d", ok, blocked, n-3)
	}
}

func TestDeleteCode(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedCode(t, db, "c1", "2099-01-01", 1, 0, time.Now().UTC())

	if err := DeleteCode(ctx, db, "c1"); err != nil {
		t.Fatalf("DeleteCode: %v", err)
	}
	if err := DeleteCode(ctx, db, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteExpiredCodes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedCode(t, db, "old1", "2025-01-01", 1, 0, now)
	seedCode(t, db, "old2", "2025-06-09", 1, 1, now)
	seedCode(t, db, "edge", "2025-06-10", 1, 0, now)
	seedCode(t, db, "new", "2025-12-31", 1, 0, now)

	n, err := DeleteExpiredCodes(ctx, db, "2025-06-10")
	if err != nil {
		t.Fatalf("DeleteExpiredCodes: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted = %d; want 2", n)
	}
	left, _ := ListCodes(ctx, db)
	if len(left) != 2 {
		t.Fatalf("remaining = %d; want 2", len(left))
	}
	for _, c := range left {
		if c.ID != "edge" && c.ID != "new" {
			t.Fatalf("unexpected survivor %s", c.ID)
		}
	}

	// Nothing left to purge: no-op.
	n, err = DeleteExpiredCodes(ctx, db, "2025-06-10")
	if err != nil || n != 0 {
		t.Fatalf("second purge: n=%d err=%v", n, err)
	}
}
