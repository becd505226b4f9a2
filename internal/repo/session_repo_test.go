package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
)

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, err := CreateAccount(ctx, db, "a@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if a.ID == "" || a.CreatedAt.IsZero() {
		t.Fatalf("unexpected account: %+v", a)
	}
	if _, err := CreateAccount(ctx, db, "a@example.com", "other"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := GetAccountByEmail(ctx, db, "a@example.com")
	if err != nil || got.ID != a.ID {
		t.Fatalf("GetAccountByEmail: got=%+v err=%v", got, err)
	}
	if _, err := GetAccountByEmail(ctx, db, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s := &domain.Session{ID: "s1", UserID: "u1", Email: "a@example.com", IsAdmin: false, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := CreateSession(ctx, db, s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := GetSession(ctx, db, "s1", now)
	if err != nil || got.UserID != "u1" {
		t.Fatalf("GetSession: got=%+v err=%v", got, err)
	}
	if _, err := GetSession(ctx, db, "s1", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session should not be returned, got %v", err)
	}

	if err := DeleteSession(ctx, db, "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := DeleteSession(ctx, db, "s1"); err != nil {
		t.Fatalf("second DeleteSession must be a no-op, got %v", err)
	}
	if _, err := GetSession(ctx, db, "s1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted session should be gone, got %v", err)
	}
}

func TestHasActiveAdminSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	has, err := HasActiveAdminSession(ctx, db, now)
	if err != nil || has {
		t.Fatalf("empty table: has=%v err=%v", has, err)
	}

	_ = CreateSession(ctx, db, &domain.Session{ID: "u", UserID: "u1", Email: "u@x", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
	_ = CreateSession(ctx, db, &domain.Session{ID: "a-old", UserID: "a1", Email: "a@x", IsAdmin: true, CreatedAt: now, ExpiresAt: now.Add(-time.Minute)})
	if has, _ := HasActiveAdminSession(ctx, db, now); has {
		t.Fatalf("only a user session and an expired admin session exist")
	}

	_ = CreateSession(ctx, db, &domain.Session{ID: "a-live", UserID: "a1", Email: "a@x", IsAdmin: true, CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
	if has, _ := HasActiveAdminSession(ctx, db, now); !has {
		t.Fatalf("expected an active admin session")
	}

	n, err := DeleteExpiredSessions(ctx, db, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpiredSessions: n=%d err=%v", n, err)
	}
}
