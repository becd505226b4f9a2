package services

import (
	"context"
	"strings"
	"testing"

	"github.com/tbourn/go-codeshare-backend/internal/events"
)

func TestUpdatePost_AdminOnlyAndValidated(t *testing.T) {
	pub := &captured{}
	s := NewUpdateService(newTestDB(t), pub)
	ctx := context.Background()

	_, err := s.Post(ctx, userSession("u1"), "hello")
	wantKind(t, err, KindPermissionDenied)
	_, err = s.Post(ctx, nil, "hello")
	wantKind(t, err, KindAuth)
	_, err = s.Post(ctx, adminSession(), "   ")
	wantKind(t, err, KindValidation)
	_, err = s.Post(ctx, adminSession(), strings.Repeat("x", MaxUpdateRunes+1))
	wantKind(t, err, KindValidation)

	u, err := s.Post(ctx, adminSession(), "  New codes every Friday  ")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if u.Text != "New codes every Friday" || u.PostedBy != "admin-1" {
		t.Fatalf("unexpected update: %+v", u)
	}
	ok := pub.ofType(events.OperationSucceeded)
	if len(ok) != 1 || ok[0].Message != "Update posted successfully!" {
		t.Fatalf("unexpected success events: %+v", ok)
	}
}

func TestUpdateList_Paging(t *testing.T) {
	s := NewUpdateService(newTestDB(t), nil)
	ctx := context.Background()

	items, total, err := s.List(ctx, 0, 0)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty list = %v, %d, %v", items, total, err)
	}

	for _, txt := range []string{"one", "two", "three"} {
		if _, err := s.Post(ctx, adminSession(), txt); err != nil {
			t.Fatal(err)
		}
	}
	items, total, err = s.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(items) != 1 {
		t.Fatalf("page 2 = %d items of %d; want 1 of 3", len(items), total)
	}
}
