package repo

import (
	"context"
	"testing"
	"time"
)

func TestActiveCodesStats_Empty(t *testing.T) {
	db := newTestDB(t)
	st, err := ActiveCodesStats(context.Background(), db, "2025-06-10")
	if err != nil {
		t.Fatalf("ActiveCodesStats: %v", err)
	}
	if st.Available != 0 || st.TotalClaims != 0 || st.LastPublished != nil {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestActiveCodesStats_CountsOnlyActive(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	seedCode(t, db, "expired", "2025-06-01", 5, 5, base.Add(3*time.Hour))
	seedCode(t, db, "a", "2025-06-10", 5, 2, base)
	seedCode(t, db, "b", "2025-06-20", 5, 3, base.Add(time.Hour))

	st, err := ActiveCodesStats(context.Background(), db, "2025-06-10")
	if err != nil {
		t.Fatalf("ActiveCodesStats: %v", err)
	}
	if st.Available != 2 || st.TotalClaims != 5 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.LastPublished == nil || !st.LastPublished.Equal(base.Add(time.Hour)) {
		t.Fatalf("LastPublished = %v; want %v", st.LastPublished, base.Add(time.Hour))
	}
}
