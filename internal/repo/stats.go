// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries over the code
// registry used for the listing summary and conditional responses (ETag).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
)

// CodeStats summarizes the active listing.
type CodeStats struct {
	Available     int64      // active codes
	TotalClaims   int64      // sum of claimed_count over active codes
	LastPublished *time.Time // newest published_at among active codes, nil if none
}

// ActiveCodesStats aggregates the codes whose expiry day is on or after today.
func ActiveCodesStats(ctx context.Context, db *gorm.DB, today string) (CodeStats, error) {
	var st CodeStats
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Code{}).Where("expiry_date >= ?", today)
	}

	if err := base().Count(&st.Available).Error; err != nil {
		return CodeStats{}, err
	}
	if st.Available == 0 {
		return st, nil
	}
	if err := base().Select("COALESCE(SUM(claimed_count), 0)").Scan(&st.TotalClaims).Error; err != nil {
		return CodeStats{}, err
	}

	// Latest published_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		PublishedAt time.Time
	}
	if err := base().Select("published_at").Order("published_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return CodeStats{}, err
	}
	st.LastPublished = &row.PublishedAt
	return st, nil
}
