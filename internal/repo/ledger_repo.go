package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
)

// EnsureLedgerEntry inserts a zero-balance entry for userID unless one
// already exists, then returns the stored entry. Concurrent callers race on
// the primary key and exactly one insert wins.
func EnsureLedgerEntry(ctx context.Context, db *gorm.DB, userID string) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{ID: userID, Points: 0, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(e).Error; err != nil {
		return nil, err
	}
	return GetLedgerEntry(ctx, db, userID)
}

// GetLedgerEntry returns the entry for userID or ErrNotFound.
func GetLedgerEntry(ctx context.Context, db *gorm.DB, userID string) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	if err := db.WithContext(ctx).Where("id = ?", userID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// AddPoints atomically adds amount to the balance. When adWatch is non-nil
// last_ad_watch is stamped in the same statement. ErrNotFound if the entry
// is missing.
func AddPoints(ctx context.Context, db *gorm.DB, userID string, amount int64, adWatch *time.Time) error {
	updates := map[string]any{"points": gorm.Expr("points + ?", amount)}
	if adWatch != nil {
		updates["last_ad_watch"] = *adWatch
	}
	res := db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Where("id = ?", userID).
		UpdateColumns(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SubtractPoints atomically removes amount from the balance only while the
// balance covers it. ErrConditionFailed when it does not; ErrNotFound when
// the entry is missing.
func SubtractPoints(ctx context.Context, db *gorm.DB, userID string, amount int64) error {
	res := db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Where("id = ? AND points >= ?", userID, amount).
		UpdateColumn("points", gorm.Expr("points - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := GetLedgerEntry(ctx, db, userID); err != nil {
		return err
	}
	return ErrConditionFailed
}
