package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
)

// CreateUpdate appends an announcement.
func CreateUpdate(ctx context.Context, db *gorm.DB, text, postedBy string) (*domain.Update, error) {
	u := &domain.Update{
		ID:       uuid.NewString(),
		Text:     text,
		PostedBy: postedBy,
		PostedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// CountUpdates returns the number of announcements.
func CountUpdates(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Update{}).Count(&total).Error
	return total, err
}

// ListUpdatesPage returns announcements newest first.
func ListUpdatesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Update, error) {
	var out []domain.Update
	err := db.WithContext(ctx).
		Order("posted_at desc").Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
