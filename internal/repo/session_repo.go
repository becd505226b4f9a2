package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
)

// CreateSession persists s as given.
func CreateSession(ctx context.Context, db *gorm.DB, s *domain.Session) error {
	return db.WithContext(ctx).Create(s).Error
}

// GetSession returns an unexpired session by id or ErrNotFound.
func GetSession(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, now).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession removes a session. Deleting a missing session is a no-op.
func DeleteSession(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Session{}).Error
}

// HasActiveAdminSession reports whether any administrator session is live at now.
func HasActiveAdminSession(ctx context.Context, db *gorm.DB, now time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Session{}).
		Where("is_admin = ? AND expires_at > ?", true, now).
		Count(&n).Error
	return n > 0, err
}

// DeleteExpiredSessions drops sessions that expired before now.
func DeleteExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}
