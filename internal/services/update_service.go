package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/events"
	"github.com/tbourn/go-codeshare-backend/internal/repo"
	"github.com/tbourn/go-codeshare-backend/internal/utils"
)

// MaxUpdateRunes caps announcement length.
const MaxUpdateRunes = 2000

// UpdateService posts and lists announcements.
type UpdateService struct {
	DB *gorm.DB
	notifier
}

// NewUpdateService constructs an UpdateService.
func NewUpdateService(db *gorm.DB, pub events.Publisher) *UpdateService {
	return &UpdateService{DB: db, notifier: notifier{pub: pub}}
}

// Post appends an announcement. Administrators only.
func (s *UpdateService) Post(ctx context.Context, sess *domain.Session, text string) (*domain.Update, error) {
	const op = "updates.post"
	if err := requireAdmin(op, sess); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, s.failed(ctx, sess.UserID, "posting update", validationErr(op, ErrEmptyText))
	}
	if utf8.RuneCountInString(text) > MaxUpdateRunes {
		return nil, s.failed(ctx, sess.UserID, "posting update", validationErr(op, ErrTextTooLong))
	}
	u, err := repo.CreateUpdate(ctx, s.DB, text, sess.UserID)
	if err != nil {
		return nil, s.failed(ctx, sess.UserID, "posting update", storeErr(op, err))
	}
	s.ok(ctx, sess.UserID, "Update posted successfully!")
	return u, nil
}

// List returns a page of announcements, newest first, and the total count.
func (s *UpdateService) List(ctx context.Context, page, pageSize int) ([]domain.Update, int64, error) {
	const op = "updates.list"
	page, pageSize = utils.NormalizePage(page, pageSize)

	total, err := repo.CountUpdates(ctx, s.DB)
	if err != nil {
		return nil, 0, storeErr(op, err)
	}
	if total == 0 {
		return []domain.Update{}, 0, nil
	}
	items, err := repo.ListUpdatesPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, storeErr(op, err)
	}
	return items, total, nil
}
