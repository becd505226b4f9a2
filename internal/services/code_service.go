// Package services – CodeService
//
// CodeService is the code registry: listing active codes, publishing codes
// bought with points, administrator add/remove, claiming, and the expiry
// purge. Publishing debits the author and inserts the code in a single
// transaction, so a failed insert never costs points.
//
// Claims are single-statement atomic increments. With EnforceCeiling the
// increment is conditional on claimed_count < max_claims and a code at its
// ceiling fails with ErrFullyClaimed; without it, claims past the ceiling
// are counted.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/events"
	"github.com/tbourn/go-codeshare-backend/internal/metrics"
	"github.com/tbourn/go-codeshare-backend/internal/repo"
)

// MaxCodeRunes caps the stored redemption string.
const MaxCodeRunes = 128

// CodeRepo defines the repository contract required by CodeService.
type CodeRepo interface {
	// CreateCode inserts a code row.
	CreateCode(ctx context.Context, db *gorm.DB, c *domain.Code) error

	// ListActiveCodes returns codes whose expiry day is on or after today.
	ListActiveCodes(ctx context.Context, db *gorm.DB, today string) ([]domain.Code, error)

	// ListCodes returns every code.
	ListCodes(ctx context.Context, db *gorm.DB) ([]domain.Code, error)

	// GetCode fetches one code.
	GetCode(ctx context.Context, db *gorm.DB, id string) (*domain.Code, error)

	// IncrementClaims atomically adds one claim, optionally bounded by max_claims.
	IncrementClaims(ctx context.Context, db *gorm.DB, id string, ceiling bool) (*domain.Code, error)

	// DeleteCode removes a code.
	DeleteCode(ctx context.Context, db *gorm.DB, id string) error

	// DeleteExpiredCodes deletes codes whose expiry day is before today.
	DeleteExpiredCodes(ctx context.Context, db *gorm.DB, today string) (int64, error)

	// ActiveCodesStats aggregates the active listing.
	ActiveCodesStats(ctx context.Context, db *gorm.DB, today string) (repo.CodeStats, error)
}

// Draft is an unvalidated code submission.
type Draft struct {
	Code       string
	Coin       string
	MaxClaims  int
	ExpiryDate string
}

// CodeService implements the code registry.
type CodeService struct {
	DB   *gorm.DB
	Repo CodeRepo

	// PublishCost is debited from the author per published code.
	PublishCost int64
	// Coins is the allowed coin enumeration (upper-cased). Empty allows any.
	Coins map[string]struct{}
	// EnforceCeiling rejects claims on fully claimed codes.
	EnforceCeiling bool

	Now   func() time.Time
	upper cases.Caser

	notifier
}

// NewCodeService constructs a CodeService.
func NewCodeService(db *gorm.DB, r CodeRepo, pub events.Publisher, publishCost int64, coins []string, enforceCeiling bool) *CodeService {
	set := make(map[string]struct{}, len(coins))
	for _, c := range coins {
		set[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return &CodeService{
		DB:             db,
		Repo:           r,
		PublishCost:    publishCost,
		Coins:          set,
		EnforceCeiling: enforceCeiling,
		Now:            time.Now,
		upper:          cases.Upper(language.Und),
		notifier:       notifier{pub: pub},
	}
}

func (s *CodeService) tracer() trace.Tracer { return otel.Tracer("services/CodeService") }

// ListActive returns every code whose expiry day is on or after now's day.
// Order is newest first; callers must not rely on it beyond one result.
func (s *CodeService) ListActive(ctx context.Context, now time.Time) ([]domain.Code, error) {
	ctx, span := s.tracer().Start(ctx, "ListActive")
	defer span.End()

	out, err := s.Repo.ListActiveCodes(ctx, s.DB, domain.Today(now))
	if err != nil {
		return nil, storeErr("codes.list_active", err)
	}
	return out, nil
}

// ListAll returns every code including expired ones. Administrators only.
func (s *CodeService) ListAll(ctx context.Context, sess *domain.Session) ([]domain.Code, error) {
	const op = "codes.list_all"
	if err := requireAdmin(op, sess); err != nil {
		return nil, err
	}
	ctx, span := s.tracer().Start(ctx, "ListAll")
	defer span.End()

	out, err := s.Repo.ListCodes(ctx, s.DB)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

// Get returns one code regardless of expiry.
func (s *CodeService) Get(ctx context.Context, id string) (*domain.Code, error) {
	const op = "codes.get"
	c, err := s.Repo.GetCode(ctx, s.DB, id)
	if isNotFound(err) {
		return nil, newErr(KindNotFound, op, ErrCodeNotFound)
	}
	if err != nil {
		return nil, storeErr(op, err)
	}
	return c, nil
}

// Stats summarizes the active listing.
func (s *CodeService) Stats(ctx context.Context, now time.Time) (repo.CodeStats, error) {
	st, err := s.Repo.ActiveCodesStats(ctx, s.DB, domain.Today(now))
	if err != nil {
		return repo.CodeStats{}, storeErr("codes.stats", err)
	}
	return st, nil
}

// CanPublish reports whether points cover the publishing cost.
func (s *CodeService) CanPublish(points int64) bool { return points >= s.PublishCost }

// Publish validates d, checks the author's balance, then debits PublishCost
// and inserts the code in one transaction.
func (s *CodeService) Publish(ctx context.Context, sess *domain.Session, d Draft) (*domain.Code, error) {
	const op = "codes.publish"
	if sess == nil {
		return nil, authErr(op, ErrUnauthenticated)
	}
	ctx, span := s.tracer().Start(ctx, "Publish", trace.WithAttributes(attribute.String("user.id", sess.UserID)))
	defer span.End()

	start := time.Now()
	c, err := s.publish(ctx, op, sess, d)
	metrics.RecordOperation(op, start, err)
	if err != nil {
		return nil, s.failed(ctx, sess.UserID, "publishing code", err)
	}
	metrics.RecordPublished("user")
	if s.PublishCost > 0 {
		metrics.RecordDebit(s.PublishCost)
	}

	if e, gerr := repo.GetLedgerEntry(ctx, s.DB, sess.UserID); gerr == nil {
		s.emit(ctx, events.PointsChanged(sess.UserID, e.Points))
	}
	s.emit(ctx, events.CodesChanged())
	s.ok(ctx, sess.UserID, "Code published successfully!")
	return c, nil
}

func (s *CodeService) publish(ctx context.Context, op string, sess *domain.Session, d Draft) (*domain.Code, error) {
	now := s.Now()
	c, err := s.validate(op, d, now)
	if err != nil {
		return nil, err
	}
	c.PublishedBy = sess.UserID

	// Reject before any mutation when the balance cannot cover the cost.
	entry, err := repo.EnsureLedgerEntry(ctx, s.DB, sess.UserID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if !s.CanPublish(entry.Points) {
		return nil, newErr(KindInsufficientPoints, op,
			fmt.Errorf("%w: need %d, have %d", ErrInsufficientPoints, s.PublishCost, entry.Points))
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.PublishCost > 0 {
			if err := debit(ctx, tx, op, sess.UserID, s.PublishCost); err != nil {
				return err
			}
		}
		return s.Repo.CreateCode(ctx, tx, c)
	})
	if err != nil {
		return nil, storeErr(op, err)
	}
	return c, nil
}

// AdminAdd inserts a code without a debit, published by "admin".
func (s *CodeService) AdminAdd(ctx context.Context, sess *domain.Session, d Draft) (*domain.Code, error) {
	const op = "codes.admin_add"
	if err := requireAdmin(op, sess); err != nil {
		return nil, err
	}
	ctx, span := s.tracer().Start(ctx, "AdminAdd")
	defer span.End()

	c, err := s.validate(op, d, s.Now())
	if err != nil {
		return nil, s.failed(ctx, sess.UserID, "adding code", err)
	}
	c.PublishedBy = domain.PublishedByAdmin
	if err := s.Repo.CreateCode(ctx, s.DB, c); err != nil {
		return nil, s.failed(ctx, sess.UserID, "adding code", storeErr(op, err))
	}
	metrics.RecordPublished("admin")

	s.emit(ctx, events.CodesChanged())
	s.ok(ctx, sess.UserID, "Code added by admin!")
	return c, nil
}

// Claim records one redemption of code id and returns the updated code so
// the caller can hand its string to the user.
func (s *CodeService) Claim(ctx context.Context, sess *domain.Session, id string) (*domain.Code, error) {
	const op = "codes.claim"
	if sess == nil {
		return nil, authErr(op, ErrUnauthenticated)
	}
	ctx, span := s.tracer().Start(ctx, "Claim", trace.WithAttributes(
		attribute.String("code.id", id),
		attribute.String("user.id", sess.UserID),
	))
	defer span.End()

	start := time.Now()
	c, err := s.Repo.IncrementClaims(ctx, s.DB, id, s.EnforceCeiling)
	switch {
	case errors.Is(err, repo.ErrConditionFailed):
		metrics.RecordClaim("fully_claimed")
		err = newErr(KindFullyClaimed, op, ErrFullyClaimed)
	case isNotFound(err):
		metrics.RecordClaim("not_found")
		err = newErr(KindNotFound, op, ErrCodeNotFound)
	case err != nil:
		metrics.RecordClaim("error")
		err = storeErr(op, err)
	default:
		metrics.RecordClaim("ok")
	}
	metrics.RecordOperation(op, start, err)
	if err != nil {
		return nil, s.failed(ctx, sess.UserID, "copying code", err)
	}

	s.emit(ctx, events.CodesChanged())
	s.ok(ctx, sess.UserID, "Code copied to clipboard! Paste it in Binance app.")
	return c, nil
}

// Remove deletes a code. Administrators only.
func (s *CodeService) Remove(ctx context.Context, sess *domain.Session, id string) error {
	const op = "codes.remove"
	if err := requireAdmin(op, sess); err != nil {
		return err
	}
	ctx, span := s.tracer().Start(ctx, "Remove", trace.WithAttributes(attribute.String("code.id", id)))
	defer span.End()

	err := s.Repo.DeleteCode(ctx, s.DB, id)
	if isNotFound(err) {
		return s.failed(ctx, sess.UserID, "deleting code", newErr(KindNotFound, op, ErrCodeNotFound))
	}
	if err != nil {
		return s.failed(ctx, sess.UserID, "deleting code", storeErr(op, err))
	}
	s.emit(ctx, events.CodesChanged())
	s.ok(ctx, sess.UserID, "Code deleted successfully!")
	return nil
}

// PurgeExpired deletes every code whose expiry day is before now's day, as
// one batch. Zero matches is a no-op returning 0.
func (s *CodeService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "codes.purge_expired"
	ctx, span := s.tracer().Start(ctx, "PurgeExpired")
	defer span.End()

	start := time.Now()
	n, err := s.Repo.DeleteExpiredCodes(ctx, s.DB, domain.Today(now))
	metrics.RecordOperation(op, start, err)
	if err != nil {
		return 0, storeErr(op, err)
	}
	span.SetAttributes(attribute.Int64("codes.purged", n))
	metrics.RecordPurged(n)
	if n > 0 {
		s.emit(ctx, events.CodesChanged())
	}
	return n, nil
}

// Purge is the administrator-triggered PurgeExpired.
func (s *CodeService) Purge(ctx context.Context, sess *domain.Session, now time.Time) (int64, error) {
	if err := requireAdmin("codes.purge", sess); err != nil {
		return 0, err
	}
	return s.PurgeExpired(ctx, now)
}

// validate normalizes d into a new Code with a fresh id and timestamp.
func (s *CodeService) validate(op string, d Draft, now time.Time) (*domain.Code, error) {
	code := s.upper.String(strings.TrimSpace(d.Code))
	if code == "" {
		return nil, validationErr(op, ErrEmptyCode)
	}
	if utf8.RuneCountInString(code) > MaxCodeRunes {
		return nil, validationErr(op, ErrCodeTooLong)
	}

	coin := strings.ToUpper(strings.TrimSpace(d.Coin))
	if coin == "" {
		return nil, validationErr(op, ErrUnknownCoin)
	}
	if len(s.Coins) > 0 {
		if _, ok := s.Coins[coin]; !ok {
			return nil, validationErr(op, ErrUnknownCoin)
		}
	}

	if d.MaxClaims <= 0 {
		return nil, validationErr(op, ErrInvalidMaxClaims)
	}

	day, err := time.Parse(domain.DateLayout, strings.TrimSpace(d.ExpiryDate))
	if err != nil {
		return nil, validationErr(op, ErrInvalidExpiry)
	}
	expiry := day.Format(domain.DateLayout)
	if expiry < domain.Today(now) {
		return nil, validationErr(op, ErrExpiryInPast)
	}

	return &domain.Code{
		ID:          uuid.NewString(),
		Code:        code,
		Coin:        coin,
		MaxClaims:   d.MaxClaims,
		ExpiryDate:  expiry,
		PublishedAt: now.UTC(),
	}, nil
}

// requireAdmin enforces an authenticated administrator session.
func requireAdmin(op string, sess *domain.Session) error {
	if sess == nil {
		return authErr(op, ErrUnauthenticated)
	}
	if !sess.IsAdmin {
		return deniedErr(op)
	}
	return nil
}
