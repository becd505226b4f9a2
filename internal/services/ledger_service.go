// Package services – LedgerService
//
// LedgerService owns user points balances: lazy creation on first sight,
// atomic credits and floor-checked debits, and the simulated ad reward.
// Every balance change emits a user_points_changed event for the owner.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/events"
	"github.com/tbourn/go-codeshare-backend/internal/metrics"
	"github.com/tbourn/go-codeshare-backend/internal/repo"
)

// LedgerService manages points balances.
type LedgerService struct {
	DB *gorm.DB

	// AdReward is credited per watched ad after AdWatchDelay.
	AdReward     int64
	AdWatchDelay time.Duration

	Now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error

	notifier
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(db *gorm.DB, pub events.Publisher, adReward int64, adWatchDelay time.Duration) *LedgerService {
	return &LedgerService{
		DB:           db,
		AdReward:     adReward,
		AdWatchDelay: adWatchDelay,
		Now:          time.Now,
		wait:         sleepCtx,
		notifier:     notifier{pub: pub},
	}
}

// Reward is the number of points one watched ad earns.
func (s *LedgerService) Reward() int64 { return s.AdReward }

func (s *LedgerService) tracer() trace.Tracer { return otel.Tracer("services/LedgerService") }

// EnsureEntry returns the user's entry, creating it with zero points when
// absent. Calling it repeatedly never creates a second entry.
func (s *LedgerService) EnsureEntry(ctx context.Context, userID string) (*domain.LedgerEntry, error) {
	const op = "ledger.ensure"
	ctx, span := s.tracer().Start(ctx, "EnsureEntry", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, authErr(op, ErrUnauthenticated)
	}
	e, err := repo.EnsureLedgerEntry(ctx, s.DB, userID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return e, nil
}

// GetPoints returns the current balance.
func (s *LedgerService) GetPoints(ctx context.Context, userID string) (int64, error) {
	const op = "ledger.get_points"
	e, err := repo.GetLedgerEntry(ctx, s.DB, userID)
	if isNotFound(err) {
		return 0, newErr(KindNotFound, op, ErrLedgerNotFound)
	}
	if err != nil {
		return 0, storeErr(op, err)
	}
	return e.Points, nil
}

// Credit atomically adds amount and returns the new balance.
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int64) (int64, error) {
	const op = "ledger.credit"
	ctx, span := s.tracer().Start(ctx, "Credit", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int64("amount", amount),
	))
	defer span.End()

	start := time.Now()
	err := s.credit(ctx, op, userID, amount, nil)
	metrics.RecordOperation(op, start, err)
	if err != nil {
		return 0, err
	}
	return s.announceBalance(ctx, userID)
}

// Debit atomically removes amount and returns the new balance. The balance
// never goes below zero: an uncovered debit fails with ErrInsufficientPoints
// and changes nothing.
func (s *LedgerService) Debit(ctx context.Context, userID string, amount int64) (int64, error) {
	const op = "ledger.debit"
	ctx, span := s.tracer().Start(ctx, "Debit", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int64("amount", amount),
	))
	defer span.End()

	start := time.Now()
	err := debit(ctx, s.DB, op, userID, amount)
	metrics.RecordOperation(op, start, err)
	if err != nil {
		return 0, err
	}
	metrics.RecordDebit(amount)
	return s.announceBalance(ctx, userID)
}

// WatchAd simulates watching an ad: it waits AdWatchDelay (aborting if ctx
// ends first), then credits AdReward and stamps last_ad_watch. There is no
// cooldown between ads.
func (s *LedgerService) WatchAd(ctx context.Context, sess *domain.Session) (int64, error) {
	const op = "ledger.watch_ad"
	if sess == nil {
		return 0, authErr(op, ErrUnauthenticated)
	}
	ctx, span := s.tracer().Start(ctx, "WatchAd", trace.WithAttributes(attribute.String("user.id", sess.UserID)))
	defer span.End()

	if err := s.wait(ctx, s.AdWatchDelay); err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := s.EnsureEntry(ctx, sess.UserID); err != nil {
		return 0, s.failed(ctx, sess.UserID, "adding points", err)
	}
	now := s.Now().UTC()
	err := s.credit(ctx, op, sess.UserID, s.AdReward, &now)
	metrics.RecordOperation(op, start, err)
	if err != nil {
		return 0, s.failed(ctx, sess.UserID, "adding points", err)
	}
	points, err := s.announceBalance(ctx, sess.UserID)
	if err != nil {
		return 0, err
	}
	s.ok(ctx, sess.UserID, fmt.Sprintf("+%d Points added! Watch more ads to earn more.", s.AdReward))
	return points, nil
}

func (s *LedgerService) credit(ctx context.Context, op, userID string, amount int64, adWatch *time.Time) error {
	if amount <= 0 {
		return validationErr(op, ErrInvalidAmount)
	}
	err := repo.AddPoints(ctx, s.DB, userID, amount, adWatch)
	if isNotFound(err) {
		return newErr(KindNotFound, op, ErrLedgerNotFound)
	}
	if err != nil {
		return storeErr(op, err)
	}
	metrics.RecordCredit(amount)
	return nil
}

// debit runs on db, which may be a transaction. Callers record the metric
// once the change is committed.
func debit(ctx context.Context, db *gorm.DB, op, userID string, amount int64) error {
	if amount <= 0 {
		return validationErr(op, ErrInvalidAmount)
	}
	err := repo.SubtractPoints(ctx, db, userID, amount)
	switch {
	case errors.Is(err, repo.ErrConditionFailed):
		return newErr(KindInsufficientPoints, op, ErrInsufficientPoints)
	case isNotFound(err):
		return newErr(KindNotFound, op, ErrLedgerNotFound)
	case err != nil:
		return storeErr(op, err)
	}
	return nil
}

// announceBalance reads the balance and emits user_points_changed.
func (s *LedgerService) announceBalance(ctx context.Context, userID string) (int64, error) {
	points, err := s.GetPoints(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.emit(ctx, events.PointsChanged(userID, points))
	return points, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
