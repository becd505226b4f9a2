package handlers

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/events"
	"github.com/tbourn/go-codeshare-backend/internal/repo"
	"github.com/tbourn/go-codeshare-backend/internal/services"
)

// CodeService is the code registry as seen by the transport.
type CodeService interface {
	ListActive(ctx context.Context, now time.Time) ([]domain.Code, error)
	Stats(ctx context.Context, now time.Time) (repo.CodeStats, error)
	Get(ctx context.Context, id string) (*domain.Code, error)
	Publish(ctx context.Context, sess *domain.Session, d services.Draft) (*domain.Code, error)
	Claim(ctx context.Context, sess *domain.Session, id string) (*domain.Code, error)
	ListAll(ctx context.Context, sess *domain.Session) ([]domain.Code, error)
	AdminAdd(ctx context.Context, sess *domain.Session, d services.Draft) (*domain.Code, error)
	Remove(ctx context.Context, sess *domain.Session, id string) error
	Purge(ctx context.Context, sess *domain.Session, now time.Time) (int64, error)
}

// LedgerService exposes the caller's balance.
type LedgerService interface {
	EnsureEntry(ctx context.Context, userID string) (*domain.LedgerEntry, error)
	WatchAd(ctx context.Context, sess *domain.Session) (int64, error)
	Reward() int64
}

// SessionService signs users in and out.
type SessionService interface {
	SignUp(ctx context.Context, email, password string) (*domain.Session, string, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, string, error)
	SignOut(ctx context.Context, sess *domain.Session) error
}

// UpdateService is the announcements feed.
type UpdateService interface {
	Post(ctx context.Context, sess *domain.Session, text string) (*domain.Update, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Update, int64, error)
}

// IdempotencyRecorder remembers which resource a keyed request produced.
type IdempotencyRecorder interface {
	Record(ctx context.Context, userID, scope, key, resourceID string, status int) error
}

// Subscriber hands out event subscriptions for the WebSocket stream.
type Subscriber interface {
	Subscribe(userID string, buffer int) *events.Subscription
}

// Handlers groups every endpoint. Construct with New.
type Handlers struct {
	codes    CodeService
	ledger   LedgerService
	sessions SessionService
	updates  UpdateService
	idem     IdempotencyRecorder
	events   Subscriber

	now func() time.Time
}

// Deps are the services Handlers depends on. Idem and Events may be nil.
type Deps struct {
	Codes    CodeService
	Ledger   LedgerService
	Sessions SessionService
	Updates  UpdateService
	Idem     IdempotencyRecorder
	Events   Subscriber
}

// New returns Handlers bound to d.
func New(d Deps) *Handlers {
	return &Handlers{
		codes:    d.Codes,
		ledger:   d.Ledger,
		sessions: d.Sessions,
		updates:  d.Updates,
		idem:     d.Idem,
		events:   d.Events,
		now:      time.Now,
	}
}

// maskCode hides a code from anonymous visitors while keeping its length.
func maskCode(s string) string {
	return strings.Repeat("•", utf8.RuneCountInString(s))
}
