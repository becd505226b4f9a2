// Package services – SessionService
//
// SessionService is the session/role controller. A session moves from
// Unauthenticated to Authenticated(identity, isAdmin) on sign-in and back on
// sign-out. The administrator role is computed once from the injected
// allow-list when the session is created and stored with it.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
	"github.com/tbourn/go-codeshare-backend/internal/events"
	"github.com/tbourn/go-codeshare-backend/internal/identity"
	"github.com/tbourn/go-codeshare-backend/internal/repo"
)

// AdminSet is a case-insensitive set of administrator e-mail addresses.
type AdminSet map[string]struct{}

// NewAdminSet builds an AdminSet from emails.
func NewAdminSet(emails ...string) AdminSet {
	set := make(AdminSet, len(emails))
	for _, e := range emails {
		if e = identity.NormalizeEmail(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// Contains reports whether email is an administrator.
func (a AdminSet) Contains(email string) bool {
	_, ok := a[identity.NormalizeEmail(email)]
	return ok
}

// SessionService coordinates the identity provider, session records and
// the ledger entry created on first sign-in.
type SessionService struct {
	DB       *gorm.DB
	Provider *identity.Provider
	Tokens   *identity.TokenIssuer
	Admins   AdminSet
	Ledger   *LedgerService
	TTL      time.Duration

	Now func() time.Time

	notifier
}

// NewSessionService wires the controller to provider's change stream.
func NewSessionService(db *gorm.DB, provider *identity.Provider, tokens *identity.TokenIssuer, admins AdminSet, ledger *LedgerService, pub events.Publisher, ttl time.Duration) *SessionService {
	s := &SessionService{
		DB:       db,
		Provider: provider,
		Tokens:   tokens,
		Admins:   admins,
		Ledger:   ledger,
		TTL:      ttl,
		Now:      time.Now,
		notifier: notifier{pub: pub},
	}
	provider.OnChange(s.observe)
	return s
}

// observe reacts to identity changes: on sign-in the ledger entry is
// ensured, and every change is announced as session_changed.
func (s *SessionService) observe(ctx context.Context, ch identity.Change) {
	if ch.Identity == nil {
		s.emit(ctx, events.SessionState(ch.Subject, false, false))
		return
	}
	if _, err := s.Ledger.EnsureEntry(ctx, ch.Identity.Subject); err != nil {
		log.Error().Err(err).Str("user_id", ch.Identity.Subject).Msg("ensure ledger entry on sign-in")
	}
	s.emit(ctx, events.SessionState(ch.Identity.Subject, true, s.Admins.Contains(ch.Identity.Email)))
}

// SignUp registers an account and opens a session for it.
func (s *SessionService) SignUp(ctx context.Context, email, password string) (*domain.Session, string, error) {
	const op = "session.sign_up"
	ctx, span := otel.Tracer("services/SessionService").Start(ctx, "SignUp")
	defer span.End()

	id, err := s.Provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, "", mapIdentityErr(op, err)
	}
	return s.begin(ctx, op, id)
}

// SignIn verifies credentials and opens a session.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (*domain.Session, string, error) {
	const op = "session.sign_in"
	ctx, span := otel.Tracer("services/SessionService").Start(ctx, "SignIn")
	defer span.End()

	id, err := s.Provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, "", mapIdentityErr(op, err)
	}
	return s.begin(ctx, op, id)
}

// SignOut ends sess. Signing out twice is harmless.
func (s *SessionService) SignOut(ctx context.Context, sess *domain.Session) error {
	const op = "session.sign_out"
	if sess == nil {
		return authErr(op, ErrUnauthenticated)
	}
	if err := repo.DeleteSession(ctx, s.DB, sess.ID); err != nil {
		return storeErr(op, err)
	}
	s.Provider.SignOut(ctx, sess.UserID)
	return nil
}

// Authenticate resolves a bearer token to its live session.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	const op = "session.authenticate"
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, authErr(op, ErrUnauthenticated)
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, authErr(op, ErrUnauthenticated)
	}
	sess, err := repo.GetSession(ctx, s.DB, claims.ID, s.Now().UTC())
	if isNotFound(err) {
		return nil, authErr(op, ErrUnauthenticated)
	}
	if err != nil {
		return nil, storeErr(op, err)
	}
	if sess.UserID != claims.Subject {
		return nil, authErr(op, ErrUnauthenticated)
	}
	return sess, nil
}

// HasActiveAdmin reports whether any administrator session is live.
func (s *SessionService) HasActiveAdmin(ctx context.Context, now time.Time) (bool, error) {
	ok, err := repo.HasActiveAdminSession(ctx, s.DB, now.UTC())
	if err != nil {
		return false, storeErr("session.has_active_admin", err)
	}
	return ok, nil
}

// PruneExpired drops expired session rows.
func (s *SessionService) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := repo.DeleteExpiredSessions(ctx, s.DB, now.UTC())
	if err != nil {
		return 0, storeErr("session.prune", err)
	}
	return n, nil
}

func (s *SessionService) begin(ctx context.Context, op string, id *identity.Identity) (*domain.Session, string, error) {
	now := s.Now().UTC()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    id.Subject,
		Email:     id.Email,
		IsAdmin:   s.Admins.Contains(id.Email),
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("user.id", sess.UserID),
		attribute.Bool("user.admin", sess.IsAdmin),
	)
	if err := repo.CreateSession(ctx, s.DB, sess); err != nil {
		return nil, "", storeErr(op, err)
	}
	token, err := s.Tokens.Issue(sess.ID, sess.UserID, sess.Email, sess.IsAdmin, sess.ExpiresAt)
	if err != nil {
		return nil, "", storeErr(op, err)
	}
	s.Provider.SignedIn(ctx, id)
	return sess, token, nil
}

func mapIdentityErr(op string, err error) error {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return authErr(op, ErrInvalidCredentials)
	case errors.Is(err, identity.ErrEmailTaken):
		return authErr(op, ErrEmailTaken)
	case errors.Is(err, identity.ErrInvalidEmail):
		return validationErr(op, ErrInvalidEmail)
	case errors.Is(err, identity.ErrWeakPassword):
		return validationErr(op, ErrWeakPassword)
	case errors.Is(err, identity.ErrPasswordTooLong):
		return validationErr(op, ErrPasswordTooLong)
	default:
		return storeErr(op, err)
	}
}
