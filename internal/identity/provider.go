// Package identity is the email/password identity provider: accounts with
// bcrypt password hashes, HS256 session tokens, and a change notification
// stream. Credential checks never notify on their own: the caller reports a
// sign-in with SignedIn once its session exists.
package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-codeshare-backend/internal/repo"
)

// MinPasswordLen is the shortest accepted password, in runes.
const MinPasswordLen = 6

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

// Identity is an authenticated subject.
type Identity struct {
	Subject string
	Email   string
}

// Change is a sign-in (Identity set) or sign-out (Identity nil) of Subject.
type Change struct {
	Subject  string
	Identity *Identity
}

// Provider authenticates accounts stored through GORM.
type Provider struct {
	DB   *gorm.DB
	Cost int // bcrypt cost

	mu        sync.RWMutex
	listeners []func(context.Context, Change)
}

// NewProvider returns a provider hashing at cost.
func NewProvider(db *gorm.DB, cost int) *Provider {
	return &Provider{DB: db, Cost: cost}
}

// OnChange registers fn to be called synchronously on SignedIn and SignOut.
func (p *Provider) OnChange(fn func(context.Context, Change)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

func (p *Provider) notify(ctx context.Context, ch Change) {
	p.mu.RLock()
	ls := append([]func(context.Context, Change){}, p.listeners...)
	p.mu.RUnlock()
	for _, fn := range ls {
		fn(ctx, ch)
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a new account.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, ErrInvalidEmail
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return nil, ErrWeakPassword
	}
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	hash, err := HashPassword(password, p.Cost)
	if err != nil {
		return nil, err
	}
	acct, err := repo.CreateAccount(ctx, p.DB, email, hash)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return &Identity{Subject: acct.ID, Email: acct.Email}, nil
}

// SignIn verifies credentials.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	email = NormalizeEmail(email)
	acct, err := repo.GetAccountByEmail(ctx, p.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(password, acct.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &Identity{Subject: acct.ID, Email: acct.Email}, nil
}

// SignedIn reports id as signed in.
func (p *Provider) SignedIn(ctx context.Context, id *Identity) {
	p.notify(ctx, Change{Subject: id.Subject, Identity: id})
}

// SignOut reports subject as signed out.
func (p *Provider) SignOut(ctx context.Context, subject string) {
	p.notify(ctx, Change{Subject: subject})
}
