// Package services defines the business logic for the code registry, the
// points ledger, sessions and announcements. This file centralizes the
// service error taxonomy so callers can branch on a Kind instead of
// matching message strings.
//
// Translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-codeshare-backend/internal/repo"
)

// Kind classifies a service failure.
type Kind string

const (
	KindAuth               Kind = "auth_error"
	KindStoreUnavailable   Kind = "store_unavailable"
	KindValidation         Kind = "validation_error"
	KindPermissionDenied   Kind = "permission_denied"
	KindNotFound           Kind = "not_found"
	KindFullyClaimed       Kind = "fully_claimed"
	KindInsufficientPoints Kind = "insufficient_points"
)

// Error carries a Kind, the operation that failed, and the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// Sentinels wrapped by Error. Match them with errors.Is.
var (
	ErrUnauthenticated    = errors.New("sign in required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrForbidden          = errors.New("administrator only")
	ErrCodeNotFound       = errors.New("code not found")
	ErrLedgerNotFound     = errors.New("ledger entry not found")
	ErrFullyClaimed       = errors.New("code is fully claimed")
	ErrInsufficientPoints = errors.New("not enough points")
	ErrEmptyCode          = errors.New("code is required")
	ErrCodeTooLong        = errors.New("code is too long")
	ErrUnknownCoin        = errors.New("coin is not supported")
	ErrInvalidMaxClaims   = errors.New("max claims must be a positive integer")
	ErrInvalidExpiry      = errors.New("expiry date must be YYYY-MM-DD")
	ErrExpiryInPast       = errors.New("expiry date is in the past")
	ErrEmptyText          = errors.New("text is required")
	ErrTextTooLong        = errors.New("text is too long")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrInvalidAmount      = errors.New("amount must be positive")
)

func newErr(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func authErr(op string, err error) error       { return newErr(KindAuth, op, err) }
func validationErr(op string, err error) error { return newErr(KindValidation, op, err) }
func deniedErr(op string) error                { return newErr(KindPermissionDenied, op, ErrForbidden) }

// storeErr wraps an unexpected persistence failure. Already classified
// errors pass through unchanged.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return newErr(KindStoreUnavailable, op, err)
}

// isNotFound treats repo-level not found sentinels as "not found".
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound)
}

// UserMessage renders err for display. Store failures never leak driver text.
func UserMessage(err error) string {
	var se *Error
	if !errors.As(err, &se) {
		return "something went wrong"
	}
	if se.Kind == KindStoreUnavailable || se.Err == nil {
		return "service temporarily unavailable, please retry"
	}
	return se.Err.Error()
}
