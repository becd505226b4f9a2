// Package domain defines the persistence models for redemption codes, the
// points ledger and announcements. These types are mapped with GORM and form
// the core data layer of the code sharing service.
package domain

import (
	"time"
)

// DateLayout is the day-granularity layout used for Code.ExpiryDate.
const DateLayout = "2006-01-02"

// PublishedByAdmin is the PublishedBy sentinel for codes added by an
// administrator rather than bought with points.
const PublishedByAdmin = "admin"

// Today returns the UTC calendar day of now in DateLayout form. Expiry dates
// compare lexically against it.
func Today(now time.Time) string { return now.UTC().Format(DateLayout) }

// Code is a published redemption code with a claim ceiling and an expiry day.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Code: redemption string, trimmed and upper-cased on write.
//   - Coin: category label from the configured enumeration.
//   - MaxClaims: positive ceiling on redemptions.
//   - ClaimedCount: never decreases; starts at 0.
//   - ExpiryDate: last active day, "YYYY-MM-DD" (UTC).
//   - PublishedBy: ledger user id or PublishedByAdmin. Weak reference, no FK.
type Code struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	Code         string    `json:"code"          gorm:"type:varchar(128);not null"`
	Coin         string    `json:"coin"          gorm:"type:varchar(32);not null"`
	MaxClaims    int       `json:"max_claims"    gorm:"not null;check:max_claims > 0"`
	ClaimedCount int       `json:"claimed_count" gorm:"not null;default:0;check:claimed_count >= 0"`
	ExpiryDate   string    `json:"expiry_date"   gorm:"type:char(10);not null;index:idx_codes_expiry"`
	PublishedBy  string    `json:"published_by"  gorm:"type:varchar(64);not null;index"`
	PublishedAt  time.Time `json:"published_at"  gorm:"not null;index"`
}

// TableName returns the database table name for Code.
func (Code) TableName() string { return "codes" }

// IsActive reports whether the code is still listed at now. A code stays
// active through the whole of its expiry day.
func (c Code) IsActive(now time.Time) bool { return c.ExpiryDate >= Today(now) }

// IsFullyClaimed reports whether the claim ceiling has been reached.
func (c Code) IsFullyClaimed() bool { return c.ClaimedCount >= c.MaxClaims }

// Remaining returns how many claims are left, never negative.
func (c Code) Remaining() int {
	if r := c.MaxClaims - c.ClaimedCount; r > 0 {
		return r
	}
	return 0
}

// LedgerEntry is a user's points balance. It is keyed by the identity
// subject, created once on first sight and afterwards only changed by
// increments.
type LedgerEntry struct {
	ID          string     `json:"user_id"                 gorm:"type:varchar(64);primaryKey"`
	Points      int64      `json:"points"                  gorm:"not null;default:0"`
	CreatedAt   time.Time  `json:"created_at"`
	LastAdWatch *time.Time `json:"last_ad_watch,omitempty"`
}

// TableName returns the database table name for LedgerEntry.
func (LedgerEntry) TableName() string { return "users" }

// Update is an append-only announcement posted by an administrator.
type Update struct {
	ID       string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Text     string    `json:"text"      gorm:"type:text;not null"`
	PostedBy string    `json:"posted_by" gorm:"type:varchar(64);not null"`
	PostedAt time.Time `json:"posted_at" gorm:"not null;index"`
}

// TableName returns the database table name for Update.
func (Update) TableName() string { return "updates" }
