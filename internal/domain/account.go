package domain

import "time"

// Account is an identity provider record: one per registered e-mail.
type Account struct {
	ID           string    `json:"id"    gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email" gorm:"type:varchar(320);not null;uniqueIndex:ux_accounts_email"`
	PasswordHash string    `json:"-"     gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// Session is an authenticated session. The role is computed once at sign-in
// and never changes for the lifetime of the row; sign-out deletes it.
type Session struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index"`
	Email     string    `json:"email"      gorm:"type:varchar(320);not null"`
	IsAdmin   bool      `json:"is_admin"   gorm:"not null;default:false;index:idx_sessions_admin,priority:1"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index:idx_sessions_admin,priority:2"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// Active reports whether the session is still valid at now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}
