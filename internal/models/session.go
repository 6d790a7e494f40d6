package models

import "time"

// Session binds an issued token pair to a user. A session is usable only
// while RevokedAt is nil and ExpiresAt is in the future; revocation is a
// logical delete, rows are kept for audit.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	IPAddress    string
	UserAgent    string
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
