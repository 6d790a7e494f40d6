package models

import "time"

// PasswordReset is a single-use, time-limited token matched to an account by
// email rather than by foreign key.
type PasswordReset struct {
	ID        string
	Email     string
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
