package models

import "time"

type UserRole string

const (
	UserRoleViewer     UserRole = "VIEWER"
	UserRoleEditor     UserRole = "EDITOR"
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleSuperAdmin UserRole = "SUPER_ADMIN"
)

// roleRank orders roles from least to most privileged. A minimum-role check
// is satisfied by the role itself or anything ranked above it.
var roleRank = map[UserRole]int{
	UserRoleViewer:     0,
	UserRoleEditor:     1,
	UserRoleAdmin:      2,
	UserRoleSuperAdmin: 3,
}

// AtLeast reports whether r is min or a more privileged role. Unknown roles
// never satisfy any check.
func (r UserRole) AtLeast(min UserRole) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	minRank, ok := roleRank[min]
	if !ok {
		return false
	}
	return rank >= minRank
}

// Valid reports whether r is one of the known role strings.
func (r UserRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

type UserStatus string

const (
	UserStatusPending   UserStatus = "PENDING"
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

type User struct {
	ID                string
	Email             string
	PasswordHash      *string
	DisplayName       string
	Role              UserRole
	Status            UserStatus
	VerificationToken *string
	FailedLogins      int
	LastFailedLoginAt *time.Time
	LastLoginAt       *time.Time
	EmailVerifiedAt   *time.Time
	DeletedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PublicUser is the projection returned to clients. It never carries the
// password hash or the verification token.
type PublicUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		Status:      string(u.Status),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
