package models

import "testing"

func TestUserRoleAtLeast(t *testing.T) {
	tests := []struct {
		role UserRole
		min  UserRole
		want bool
	}{
		{UserRoleViewer, UserRoleViewer, true},
		{UserRoleViewer, UserRoleEditor, false},
		{UserRoleEditor, UserRoleViewer, true},
		{UserRoleEditor, UserRoleEditor, true},
		{UserRoleEditor, UserRoleAdmin, false},
		{UserRoleAdmin, UserRoleEditor, true},
		{UserRoleAdmin, UserRoleSuperAdmin, false},
		{UserRoleSuperAdmin, UserRoleViewer, true},
		{UserRoleSuperAdmin, UserRoleSuperAdmin, true},
		{UserRole("INTERN"), UserRoleViewer, false},
		{UserRoleAdmin, UserRole("INTERN"), false},
	}
	for _, tt := range tests {
		if got := tt.role.AtLeast(tt.min); got != tt.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.role, tt.min, got, tt.want)
		}
	}
}

func TestUserRoleValid(t *testing.T) {
	for _, r := range []UserRole{UserRoleViewer, UserRoleEditor, UserRoleAdmin, UserRoleSuperAdmin} {
		if !r.Valid() {
			t.Errorf("%s.Valid() = false", r)
		}
	}
	for _, r := range []UserRole{"", "viewer", "ROOT"} {
		if r.Valid() {
			t.Errorf("%s.Valid() = true", r)
		}
	}
}

func TestUserPublicProjection(t *testing.T) {
	hash := "$argon2id$..."
	token := "verify-me"
	u := User{
		ID:                "usr_1",
		Email:             "ada@example.com",
		PasswordHash:      &hash,
		DisplayName:       "Ada",
		Role:              UserRoleEditor,
		Status:            UserStatusActive,
		VerificationToken: &token,
	}

	pub := u.Public()
	if pub.ID != u.ID || pub.Email != u.Email || pub.DisplayName != u.DisplayName {
		t.Errorf("projection dropped identity fields: %+v", pub)
	}
	if pub.Role != string(UserRoleEditor) || pub.Status != string(UserStatusActive) {
		t.Errorf("projection dropped role/status: %+v", pub)
	}
}
