package models

import (
	"strings"
	"time"
)

// Account captures a registered identity, either a learner or the single admin.
type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the account holds the admin role.
func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SharesIdentity reports whether username or email collides with the account,
// compared case-insensitively.
func (a Account) SharesIdentity(username, email string) bool {
	if username != "" && strings.EqualFold(strings.TrimSpace(username), a.Username) {
		return true
	}
	if email != "" && strings.EqualFold(strings.TrimSpace(email), a.Email) {
		return true
	}
	return false
}

// AccountUpdate lists the mutable account fields. Nil fields are left unchanged.
type AccountUpdate struct {
	Email        *string
	Username     *string
	PasswordHash *string
}

// Empty reports whether the update changes nothing.
func (u AccountUpdate) Empty() bool {
	return u.Email == nil && u.Username == nil && u.PasswordHash == nil
}
