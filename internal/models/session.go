package models

import "time"

// Session is the server-held proof of a login. Clients only ever see a signed
// reference to ID.
type Session struct {
	ID        string
	AccountID int64
	Role      Role
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Principal is the identity resolved for a single request. The zero value is
// the anonymous principal.
type Principal struct {
	AccountID int64
	Role      Role
	SessionID string
}

// Anonymous reports whether no live session backs the principal.
func (p Principal) Anonymous() bool {
	return p.SessionID == "" || !p.Role.Valid()
}
