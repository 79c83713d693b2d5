package auth

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookie describes how the session token travels to and from browsers.
type SessionCookie struct {
	Name   string
	Path   string
	Secure bool
}

// Read returns the session token carried by r, or "".
func (c SessionCookie) Read(r *http.Request) string {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

// Write stores token in the browser until expiresAt.
func (c SessionCookie) Write(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     c.path(),
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear instructs the browser to drop the cookie.
func (c SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.path(),
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c SessionCookie) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}
