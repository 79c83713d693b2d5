package auth

import (
	"net/http"

	"github.com/gesturelab/gesturelab/internal/models"
)

// Requirement is the role a route demands.
type Requirement int

const (
	RequireAny Requirement = iota
	RequireUser
	RequireAdmin
)

func (r Requirement) String() string {
	switch r {
	case RequireAny:
		return "any"
	case RequireUser:
		return "user"
	case RequireAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Allows reports whether p satisfies req. Role-bound requirements need a live
// session with exactly that role.
func Allows(req Requirement, p models.Principal) bool {
	switch req {
	case RequireAny:
		return true
	case RequireUser:
		return !p.Anonymous() && p.Role == models.RoleUser
	case RequireAdmin:
		return !p.Anonymous() && p.Role == models.RoleAdmin
	default:
		return false
	}
}

// GatedHandler receives the principal the gate resolved for the request.
type GatedHandler func(w http.ResponseWriter, r *http.Request, p models.Principal)

// Gate resolves the request's session and enforces route requirements.
type Gate struct {
	sessions  *SessionManager
	cookie    SessionCookie
	loginPath string
}

// NewGate returns a gate that sends denied requests to loginPath.
func NewGate(sessions *SessionManager, cookie SessionCookie, loginPath string) *Gate {
	return &Gate{sessions: sessions, cookie: cookie, loginPath: loginPath}
}

// Principal resolves the principal behind r's session cookie.
func (g *Gate) Principal(r *http.Request) models.Principal {
	return g.sessions.Resolve(r.Context(), g.cookie.Read(r))
}

// Require wraps next so it only runs when the request satisfies req. Denied
// requests are redirected to the login page without reaching next.
func (g *Gate) Require(req Requirement, next GatedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := g.Principal(r)
		if !Allows(req, p) {
			if p.Anonymous() && g.cookie.Read(r) != "" {
				g.cookie.Clear(w)
			}
			w.Header().Set("Location", g.loginPath)
			w.WriteHeader(http.StatusSeeOther)
			return
		}
		next(w, r, p)
	}
}
