package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gesturelab/gesturelab/internal/auth"
	"github.com/gesturelab/gesturelab/internal/metrics"
	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/models/dto"
	"github.com/gesturelab/gesturelab/internal/storage"
)

// Route paths shared by handlers and the gate.
const (
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathHome      = "/home"
	PathDashboard = "/dashboard"
)

const (
	msgUserNotFound      = "User not found"
	msgIncorrectPassword = "Incorrect password"
	msgAlreadyExists     = "Username or email already exists"
	msgInvalidForm       = "Could not read the submitted form"
	msgInternal          = "Something went wrong, please try again"
)

// AuthHandler owns the register/login/logout forms.
type AuthHandler struct {
	svc      *auth.Service
	sessions *auth.SessionManager
	gate     *auth.Gate
	cookie   auth.SessionCookie
	view     *Renderer
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *auth.Service, sessions *auth.SessionManager, gate *auth.Gate, cookie auth.SessionCookie, view *Renderer, m *metrics.Metrics, log *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, sessions: sessions, gate: gate, cookie: cookie, view: view, metrics: m, log: log}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+PathRegister, h.gate.Require(auth.RequireAny, h.showRegister))
	mux.HandleFunc("POST "+PathRegister, h.handleRegister)
	mux.HandleFunc("GET "+PathLogin, h.gate.Require(auth.RequireAny, h.showLogin))
	mux.HandleFunc("POST "+PathLogin, h.handleLogin)
	mux.HandleFunc("GET /logout", h.handleLogout)
	mux.HandleFunc("POST /logout", h.handleLogout)
}

func (h *AuthHandler) showRegister(w http.ResponseWriter, r *http.Request, p models.Principal) {
	h.view.Render(w, r, http.StatusOK, pageRegister, pageData{Title: "Register", Principal: p})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Register"}
	if err := r.ParseForm(); err != nil {
		data.Error = msgInvalidForm
		h.view.Render(w, r, http.StatusBadRequest, pageRegister, data)
		return
	}
	form := dto.ParseRegisterForm(r)
	data.Form = formValues{Email: form.Email, Username: form.Username}

	account, err := h.svc.Register(r.Context(), form)
	if err != nil {
		var ve auth.ValidationError
		switch {
		case errors.As(err, &ve):
			h.metrics.Registrations.WithLabelValues("invalid").Inc()
			data.Error = ve.Msg
			h.view.Render(w, r, http.StatusBadRequest, pageRegister, data)
		case errors.Is(err, storage.ErrAlreadyExists):
			h.metrics.Registrations.WithLabelValues("duplicate").Inc()
			data.Error = msgAlreadyExists
			h.view.Render(w, r, http.StatusConflict, pageRegister, data)
		default:
			h.metrics.Registrations.WithLabelValues("error").Inc()
			h.log.ErrorContext(r.Context(), "register failed", "error", err)
			data.Error = msgInternal
			h.view.Render(w, r, http.StatusInternalServerError, pageRegister, data)
		}
		return
	}

	h.metrics.Registrations.WithLabelValues("created").Inc()
	h.log.InfoContext(r.Context(), "account registered", "account_id", account.ID)
	seeOther(w, PathLogin)
}

func (h *AuthHandler) showLogin(w http.ResponseWriter, r *http.Request, p models.Principal) {
	if !p.Anonymous() {
		seeOther(w, landingFor(p.Role))
		return
	}
	h.view.Render(w, r, http.StatusOK, pageLogin, pageData{Title: "Log in", Principal: p})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Log in"}
	if err := r.ParseForm(); err != nil {
		data.Error = msgInvalidForm
		h.view.Render(w, r, http.StatusBadRequest, pageLogin, data)
		return
	}
	form := dto.ParseLoginForm(r)
	data.Form = formValues{Username: form.Username}

	account, err := h.svc.Authenticate(r.Context(), form)
	if err != nil {
		var ve auth.ValidationError
		switch {
		case errors.As(err, &ve):
			h.metrics.LoginAttempts.WithLabelValues("invalid").Inc()
			data.Error = ve.Msg
			h.view.Render(w, r, http.StatusBadRequest, pageLogin, data)
		case errors.Is(err, storage.ErrNotFound):
			h.metrics.LoginAttempts.WithLabelValues("unknown_user").Inc()
			data.Error = msgUserNotFound
			h.view.Render(w, r, http.StatusUnauthorized, pageLogin, data)
		case errors.Is(err, auth.ErrUnauthorized):
			h.metrics.LoginAttempts.WithLabelValues("bad_password").Inc()
			data.Error = msgIncorrectPassword
			h.view.Render(w, r, http.StatusUnauthorized, pageLogin, data)
		default:
			h.metrics.LoginAttempts.WithLabelValues("error").Inc()
			h.log.ErrorContext(r.Context(), "login failed", "error", err)
			data.Error = msgInternal
			h.view.Render(w, r, http.StatusInternalServerError, pageLogin, data)
		}
		return
	}

	token, session, err := h.sessions.Issue(r.Context(), h.cookie.Read(r), account)
	if err != nil {
		h.metrics.LoginAttempts.WithLabelValues("error").Inc()
		h.log.ErrorContext(r.Context(), "issue session failed", "account_id", account.ID, "error", err)
		data.Error = msgInternal
		h.view.Render(w, r, http.StatusInternalServerError, pageLogin, data)
		return
	}
	h.cookie.Write(w, token, session.ExpiresAt)
	h.metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.log.InfoContext(r.Context(), "login succeeded", "account_id", account.ID, "role", account.Role)

	if n, err := h.sessions.PurgeExpired(r.Context()); err != nil {
		h.log.WarnContext(r.Context(), "purge expired sessions failed", "error", err)
	} else if n > 0 {
		h.log.DebugContext(r.Context(), "purged expired sessions", "count", n)
	}

	seeOther(w, landingFor(account.Role))
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), h.cookie.Read(r)); err != nil {
		h.log.WarnContext(r.Context(), "logout failed to destroy session", "error", err)
	}
	h.cookie.Clear(w)
	seeOther(w, PathLogin)
}

func landingFor(role models.Role) string {
	if role == models.RoleAdmin {
		return PathDashboard
	}
	return PathHome
}
