package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gesturelab/gesturelab/internal/auth"
	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/models/dto"
	"github.com/gesturelab/gesturelab/internal/storage"
)

const (
	msgProtectedAccount = "The admin account can only be changed from the admin profile"
	msgAccountNotFound  = "Account not found"
)

// AdminHandler serves the dashboard and the account management forms.
type AdminHandler struct {
	svc      *auth.Service
	sessions *auth.SessionManager
	gate     *auth.Gate
	cookie   auth.SessionCookie
	view     *Renderer
	log      *slog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(svc *auth.Service, sessions *auth.SessionManager, gate *auth.Gate, cookie auth.SessionCookie, view *Renderer, log *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, sessions: sessions, gate: gate, cookie: cookie, view: view, log: log}
}

// Register attaches admin routes to the mux. Every route requires the admin role.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+PathDashboard, h.gate.Require(auth.RequireAdmin, h.dashboard))
	mux.HandleFunc("POST /admin/users/{id}/update", h.gate.Require(auth.RequireAdmin, h.updateUser))
	mux.HandleFunc("POST /admin/users/{id}/delete", h.gate.Require(auth.RequireAdmin, h.deleteUser))
	mux.HandleFunc("POST /admin/profile", h.gate.Require(auth.RequireAdmin, h.updateProfile))
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request, p models.Principal) {
	h.renderDashboard(w, r, p, http.StatusOK, "")
}

func (h *AdminHandler) updateUser(w http.ResponseWriter, r *http.Request, p models.Principal) {
	id, ok := h.accountID(w, r, p)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderDashboard(w, r, p, http.StatusBadRequest, msgInvalidForm)
		return
	}
	form := dto.ParseAccountForm(r)

	if _, err := h.svc.UpdateUser(r.Context(), id, form); err != nil {
		h.renderFailure(w, r, p, "update user failed", err)
		return
	}
	if form.Password != "" {
		if err := h.sessions.RevokeAccount(r.Context(), id); err != nil {
			h.log.WarnContext(r.Context(), "revoke sessions after password change failed", "account_id", id, "error", err)
		}
	}
	h.log.InfoContext(r.Context(), "user updated by admin", "account_id", id)
	seeOther(w, PathDashboard)
}

func (h *AdminHandler) deleteUser(w http.ResponseWriter, r *http.Request, p models.Principal) {
	id, ok := h.accountID(w, r, p)
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		h.renderFailure(w, r, p, "delete user failed", err)
		return
	}
	// Session backends outside Postgres do not cascade.
	if err := h.sessions.RevokeAccount(r.Context(), id); err != nil {
		h.log.WarnContext(r.Context(), "revoke sessions of deleted user failed", "account_id", id, "error", err)
	}
	h.log.InfoContext(r.Context(), "user deleted by admin", "account_id", id)
	seeOther(w, PathDashboard)
}

func (h *AdminHandler) updateProfile(w http.ResponseWriter, r *http.Request, p models.Principal) {
	if err := r.ParseForm(); err != nil {
		h.renderDashboard(w, r, p, http.StatusBadRequest, msgInvalidForm)
		return
	}
	if _, err := h.svc.UpdateAdminProfile(r.Context(), p.AccountID, dto.ParseAccountForm(r)); err != nil {
		h.renderFailure(w, r, p, "update admin profile failed", err)
		return
	}
	h.log.InfoContext(r.Context(), "admin profile updated", "account_id", p.AccountID)
	seeOther(w, PathDashboard)
}

func (h *AdminHandler) accountID(w http.ResponseWriter, r *http.Request, p models.Principal) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderDashboard(w, r, p, http.StatusNotFound, msgAccountNotFound)
		return 0, false
	}
	return id, true
}

// renderFailure maps a service error onto the dashboard with a user-facing message.
func (h *AdminHandler) renderFailure(w http.ResponseWriter, r *http.Request, p models.Principal, op string, err error) {
	var ve auth.ValidationError
	switch {
	case errors.As(err, &ve):
		h.renderDashboard(w, r, p, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, auth.ErrProtectedAccount):
		h.renderDashboard(w, r, p, http.StatusForbidden, msgProtectedAccount)
	case errors.Is(err, storage.ErrAlreadyExists):
		h.renderDashboard(w, r, p, http.StatusConflict, msgAlreadyExists)
	case errors.Is(err, storage.ErrNotFound):
		h.renderDashboard(w, r, p, http.StatusNotFound, msgAccountNotFound)
	default:
		h.log.ErrorContext(r.Context(), op, "error", err)
		h.renderDashboard(w, r, p, http.StatusInternalServerError, msgInternal)
	}
}

func (h *AdminHandler) renderDashboard(w http.ResponseWriter, r *http.Request, p models.Principal, status int, errMsg string) {
	admin, ok := loadPrincipalAccount(w, r, h.svc, h.sessions, h.cookie, h.log, p)
	if !ok {
		return
	}
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "list users failed", "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	h.view.Render(w, r, status, pageDashboard, pageData{
		Title:     "Dashboard",
		Error:     errMsg,
		Principal: p,
		Account:   admin,
		Users:     users,
	})
}
