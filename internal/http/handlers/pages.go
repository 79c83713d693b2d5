package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gesturelab/gesturelab/internal/auth"
	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/storage"
)

// PagesHandler serves the landing page and the role landing pages.
type PagesHandler struct {
	svc      *auth.Service
	sessions *auth.SessionManager
	gate     *auth.Gate
	cookie   auth.SessionCookie
	view     *Renderer
	log      *slog.Logger
}

// NewPagesHandler constructs the handler.
func NewPagesHandler(svc *auth.Service, sessions *auth.SessionManager, gate *auth.Gate, cookie auth.SessionCookie, view *Renderer, log *slog.Logger) *PagesHandler {
	return &PagesHandler{svc: svc, sessions: sessions, gate: gate, cookie: cookie, view: view, log: log}
}

// Register wires the pages into a ServeMux.
func (h *PagesHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.gate.Require(auth.RequireAny, h.landing))
	mux.HandleFunc("GET "+PathHome, h.gate.Require(auth.RequireUser, h.home))
}

func (h *PagesHandler) landing(w http.ResponseWriter, r *http.Request, p models.Principal) {
	h.view.Render(w, r, http.StatusOK, pageLanding, pageData{Title: "Welcome", Principal: p})
}

func (h *PagesHandler) home(w http.ResponseWriter, r *http.Request, p models.Principal) {
	account, ok := loadPrincipalAccount(w, r, h.svc, h.sessions, h.cookie, h.log, p)
	if !ok {
		return
	}
	h.view.Render(w, r, http.StatusOK, pageHome, pageData{Title: "Home", Principal: p, Account: account})
}

// loadPrincipalAccount fetches the account behind p. A session whose account
// vanished is torn down and the client is sent back to login.
func loadPrincipalAccount(w http.ResponseWriter, r *http.Request, svc *auth.Service, sessions *auth.SessionManager, cookie auth.SessionCookie, log *slog.Logger, p models.Principal) (models.Account, bool) {
	account, err := svc.Account(r.Context(), p.AccountID)
	if err == nil {
		return account, true
	}
	if errors.Is(err, storage.ErrNotFound) {
		if err := sessions.Destroy(r.Context(), cookie.Read(r)); err != nil {
			log.WarnContext(r.Context(), "destroy orphaned session failed", "error", err)
		}
		cookie.Clear(w)
		seeOther(w, PathLogin)
		return models.Account{}, false
	}
	log.ErrorContext(r.Context(), "load account failed", "account_id", p.AccountID, "error", err)
	http.Error(w, msgInternal, http.StatusInternalServerError)
	return models.Account{}, false
}
