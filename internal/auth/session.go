package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/storage"
)

// SessionManager issues, resolves, and destroys server-side sessions.
//
// The store is the only source of truth: a token whose session row is gone or
// expired resolves to the anonymous principal regardless of the token's own
// expiry.
type SessionManager struct {
	store  storage.SessionStore
	tokens *TokenManager
	ttl    time.Duration
	log    *slog.Logger
	now    func() time.Time
}

// NewSessionManager wires a manager over store. ttl bounds every session.
func NewSessionManager(store storage.SessionStore, tokens *TokenManager, ttl time.Duration, log *slog.Logger) *SessionManager {
	if log == nil {
		log = slog.Default()
	}
	return &SessionManager{
		store:  store,
		tokens: tokens,
		ttl:    ttl,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue starts a session for account and returns its cookie token. Any session
// referenced by prior is destroyed first so one cookie never spans principals.
func (m *SessionManager) Issue(ctx context.Context, prior string, account models.Account) (string, models.Session, error) {
	if !account.Role.Valid() {
		return "", models.Session{}, fmt.Errorf("issue session: invalid role %q", account.Role)
	}
	if err := m.Destroy(ctx, prior); err != nil {
		return "", models.Session{}, err
	}

	now := m.now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", models.Session{}, fmt.Errorf("issue session: %w", err)
	}

	session := models.Session{
		ID:        id.String(),
		AccountID: account.ID,
		Role:      account.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return "", models.Session{}, fmt.Errorf("issue session: %w", err)
	}

	token, err := m.tokens.Sign(session.ID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		_ = m.store.DeleteSession(ctx, session.ID)
		return "", models.Session{}, err
	}
	return token, session, nil
}

// Resolve maps a cookie token to its principal. Every failure yields the
// anonymous principal.
func (m *SessionManager) Resolve(ctx context.Context, token string) models.Principal {
	if token == "" {
		return models.Principal{}
	}
	id, err := m.tokens.Parse(token)
	if err != nil {
		m.log.DebugContext(ctx, "session token rejected", "error", err)
		return models.Principal{}
	}

	session, err := m.store.GetSession(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.log.WarnContext(ctx, "session lookup failed", "error", err)
		}
		return models.Principal{}
	}

	if session.Expired(m.now()) {
		if err := m.store.DeleteSession(ctx, session.ID); err != nil {
			m.log.WarnContext(ctx, "expired session cleanup failed", "error", err)
		}
		return models.Principal{}
	}
	if !session.Role.Valid() {
		return models.Principal{}
	}

	return models.Principal{
		AccountID: session.AccountID,
		Role:      session.Role,
		SessionID: session.ID,
	}
}

// Destroy ends the session referenced by token. Unknown or invalid tokens are
// ignored.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	id, err := m.tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := m.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// RevokeAccount ends every session of an account.
func (m *SessionManager) RevokeAccount(ctx context.Context, accountID int64) error {
	if err := m.store.DeleteAccountSessions(ctx, accountID); err != nil {
		return fmt.Errorf("revoke account sessions: %w", err)
	}
	return nil
}

// PurgeExpired drops sessions past their expiry.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.PurgeExpired(ctx, m.now())
}
