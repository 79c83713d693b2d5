package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/storage"
)

// CreateSession inserts a session row.
func (s *Store) CreateSession(ctx context.Context, session models.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, account_id, role, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, session.ID, session.AccountID, string(session.Role), session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return mapWriteErr("create session", err)
	}
	return nil
}

// GetSession loads a session row by id.
func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	var session models.Session
	var role string
	err := s.pool.QueryRow(ctx, `
		SELECT id, account_id, role, created_at, expires_at
		FROM sessions
		WHERE id = $1
	`, id).Scan(&session.ID, &session.AccountID, &role, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	session.Role = models.Role(role)
	return session, nil
}

// DeleteSession removes a session (idempotent).
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAccountSessions removes every session owned by an account.
func (s *Store) DeleteAccountSessions(ctx context.Context, accountID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("delete account sessions: %w", err)
	}
	return nil
}

// PurgeExpired removes sessions that expired at or before now.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
