// Package redisstore stores sessions in Redis, letting key TTLs expire them.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/storage"
)

var _ storage.SessionStore = (*SessionStore)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// SessionStore keeps one key per session plus a per-account index set.
type SessionStore struct {
	client *redis.Client
	prefix string
}

type sessionRecord struct {
	AccountID int64     `json:"account_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSessionStore connects to Redis and verifies the connection.
func NewSessionStore(ctx context.Context, opts Options) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "gesturelab:"
	}
	return &SessionStore{client: client, prefix: prefix}, nil
}

// Close releases the client's connections.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SessionStore) sessionKey(id string) string {
	return s.prefix + "session:" + id
}

func (s *SessionStore) accountKey(accountID int64) string {
	return s.prefix + "account_sessions:" + strconv.FormatInt(accountID, 10)
}

// CreateSession stores the session with a TTL matching its expiry.
func (s *SessionStore) CreateSession(ctx context.Context, session models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("create session: already expired")
	}
	payload, err := json.Marshal(sessionRecord{
		AccountID: session.AccountID,
		Role:      string(session.Role),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.sessionKey(session.ID), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return storage.ErrAlreadyExists
	}

	idx := s.accountKey(session.AccountID)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, idx, session.ID)
	pipe.ExpireAt(ctx, idx, session.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

// GetSession loads a session by id.
func (s *SessionStore) GetSession(ctx context.Context, id string) (models.Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return models.Session{
		ID:        id,
		AccountID: rec.AccountID,
		Role:      models.Role(rec.Role),
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// DeleteSession removes a session (idempotent).
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	session, err := s.GetSession(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.sessionKey(id))
	pipe.SRem(ctx, s.accountKey(session.AccountID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAccountSessions removes every session indexed under the account.
func (s *SessionStore) DeleteAccountSessions(ctx context.Context, accountID int64) error {
	idx := s.accountKey(accountID)
	ids, err := s.client.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("delete account sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.sessionKey(id))
	}
	keys = append(keys, idx)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete account sessions: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: Redis expires session keys on its own.
func (s *SessionStore) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
