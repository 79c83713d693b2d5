// Package memory provides mutex-guarded in-process stores for tests and local
// development without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/storage"
)

var _ storage.AccountStore = (*AccountStore)(nil)

// AccountStore mirrors the Postgres constraints: case-insensitive unique
// username and email, and at most one admin.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[int64]models.Account
	nextID   int64
	sessions *SessionStore
}

// NewAccountStore returns an empty store. When sessions is non-nil, deleting an
// account also drops its sessions, like the Postgres cascade.
func NewAccountStore(sessions *SessionStore) *AccountStore {
	return &AccountStore{
		accounts: make(map[int64]models.Account),
		nextID:   1,
		sessions: sessions,
	}
}

// Count returns the number of stored accounts.
func (s *AccountStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *AccountStore) CreateAccount(_ context.Context, account models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflictLocked(0, account.Username, account.Email) {
		return models.Account{}, storage.ErrAlreadyExists
	}
	if account.Role == models.RoleAdmin {
		for _, existing := range s.accounts {
			if existing.IsAdmin() {
				return models.Account{}, storage.ErrAlreadyExists
			}
		}
	}

	account.ID = s.nextID
	account.CreatedAt = time.Now().UTC()
	s.nextID++
	s.accounts[account.ID] = account
	return account, nil
}

func (s *AccountStore) FindByID(_ context.Context, id int64) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return account, nil
}

func (s *AccountStore) FindByUsername(_ context.Context, username string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if strings.EqualFold(account.Username, username) {
			return account, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func (s *AccountStore) FindAdmin(_ context.Context) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.IsAdmin() {
			return account, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func (s *AccountStore) ListAccounts(_ context.Context, role models.Role) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Account
	for _, account := range s.accounts {
		if account.Role == role {
			out = append(out, account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *AccountStore) UpdateAccount(_ context.Context, id int64, upd models.AccountUpdate) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}

	var username, email string
	if upd.Username != nil {
		username = *upd.Username
	}
	if upd.Email != nil {
		email = *upd.Email
	}
	if s.conflictLocked(id, username, email) {
		return models.Account{}, storage.ErrAlreadyExists
	}

	if upd.Username != nil {
		account.Username = *upd.Username
	}
	if upd.Email != nil {
		account.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		account.PasswordHash = *upd.PasswordHash
	}
	s.accounts[id] = account
	return account, nil
}

func (s *AccountStore) DeleteAccount(ctx context.Context, id int64) error {
	s.mu.Lock()
	account, ok := s.accounts[id]
	switch {
	case !ok:
		s.mu.Unlock()
		return storage.ErrNotFound
	case account.IsAdmin():
		s.mu.Unlock()
		return storage.ErrProtected
	}
	delete(s.accounts, id)
	s.mu.Unlock()

	if s.sessions != nil {
		return s.sessions.DeleteAccountSessions(ctx, id)
	}
	return nil
}

// conflictLocked reports whether another account already uses username or
// email. Blank values are ignored.
func (s *AccountStore) conflictLocked(selfID int64, username, email string) bool {
	for id, existing := range s.accounts {
		if id == selfID {
			continue
		}
		if existing.SharesIdentity(username, email) {
			return true
		}
	}
	return false
}
