package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/storage"
)

func TestAccountStore_UniquenessIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore(nil)

	alice, err := s.CreateAccount(ctx, models.Account{Username: "alice", Email: "alice@example.com", Role: models.RoleUser})
	require.NoError(t, err)
	assert.EqualValues(t, 1, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	_, err = s.CreateAccount(ctx, models.Account{Username: "ALICE", Email: "x@example.com", Role: models.RoleUser})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	_, err = s.CreateAccount(ctx, models.Account{Username: "x", Email: "Alice@Example.COM", Role: models.RoleUser})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	assert.Equal(t, 1, s.Count())

	got, err := s.FindByUsername(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
}

func TestAccountStore_SingleAdmin(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore(nil)

	_, err := s.FindAdmin(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	adm, err := s.CreateAccount(ctx, models.Account{Username: "admin", Email: "admin@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = s.CreateAccount(ctx, models.Account{Username: "admin2", Email: "admin2@example.com", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := s.FindAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, adm.ID, got.ID)
	assert.ErrorIs(t, s.DeleteAccount(ctx, adm.ID), storage.ErrProtected)
}

func TestAccountStore_UpdateAndList(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore(nil)
	_, err := s.CreateAccount(ctx, models.Account{Username: "admin", Email: "admin@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	a, err := s.CreateAccount(ctx, models.Account{Username: "alice", Email: "alice@example.com", Role: models.RoleUser})
	require.NoError(t, err)
	b, err := s.CreateAccount(ctx, models.Account{Username: "bob", Email: "bob@example.com", Role: models.RoleUser})
	require.NoError(t, err)

	name := "Bob"
	_, err = s.UpdateAccount(ctx, a.ID, models.AccountUpdate{Username: &name})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	// Changing only the case of one's own username is allowed.
	name = "BOB"
	updated, err := s.UpdateAccount(ctx, b.ID, models.AccountUpdate{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "BOB", updated.Username)

	_, err = s.UpdateAccount(ctx, 404, models.AccountUpdate{Username: &name})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	users, err := s.ListAccounts(ctx, models.RoleUser)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a.ID, users[0].ID)
	assert.Equal(t, b.ID, users[1].ID)
}

func TestAccountStore_DeleteCascadesSessions(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore()
	s := NewAccountStore(sessions)
	a, err := s.CreateAccount(ctx, models.Account{Username: "alice", Email: "alice@example.com", Role: models.RoleUser})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, sessions.CreateSession(ctx, models.Session{ID: "s1", AccountID: a.ID, Role: models.RoleUser, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, sessions.CreateSession(ctx, models.Session{ID: "s2", AccountID: 99, Role: models.RoleUser, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	require.NoError(t, s.DeleteAccount(ctx, a.ID))
	assert.ErrorIs(t, s.DeleteAccount(ctx, a.ID), storage.ErrNotFound)

	_, err = sessions.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 1, sessions.Len())
}

func TestSessionStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	now := time.Now()

	require.NoError(t, s.CreateSession(ctx, models.Session{ID: "old", AccountID: 1, Role: models.RoleUser, ExpiresAt: now}))
	require.NoError(t, s.CreateSession(ctx, models.Session{ID: "live", AccountID: 1, Role: models.RoleUser, ExpiresAt: now.Add(time.Minute)}))
	assert.ErrorIs(t, s.CreateSession(ctx, models.Session{ID: "live"}), storage.ErrAlreadyExists)

	n, err := s.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.GetSession(ctx, "live")
	require.NoError(t, err)
	require.NoError(t, s.DeleteSession(ctx, "live"))
	require.NoError(t, s.DeleteSession(ctx, "live"))
	assert.Zero(t, s.Len())
}
