package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesturelab/gesturelab/internal/logging"
	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/models/dto"
	"github.com/gesturelab/gesturelab/internal/storage"
	"github.com/gesturelab/gesturelab/internal/storage/memory"
)

var testSeed = AdminSeed{Username: "admin", Email: "admin@gesturelab.local", Password: "admin-pass"}

func newTestService(t *testing.T) (*Service, *memory.AccountStore) {
	t.Helper()
	store := memory.NewAccountStore(memory.NewSessionStore())
	return NewService(store, testHasher(), 6, logging.Discard()), store
}

func register(t *testing.T, svc *Service, username, email string) models.Account {
	t.Helper()
	account, err := svc.Register(context.Background(), dto.RegisterForm{
		Email:           email,
		Username:        username,
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	return account
}

func TestService_Register(t *testing.T) {
	svc, store := newTestService(t)

	account := register(t, svc, "alice", "alice@example.com")

	assert.Equal(t, models.RoleUser, account.Role)
	assert.NotEqual(t, "secret1", account.PasswordHash)
	assert.True(t, testHasher().Verify("secret1", account.PasswordHash))
	assert.Equal(t, 1, store.Count())
}

func TestService_RegisterDuplicateLeavesStoreUnchanged(t *testing.T) {
	svc, store := newTestService(t)
	register(t, svc, "alice", "alice@example.com")

	for name, form := range map[string]dto.RegisterForm{
		"username": {Email: "other@example.com", Username: "ALICE", Password: "secret1", ConfirmPassword: "secret1"},
		"email":    {Email: "Alice@Example.com", Username: "alice2", Password: "secret1", ConfirmPassword: "secret1"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), form)
			assert.ErrorIs(t, err, storage.ErrAlreadyExists)
			assert.Equal(t, 1, store.Count())
		})
	}
}

func TestService_RegisterCannotTakeAdminIdentity(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	_, err := svc.EnsureAdmin(ctx, testSeed)
	require.NoError(t, err)

	for name, form := range map[string]dto.RegisterForm{
		"username": {Email: "x@example.com", Username: "Admin", Password: "secret1", ConfirmPassword: "secret1"},
		"email":    {Email: "ADMIN@gesturelab.local", Username: "sneaky", Password: "secret1", ConfirmPassword: "secret1"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, form)
			assert.ErrorIs(t, err, storage.ErrAlreadyExists)
			assert.Equal(t, 1, store.Count())
		})
	}
}

func TestService_RegisterValidation(t *testing.T) {
	svc, store := newTestService(t)

	cases := map[string]struct {
		form dto.RegisterForm
		msg  string
	}{
		"mismatch": {
			form: dto.RegisterForm{Email: "a@example.com", Username: "alice", Password: "secret1", ConfirmPassword: "secret2"},
			msg:  "Passwords do not match",
		},
		"short password": {
			form: dto.RegisterForm{Email: "a@example.com", Username: "alice", Password: "abc", ConfirmPassword: "abc"},
			msg:  "Password must be at least 6 characters",
		},
		"bad email": {
			form: dto.RegisterForm{Email: "not-an-email", Username: "alice", Password: "secret1", ConfirmPassword: "secret1"},
			msg:  "Email is not valid",
		},
		"missing email": {
			form: dto.RegisterForm{Username: "alice", Password: "secret1", ConfirmPassword: "secret1"},
			msg:  "Email is required",
		},
		"short username": {
			form: dto.RegisterForm{Email: "a@example.com", Username: "al", Password: "secret1", ConfirmPassword: "secret1"},
			msg:  "Username must be 3 to 50 characters",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.form)
			require.ErrorIs(t, err, ErrValidation)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.msg, ve.Msg)
		})
	}
	assert.Zero(t, store.Count())
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	alice := register(t, svc, "alice", "alice@example.com")

	got, err := svc.Authenticate(ctx, dto.LoginForm{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = svc.Authenticate(ctx, dto.LoginForm{Username: "alice", Password: "wrong-one"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Authenticate(ctx, dto.LoginForm{Username: "bob", Password: "secret1"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Authenticate(ctx, dto.LoginForm{Username: "alice"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.EnsureAdmin(ctx, AdminSeed{Username: "admin", Email: "admin@gesturelab.local"})
	require.Error(t, err)
	assert.Zero(t, store.Count())

	first, err := svc.EnsureAdmin(ctx, testSeed)
	require.NoError(t, err)
	assert.True(t, first.IsAdmin())

	second, err := svc.EnsureAdmin(ctx, AdminSeed{Username: "other", Email: "other@example.com", Password: "different"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.Count())

	got, err := svc.Authenticate(ctx, dto.LoginForm{Username: "admin", Password: "admin-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
}

func TestService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	adm, err := svc.EnsureAdmin(ctx, testSeed)
	require.NoError(t, err)
	alice := register(t, svc, "alice", "alice@example.com")

	assert.ErrorIs(t, svc.DeleteUser(ctx, adm.ID), ErrProtectedAccount)
	assert.ErrorIs(t, svc.DeleteUser(ctx, 404), storage.ErrNotFound)
	require.NoError(t, svc.DeleteUser(ctx, alice.ID))

	assert.Equal(t, 1, store.Count())
	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

// impostorStore reports an admin that shares its email with a stored user, as
// rows written before the identity checks existed can.
type impostorStore struct {
	*memory.AccountStore
	admin models.Account
}

func (s impostorStore) FindAdmin(context.Context) (models.Account, error) {
	return s.admin, nil
}

func TestService_AccountSharingAdminIdentityIsProtected(t *testing.T) {
	ctx := context.Background()
	base := memory.NewAccountStore(nil)
	legacy, err := base.CreateAccount(ctx, models.Account{Username: "legacy", Email: "root@gesturelab.local", Role: models.RoleUser})
	require.NoError(t, err)

	store := impostorStore{AccountStore: base, admin: models.Account{ID: 99, Username: "root", Email: "ROOT@gesturelab.local", Role: models.RoleAdmin}}
	svc := NewService(store, testHasher(), 6, logging.Discard())

	assert.ErrorIs(t, svc.DeleteUser(ctx, legacy.ID), ErrProtectedAccount)
	_, err = svc.UpdateUser(ctx, legacy.ID, dto.AccountForm{Password: "newpass1"})
	assert.ErrorIs(t, err, ErrProtectedAccount)
	assert.Equal(t, 1, base.Count())
}

func TestService_UpdateUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	adm, err := svc.EnsureAdmin(ctx, testSeed)
	require.NoError(t, err)
	alice := register(t, svc, "alice", "alice@example.com")
	register(t, svc, "bob", "bob@example.com")

	updated, err := svc.UpdateUser(ctx, alice.ID, dto.AccountForm{Username: "alicia", Password: "changed1"})
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Username)
	assert.Equal(t, "alice@example.com", updated.Email)
	_, err = svc.Authenticate(ctx, dto.LoginForm{Username: "alicia", Password: "changed1"})
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, alice.ID, dto.AccountForm{Username: "BOB"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = svc.UpdateUser(ctx, alice.ID, dto.AccountForm{Email: "admin@gesturelab.local"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = svc.UpdateUser(ctx, alice.ID, dto.AccountForm{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateUser(ctx, adm.ID, dto.AccountForm{Username: "hijack"})
	assert.ErrorIs(t, err, ErrProtectedAccount)
}

func TestService_UpdateAdminProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	adm, err := svc.EnsureAdmin(ctx, testSeed)
	require.NoError(t, err)
	alice := register(t, svc, "alice", "alice@example.com")

	_, err = svc.UpdateAdminProfile(ctx, adm.ID, dto.AccountForm{Password: "rotated-pass"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, dto.LoginForm{Username: "admin", Password: "rotated-pass"})
	require.NoError(t, err)

	_, err = svc.UpdateAdminProfile(ctx, adm.ID, dto.AccountForm{Username: "alice"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = svc.UpdateAdminProfile(ctx, alice.ID, dto.AccountForm{Username: "boss"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
