package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/storage"
)

// TestStoreIntegration exercises accounts and sessions against a live database.
// An admin row is created when none exists.
func TestStoreIntegration(t *testing.T) {
	if os.Getenv("RUN_STORE_INTEGRATION") != "true" {
		t.Skip("set RUN_STORE_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := os.Getenv("DATABASE_URL")
	require.NotEmpty(t, dbURL, "DATABASE_URL is required")

	ctx := context.Background()
	store, err := NewStore(ctx, dbURL)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	suffix := time.Now().UnixNano()
	username := fmt.Sprintf("storetest_%d", suffix)
	email := username + "@example.com"

	created, err := store.CreateAccount(ctx, models.Account{Email: email, Username: username, PasswordHash: "x", Role: models.RoleUser})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.DeleteAccount(context.Background(), created.ID) })
	assert.Equal(t, models.RoleUser, created.Role)
	assert.False(t, created.CreatedAt.IsZero())

	t.Run("case-insensitive uniqueness", func(t *testing.T) {
		_, err := store.CreateAccount(ctx, models.Account{Email: "other_" + email, Username: "STORETEST_" + fmt.Sprint(suffix), PasswordHash: "x", Role: models.RoleUser})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		got, err := store.FindByUsername(ctx, "STORETEST_"+fmt.Sprint(suffix))
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("partial update", func(t *testing.T) {
		hash := "y"
		got, err := store.UpdateAccount(ctx, created.ID, models.AccountUpdate{PasswordHash: &hash})
		require.NoError(t, err)
		assert.Equal(t, "y", got.PasswordHash)
		assert.Equal(t, username, got.Username)

		_, err = store.UpdateAccount(ctx, -1, models.AccountUpdate{PasswordHash: &hash})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("sessions cascade with account", func(t *testing.T) {
		victim, err := store.CreateAccount(ctx, models.Account{Email: "v_" + email, Username: "v_" + username, PasswordHash: "x", Role: models.RoleUser})
		require.NoError(t, err)

		now := time.Now().UTC().Truncate(time.Microsecond)
		session := models.Session{ID: fmt.Sprintf("sess_%d", suffix), AccountID: victim.ID, Role: models.RoleUser, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, store.CreateSession(ctx, session))
		assert.ErrorIs(t, store.CreateSession(ctx, session), storage.ErrAlreadyExists)

		got, err := store.GetSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, victim.ID, got.AccountID)
		assert.True(t, got.ExpiresAt.Equal(session.ExpiresAt))

		require.NoError(t, store.DeleteAccount(ctx, victim.ID))
		_, err = store.GetSession(ctx, session.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("purge expired", func(t *testing.T) {
		now := time.Now().UTC()
		expired := models.Session{ID: fmt.Sprintf("old_%d", suffix), AccountID: created.ID, Role: models.RoleUser, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
		require.NoError(t, store.CreateSession(ctx, expired))

		n, err := store.PurgeExpired(ctx, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))
		_, err = store.GetSession(ctx, expired.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("admin cannot be deleted", func(t *testing.T) {
		adm, err := store.FindAdmin(ctx)
		if err != nil {
			require.ErrorIs(t, err, storage.ErrNotFound)
			adm, err = store.CreateAccount(ctx, models.Account{Email: "a_" + email, Username: "a_" + username, PasswordHash: "x", Role: models.RoleAdmin})
			require.NoError(t, err)
		}
		assert.ErrorIs(t, store.DeleteAccount(ctx, adm.ID), storage.ErrProtected)

		_, err = store.CreateAccount(ctx, models.Account{Email: "b_" + email, Username: "b_" + username, PasswordHash: "x", Role: models.RoleAdmin})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	})
}

func loadDotEnv() {
	for _, path := range []string{".env", "../.env", "../../.env", "../../../.env"} {
		_ = godotenv.Overload(path)
	}
}
