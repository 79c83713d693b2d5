package redisstore

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

func TestSessionStoreIntegration(t *testing.T) {
	if os.Getenv("RUN_STORE_INTEGRATION") != "true" {
		t.Skip("set RUN_STORE_INTEGRATION=true to run this integration test")
	}
	for _, path := range []string{".env", "../.env", "../../.env", "../../../.env"} {
		_ = godotenv.Overload(path)
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("gesturelab_test_%d:", time.Now().UnixNano())
	store, err := NewSessionStore(ctx, Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), KeyPrefix: prefix})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, store.Ping(ctx))

	now := time.Now().UTC().Truncate(time.Second)
	a := models.Session{ID: "a", AccountID: 7, Role: models.RoleUser, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	b := models.Session{ID: "b", AccountID: 7, Role: models.RoleUser, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	c := models.Session{ID: "c", AccountID: 1, Role: models.RoleAdmin, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, s := range []models.Session{a, b, c} {
		require.NoError(t, store.CreateSession(ctx, s))
	}
	assert.ErrorIs(t, store.CreateSession(ctx, a), storage.ErrAlreadyExists)
	assert.Error(t, store.CreateSession(ctx, models.Session{ID: "late", AccountID: 7, Role: models.RoleUser, ExpiresAt: now.Add(-time.Minute)}))

	got, err := store.GetSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, a.AccountID, got.AccountID)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.True(t, got.ExpiresAt.Equal(a.ExpiresAt))

	require.NoError(t, store.DeleteSession(ctx, "a"))
	require.NoError(t, store.DeleteSession(ctx, "a"))
	_, err = store.GetSession(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.DeleteAccountSessions(ctx, 7))
	_, err = store.GetSession(ctx, "b")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetSession(ctx, "c")
	require.NoError(t, err)

	n, err := store.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, store.DeleteSession(ctx, "c"))
}
