// ABOUTME: Tests for SQLite relay document persistence
// ABOUTME: Covers create/get/list/update/delete and cascade behavior

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/relay-console/internal/relay"
)

// setupTestStore creates a store backed by a temp database, cleaned up
// with the test.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// testRelay returns a valid relay document for tests.
func testRelay(id string) *relay.Relay {
	return &relay.Relay{
		ID:     id,
		Active: true,
		Meta: relay.RelayMeta{
			Name:        "relay " + id,
			Description: "test relay",
			Contact:     "ops@example.com",
		},
		Config: relay.DefaultConfig(),
	}
}

func TestStore_CreateAndGetRelay(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r := testRelay("relay-001")
	r.Config.Wallet = "wallet-1"
	require.NoError(t, r.Config.AddSkippedAuthKind(1))
	require.NoError(t, store.CreateRelay(ctx, r))

	got, err := store.GetRelay(ctx, "relay-001")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.True(t, got.Active)
	assert.Equal(t, r.Meta, got.Meta)
	assert.Equal(t, r.Config, got.Config)
}

func TestStore_CreateRelay_DuplicateID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRelay(ctx, testRelay("relay-001")))
	err := store.CreateRelay(ctx, testRelay("relay-001"))
	require.ErrorIs(t, err, ErrConflict)
}

func TestStore_GetRelay_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRelay(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListRelays(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRelay(ctx, testRelay("relay-b")))
	require.NoError(t, store.CreateRelay(ctx, testRelay("relay-a")))

	relays, err := store.ListRelays(ctx)
	require.NoError(t, err)
	require.Len(t, relays, 2)
	assert.Equal(t, "relay-a", relays[0].ID)
	assert.Equal(t, "relay-b", relays[1].ID)
}

func TestStore_UpdateRelay(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r := testRelay("relay-001")
	require.NoError(t, store.CreateRelay(ctx, r))

	r.Active = false
	r.Meta.Description = "deactivated"
	require.NoError(t, r.Config.SetStoragePolicy(relay.StorageUnitKB, 100, relay.StorageActionBlockNew))
	require.NoError(t, store.UpdateRelay(ctx, r))

	got, err := store.GetRelay(ctx, "relay-001")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, "deactivated", got.Meta.Description)
	assert.Equal(t, relay.StorageActionBlockNew, got.Config.Storage.Action)
}

func TestStore_UpdateRelay_NotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.UpdateRelay(context.Background(), testRelay("ghost"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteRelay_CascadesAccountsAndEvents(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRelay(ctx, testRelay("relay-001")))

	allowed := true
	_, err := store.UpsertAccount(ctx, "relay-001", "aa", relay.AccountPatch{Allowed: &allowed})
	require.NoError(t, err)
	require.NoError(t, store.SaveEvent(ctx, testEvent("ev1", "relay-001", "aa", 100)))

	require.NoError(t, store.DeleteRelay(ctx, "relay-001"))

	_, err = store.GetRelay(ctx, "relay-001")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetAccount(ctx, "relay-001", "aa")
	require.ErrorIs(t, err, ErrNotFound)

	used, err := store.StorageUsed(ctx, "relay-001", "aa")
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestStore_DeleteRelay_NotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.DeleteRelay(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}
