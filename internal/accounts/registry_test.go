// ABOUTME: Tests for the account registry
// ABOUTME: Upsert/remove/list semantics, cache invalidation, legacy migration

package accounts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/relay-console/internal/relay"
	"github.com/2389/relay-console/internal/store"
)

func boolPtr(b bool) *bool { return &b }

func setupRegistry(t *testing.T) (*Registry, *store.SQLiteStore) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	r := &relay.Relay{
		ID:     "relay-001",
		Active: true,
		Meta:   relay.RelayMeta{Name: "test"},
		Config: relay.DefaultConfig(),
	}
	require.NoError(t, s.CreateRelay(context.Background(), r))

	return NewRegistry(s), s
}

func TestRegistry_Upsert(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	account, err := registry.Upsert(ctx, "relay-001", "aa", relay.AccountPatch{Allowed: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, account.Allowed)

	// Upsert onto the relay that does not exist fails.
	_, err = registry.Upsert(ctx, "ghost", "aa", relay.AccountPatch{})
	require.ErrorIs(t, err, store.ErrNotFound)

	// Empty pubkey is rejected locally.
	_, err = registry.Upsert(ctx, "relay-001", "", relay.AccountPatch{})
	require.ErrorIs(t, err, relay.ErrValidation)
}

func TestRegistry_Get_CachesUntilWrite(t *testing.T) {
	registry, s := setupRegistry(t)
	ctx := context.Background()

	_, err := registry.Upsert(ctx, "relay-001", "aa", relay.AccountPatch{Allowed: boolPtr(true)})
	require.NoError(t, err)

	first, err := registry.Get(ctx, "relay-001", "aa")
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	// Mutate behind the cache; the cached entry still serves.
	_, err = s.UpsertAccount(ctx, "relay-001", "aa", relay.AccountPatch{Allowed: boolPtr(false)})
	require.NoError(t, err)

	cached, err := registry.Get(ctx, "relay-001", "aa")
	require.NoError(t, err)
	assert.True(t, cached.Allowed)

	// A registry write invalidates the entry and the next read is fresh.
	_, err = registry.Upsert(ctx, "relay-001", "aa", relay.AccountPatch{Blocked: boolPtr(true)})
	require.NoError(t, err)

	fresh, err := registry.Get(ctx, "relay-001", "aa")
	require.NoError(t, err)
	assert.False(t, fresh.Allowed)
	assert.True(t, fresh.Blocked)
}

func TestRegistry_Remove_Idempotent(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	_, err := registry.Upsert(ctx, "relay-001", "aa", relay.AccountPatch{Blocked: boolPtr(true)})
	require.NoError(t, err)

	require.NoError(t, registry.Remove(ctx, "relay-001", "aa"))
	require.NoError(t, registry.Remove(ctx, "relay-001", "aa"))

	_, err = registry.Get(ctx, "relay-001", "aa")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegistry_List_InclusiveFilter(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	_, err := registry.Upsert(ctx, "relay-001", "aa", relay.AccountPatch{Allowed: boolPtr(true)})
	require.NoError(t, err)
	_, err = registry.Upsert(ctx, "relay-001", "bb", relay.AccountPatch{Blocked: boolPtr(true)})
	require.NoError(t, err)
	_, err = registry.Upsert(ctx, "relay-001", "cc", relay.AccountPatch{Allowed: boolPtr(true), Blocked: boolPtr(true)})
	require.NoError(t, err)

	accounts, err := registry.List(ctx, "relay-001", relay.AccountFilter{IncludeAllowed: true})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "aa", accounts[0].Pubkey)
	assert.Equal(t, "cc", accounts[1].Pubkey)
}

func TestRegistry_Migrate_LegacyLists(t *testing.T) {
	registry, _ := setupRegistry(t)
	ctx := context.Background()

	// An account that predates the migration must not be overwritten.
	_, err := registry.Upsert(ctx, "relay-001", "existing", relay.AccountPatch{Blocked: boolPtr(true)})
	require.NoError(t, err)

	cfg := relay.DefaultConfig()
	cfg.AllowedPublicKeys = []string{"aa", "both", "existing"}
	cfg.BlockedPublicKeys = []string{"bb", "both"}

	require.NoError(t, registry.Migrate(ctx, "relay-001", &cfg))

	aa, err := registry.Get(ctx, "relay-001", "aa")
	require.NoError(t, err)
	assert.True(t, aa.Allowed)

	bb, err := registry.Get(ctx, "relay-001", "bb")
	require.NoError(t, err)
	assert.True(t, bb.Blocked)

	// Blocked wins for keys on both legacy lists.
	both, err := registry.Get(ctx, "relay-001", "both")
	require.NoError(t, err)
	assert.False(t, both.Allowed)
	assert.True(t, both.Blocked)

	existing, err := registry.Get(ctx, "relay-001", "existing")
	require.NoError(t, err)
	assert.True(t, existing.Blocked)
	assert.False(t, existing.Allowed)
}
