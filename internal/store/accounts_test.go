// ABOUTME: Tests for account persistence
// ABOUTME: Patch upserts, inclusive union listing, accrual operations

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/relay-console/internal/relay"
)

func boolPtr(b bool) *bool { return &b }

func TestStore_UpsertAccount_CreatesWithDefaults(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRelay(ctx, testRelay("relay-001")))

	account, err := store.UpsertAccount(ctx, "relay-001", "aa", relay.AccountPatch{Allowed: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, account.Allowed)
	assert.False(t, account.Blocked)
	assert.False(t, account.PaidToJoin)
	assert.Zero(t, account.SpentSats)
	assert.Zero(t, account.StorageUsed)
}

func TestStore_UpsertAccount_MergesPatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRelay(ctx, testRelay("relay-001")))

	_, err := store.UpsertAccount(ctx, "relay-001", "aa", relay.AccountPatch{Allowed: boolPtr(true)})
	require.NoError(t, err)

	// Patching blocked must leave allowed untouched.
	account, err := store.UpsertAccount(ctx, "relay-001", "aa", relay.AccountPatch{Blocked: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, account.Allowed)
	assert.True(t, account.Blocked)

	got, err := store.GetAccount(ctx, "relay-001", "aa")
	require.NoError(t, err)
	assert.True(t, got.Allowed)
	assert.True(t, got.Blocked)
}

func TestStore_UpsertAccount_RelayNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.UpsertAccount(context.Background(), "ghost", "aa", relay.AccountPatch{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListAccounts_InclusiveUnion(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRelay(ctx, testRelay("relay-001")))

	_, err := store.UpsertAccount(ctx, "relay-001", "aa", relay.AccountPatch{Allowed: boolPtr(true)})
	require.NoError(t, err)
	_, err = store.UpsertAccount(ctx, "relay-001", "bb", relay.AccountPatch{Blocked: boolPtr(true)})
	require.NoError(t, err)
	_, err = store.UpsertAccount(ctx, "relay-001", "cc", relay.AccountPatch{Allowed: boolPtr(true), Blocked: boolPtr(true)})
	require.NoError(t, err)
	_, err = store.UpsertAccount(ctx, "relay-001", "dd", relay.AccountPatch{})
	require.NoError(t, err)

	// Allowed only: aa and cc.
	accounts, err := store.ListAccounts(ctx, "relay-001", relay.AccountFilter{IncludeAllowed: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "cc"}, pubkeys(accounts))

	// Blocked only: bb and cc.
	accounts, err = store.ListAccounts(ctx, "relay-001", relay.AccountFilter{IncludeBlocked: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"bb", "cc"}, pubkeys(accounts))

	// Both: union, not intersection.
	accounts, err = store.ListAccounts(ctx, "relay-001", relay.AccountFilter{IncludeAllowed: true, IncludeBlocked: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "bb", "cc"}, pubkeys(accounts))

	// Neither: empty.
	accounts, err = store.ListAccounts(ctx, "relay-001", relay.AccountFilter{})
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func pubkeys(accounts []*relay.Account) []string {
	keys := make([]string, len(accounts))
	for i, a := range accounts {
		keys[i] = a.Pubkey
	}
	return keys
}

func TestStore_DeleteAccount_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRelay(ctx, testRelay("relay-001")))
	_, err := store.UpsertAccount(ctx, "relay-001", "aa", relay.AccountPatch{Allowed: boolPtr(true)})
	require.NoError(t, err)

	require.NoError(t, store.DeleteAccount(ctx, "relay-001", "aa"))
	_, err = store.GetAccount(ctx, "relay-001", "aa")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting again is not an error.
	require.NoError(t, store.DeleteAccount(ctx, "relay-001", "aa"))
}

func TestStore_AccrueStorage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRelay(ctx, testRelay("relay-001")))

	// Creates the account when absent.
	require.NoError(t, store.AccrueStorage(ctx, "relay-001", "aa", 512))
	require.NoError(t, store.AccrueStorage(ctx, "relay-001", "aa", 256))

	account, err := store.GetAccount(ctx, "relay-001", "aa")
	require.NoError(t, err)
	assert.Equal(t, int64(768), account.StorageUsed)

	// Negative deltas (pruning) never drive the accumulator below zero.
	require.NoError(t, store.AccrueStorage(ctx, "relay-001", "aa", -1024))
	account, err = store.GetAccount(ctx, "relay-001", "aa")
	require.NoError(t, err)
	assert.Zero(t, account.StorageUsed)
}

func TestStore_MarkAccountPaid(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRelay(ctx, testRelay("relay-001")))

	require.NoError(t, store.MarkAccountPaid(ctx, "relay-001", "aa", 1000))

	account, err := store.GetAccount(ctx, "relay-001", "aa")
	require.NoError(t, err)
	assert.True(t, account.PaidToJoin)
	assert.Equal(t, int64(1000), account.SpentSats)

	// Spend accumulates across settlements.
	require.NoError(t, store.MarkAccountPaid(ctx, "relay-001", "aa", 500))
	account, err = store.GetAccount(ctx, "relay-001", "aa")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), account.SpentSats)
}
