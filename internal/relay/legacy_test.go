// ABOUTME: Tests for the legacy list migration bridge
// ABOUTME: Blocked-wins precedence and account/list round trips

package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountsFromLegacyLists_BlockedWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedPublicKeys = []string{"aa", "bb"}
	cfg.BlockedPublicKeys = []string{"bb", "cc"}

	accounts := AccountsFromLegacyLists(&cfg)
	require.Len(t, accounts, 3)

	byKey := make(map[string]*Account)
	for _, a := range accounts {
		byKey[a.Pubkey] = a
	}

	assert.True(t, byKey["aa"].Allowed)
	assert.False(t, byKey["aa"].Blocked)

	// Present on both lists: blocked wins, allowed is dropped.
	assert.False(t, byKey["bb"].Allowed)
	assert.True(t, byKey["bb"].Blocked)

	assert.False(t, byKey["cc"].Allowed)
	assert.True(t, byKey["cc"].Blocked)
}

func TestLegacyListsFromAccounts(t *testing.T) {
	accounts := []*Account{
		{Pubkey: "aa", Allowed: true},
		{Pubkey: "bb", Blocked: true},
		{Pubkey: "cc", Allowed: true, Blocked: true},
		{Pubkey: "dd"},
	}

	allowed, blocked := LegacyListsFromAccounts(accounts)
	assert.Equal(t, []string{"aa"}, allowed)
	assert.Equal(t, []string{"bb", "cc"}, blocked)
}

func TestSyncLegacyLists(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedPublicKeys = []string{"stale"}

	cfg.SyncLegacyLists([]*Account{{Pubkey: "aa", Allowed: true}})
	assert.Equal(t, []string{"aa"}, cfg.AllowedPublicKeys)
	assert.Empty(t, cfg.BlockedPublicKeys)
}

func TestAccount_CanJoin(t *testing.T) {
	assert.False(t, (&Account{}).CanJoin())
	assert.True(t, (&Account{Allowed: true}).CanJoin())
	assert.True(t, (&Account{PaidToJoin: true}).CanJoin())
}

func TestAccountFilter_InclusiveUnion(t *testing.T) {
	accounts := []*Account{
		{Pubkey: "a", Allowed: true},
		{Pubkey: "b", Blocked: true},
		{Pubkey: "c", Allowed: true, Blocked: true},
		{Pubkey: "d"},
	}

	both := AccountFilter{IncludeAllowed: true, IncludeBlocked: true}
	var matched []string
	for _, a := range accounts {
		if both.Matches(a) {
			matched = append(matched, a.Pubkey)
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, matched)

	none := AccountFilter{}
	for _, a := range accounts {
		assert.False(t, none.Matches(a))
	}
}
