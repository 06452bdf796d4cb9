// ABOUTME: Migration bridge between legacy allow/block lists and accounts
// ABOUTME: Lists are a computed view of account state, never a second source

package relay

import "slices"

// AccountsFromLegacyLists materializes account records for every pubkey on
// the legacy allow/block lists. A key present on both lists comes out
// blocked only: blocked wins.
func AccountsFromLegacyLists(cfg *RelayConfig) []*Account {
	seen := make(map[string]*Account)
	order := make([]string, 0, len(cfg.AllowedPublicKeys)+len(cfg.BlockedPublicKeys))

	for _, pubkey := range cfg.AllowedPublicKeys {
		if _, ok := seen[pubkey]; ok {
			continue
		}
		seen[pubkey] = &Account{Pubkey: pubkey, Allowed: true}
		order = append(order, pubkey)
	}
	for _, pubkey := range cfg.BlockedPublicKeys {
		if a, ok := seen[pubkey]; ok {
			a.Allowed = false
			a.Blocked = true
			continue
		}
		seen[pubkey] = &Account{Pubkey: pubkey, Blocked: true}
		order = append(order, pubkey)
	}

	accounts := make([]*Account, 0, len(order))
	for _, pubkey := range order {
		accounts = append(accounts, seen[pubkey])
	}
	return accounts
}

// LegacyListsFromAccounts regenerates the flat allow/block lists from
// account state, for documents that other tooling still reads in the old
// shape. A blocked account never appears on the allow list.
func LegacyListsFromAccounts(accounts []*Account) (allowed, blocked []string) {
	allowed = []string{}
	blocked = []string{}
	for _, a := range accounts {
		if a.Blocked {
			blocked = append(blocked, a.Pubkey)
			continue
		}
		if a.Allowed {
			allowed = append(allowed, a.Pubkey)
		}
	}
	slices.Sort(allowed)
	slices.Sort(blocked)
	return allowed, blocked
}

// SyncLegacyLists rewrites the config's legacy lists from account state.
// Explicit account removal must also drop the corresponding list entry;
// callers regenerate the whole view instead of patching it.
func (c *RelayConfig) SyncLegacyLists(accounts []*Account) {
	c.AllowedPublicKeys, c.BlockedPublicKeys = LegacyListsFromAccounts(accounts)
}
