// ABOUTME: Account registry: allow/block upserts, removal and listing
// ABOUTME: Authoritative over legacy lists; session cache invalidated on writes

package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/relay-console/internal/relay"
	"github.com/2389/relay-console/internal/store"
)

const (
	defaultCacheTTL  = 30 * time.Second
	defaultCacheSize = 1024
)

// Registry manages the accounts of managed relays.
type Registry struct {
	store  store.AccountStore
	cache  *accountCache
	logger *slog.Logger
}

// NewRegistry creates a registry over the given account store.
func NewRegistry(s store.AccountStore) *Registry {
	return &Registry{
		store:  s,
		cache:  newAccountCache(defaultCacheTTL, defaultCacheSize),
		logger: slog.Default().With("component", "accounts"),
	}
}

// Upsert merges the patch into the account, creating it with defaults
// when absent. The relay must exist. The cached entry for the key is
// dropped before the write so a failed write cannot leave a stale hit.
func (r *Registry) Upsert(ctx context.Context, relayID, pubkey string, patch relay.AccountPatch) (*relay.Account, error) {
	if pubkey == "" {
		return nil, fmt.Errorf("%w: pubkey is required", relay.ErrValidation)
	}

	r.cache.invalidate(relayID, pubkey)

	account, err := r.store.UpsertAccount(ctx, relayID, pubkey, patch)
	if err != nil {
		return nil, fmt.Errorf("upserting account: %w", err)
	}

	r.cache.put(relayID, account)
	r.logger.Info("account upserted",
		"relay_id", relayID,
		"pubkey", pubkey,
		"allowed", account.Allowed,
		"blocked", account.Blocked,
	)
	return account, nil
}

// Remove deletes the account. Removing an absent account is a no-op.
func (r *Registry) Remove(ctx context.Context, relayID, pubkey string) error {
	r.cache.invalidate(relayID, pubkey)

	if err := r.store.DeleteAccount(ctx, relayID, pubkey); err != nil {
		return fmt.Errorf("removing account: %w", err)
	}

	r.logger.Info("account removed", "relay_id", relayID, "pubkey", pubkey)
	return nil
}

// Get fetches one account, serving from the session cache when fresh.
func (r *Registry) Get(ctx context.Context, relayID, pubkey string) (*relay.Account, error) {
	if account, ok := r.cache.get(relayID, pubkey); ok {
		return account, nil
	}

	account, err := r.store.GetAccount(ctx, relayID, pubkey)
	if err != nil {
		return nil, err
	}

	r.cache.put(relayID, account)
	return account, nil
}

// List returns the accounts matching the inclusive union filter.
func (r *Registry) List(ctx context.Context, relayID string, filter relay.AccountFilter) ([]*relay.Account, error) {
	accounts, err := r.store.ListAccounts(ctx, relayID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

// Migrate materializes accounts from a config document's legacy
// allow/block lists. Keys that already have an account are left alone:
// accounts supersede the lists.
func (r *Registry) Migrate(ctx context.Context, relayID string, cfg *relay.RelayConfig) error {
	migrated := 0
	for _, a := range relay.AccountsFromLegacyLists(cfg) {
		if _, err := r.store.GetAccount(ctx, relayID, a.Pubkey); err == nil {
			continue
		}
		patch := relay.AccountPatch{Allowed: &a.Allowed, Blocked: &a.Blocked}
		if _, err := r.Upsert(ctx, relayID, a.Pubkey, patch); err != nil {
			return fmt.Errorf("migrating legacy entry %s: %w", a.Pubkey, err)
		}
		migrated++
	}

	if migrated > 0 {
		r.logger.Info("legacy lists migrated", "relay_id", relayID, "accounts", migrated)
	}
	return nil
}
