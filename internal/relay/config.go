// ABOUTME: Owner-editable relay policy document and its mutation helpers
// ABOUTME: Covers paid-to-join terms, storage policy and auth kind overrides

package relay

import (
	"fmt"
	"slices"
)

// StorageUnit is the unit a storage limit is expressed in.
type StorageUnit string

// Recognized storage units.
const (
	StorageUnitKB StorageUnit = "KB"
	StorageUnitMB StorageUnit = "MB"
)

// StorageAction is what happens when an account exceeds its storage limit.
type StorageAction string

// Recognized full-storage actions.
const (
	// StorageActionBlockNew rejects new events once the limit is reached.
	StorageActionBlockNew StorageAction = "BLOCK_NEW"
	// StorageActionPruneOld admits new events and evicts the account's
	// oldest events until usage fits the limit again.
	StorageActionPruneOld StorageAction = "PRUNE_OLD"
)

// PaidToJoin holds the one-time join fee terms.
type PaidToJoin struct {
	Enabled    bool  `json:"enabled"`
	AmountSats int64 `json:"amountSats"`
}

// StoragePolicy is the per-account storage quota and overflow behavior.
type StoragePolicy struct {
	Unit   StorageUnit   `json:"unit"`
	Limit  int64         `json:"limit"`
	Action StorageAction `json:"action"`
}

// LimitBytes returns the storage limit normalized to bytes.
func (s StoragePolicy) LimitBytes() int64 {
	switch s.Unit {
	case StorageUnitMB:
		return s.Limit * 1024 * 1024
	default:
		return s.Limit * 1024
	}
}

// RelayConfig is the owner-editable policy document for one relay.
//
// AllowedPublicKeys and BlockedPublicKeys are the legacy flat-list
// representation from before accounts existed. They are still honored by
// the policy engine for documents that carry them, but account records
// supersede them and the lists are regenerated from account state.
//
// MaxEventsPerHour caps how many events the relay accepts per clock
// hour; zero is unlimited. CreatedAtPastSeconds and
// CreatedAtFutureSeconds bound how far an event timestamp may drift
// from the relay's clock, each side unbounded when zero.
type RelayConfig struct {
	Wallet                 string        `json:"wallet,omitempty"`
	PaidToJoin             PaidToJoin    `json:"paidToJoin"`
	Storage                StoragePolicy `json:"storage"`
	MaxEventsPerHour       int64         `json:"maxEventsPerHour"`
	CreatedAtPastSeconds   int64         `json:"createdAtPastSeconds"`
	CreatedAtFutureSeconds int64         `json:"createdAtFutureSeconds"`
	RequireAuthEvents      bool          `json:"requireAuthEvents"`
	SkippedAuthEventKinds  []int         `json:"skippedAuthEventKinds"`
	ForcedAuthEventKinds   []int         `json:"forcedAuthEventKinds"`
	AllowedPublicKeys      []string      `json:"allowedPublicKeys"`
	BlockedPublicKeys      []string      `json:"blockedPublicKeys"`
}

// Validate checks the config document against its invariants.
func (c *RelayConfig) Validate() error {
	if c.PaidToJoin.Enabled && c.Wallet == "" {
		return fmt.Errorf("%w: paid-to-join requires a wallet", ErrValidation)
	}
	if c.PaidToJoin.AmountSats < 0 {
		return fmt.Errorf("%w: join fee must not be negative", ErrValidation)
	}
	if c.Storage.Limit <= 0 {
		return fmt.Errorf("%w: storage limit must be positive", ErrValidation)
	}
	if c.Storage.Unit != StorageUnitKB && c.Storage.Unit != StorageUnitMB {
		return fmt.Errorf("%w: unknown storage unit %q", ErrValidation, c.Storage.Unit)
	}
	if c.Storage.Action != StorageActionBlockNew && c.Storage.Action != StorageActionPruneOld {
		return fmt.Errorf("%w: unknown storage action %q", ErrValidation, c.Storage.Action)
	}
	if c.MaxEventsPerHour < 0 {
		return fmt.Errorf("%w: hourly event budget must not be negative", ErrValidation)
	}
	if c.CreatedAtPastSeconds < 0 || c.CreatedAtFutureSeconds < 0 {
		return fmt.Errorf("%w: created_at drift windows must not be negative", ErrValidation)
	}
	for _, kind := range c.ForcedAuthEventKinds {
		if slices.Contains(c.SkippedAuthEventKinds, kind) {
			return fmt.Errorf("%w: event kind %d is in both the forced and skipped auth lists", ErrValidation, kind)
		}
	}
	return nil
}

// AddSkippedAuthKind exempts an event kind from authentication. Adding a
// kind that is already exempt is a no-op. Adding a kind present in the
// forced list is a validation error.
func (c *RelayConfig) AddSkippedAuthKind(kind int) error {
	if slices.Contains(c.ForcedAuthEventKinds, kind) {
		return fmt.Errorf("%w: event kind %d already forces authentication", ErrValidation, kind)
	}
	if !slices.Contains(c.SkippedAuthEventKinds, kind) {
		c.SkippedAuthEventKinds = append(c.SkippedAuthEventKinds, kind)
	}
	return nil
}

// RemoveSkippedAuthKind removes an event kind from the auth-exempt set.
// Removing an absent kind is a no-op.
func (c *RelayConfig) RemoveSkippedAuthKind(kind int) {
	c.SkippedAuthEventKinds = slices.DeleteFunc(c.SkippedAuthEventKinds, func(k int) bool {
		return k == kind
	})
}

// AddForcedAuthKind makes an event kind always require authentication.
// Adding a kind that already does is a no-op. Adding a kind present in the
// skipped list is a validation error.
func (c *RelayConfig) AddForcedAuthKind(kind int) error {
	if slices.Contains(c.SkippedAuthEventKinds, kind) {
		return fmt.Errorf("%w: event kind %d is exempt from authentication", ErrValidation, kind)
	}
	if !slices.Contains(c.ForcedAuthEventKinds, kind) {
		c.ForcedAuthEventKinds = append(c.ForcedAuthEventKinds, kind)
	}
	return nil
}

// RemoveForcedAuthKind removes an event kind from the forced-auth set.
// Removing an absent kind is a no-op.
func (c *RelayConfig) RemoveForcedAuthKind(kind int) {
	c.ForcedAuthEventKinds = slices.DeleteFunc(c.ForcedAuthEventKinds, func(k int) bool {
		return k == kind
	})
}

// EnablePaidJoin turns on the join fee. A wallet must already be set on
// the config or supplied as the fallback (the first available wallet
// option in the editing session).
func (c *RelayConfig) EnablePaidJoin(amountSats int64, fallbackWallet string) error {
	if amountSats < 0 {
		return fmt.Errorf("%w: join fee must not be negative", ErrValidation)
	}
	if c.Wallet == "" {
		if fallbackWallet == "" {
			return fmt.Errorf("%w: paid-to-join requires a wallet", ErrValidation)
		}
		c.Wallet = fallbackWallet
	}
	c.PaidToJoin.Enabled = true
	c.PaidToJoin.AmountSats = amountSats
	return nil
}

// DisablePaidJoin turns off the join fee, keeping the configured amount.
func (c *RelayConfig) DisablePaidJoin() {
	c.PaidToJoin.Enabled = false
}

// SetStoragePolicy replaces the storage quota settings.
func (c *RelayConfig) SetStoragePolicy(unit StorageUnit, limit int64, action StorageAction) error {
	if limit <= 0 {
		return fmt.Errorf("%w: storage limit must be positive", ErrValidation)
	}
	if unit != StorageUnitKB && unit != StorageUnitMB {
		return fmt.Errorf("%w: unknown storage unit %q", ErrValidation, unit)
	}
	if action != StorageActionBlockNew && action != StorageActionPruneOld {
		return fmt.Errorf("%w: unknown storage action %q", ErrValidation, action)
	}
	c.Storage = StoragePolicy{Unit: unit, Limit: limit, Action: action}
	return nil
}

// RequiresAuth reports whether an event of the given kind needs a
// verified authentication, per the per-kind overrides. Forced kinds always
// require auth and are checked first, so a kind that appears in both lists
// (possible only on documents that bypassed validation) fails closed.
func (c *RelayConfig) RequiresAuth(kind int) bool {
	if slices.Contains(c.ForcedAuthEventKinds, kind) {
		return true
	}
	if c.RequireAuthEvents {
		return !slices.Contains(c.SkippedAuthEventKinds, kind)
	}
	return false
}

// LegacyAllowed reports whether a pubkey is on the legacy allow list.
func (c *RelayConfig) LegacyAllowed(pubkey string) bool {
	return slices.Contains(c.AllowedPublicKeys, pubkey)
}

// LegacyBlocked reports whether a pubkey is on the legacy block list.
func (c *RelayConfig) LegacyBlocked(pubkey string) bool {
	return slices.Contains(c.BlockedPublicKeys, pubkey)
}

// DefaultConfig returns the config a freshly created relay starts with.
func DefaultConfig() RelayConfig {
	return RelayConfig{
		Storage: StoragePolicy{
			Unit:   StorageUnitMB,
			Limit:  1,
			Action: StorageActionPruneOld,
		},
		SkippedAuthEventKinds: []int{},
		ForcedAuthEventKinds:  []int{},
		AllowedPublicKeys:     []string{},
		BlockedPublicKeys:     []string{},
	}
}
