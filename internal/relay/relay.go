// ABOUTME: Core domain types for managed relays and per-pubkey accounts
// ABOUTME: Defines Relay, RelayMeta, Account and the JSON wire contract

package relay

import (
	"errors"
	"fmt"
)

// ErrValidation is returned when a relay or config document fails local
// validation. Validation failures block a mutating call before it reaches
// the collaborator API.
var ErrValidation = errors.New("validation error")

// Relay is one managed relay instance. When Active is false the relay
// rejects all traffic regardless of any other configuration.
type Relay struct {
	ID     string      `json:"id"`
	Active bool        `json:"active"`
	Meta   RelayMeta   `json:"meta"`
	Config RelayConfig `json:"config"`
}

// RelayMeta holds the descriptive, non-policy fields of a relay.
type RelayMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerPubkey string `json:"pubkey,omitempty"`
	Contact     string `json:"contact,omitempty"`
	Domain      string `json:"domain,omitempty"`
}

// Account is the per-(relay, pubkey) moderation and accounting record.
// Allowed and Blocked are independent booleans: both false means the key
// is in the default "unknown" state. Blocked always dominates Allowed.
type Account struct {
	Pubkey      string `json:"pubkey"`
	Allowed     bool   `json:"allowed"`
	Blocked     bool   `json:"blocked"`
	PaidToJoin  bool   `json:"paidToJoin"`
	SpentSats   int64  `json:"spentSats"`
	StorageUsed int64  `json:"storageUsed"`
}

// AccountPatch is a partial account update. Nil fields are left unchanged.
type AccountPatch struct {
	Allowed *bool `json:"allowed,omitempty"`
	Blocked *bool `json:"blocked,omitempty"`
}

// AccountFilter selects accounts by moderation flag. The semantics are an
// inclusive union: an account matches when it is allowed and
// IncludeAllowed is set, or blocked and IncludeBlocked is set. Both flags
// false selects nothing.
type AccountFilter struct {
	IncludeAllowed bool
	IncludeBlocked bool
}

// Matches reports whether the account satisfies the filter.
func (f AccountFilter) Matches(a *Account) bool {
	return (f.IncludeAllowed && a.Allowed) || (f.IncludeBlocked && a.Blocked)
}

// CanJoin reports whether the account gets past a paid-to-join gate.
// An explicitly allowed account does not need to pay.
func (a *Account) CanJoin() bool {
	return a.PaidToJoin || a.Allowed
}

// Apply merges a patch into the account.
func (a *Account) Apply(patch AccountPatch) {
	if patch.Allowed != nil {
		a.Allowed = *patch.Allowed
	}
	if patch.Blocked != nil {
		a.Blocked = *patch.Blocked
	}
}

// Validate checks the relay document as a whole.
func (r *Relay) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: relay id is required", ErrValidation)
	}
	if r.Meta.Name == "" {
		return fmt.Errorf("%w: relay name is required", ErrValidation)
	}
	return r.Config.Validate()
}

// IsFreeToJoin reports whether new public keys may publish without paying.
func (r *Relay) IsFreeToJoin() bool {
	return !r.Config.PaidToJoin.Enabled || r.Config.PaidToJoin.AmountSats == 0
}

// Clone returns a deep copy of the relay document. The reconciler relies
// on this to keep provisional and committed states independent.
func (r *Relay) Clone() *Relay {
	if r == nil {
		return nil
	}
	out := *r
	out.Config.SkippedAuthEventKinds = append([]int(nil), r.Config.SkippedAuthEventKinds...)
	out.Config.ForcedAuthEventKinds = append([]int(nil), r.Config.ForcedAuthEventKinds...)
	out.Config.AllowedPublicKeys = append([]string(nil), r.Config.AllowedPublicKeys...)
	out.Config.BlockedPublicKeys = append([]string(nil), r.Config.BlockedPublicKeys...)
	return &out
}

// Info returns the public relay information document (NIP-11 style).
func (r *Relay) Info() map[string]any {
	return map[string]any{
		"id":             r.ID,
		"name":           r.Meta.Name,
		"description":    r.Meta.Description,
		"pubkey":         r.Meta.OwnerPubkey,
		"contact":        r.Meta.Contact,
		"supported_nips": []int{1, 2, 4, 9, 11, 15, 16, 20, 22, 28, 42},
		"software":       "relay-console",
	}
}
