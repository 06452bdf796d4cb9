// ABOUTME: Store interfaces and sentinel errors for relay-console persistence
// ABOUTME: Defines Event record and the RelayStore/AccountStore/EventStore contracts

package store

import (
	"context"
	"errors"
	"time"

	"github.com/2389/relay-console/internal/relay"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when creating an entity whose key already exists.
var ErrConflict = errors.New("already exists")

// Event is one admitted event, kept for storage accounting and pruning.
// Size is the serialized event size in bytes.
type Event struct {
	ID        string
	RelayID   string
	Pubkey    string
	Kind      int
	Size      int64
	CreatedAt time.Time
}

// RelayStore persists relay documents.
type RelayStore interface {
	CreateRelay(ctx context.Context, r *relay.Relay) error
	GetRelay(ctx context.Context, id string) (*relay.Relay, error)
	ListRelays(ctx context.Context) ([]*relay.Relay, error)
	UpdateRelay(ctx context.Context, r *relay.Relay) error
	DeleteRelay(ctx context.Context, id string) error
}

// AccountStore persists per-(relay, pubkey) accounts.
type AccountStore interface {
	// UpsertAccount merges the patch into the account, creating it with
	// defaults when absent. The relay must exist.
	UpsertAccount(ctx context.Context, relayID, pubkey string, patch relay.AccountPatch) (*relay.Account, error)
	GetAccount(ctx context.Context, relayID, pubkey string) (*relay.Account, error)
	// ListAccounts applies the inclusive union filter: accounts that are
	// allowed (when requested) or blocked (when requested). Requesting
	// neither returns an empty result.
	ListAccounts(ctx context.Context, relayID string, filter relay.AccountFilter) ([]*relay.Account, error)
	// DeleteAccount is idempotent: deleting an absent account is not an error.
	DeleteAccount(ctx context.Context, relayID, pubkey string) error
	// AccrueStorage adds delta bytes to the account's storage accumulator,
	// creating the account when absent. Delta may be negative after pruning.
	AccrueStorage(ctx context.Context, relayID, pubkey string, delta int64) error
	// MarkAccountPaid records a settled join fee: sets paidToJoin and adds
	// the amount to the spend accumulator.
	MarkAccountPaid(ctx context.Context, relayID, pubkey string, sats int64) error
}

// EventStore persists admitted events for storage accounting.
type EventStore interface {
	SaveEvent(ctx context.Context, e *Event) error
	// StorageUsed sums the sizes of a pubkey's events on one relay.
	StorageUsed(ctx context.Context, relayID, pubkey string) (int64, error)
	// PrunableEvents returns a pubkey's events oldest-first.
	PrunableEvents(ctx context.Context, relayID, pubkey string, limit int) ([]*Event, error)
	DeleteEvents(ctx context.Context, relayID string, eventIDs []string) error
}

// Store is the full persistence contract the service wires together.
type Store interface {
	RelayStore
	AccountStore
	EventStore

	// Close releases any resources held by the store.
	Close() error
}
