// Package store provides persistent storage for relay-console using SQLite.
//
// # Architecture
//
// The store package exposes interface-driven access to three tables:
//
//   - relays: the managed relay documents (config serialized as JSON)
//   - accounts: per-(relay, pubkey) moderation and accounting records
//   - events: admitted events, kept for storage accounting and pruning
//
// SQLiteStore implements all interfaces in a single struct. The Store
// interface is what the registry, policy engine and HTTP API consume;
// tests may substitute narrower fakes.
//
// # Semantics worth knowing
//
//   - Account listing uses an inclusive union filter: allowed OR blocked.
//   - Deleting a relay cascades to its accounts and events.
//   - PrunableEvents returns oldest-first so the policy engine can evict
//     in timestamp order until an account fits its quota again.
package store
