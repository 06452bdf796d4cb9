// Package relay defines the domain model for managed relay instances.
//
// A Relay is one managed relay resource: its identity, owner-editable
// metadata, and the policy configuration that drives admission decisions
// (paid-to-join terms, per-account storage policy, authentication
// overrides per event kind, and the legacy allow/block public key lists).
//
// An Account is the per-public-key state within one relay: allow/block
// flags, paid-to-join status, cumulative spend and storage usage. Accounts
// are the authoritative source for access moderation; the flat
// allowedPublicKeys/blockedPublicKeys lists on RelayConfig are kept only
// as a migration-era representation and are derivable from account state
// via LegacyListsFromAccounts.
//
// The JSON field names on these types are a wire contract shared with
// other tooling and must not change.
package relay
