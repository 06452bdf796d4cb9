// Package accounts implements the per-relay account registry.
//
// The registry is the authoritative moderation surface for public keys:
// allow/block patches, explicit removal, and filtered listing. It wraps
// the persistent store with a small session cache so repeated lookups
// during one editing session stay cheap; any write invalidates the
// affected cache entry before it reaches the store.
package accounts
