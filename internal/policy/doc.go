// Package policy implements the admission decision engine.
//
// For one (relay, event) pair the engine produces a single Decision. The
// evaluation order is deliberate and first-match-wins:
//
//  1. inactive relay
//  2. blocked account or legacy block list (blocked dominates allowed)
//  3. unpaid join fee on a paid relay (explicit allow waives the fee)
//  4. forced-auth event kinds without verified authentication
//  5. auth-exempt event kinds (skip the default auth requirement)
//  6. hourly event budget for the relay, when one is configured
//  7. schnorr signature verification against the event id
//  8. created_at drift beyond the configured past/future windows
//  9. storage quota, per the relay's BLOCK_NEW / PRUNE_OLD policy
// 10. admission, with storage accrual and oldest-first pruning
//
// Accrual happens only on admission, never on rejection, and runs under a
// per-(relay, pubkey) lock so two concurrent admissions for the same
// account cannot interleave their storage updates.
package policy
