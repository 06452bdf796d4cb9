// ABOUTME: SQLite persistence for per-(relay, pubkey) accounts
// ABOUTME: Patch upsert, inclusive union listing, storage/spend accrual

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/2389/relay-console/internal/relay"
)

// UpsertAccount merges the patch into the account, creating it with
// defaults when absent. Returns ErrNotFound when the relay does not exist.
func (s *SQLiteStore) UpsertAccount(ctx context.Context, relayID, pubkey string, patch relay.AccountPatch) (*relay.Account, error) {
	if _, err := s.GetRelay(ctx, relayID); err != nil {
		return nil, err
	}

	account, err := s.GetAccount(ctx, relayID, pubkey)
	if errors.Is(err, ErrNotFound) {
		account = &relay.Account{Pubkey: pubkey}
		account.Apply(patch)
		if err := s.insertAccount(ctx, relayID, account); err != nil {
			return nil, err
		}
		return account, nil
	}
	if err != nil {
		return nil, err
	}

	account.Apply(patch)
	query := `
		UPDATE accounts SET allowed = ?, blocked = ?, updated_at = ?
		WHERE relay_id = ? AND pubkey = ?
	`
	_, err = s.db.ExecContext(ctx, query,
		boolToInt(account.Allowed),
		boolToInt(account.Blocked),
		time.Now().UTC().Format(time.RFC3339),
		relayID,
		pubkey,
	)
	if err != nil {
		return nil, fmt.Errorf("updating account: %w", err)
	}

	s.logger.Debug("account updated",
		"relay_id", relayID,
		"pubkey", pubkey,
		"allowed", account.Allowed,
		"blocked", account.Blocked,
	)
	return account, nil
}

func (s *SQLiteStore) insertAccount(ctx context.Context, relayID string, a *relay.Account) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO accounts (relay_id, pubkey, allowed, blocked, paid_to_join, spent_sats, storage_used, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		relayID,
		a.Pubkey,
		boolToInt(a.Allowed),
		boolToInt(a.Blocked),
		boolToInt(a.PaidToJoin),
		a.SpentSats,
		a.StorageUsed,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", a.Pubkey, ErrConflict)
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	s.logger.Debug("account created", "relay_id", relayID, "pubkey", a.Pubkey)
	return nil
}

// GetAccount fetches one account record.
func (s *SQLiteStore) GetAccount(ctx context.Context, relayID, pubkey string) (*relay.Account, error) {
	query := `
		SELECT pubkey, allowed, blocked, paid_to_join, spent_sats, storage_used
		FROM accounts WHERE relay_id = ? AND pubkey = ?
	`
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, relayID, pubkey))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %s: %w", pubkey, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return a, nil
}

// ListAccounts returns accounts matching the inclusive union filter:
// allowed accounts when IncludeAllowed, plus blocked accounts when
// IncludeBlocked. Both false yields an empty result.
func (s *SQLiteStore) ListAccounts(ctx context.Context, relayID string, filter relay.AccountFilter) ([]*relay.Account, error) {
	accounts := []*relay.Account{}
	if !filter.IncludeAllowed && !filter.IncludeBlocked {
		return accounts, nil
	}

	query := `
		SELECT pubkey, allowed, blocked, paid_to_join, spent_sats, storage_used
		FROM accounts
		WHERE relay_id = ? AND ((allowed = 1 AND ?) OR (blocked = 1 AND ?))
		ORDER BY pubkey ASC
	`
	rows, err := s.db.QueryContext(ctx, query, relayID,
		boolToInt(filter.IncludeAllowed),
		boolToInt(filter.IncludeBlocked),
	)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes an account. Deleting an absent account is a no-op.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, relayID, pubkey string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE relay_id = ? AND pubkey = ?`,
		relayID, pubkey,
	)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

// AccrueStorage adds delta bytes to the account's storage accumulator,
// creating the account with defaults when absent.
func (s *SQLiteStore) AccrueStorage(ctx context.Context, relayID, pubkey string, delta int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO accounts (relay_id, pubkey, storage_used, created_at, updated_at)
		VALUES (?, ?, MAX(?, 0), ?, ?)
		ON CONFLICT (relay_id, pubkey)
		DO UPDATE SET storage_used = MAX(storage_used + ?, 0), updated_at = ?
	`
	_, err := s.db.ExecContext(ctx, query, relayID, pubkey, delta, now, now, delta, now)
	if err != nil {
		return fmt.Errorf("accruing storage: %w", err)
	}
	return nil
}

// MarkAccountPaid records a settled join fee for the account, creating it
// when absent.
func (s *SQLiteStore) MarkAccountPaid(ctx context.Context, relayID, pubkey string, sats int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO accounts (relay_id, pubkey, paid_to_join, spent_sats, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT (relay_id, pubkey)
		DO UPDATE SET paid_to_join = 1, spent_sats = spent_sats + ?, updated_at = ?
	`
	_, err := s.db.ExecContext(ctx, query, relayID, pubkey, sats, now, now, sats, now)
	if err != nil {
		return fmt.Errorf("marking account paid: %w", err)
	}

	s.logger.Info("join fee settled", "relay_id", relayID, "pubkey", pubkey, "sats", sats)
	return nil
}

// scanAccount scans a single account row.
func scanAccount(row rowScanner) (*relay.Account, error) {
	var a relay.Account
	var allowed, blocked, paid int

	err := row.Scan(
		&a.Pubkey,
		&allowed,
		&blocked,
		&paid,
		&a.SpentSats,
		&a.StorageUsed,
	)
	if err != nil {
		return nil, err
	}

	a.Allowed = allowed != 0
	a.Blocked = blocked != 0
	a.PaidToJoin = paid != 0
	return &a, nil
}
