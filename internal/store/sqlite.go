// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Relay document persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/relay-console/internal/relay"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS relays (
			id          TEXT PRIMARY KEY,
			active      INTEGER NOT NULL DEFAULT 0,
			name        TEXT NOT NULL,
			description TEXT,
			pubkey      TEXT,
			contact     TEXT,
			domain      TEXT,
			config_json TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS accounts (
			relay_id     TEXT NOT NULL,
			pubkey       TEXT NOT NULL,
			allowed      INTEGER NOT NULL DEFAULT 0,
			blocked      INTEGER NOT NULL DEFAULT 0,
			paid_to_join INTEGER NOT NULL DEFAULT 0,
			spent_sats   INTEGER NOT NULL DEFAULT 0,
			storage_used INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,

			PRIMARY KEY (relay_id, pubkey),
			FOREIGN KEY (relay_id) REFERENCES relays(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_accounts_flags
			ON accounts(relay_id, allowed, blocked);

		CREATE TABLE IF NOT EXISTS events (
			id         TEXT NOT NULL,
			relay_id   TEXT NOT NULL,
			pubkey     TEXT NOT NULL,
			kind       INTEGER NOT NULL,
			size       INTEGER NOT NULL,
			created_at TEXT NOT NULL,

			PRIMARY KEY (relay_id, id),
			FOREIGN KEY (relay_id) REFERENCES relays(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_events_pubkey
			ON events(relay_id, pubkey, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRelay inserts a new relay document.
func (s *SQLiteStore) CreateRelay(ctx context.Context, r *relay.Relay) error {
	configJSON, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO relays (id, active, name, description, pubkey, contact, domain, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		boolToInt(r.Active),
		r.Meta.Name,
		r.Meta.Description,
		r.Meta.OwnerPubkey,
		r.Meta.Contact,
		r.Meta.Domain,
		string(configJSON),
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("relay %s: %w", r.ID, ErrConflict)
		}
		return fmt.Errorf("inserting relay: %w", err)
	}

	s.logger.Info("relay created", "relay_id", r.ID, "name", r.Meta.Name)
	return nil
}

// GetRelay fetches one relay document by id.
func (s *SQLiteStore) GetRelay(ctx context.Context, id string) (*relay.Relay, error) {
	query := `
		SELECT id, active, name, description, pubkey, contact, domain, config_json
		FROM relays WHERE id = ?
	`
	r, err := scanRelay(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("relay %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying relay: %w", err)
	}
	return r, nil
}

// ListRelays returns all relay documents ordered by id.
func (s *SQLiteStore) ListRelays(ctx context.Context) ([]*relay.Relay, error) {
	query := `
		SELECT id, active, name, description, pubkey, contact, domain, config_json
		FROM relays ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying relays: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var relays []*relay.Relay
	for rows.Next() {
		r, err := scanRelay(rows)
		if err != nil {
			return nil, err
		}
		relays = append(relays, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relay rows: %w", err)
	}
	return relays, nil
}

// UpdateRelay replaces a relay document wholesale.
func (s *SQLiteStore) UpdateRelay(ctx context.Context, r *relay.Relay) error {
	configJSON, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	query := `
		UPDATE relays
		SET active = ?, name = ?, description = ?, pubkey = ?, contact = ?, domain = ?, config_json = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		boolToInt(r.Active),
		r.Meta.Name,
		r.Meta.Description,
		r.Meta.OwnerPubkey,
		r.Meta.Contact,
		r.Meta.Domain,
		string(configJSON),
		time.Now().UTC().Format(time.RFC3339),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating relay: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("relay %s: %w", r.ID, ErrNotFound)
	}

	s.logger.Debug("relay updated", "relay_id", r.ID, "active", r.Active)
	return nil
}

// DeleteRelay removes a relay. Accounts and events cascade.
func (s *SQLiteStore) DeleteRelay(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM relays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting relay: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("relay %s: %w", id, ErrNotFound)
	}

	s.logger.Info("relay deleted", "relay_id", id)
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRelay scans a relay row into a domain document.
func scanRelay(row rowScanner) (*relay.Relay, error) {
	var r relay.Relay
	var active int
	var description, pubkey, contact, domain sql.NullString
	var configJSON string

	err := row.Scan(
		&r.ID,
		&active,
		&r.Meta.Name,
		&description,
		&pubkey,
		&contact,
		&domain,
		&configJSON,
	)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	r.Meta.Description = description.String
	r.Meta.OwnerPubkey = pubkey.String
	r.Meta.Contact = contact.String
	r.Meta.Domain = domain.String

	if err := json.Unmarshal([]byte(configJSON), &r.Config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation detects SQLite primary-key/unique constraint errors.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure SQLiteStore implements the full Store interface.
var _ Store = (*SQLiteStore)(nil)
