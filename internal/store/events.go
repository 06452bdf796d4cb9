// ABOUTME: SQLite persistence for admitted events
// ABOUTME: Storage usage sums and oldest-first prunable event queries

package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SaveEvent stores one admitted event.
func (s *SQLiteStore) SaveEvent(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO events (id, relay_id, pubkey, kind, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.RelayID,
		e.Pubkey,
		e.Kind,
		e.Size,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("event %s: %w", e.ID, ErrConflict)
		}
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// StorageUsed returns the total size in bytes of a pubkey's events on one
// relay.
func (s *SQLiteStore) StorageUsed(ctx context.Context, relayID, pubkey string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(size), 0) FROM events
		WHERE relay_id = ? AND pubkey = ?
	`
	var total int64
	if err := s.db.QueryRowContext(ctx, query, relayID, pubkey).Scan(&total); err != nil {
		return 0, fmt.Errorf("querying storage usage: %w", err)
	}
	return total, nil
}

// PrunableEvents returns a pubkey's events oldest-first, up to limit.
// Only the id and size matter to callers, so the result stays small.
func (s *SQLiteStore) PrunableEvents(ctx context.Context, relayID, pubkey string, limit int) ([]*Event, error) {
	query := `
		SELECT id, relay_id, pubkey, kind, size, created_at FROM events
		WHERE relay_id = ? AND pubkey = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, relayID, pubkey, limit)
	if err != nil {
		return nil, fmt.Errorf("querying prunable events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*Event
	for rows.Next() {
		var e Event
		var createdAtStr string
		if err := rows.Scan(&e.ID, &e.RelayID, &e.Pubkey, &e.Kind, &e.Size, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}
	return events, nil
}

// DeleteEvents removes the given events from one relay.
func (s *SQLiteStore) DeleteEvents(ctx context.Context, relayID string, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(eventIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(eventIDs)+1)
	args = append(args, relayID)
	for _, id := range eventIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`DELETE FROM events WHERE relay_id = ? AND id IN (%s)`, placeholders)
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting events: %w", err)
	}

	s.logger.Debug("events pruned", "relay_id", relayID, "count", len(eventIDs))
	return nil
}
