// ABOUTME: Relay lifecycle operations for a console session
// ABOUTME: Updates stage locally first; server verdicts commit or roll back

package console

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/2389/relay-console/internal/relay"
)

// CreateRelay registers a new relay instance and seeds the session with
// the server's acknowledged state. An ID is assigned when none is set.
func (s *Session) CreateRelay(ctx context.Context, r *relay.Relay) (*relay.Relay, error) {
	if r.ID == "" {
		r = r.Clone()
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var created relay.Relay
	if err := s.do(ctx, http.MethodPost, "/api/v1/relay", nil, r, &created); err != nil {
		return nil, fmt.Errorf("creating relay: %w", err)
	}

	s.reconciler.Seed(&created)
	return created.Clone(), nil
}

// ListRelays returns every relay the server manages.
func (s *Session) ListRelays(ctx context.Context) ([]*relay.Relay, error) {
	var list []*relay.Relay
	if err := s.do(ctx, http.MethodGet, "/api/v1/relay", nil, nil, &list); err != nil {
		return nil, fmt.Errorf("listing relays: %w", err)
	}
	return list, nil
}

// FetchRelay loads a relay from the server and makes it the session's
// working relay. Any staged local edits are discarded.
func (s *Session) FetchRelay(ctx context.Context, relayID string) (*relay.Relay, error) {
	var fetched relay.Relay
	if err := s.do(ctx, http.MethodGet, "/api/v1/relay/"+relayID, nil, nil, &fetched); err != nil {
		return nil, fmt.Errorf("fetching relay: %w", err)
	}

	s.reconciler.Seed(&fetched)
	return fetched.Clone(), nil
}

// UpdateRelay applies a mutation optimistically, pushes the result to
// the server, and reconciles with the verdict. On rejection the local
// view rolls back to its pre-mutation state and the server's error is
// returned.
func (s *Session) UpdateRelay(ctx context.Context, mutate func(*relay.Relay) error) (*relay.Relay, error) {
	mutationID, staged, err := s.reconciler.Stage(func(r *relay.Relay) error {
		if err := mutate(r); err != nil {
			return err
		}
		return r.Validate()
	})
	if err != nil {
		return nil, err
	}

	var acked relay.Relay
	if err := s.do(ctx, http.MethodPut, "/api/v1/relay/"+staged.ID, nil, staged, &acked); err != nil {
		if rollbackErr := s.reconciler.Reject(mutationID); rollbackErr != nil {
			s.logger.Error("rollback failed", "mutation_id", mutationID, "error", rollbackErr)
		}
		return nil, fmt.Errorf("updating relay: %w", err)
	}

	if err := s.reconciler.Commit(mutationID, &acked); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}
	return acked.Clone(), nil
}

// ToggleActive flips the relay's active flag.
func (s *Session) ToggleActive(ctx context.Context) (*relay.Relay, error) {
	return s.UpdateRelay(ctx, func(r *relay.Relay) error {
		r.Active = !r.Active
		return nil
	})
}

// DeleteRelay removes a relay instance. Deleting a relay the server no
// longer has succeeds: the desired end state already holds.
func (s *Session) DeleteRelay(ctx context.Context, relayID string) error {
	err := s.do(ctx, http.MethodDelete, "/api/v1/relay/"+relayID, nil, nil, nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("deleting relay: %w", err)
	}

	if current := s.reconciler.Snapshot(); current != nil && current.ID == relayID {
		s.reconciler.Seed(&relay.Relay{})
	}
	return nil
}

// PayToJoin submits a settled invoice for a public key's join fee.
func (s *Session) PayToJoin(ctx context.Context, relayID, pubkey, invoice string) error {
	payload := map[string]string{
		"pubkey":  pubkey,
		"invoice": invoice,
	}
	if err := s.do(ctx, http.MethodPost, "/api/v1/relay/"+relayID+"/join", nil, payload, nil); err != nil {
		return fmt.Errorf("submitting join payment: %w", err)
	}
	return nil
}
