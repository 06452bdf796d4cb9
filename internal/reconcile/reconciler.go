// ABOUTME: Optimistic local/remote relay state reconciliation
// ABOUTME: Stage applies immediately; reject or expiry rolls back

package reconcile

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"github.com/2389/relay-console/internal/relay"
)

// ErrNotSeeded is returned for operations before Seed establishes a
// baseline.
var ErrNotSeeded = errors.New("reconciler not seeded")

// ErrUnknownMutation is returned when a mutation ID is not pending.
var ErrUnknownMutation = errors.New("unknown mutation")

// DefaultPendingTTL is how long a staged mutation may wait for a server
// verdict before ExpireStale rolls it back.
const DefaultPendingTTL = 15 * time.Second

// Mutation is one staged change awaiting a server verdict.
type Mutation struct {
	ID       string
	StagedAt time.Time
	Deadline time.Time

	// previous is the provisional state before this mutation applied,
	// kept for rollback.
	previous *relay.Relay
}

// Reconciler tracks two views of one relay: the last state the server
// acknowledged, and a provisional state with staged local mutations
// applied on top. Callers render the provisional view so edits feel
// immediate, while commit and reject verdicts keep it honest.
type Reconciler struct {
	logger *slog.Logger
	ttl    time.Duration

	mu          deadlock.Mutex
	committed   *relay.Relay
	provisional *relay.Relay
	pending     []*Mutation
}

// NewReconciler creates a reconciler with the default pending TTL.
func NewReconciler() *Reconciler {
	return &Reconciler{
		logger: slog.Default().With("component", "reconcile"),
		ttl:    DefaultPendingTTL,
	}
}

// WithTTL overrides how long staged mutations wait before expiring.
func (r *Reconciler) WithTTL(ttl time.Duration) *Reconciler {
	r.ttl = ttl
	return r
}

// Seed establishes the server-acknowledged baseline and resets the
// provisional view to match. Any pending mutations are discarded.
func (r *Reconciler) Seed(state *relay.Relay) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.committed = state.Clone()
	r.provisional = state.Clone()
	r.pending = nil
}

// Stage applies a local mutation to the provisional state and records it
// as pending. The returned snapshot is what the caller should render and
// send to the server; the mutation ID resolves the eventual verdict.
func (r *Reconciler) Stage(apply func(*relay.Relay) error) (string, *relay.Relay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.provisional == nil {
		return "", nil, ErrNotSeeded
	}

	previous := r.provisional.Clone()
	next := r.provisional.Clone()
	if err := apply(next); err != nil {
		return "", nil, err
	}

	now := time.Now()
	m := &Mutation{
		ID:       uuid.NewString(),
		StagedAt: now,
		Deadline: now.Add(r.ttl),
		previous: previous,
	}
	r.provisional = next
	r.pending = append(r.pending, m)

	return m.ID, next.Clone(), nil
}

// Commit resolves a pending mutation with the server's acknowledged
// state. The server response is authoritative: both views converge on it
// and every older pending mutation is subsumed.
func (r *Reconciler) Commit(mutationID string, authoritative *relay.Relay) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(mutationID)
	if idx < 0 {
		return ErrUnknownMutation
	}

	r.committed = authoritative.Clone()
	r.provisional = authoritative.Clone()
	r.pending = append([]*Mutation{}, r.pending[idx+1:]...)

	// Mutations staged after the committed one were built on a state the
	// server never saw; they stay pending against the new baseline.
	if len(r.pending) == 0 {
		r.pending = nil
	}
	return nil
}

// Reject rolls a pending mutation back. The provisional view returns to
// the state before the mutation applied, and mutations staged on top of
// the rejected state are discarded with it.
func (r *Reconciler) Reject(mutationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(mutationID)
	if idx < 0 {
		return ErrUnknownMutation
	}

	dropped := len(r.pending) - idx
	r.provisional = r.pending[idx].previous.Clone()
	r.pending = r.pending[:idx]
	if len(r.pending) == 0 {
		r.pending = nil
	}

	r.logger.Debug("rolled back rejected mutation",
		"mutation_id", mutationID,
		"dropped", dropped,
	)
	return nil
}

// ExpireStale rejects every pending mutation whose deadline has passed
// and returns the expired IDs, oldest first.
func (r *Reconciler) ExpireStale(now time.Time) []string {
	r.mu.Lock()

	var expired []string
	for _, m := range r.pending {
		if m.Deadline.Before(now) {
			expired = append(expired, m.ID)
		}
	}
	r.mu.Unlock()

	for _, id := range expired {
		if err := r.Reject(id); err == nil {
			r.logger.Warn("expired pending mutation", "mutation_id", id)
		}
	}
	return expired
}

// Snapshot returns a copy of the provisional view, or nil before Seed.
func (r *Reconciler) Snapshot() *relay.Relay {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.provisional == nil {
		return nil
	}
	return r.provisional.Clone()
}

// Committed returns a copy of the last server-acknowledged state, or nil
// before Seed.
func (r *Reconciler) Committed() *relay.Relay {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.committed == nil {
		return nil
	}
	return r.committed.Clone()
}

// Pending returns the IDs of mutations still awaiting a verdict, oldest
// first.
func (r *Reconciler) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(r.pending))
	for i, m := range r.pending {
		ids[i] = m.ID
	}
	return ids
}

// indexOf returns the pending index of a mutation ID, or -1. Caller
// holds r.mu.
func (r *Reconciler) indexOf(mutationID string) int {
	for i, m := range r.pending {
		if m.ID == mutationID {
			return i
		}
	}
	return -1
}
