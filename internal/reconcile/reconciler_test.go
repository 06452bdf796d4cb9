// ABOUTME: Tests for optimistic reconciliation of relay state
// ABOUTME: Stage/commit/reject round trips and deadline expiry

package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/relay-console/internal/relay"
)

func seededReconciler(t *testing.T) *Reconciler {
	t.Helper()

	r := NewReconciler()
	r.Seed(&relay.Relay{
		ID:     "relay-001",
		Active: true,
		Meta:   relay.RelayMeta{Name: "test"},
		Config: relay.DefaultConfig(),
	})
	return r
}

func TestReconciler_StageBeforeSeed(t *testing.T) {
	r := NewReconciler()

	_, _, err := r.Stage(func(*relay.Relay) error { return nil })
	assert.ErrorIs(t, err, ErrNotSeeded)
	assert.Nil(t, r.Snapshot())
}

func TestReconciler_StageAppliesImmediately(t *testing.T) {
	r := seededReconciler(t)

	id, snapshot, err := r.Stage(func(state *relay.Relay) error {
		state.Active = false
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// The provisional view carries the change; the committed one does not.
	assert.False(t, snapshot.Active)
	assert.False(t, r.Snapshot().Active)
	assert.True(t, r.Committed().Active)
	assert.Equal(t, []string{id}, r.Pending())
}

func TestReconciler_CommitAdoptsServerState(t *testing.T) {
	r := seededReconciler(t)

	id, snapshot, err := r.Stage(func(state *relay.Relay) error {
		state.Meta.Name = "renamed"
		return nil
	})
	require.NoError(t, err)

	// The server acked but normalized the name; its answer wins.
	acked := snapshot.Clone()
	acked.Meta.Name = "Renamed"
	require.NoError(t, r.Commit(id, acked))

	assert.Equal(t, "Renamed", r.Snapshot().Meta.Name)
	assert.Equal(t, "Renamed", r.Committed().Meta.Name)
	assert.Empty(t, r.Pending())
}

func TestReconciler_RejectRollsBackToggle(t *testing.T) {
	r := seededReconciler(t)

	id, snapshot, err := r.Stage(func(state *relay.Relay) error {
		state.Active = false
		return nil
	})
	require.NoError(t, err)
	require.False(t, snapshot.Active)

	require.NoError(t, r.Reject(id))

	assert.True(t, r.Snapshot().Active)
	assert.True(t, r.Committed().Active)
	assert.Empty(t, r.Pending())
}

func TestReconciler_RejectDropsLaterMutations(t *testing.T) {
	r := seededReconciler(t)

	first, _, err := r.Stage(func(state *relay.Relay) error {
		state.Meta.Name = "first"
		return nil
	})
	require.NoError(t, err)

	_, _, err = r.Stage(func(state *relay.Relay) error {
		state.Meta.Description = "built on first"
		return nil
	})
	require.NoError(t, err)

	// Rejecting the base mutation takes its dependents with it.
	require.NoError(t, r.Reject(first))

	snapshot := r.Snapshot()
	assert.Equal(t, "test", snapshot.Meta.Name)
	assert.Empty(t, snapshot.Meta.Description)
	assert.Empty(t, r.Pending())
}

func TestReconciler_StageErrorLeavesStateUntouched(t *testing.T) {
	r := seededReconciler(t)

	_, _, err := r.Stage(func(state *relay.Relay) error {
		state.Active = false
		return relay.ErrValidation
	})
	assert.ErrorIs(t, err, relay.ErrValidation)
	assert.True(t, r.Snapshot().Active)
	assert.Empty(t, r.Pending())
}

func TestReconciler_UnknownMutation(t *testing.T) {
	r := seededReconciler(t)

	assert.ErrorIs(t, r.Commit("nope", r.Snapshot()), ErrUnknownMutation)
	assert.ErrorIs(t, r.Reject("nope"), ErrUnknownMutation)
}

func TestReconciler_ExpireStale(t *testing.T) {
	r := seededReconciler(t).WithTTL(time.Millisecond)

	id, _, err := r.Stage(func(state *relay.Relay) error {
		state.Active = false
		return nil
	})
	require.NoError(t, err)

	// Not yet past the deadline: nothing expires.
	assert.Empty(t, r.ExpireStale(time.Now().Add(-time.Minute)))
	assert.Equal(t, []string{id}, r.Pending())

	expired := r.ExpireStale(time.Now().Add(time.Minute))
	assert.Equal(t, []string{id}, expired)
	assert.True(t, r.Snapshot().Active)
	assert.Empty(t, r.Pending())
}

func TestReconciler_SeedDiscardsPending(t *testing.T) {
	r := seededReconciler(t)

	_, _, err := r.Stage(func(state *relay.Relay) error {
		state.Active = false
		return nil
	})
	require.NoError(t, err)

	r.Seed(&relay.Relay{ID: "relay-002", Active: true, Config: relay.DefaultConfig()})

	assert.Equal(t, "relay-002", r.Snapshot().ID)
	assert.Empty(t, r.Pending())
}
