// ABOUTME: Admission engine: evaluates one event against relay config and account state
// ABOUTME: Storage accrual and pruning run only on admit, under per-account locks

package policy

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"

	"github.com/2389/relay-console/internal/relay"
	"github.com/2389/relay-console/internal/store"
)

// pruneBatchSize caps how many candidate events one pruning pass loads.
const pruneBatchSize = 10000

// lockStripes is the size of the fixed stripe array serializing storage
// accrual. Accounts hash onto stripes, so memory stays constant no matter
// how many distinct keys submit events.
const lockStripes = 256

// EngineStore is the slice of the store the policy engine needs.
type EngineStore interface {
	GetAccount(ctx context.Context, relayID, pubkey string) (*relay.Account, error)
	AccrueStorage(ctx context.Context, relayID, pubkey string, delta int64) error
	SaveEvent(ctx context.Context, e *store.Event) error
	PrunableEvents(ctx context.Context, relayID, pubkey string, limit int) ([]*store.Event, error)
	DeleteEvents(ctx context.Context, relayID string, eventIDs []string) error
}

// Engine evaluates inbound events against relay configuration and account
// state.
type Engine struct {
	store  EngineStore
	logger *slog.Logger
	now    func() time.Time

	rateMu deadlock.Mutex
	rates  map[string]*hourWindow

	locks [lockStripes]deadlock.Mutex
}

// NewEngine creates a policy engine over the given store.
func NewEngine(s EngineStore) *Engine {
	return &Engine{
		store:  s,
		logger: slog.Default().With("component", "policy"),
		now:    time.Now,
		rates:  make(map[string]*hourWindow),
	}
}

// accountLock returns the stripe serializing accrual for one account.
// Distinct accounts may share a stripe; the same account always gets the
// same one.
func (e *Engine) accountLock(relayID, pubkey string) *deadlock.Mutex {
	h := fnv.New32a()
	h.Write([]byte(relayID))
	h.Write([]byte{'/'})
	h.Write([]byte(pubkey))
	return &e.locks[h.Sum32()%lockStripes]
}

// hourWindow counts events submitted to one relay inside one clock hour.
type hourWindow struct {
	hour  int64
	count int64
}

// admitRate counts one event against the relay's hourly budget and
// reports whether it still fits. The counter resets when the clock hour
// rolls over. A budget of zero is unlimited.
func (e *Engine) admitRate(relayID string, max int64) bool {
	if max <= 0 {
		return true
	}

	e.rateMu.Lock()
	defer e.rateMu.Unlock()

	hour := e.now().Unix() / 3600
	w, ok := e.rates[relayID]
	if !ok || w.hour != hour {
		w = &hourWindow{hour: hour}
		e.rates[relayID] = w
	}
	w.count++
	return w.count <= max
}

// createdAtInRange checks the event timestamp against the relay's
// past/future drift windows. A zero window leaves that side unbounded.
func createdAtInRange(cfg *relay.RelayConfig, event *nostr.Event, now time.Time) bool {
	age := now.Unix() - int64(event.CreatedAt)
	if cfg.CreatedAtPastSeconds > 0 && age > cfg.CreatedAtPastSeconds {
		return false
	}
	if cfg.CreatedAtFutureSeconds > 0 && -age > cfg.CreatedAtFutureSeconds {
		return false
	}
	return true
}

// isEphemeral reports whether the kind is in the ephemeral range; such
// events are never stored, so they carry no storage cost.
func isEphemeral(kind int) bool {
	return kind >= 20000 && kind < 30000
}

// Evaluate produces the admission decision for one event. On admission
// the event is persisted and its size accrued into the account's storage
// accumulator; rejection has no side effects.
func (e *Engine) Evaluate(ctx context.Context, r *relay.Relay, event *nostr.Event, authenticated bool) (Decision, error) {
	decision, err := e.evaluate(ctx, r, event, authenticated)
	if err != nil {
		return decision, err
	}

	decisionsTotal.WithLabelValues(string(decision)).Inc()
	if !decision.Admitted() {
		e.logger.Debug("event rejected",
			"relay_id", r.ID,
			"pubkey", event.PubKey,
			"kind", event.Kind,
			"decision", decision,
		)
	}
	return decision, nil
}

func (e *Engine) evaluate(ctx context.Context, r *relay.Relay, event *nostr.Event, authenticated bool) (Decision, error) {
	if !r.Active {
		return DecisionRejectInactive, nil
	}

	account, err := e.store.GetAccount(ctx, r.ID, event.PubKey)
	if errors.Is(err, store.ErrNotFound) {
		// First contact from this key: default account, nothing persisted
		// unless the event is admitted.
		account = &relay.Account{Pubkey: event.PubKey}
	} else if err != nil {
		return "", fmt.Errorf("loading account: %w", err)
	}

	// Blocked dominates allowed, whichever representation carries it.
	if account.Blocked || r.Config.LegacyBlocked(event.PubKey) {
		return DecisionRejectBlocked, nil
	}

	allowed := account.Allowed || r.Config.LegacyAllowed(event.PubKey)
	if r.Config.PaidToJoin.Enabled && !account.PaidToJoin && !allowed {
		return DecisionRejectPaymentRequired, nil
	}

	if r.Config.RequiresAuth(event.Kind) && !authenticated {
		return DecisionRejectAuthRequired, nil
	}

	if !e.admitRate(r.ID, r.Config.MaxEventsPerHour) {
		return DecisionRejectRateLimited, nil
	}

	// A failed verification is a verdict on the event, not an engine error.
	if ok, _ := event.CheckSignature(); !ok {
		return DecisionRejectInvalidSignature, nil
	}

	if !createdAtInRange(&r.Config, event, e.now()) {
		return DecisionRejectCreatedAt, nil
	}

	if isEphemeral(event.Kind) {
		return DecisionAdmit, nil
	}

	return e.admitWithStorage(ctx, r, event)
}

// admitWithStorage applies the storage policy and, on admission, persists
// the event and accrues its size. The per-account lock spans the usage
// read and the accrual so concurrent admissions cannot lose updates.
func (e *Engine) admitWithStorage(ctx context.Context, r *relay.Relay, event *nostr.Event) (Decision, error) {
	size := int64(len(event.Serialize()))
	limit := r.Config.Storage.LimitBytes()

	lock := e.accountLock(r.ID, event.PubKey)
	lock.Lock()
	defer lock.Unlock()

	var used int64
	account, err := e.store.GetAccount(ctx, r.ID, event.PubKey)
	if err == nil {
		used = account.StorageUsed
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("loading account usage: %w", err)
	}

	switch r.Config.Storage.Action {
	case relay.StorageActionBlockNew:
		if used+size > limit {
			return DecisionRejectStorageExceeded, nil
		}
	case relay.StorageActionPruneOld:
		// An event larger than the whole quota can never fit.
		if size > limit {
			return DecisionRejectStorageExceeded, nil
		}
	}

	if err := e.store.SaveEvent(ctx, &store.Event{
		ID:        event.GetID(),
		RelayID:   r.ID,
		Pubkey:    event.PubKey,
		Kind:      event.Kind,
		Size:      size,
		CreatedAt: event.CreatedAt.Time().UTC(),
	}); err != nil {
		return "", fmt.Errorf("persisting event: %w", err)
	}
	if err := e.store.AccrueStorage(ctx, r.ID, event.PubKey, size); err != nil {
		return "", fmt.Errorf("accruing storage: %w", err)
	}

	if r.Config.Storage.Action == relay.StorageActionPruneOld && used+size > limit {
		if err := e.pruneOldest(ctx, r.ID, event, used+size-limit); err != nil {
			return "", fmt.Errorf("pruning events: %w", err)
		}
	}

	return DecisionAdmit, nil
}

// pruneOldest evicts the account's oldest events until at least
// spaceToRegain bytes are freed. The just-admitted event is never pruned.
func (e *Engine) pruneOldest(ctx context.Context, relayID string, admitted *nostr.Event, spaceToRegain int64) error {
	candidates, err := e.store.PrunableEvents(ctx, relayID, admitted.PubKey, pruneBatchSize)
	if err != nil {
		return err
	}

	admittedID := admitted.GetID()
	var pruneIDs []string
	var freed int64
	for _, candidate := range candidates {
		if candidate.ID == admittedID {
			continue
		}
		pruneIDs = append(pruneIDs, candidate.ID)
		freed += candidate.Size
		if freed >= spaceToRegain {
			break
		}
	}

	if len(pruneIDs) == 0 {
		return nil
	}
	if err := e.store.DeleteEvents(ctx, relayID, pruneIDs); err != nil {
		return err
	}
	if err := e.store.AccrueStorage(ctx, relayID, admitted.PubKey, -freed); err != nil {
		return err
	}

	e.logger.Info("pruned oldest events",
		"relay_id", relayID,
		"pubkey", admitted.PubKey,
		"events", len(pruneIDs),
		"bytes_freed", freed,
	)
	return nil
}

// EventSize returns the serialized size the engine charges for an event.
func EventSize(event *nostr.Event) int64 {
	return int64(len(event.Serialize()))
}
