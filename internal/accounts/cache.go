// ABOUTME: Thread-safe TTL cache for account records within one session.
// ABOUTME: Keeps recently fetched accounts warm; writes invalidate entries.

package accounts

import (
	"container/list"
	"sync"
	"time"

	"github.com/2389/relay-console/internal/relay"
)

// cacheEntry stores the cached account, its fetch time, and its position
// in the eviction list.
type cacheEntry struct {
	account   *relay.Account
	fetchedAt time.Time
	element   *list.Element
}

// accountCache is a thread-safe, TTL-based, size-limited cache of account
// records keyed by relayID + "/" + pubkey. A doubly-linked list maintains
// insertion order for O(1) eviction of the oldest entry.
//
// Entries are transient session state, never a source of truth: every
// write through the registry invalidates the affected key.
type accountCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   *list.List // keys in insertion order (oldest at front)
	ttl     time.Duration
	maxSize int
}

func newAccountCache(ttl time.Duration, maxSize int) *accountCache {
	return &accountCache{
		entries: make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

func cacheKey(relayID, pubkey string) string {
	return relayID + "/" + pubkey
}

// get returns the cached account for the key if present and fresh.
func (c *accountCache) get(relayID, pubkey string) (*relay.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey(relayID, pubkey)]
	if !ok || time.Since(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.account, true
}

// put stores an account, evicting the oldest entry at capacity.
func (c *accountCache) put(relayID string, account *relay.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(relayID, account.Pubkey)
	if entry, exists := c.entries[key]; exists {
		entry.account = account
		entry.fetchedAt = time.Now()
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(key)
	c.entries[key] = &cacheEntry{
		account:   account,
		fetchedAt: time.Now(),
		element:   elem,
	}
}

// invalidate drops one key.
func (c *accountCache) invalidate(relayID, pubkey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(relayID, pubkey)
	if entry, ok := c.entries[key]; ok {
		c.order.Remove(entry.element)
		delete(c.entries, key)
	}
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (c *accountCache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.entries, key)
}
