package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// envelope pairs a stored value with the time of its most recent write.
type envelope[V any] struct {
	value     V
	writtenAt time.Time
}

// historyEntry records the first write of a key. The timestamp is never
// refreshed afterwards.
type historyEntry[K comparable] struct {
	key       K
	writtenAt time.Time
}

// TTLCache returns stored values until a fixed time-to-live has passed
// since their last write. Eviction is first-in-first-out by original
// insertion order: expired entries may stay in memory until a new entry is
// written, but are never returned by Get.
//
// Re-writing an existing key refreshes its stored timestamp without moving
// its position in the eviction order. A key inserted early keeps its early
// eviction slot even when refreshed later; the sweep stops at the first
// unexpired slot and never scans past it. Callers rely on this bounded,
// predictable order.
//
// A single mutex guards the whole instance, so one cache may be shared
// across goroutines.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	store   *Store[K, envelope[V]]
	ttl     time.Duration
	history []historyEntry[K] // oldest first; the sweep trims from the front
	now     func() time.Time
}

// NewTTL creates a TTLCache that expires entries timeToLive after their
// last write. It fails with ErrInvalidTTL when timeToLive is not positive.
func NewTTL[K comparable, V any](timeToLive time.Duration) (*TTLCache[K, V], error) {
	if timeToLive <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTTL, timeToLive)
	}
	c := &TTLCache[K, V]{
		store: NewStore[K, envelope[V]](),
		ttl:   timeToLive,
		now:   func() time.Time { return time.Now().UTC() },
	}
	c.store.SetValidity(c.isValid)
	return c, nil
}

// SetClock replaces the wall clock, for tests.
func (c *TTLCache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// TimeToLive returns the fixed expiry duration set at construction.
func (c *TTLCache[K, V]) TimeToLive() time.Duration {
	return c.ttl
}

// Get returns the value stored under key. Absent and expired entries both
// fail with ErrNotFound; an expired entry stays in storage until the next
// sweep but is treated as absent for reads.
func (c *TTLCache[K, V]) Get(key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	env, err := c.store.Get(key)
	if err != nil {
		var zero V
		return zero, err
	}
	return env.value, nil
}

// Set stores value under key. Expired entries are swept before the write,
// which bounds growth from repeated writes to new keys. The first write of
// a key records its slot in the eviction order; later writes refresh the
// stored timestamp only.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeExpired()
	_, exists := c.store.lookup(key)
	now := c.now()
	c.store.Set(key, envelope[V]{value: value, writtenAt: now})
	if exists {
		// Timestamp refreshed on the stored envelope; the history
		// slot keeps its original position and time.
		return
	}
	c.history = append(c.history, historyEntry[K]{key: key, writtenAt: now})
}

// Delete removes key from storage. The eviction history is left untouched;
// a later sweep of the stale slot finds nothing to remove.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Delete(key)
}

// Len returns the raw number of stored entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}

// Clear removes all entries unconditionally.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Clear()
}

// HasExpired reports whether a write at t has exceeded the time-to-live.
// A zero time is always expired.
func (c *TTLCache[K, V]) HasExpired(t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasExpired(t)
}

func (c *TTLCache[K, V]) hasExpired(t time.Time) bool {
	if t.IsZero() {
		return true
	}
	return c.now().Sub(t) > c.ttl
}

// isValid is the validity predicate installed on the base store.
func (c *TTLCache[K, V]) isValid(key K) bool {
	env, ok := c.store.lookup(key)
	if !ok {
		return false
	}
	return !c.hasExpired(env.writtenAt)
}

// removeExpired evicts expired entries from the front of the history.
// History slots carry first-write timestamps, so entries leave in original
// insertion order. The scan stops at the first unexpired slot; entries
// behind it are assumed fresher.
func (c *TTLCache[K, V]) removeExpired() {
	for len(c.history) > 0 {
		oldest := c.history[0]
		if !c.hasExpired(oldest.writtenAt) {
			break
		}
		c.store.Delete(oldest.key)
		c.history = c.history[1:]
	}
}

// Describe returns a serialized form of the raw storage for diagnostics.
func (c *TTLCache[K, V]) Describe() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make(map[string]any, c.store.Len())
	for k, env := range c.store.entries {
		snapshot[fmt.Sprint(k)] = map[string]any{
			"value":      env.value,
			"written_at": env.writtenAt,
		}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Sprintf("%v", snapshot)
	}
	return string(data)
}
