package cache

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that a key is absent, or present but no longer
	// valid. Callers treat it as an ordinary miss and recompute.
	ErrNotFound = errors.New("cache: entry not found")
	// ErrNoValidity reports that no validity predicate was installed.
	// This is a programming error in the concrete cache, not a runtime
	// condition to recover from.
	ErrNoValidity = errors.New("cache: no validity predicate installed")
	// ErrInvalidTTL reports a non-positive time-to-live at construction.
	ErrInvalidTTL = errors.New("cache: time to live must be a positive duration")
)

// Store is the base key/value storage shared by concrete caches. It holds
// the raw mapping and delegates the "is this entry still good" decision to
// a predicate installed by the concrete cache. A read only succeeds when
// the predicate holds for the requested key; writes and deletes are
// unconditional.
type Store[K comparable, V any] struct {
	entries map[K]V
	valid   func(K) bool
}

// NewStore creates an empty base store with no validity predicate.
func NewStore[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		entries: make(map[K]V),
	}
}

// SetValidity installs the predicate that gates reads. Every concrete
// cache must install one before the first Get.
func (s *Store[K, V]) SetValidity(valid func(K) bool) {
	s.valid = valid
}

// Get returns the value stored under key. It fails with ErrNoValidity when
// no predicate is installed, and with ErrNotFound when the key is absent
// or the predicate rejects it.
func (s *Store[K, V]) Get(key K) (V, error) {
	var zero V
	if s.valid == nil {
		return zero, ErrNoValidity
	}
	if !s.valid(key) {
		return zero, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	value, ok := s.entries[key]
	if !ok {
		return zero, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	return value, nil
}

// Set stores value under key, overwriting any prior value. No validity
// check happens on write.
func (s *Store[K, V]) Set(key K, value V) {
	s.entries[key] = value
}

// Delete removes key from storage. Deleting an absent key is a no-op.
func (s *Store[K, V]) Delete(key K) {
	delete(s.entries, key)
}

// Len returns the raw number of stored entries. Entries that are no longer
// valid still count until they are evicted.
func (s *Store[K, V]) Len() int {
	return len(s.entries)
}

// Clear removes all entries unconditionally.
func (s *Store[K, V]) Clear() {
	clear(s.entries)
}

// Describe returns a serialized form of the raw storage for diagnostics.
func (s *Store[K, V]) Describe() string {
	snapshot := make(map[string]V, len(s.entries))
	for k, v := range s.entries {
		snapshot[fmt.Sprint(k)] = v
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Sprintf("%v", s.entries)
	}
	return string(data)
}

// lookup reads the raw entry without consulting the validity predicate.
// Concrete caches use it to implement their predicates.
func (s *Store[K, V]) lookup(key K) (V, bool) {
	value, ok := s.entries[key]
	return value, ok
}
