// Package cache provides the in-memory result cache used by querycache.
//
// The package defines a generic base store whose read path is gated by a
// validity predicate, and a TTL specialization that expires entries a fixed
// duration after their last write. Expired entries are evicted lazily, in
// original insertion order, whenever a new entry is written.
//
// Usage:
//
//	c, err := cache.NewTTL[string, string](2 * time.Minute)
//	if err != nil {
//	    return err
//	}
//	c.Set("key", "value")
//	if val, err := c.Get("key"); err == nil {
//	    // use cached value
//	}
package cache
