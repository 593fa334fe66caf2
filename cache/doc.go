// Package cache provides a generic, bounded in-memory cache with a fixed
// ordering (access order by default, insertion order on request) and
// pluggable value retention (strong, weak or soft references).
//
// Design
//
//   - Concurrency: one mutex per cache guards the key->node map and an
//     intrusive doubly linked list. Counters are atomics so Stats never
//     takes the lock.
//
//   - Ordering: eviction order is pluggable via the policy package.
//     policy/lru promotes on reads and overwrites; policy/fifo keeps the
//     insertion position. The store always evicts from the back.
//
//   - Capacity: each insert that grows the cache past Capacity evicts
//     exactly one entry. Evictions are never deferred to reads.
//
//   - Retention: values are wrapped by a ref.Retention. With ref.Weak or
//     ref.Soft the collector may reclaim a value at any time; the cache
//     then treats the entry as absent and drops it on the next touch
//     without calling OnEvict.
//
//   - Lifecycle: Stop stops resident values implementing Stopper and
//     clears the cache. StopOnEviction applies the same to evicted values.
//
// Basic usage
//
//	c := cache.NewLRU[string, []byte](10_000)
//	c.Put("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//	c.Remove("a")
//
// Weak values
//
//	c := cache.NewWeakLRU[string, Endpoint](1000)
//	ep := &Endpoint{}
//	c.Put("direct:a", ep) // held only while ep is referenced elsewhere
//
// Soft values require the pressure monitor; start it once at startup:
//
//	cache.WarmUp()
//	c := cache.NewSoftLRU[string, Template](500)
//
// Exporting metrics
//
//	m := prom.New(nil, "cachekit", "endpoints", nil)
//	c := cache.New[string, *Endpoint](cache.Options[string, *Endpoint]{
//	    Capacity: 1000,
//	    Metrics:  m,
//	})
package cache
