package cache

import (
	"github.com/IvanBrykalov/cachekit/metrics"
	"github.com/IvanBrykalov/cachekit/policy"
	"github.com/IvanBrykalov/cachekit/ref"
	"github.com/hashicorp/go-hclog"
)

// Options configures the cache behavior. Zero values are safe;
// sane defaults are applied in New():
//   - nil Policy    => LRU (access order)
//   - nil Retention => strong references
//   - nil Metrics   => metrics.Noop
//   - nil Logger    => hclog.L().Named("cache")
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit. Must be > 0.
	Capacity int

	// Policy fixes the ordering at construction: lru.New (access order)
	// or fifo.New (insertion order).
	Policy policy.Policy[K]

	// Retention decides how values are held (ref.Strong, ref.Weak, ref.Soft).
	Retention ref.Retention[V]

	// OnEvict is called for every capacity eviction, after the cache lock
	// is released. Reclaimed values are dropped silently.
	OnEvict func(k K, v V)

	// StopOnEviction stops evicted values that implement Stopper.
	StopOnEviction bool

	// Observability
	Metrics metrics.Metrics
	Logger  hclog.Logger
}
