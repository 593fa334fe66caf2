package timeout

import (
	"time"

	"github.com/IvanBrykalov/cachekit/internal/clock"
	"github.com/IvanBrykalov/cachekit/metrics"
	"github.com/hashicorp/go-hclog"
)

// DefaultInitialDelay is the wait before the first purge pass.
const DefaultInitialDelay = time.Second

// Options configures a Map. Zero values are safe; defaults are applied in New:
//   - zero InitialDelay => DefaultInitialDelay
//   - nil Clock         => clock.System
//   - nil Metrics       => metrics.Noop
//   - nil Logger        => hclog.L().Named("timeout")
type Options[K comparable, V any] struct {
	// PurgeInterval is the delay between purge passes. Must be > 0 when a
	// scheduler is given to New.
	PurgeInterval time.Duration
	// InitialDelay before the first purge pass.
	InitialDelay time.Duration

	// CanEvict may veto the eviction of an expired entry, for instance
	// one still in use elsewhere. Vetoed entries are checked again on the
	// next pass.
	CanEvict func(k K, v V) bool

	// OnEvict is called for every expired entry removed by a purge, after
	// the map lock is released.
	OnEvict func(k K, v V)

	Clock   clock.Clock
	Metrics metrics.Metrics
	Logger  hclog.Logger
}
