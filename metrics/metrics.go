// Package metrics defines the observability hooks shared by the bounded
// cache and the timeout map.
package metrics

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy: removed by the ordering policy to stay within capacity.
	EvictPolicy EvictReason = iota
	// EvictTTL: expired and removed by a timeout purge pass.
	EvictTTL
	// EvictReclaimed: the value was reclaimed by the garbage collector.
	EvictReclaimed
)

// String returns a stable label for r.
func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	case EvictReclaimed:
		return "reclaimed"
	default:
		return "policy"
	}
}

// Metrics exposes cache-level observability hooks.
// A Noop implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// Noop is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type Noop struct{}

func (Noop) Hit()              {}
func (Noop) Miss()             {}
func (Noop) Evict(EvictReason) {}
func (Noop) Size(entries int)  {}

// Or returns m, or Noop when m is nil.
func Or(m Metrics) Metrics {
	if m == nil {
		return Noop{}
	}
	return m
}

var _ Metrics = Noop{}
