package ref

import (
	"sync"
	"weak"
)

// Manual is a retention whose values disappear only when Reclaim is called.
// It stands in for the garbage collector in deterministic tests and in
// callers that manage reclamation themselves. Bookkeeping is dropped for
// reclaimed values and for refs their owners no longer hold.
type Manual[V any] struct {
	mu        sync.Mutex
	refs      []weak.Pointer[manualRef[V]]
	compactAt int
}

// Retain implements Retention.
func (m *Manual[V]) Retain(v V) Ref[V] {
	r := &manualRef[V]{v: v}
	m.mu.Lock()
	m.refs = append(m.refs, weak.Make(r))
	if len(m.refs) >= max(m.compactAt, minCompact) {
		m.compactLocked()
	}
	m.mu.Unlock()
	return r
}

// Reclaimable implements Retention.
func (m *Manual[V]) Reclaimable() bool { return true }

// Reclaim drops every retained value for which match returns true and
// reports how many were dropped.
func (m *Manual[V]) Reclaim(match func(V) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, wp := range m.refs {
		r := wp.Value()
		if r == nil {
			continue
		}
		r.mu.Lock()
		if !r.gone && match(r.v) {
			var zero V
			r.v, r.gone = zero, true
			n++
		}
		r.mu.Unlock()
	}
	m.compactLocked()
	return n
}

// Tracked returns how many refs the retention still keeps bookkeeping for.
func (m *Manual[V]) Tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.refs)
}

func (m *Manual[V]) compactLocked() {
	live := m.refs[:0]
	for _, wp := range m.refs {
		if r := wp.Value(); r != nil && !r.isGone() {
			live = append(live, wp)
		}
	}
	clear(m.refs[len(live):])
	m.refs = live
	m.compactAt = max(minCompact, 2*len(live))
}

type manualRef[V any] struct {
	mu   sync.Mutex
	v    V
	gone bool
}

func (r *manualRef[V]) Load() (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.v, !r.gone
}

func (r *manualRef[V]) isGone() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gone
}
