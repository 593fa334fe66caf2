package ref

import (
	"sync"
	"sync/atomic"
	"weak"
)

// SoftRetention holds values strongly until Release is called, after which
// each value survives only while something else references it. A released
// value that is loaded again before being collected is held strongly again.
type SoftRetention[T any] struct {
	mu        sync.Mutex
	refs      []weak.Pointer[softRef[T]] // refs are owned by their cache entries
	compactAt int

	monitor     *Monitor
	unregister  func()
	ownsMonitor bool
}

// Soft returns a soft retention registered with m. A nil Monitor leaves
// releasing to explicit Release calls.
func Soft[T any](m *Monitor) *SoftRetention[T] {
	s := &SoftRetention[T]{compactAt: minCompact, monitor: m}
	if m != nil {
		s.unregister = m.Register(s)
	}
	return s
}

// SoftOwned is Soft for a Monitor dedicated to this retention: Close also
// stops m.
func SoftOwned[T any](m *Monitor) *SoftRetention[T] {
	s := Soft[T](m)
	s.ownsMonitor = m != nil
	return s
}

// Monitor returns the Monitor the retention is registered with, or nil.
func (s *SoftRetention[T]) Monitor() *Monitor { return s.monitor }

const minCompact = 64

// Retain implements Retention.
func (s *SoftRetention[T]) Retain(v *T) Ref[*T] {
	r := &softRef[T]{weak: weak.Make(v)}
	r.strong.Store(v)

	s.mu.Lock()
	s.refs = append(s.refs, weak.Make(r))
	if len(s.refs) >= s.compactAt {
		s.compactLocked()
	}
	s.mu.Unlock()
	return r
}

// Reclaimable implements Retention.
func (s *SoftRetention[T]) Reclaimable() bool { return true }

// Release drops the strong hold of every live ref.
func (s *SoftRetention[T]) Release() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, wp := range s.refs {
		if r := wp.Value(); r != nil && r.strong.Swap(nil) != nil {
			n++
		}
	}
	s.compactLocked()
	return n
}

// Close unregisters the retention from its Monitor and stops the Monitor
// if the retention owns it.
func (s *SoftRetention[T]) Close() {
	if s.unregister != nil {
		s.unregister()
	}
	if s.ownsMonitor {
		s.monitor.Stop()
	}
}

// compactLocked drops bookkeeping for refs whose entries are gone.
func (s *SoftRetention[T]) compactLocked() {
	live := s.refs[:0]
	for _, wp := range s.refs {
		if wp.Value() != nil {
			live = append(live, wp)
		}
	}
	clear(s.refs[len(live):])
	s.refs = live
	s.compactAt = max(minCompact, 2*len(live))
}

type softRef[T any] struct {
	strong atomic.Pointer[T]
	weak   weak.Pointer[T]
}

func (r *softRef[T]) Load() (*T, bool) {
	if v := r.strong.Load(); v != nil {
		return v, true
	}
	v := r.weak.Value()
	if v == nil {
		return nil, false
	}
	r.strong.Store(v)
	return v, true
}

var (
	_ Retention[*int] = (*SoftRetention[int])(nil)
	_ Releaser        = (*SoftRetention[int])(nil)
	_ Closer          = (*SoftRetention[int])(nil)
)
