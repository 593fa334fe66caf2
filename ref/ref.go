// Package ref provides the value holders used by the bounded cache.
//
// A Retention decides how strongly the cache holds its values:
//
//   - Strong keeps every value until the cache drops it.
//   - Weak lets the garbage collector reclaim a value as soon as nothing
//     outside the cache references it.
//   - Soft holds values strongly until a Monitor detects memory pressure,
//     then degrades them to weak references.
//
// A reclaimed value is reported as absent by Ref.Load. Reclamation happens
// outside of any cache operation, so a Load that follows a successful
// ContainsKey may still miss.
package ref

// Ref holds one cached value.
type Ref[V any] interface {
	// Load returns the value and true, or the zero value and false when it
	// has been reclaimed.
	Load() (V, bool)
}

// Retention wraps values into Refs.
type Retention[V any] interface {
	Retain(v V) Ref[V]
	// Reclaimable reports whether Refs produced by this retention may lose
	// their value on their own. Stores skip reclamation sweeps otherwise.
	Reclaimable() bool
}

// Releaser drops strong holds so the collector may reclaim values.
// It returns how many holds were released.
type Releaser interface {
	Release() int
}

// Closer is implemented by retentions that hold registrations which should
// be dropped when their cache stops.
type Closer interface {
	Close()
}

type strongRetention[V any] struct{}

// Strong returns a retention that never loses values.
func Strong[V any]() Retention[V] { return strongRetention[V]{} }

func (strongRetention[V]) Retain(v V) Ref[V] { return strongRef[V]{v: v} }
func (strongRetention[V]) Reclaimable() bool { return false }

type strongRef[V any] struct{ v V }

func (r strongRef[V]) Load() (V, bool) { return r.v, true }
