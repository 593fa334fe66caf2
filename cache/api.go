package cache

// Cache is a bounded, in-memory key/value cache.
// All methods are safe for concurrent use by multiple goroutines.
//
// Typical complexity for point operations is O(1): a map lookup plus
// constant-time list adjustments under the cache lock. With a reclaimable
// retention (weak/soft), Len, IsEmpty, Keys, Values and Entries sweep
// reclaimed entries first and are O(n).
type Cache[K comparable, V any] interface {
	// Put inserts or replaces k→v. Exceeding capacity evicts exactly one
	// entry: the back of the active ordering.
	Put(k K, v V)

	// Add inserts k→v only if k is not present (a reclaimed value counts as
	// absent). Returns false if the key already exists.
	Add(k K, v V) bool

	// PutAll puts every pair of m.
	PutAll(m map[K]V)

	// Get returns the value for k and a presence flag.
	// On hit, the entry is promoted according to the ordering.
	Get(k K) (V, bool)

	// ContainsKey reports whether k is resident with a live value.
	// It does not promote. A following Get may still miss when the value
	// is reclaimed in between.
	ContainsKey(k K) bool

	// Remove deletes k and returns its value if it was resident.
	Remove(k K) (V, bool)

	// Len returns the number of resident entries with live values.
	Len() int

	// IsEmpty reports whether Len() == 0.
	IsEmpty() bool

	// Keys, Values and Entries return point-in-time snapshots, eldest
	// first in the active ordering, omitting reclaimed values.
	Keys() []K
	Values() []V
	Entries() []Entry[K, V]

	// Clear drops every entry without notifications.
	Clear()

	// Stats returns hit/miss/eviction counters.
	Stats() Stats

	// Stop calls Stop on every resident value that implements Stopper,
	// clears the cache and marks it stopped. Later operations are ignored.
	// Stop failures are logged and returned joined.
	Stop() error
}

// Entry is a key/value pair taken from a snapshot.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Stats holds cumulative counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64 // capacity evictions
	Reclaimed uint64 // entries dropped because their value was collected
}

// Stopper is implemented by values with a stoppable lifecycle.
type Stopper interface {
	Stop() error
}
