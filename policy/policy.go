// Package policy defines the ordering contract between the bounded cache
// store and its eviction policies.
package policy

// Node is the minimal contract a cache entry must satisfy for a policy.
// Policies only order nodes; they never look at the retained value.
type Node[K comparable] interface {
	Key() K
}

// Hooks expose O(1) list operations that a policy can use to manipulate
// the store's intrusive ordering list (front = newest/most recent,
// back = eviction candidate). Implementations are provided by the store.
//
// Concurrency: all hook calls happen under the store lock.
// Important: hooks manage only the list; the store owns the key->node map.
type Hooks[K comparable] interface {
	// MoveToFront promotes the node to the front of the list.
	MoveToFront(Node[K])
	// PushFront inserts the node at the front (used on admission).
	PushFront(Node[K])
	// Back returns the current eviction candidate (or nil if empty).
	Back() Node[K]
	// Len returns the number of resident nodes.
	Len() int
}

// Ordering is a store-local policy instance bound to store hooks.
// All methods are invoked under the store lock.
//
// Semantics:
//   - OnAdd places a newly admitted node.
//   - OnGet/OnUpdate decide whether a read or an overwrite counts as use.
//   - OnRemove is a notification to update policy-internal state.
//     The store performs the actual unlinking and map deletion.
type Ordering[K comparable] interface {
	OnAdd(Node[K])
	OnGet(Node[K])
	OnUpdate(Node[K])
	OnRemove(Node[K])
}

// Policy is a factory that creates store-local Ordering instances
// bound to a particular store's hooks.
type Policy[K comparable] interface {
	// New binds the policy to a store.
	New(Hooks[K]) Ordering[K]
	// Name identifies the ordering ("access", "insertion").
	Name() string
}
