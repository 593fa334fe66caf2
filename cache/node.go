package cache

import "github.com/IvanBrykalov/cachekit/ref"

// node is an intrusive doubly linked list element owned by the cache.
// It stores the key alongside the value holder and list links.
type node[K comparable, V any] struct {
	key K
	ref ref.Ref[V]

	// Intrusive list links: head is the front (newest / most recent),
	// tail is the eviction candidate.
	prev *node[K, V]
	next *node[K, V]
}

// Key returns the node key (part of policy.Node interface).
func (n *node[K, V]) Key() K { return n.key }
