// Package lru implements access ordering: reads and overwrites promote an
// entry, so the back of the list is the least recently used key.
package lru

import "github.com/IvanBrykalov/cachekit/policy"

// lru is a classic "move-to-front" Least-Recently-Used ordering.
// It delegates list manipulation to policy.Hooks provided by the store.
type lru[K comparable] struct {
	h policy.Hooks[K]
}

type lruPolicy[K comparable] struct{}

// New returns a Policy factory that constructs store-local LRU instances.
func New[K comparable]() policy.Policy[K] { return lruPolicy[K]{} }

// New implements policy.Policy by binding store hooks.
func (lruPolicy[K]) New(h policy.Hooks[K]) policy.Ordering[K] {
	return &lru[K]{h: h}
}

// Name implements policy.Policy.
func (lruPolicy[K]) Name() string { return "access" }

// OnAdd places the new entry at the front. LRU itself doesn't choose
// evictions; the store enforces capacity from the back of the list.
func (p *lru[K]) OnAdd(n policy.Node[K]) { p.h.PushFront(n) }

// OnGet promotes the entry.
func (p *lru[K]) OnGet(n policy.Node[K]) { p.h.MoveToFront(n) }

// OnUpdate promotes the entry (updates are treated as recent use).
func (p *lru[K]) OnUpdate(n policy.Node[K]) { p.h.MoveToFront(n) }

// OnRemove is a no-op for pure LRU (nothing to clean up in policy state).
func (p *lru[K]) OnRemove(_ policy.Node[K]) {}
