package cache

import (
	"github.com/IvanBrykalov/cachekit/metrics"
	"github.com/IvanBrykalov/cachekit/policy"
)

// -------------------- internals (mu held) --------------------

// insertFront inserts n at the front in O(1).
func (c *cache[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
	c.len++
}

// moveToFront promotes n in O(1).
func (c *cache[K, V]) moveToFront(n *node[K, V]) {
	if n == c.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if c.tail == n {
		c.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

// unlink removes n from the list and the map in O(1).
func (c *cache[K, V]) unlink(n *node[K, V]) {
	c.ord.OnRemove(n)
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if c.head == n {
		c.head = n.next
	}
	if c.tail == n {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
	c.len--
	delete(c.m, n.key)
}

// dropReclaimed removes a node whose value is gone. No OnEvict.
func (c *cache[K, V]) dropReclaimed(n *node[K, V]) {
	c.unlink(n)
	c.reclaimed.Add(1)
	c.met.Evict(metrics.EvictReclaimed)
}

// expungeLocked sweeps every node whose value has been reclaimed.
// No-op for strong retention.
func (c *cache[K, V]) expungeLocked() {
	if !c.reclaimable {
		return
	}
	for n := c.tail; n != nil; {
		prev := n.prev
		if _, ok := n.ref.Load(); !ok {
			c.dropReclaimed(n)
		}
		n = prev
	}
}

// enforceCapacityLocked evicts from the back until the entry count fits.
// Reclaimed entries are swept first so they never push out live ones.
// Evicted pairs are returned for notification outside the lock.
func (c *cache[K, V]) enforceCapacityLocked() (evicted []Entry[K, V]) {
	if c.len > c.cap {
		c.expungeLocked()
	}
	for c.len > c.cap && c.tail != nil {
		n := c.tail
		v, ok := n.ref.Load()
		if !ok {
			c.dropReclaimed(n)
			continue
		}
		c.unlink(n)
		c.evictions.Add(1)
		c.met.Evict(metrics.EvictPolicy)
		evicted = append(evicted, Entry[K, V]{Key: n.key, Value: v})
	}
	c.met.Size(c.len)
	return evicted
}

// -------------------- policy hooks --------------------

// storeHooks adapts the cache's list operations to policy.Hooks.
type storeHooks[K comparable, V any] struct{ c *cache[K, V] }

func (h storeHooks[K, V]) MoveToFront(x policy.Node[K]) { h.c.moveToFront(x.(*node[K, V])) }
func (h storeHooks[K, V]) PushFront(x policy.Node[K])   { h.c.insertFront(x.(*node[K, V])) }
func (h storeHooks[K, V]) Len() int                     { return h.c.len }
func (h storeHooks[K, V]) Back() policy.Node[K] {
	if h.c.tail == nil {
		return nil
	}
	return h.c.tail
}
