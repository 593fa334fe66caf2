package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/cachekit/metrics"
	"github.com/IvanBrykalov/cachekit/policy"
	"github.com/IvanBrykalov/cachekit/policy/fifo"
	"github.com/IvanBrykalov/cachekit/policy/lru"
	"github.com/IvanBrykalov/cachekit/ref"
	"github.com/hashicorp/go-hclog"
)

// cache is a bounded in-memory KV store with a pluggable ordering policy
// and value retention. A single mutex guards the map and the list.
type cache[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu   sync.Mutex
	m    map[K]*node[K, V]
	head *node[K, V]
	tail *node[K, V]
	len  int
	cap  int

	ord         policy.Ordering[K]
	ret         ref.Retention[V]
	reclaimable bool

	opt Options[K, V]
	met metrics.Metrics
	log hclog.Logger

	stopped atomic.Bool

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	reclaimed atomic.Uint64
}

// New constructs a cache with the provided Options.
// It panics if Capacity <= 0.
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Capacity <= 0 {
		panic(fmt.Sprintf("cache: Capacity must be > 0, got %d", opt.Capacity))
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K]()
	}
	if opt.Retention == nil {
		opt.Retention = ref.Strong[V]()
	}
	if opt.Logger == nil {
		opt.Logger = hclog.L().Named("cache")
	}

	c := &cache[K, V]{
		m:           make(map[K]*node[K, V], min(opt.Capacity, 1024)),
		cap:         opt.Capacity,
		ret:         opt.Retention,
		reclaimable: opt.Retention.Reclaimable(),
		opt:         opt,
		met:         metrics.Or(opt.Metrics),
		log:         opt.Logger,
	}
	c.ord = opt.Policy.New(storeHooks[K, V]{c: c})
	return c
}

// NewLRU returns an access-ordered cache holding values strongly.
func NewLRU[K comparable, V any](maxSize int) Cache[K, V] {
	return New(Options[K, V]{Capacity: maxSize})
}

// NewFIFO returns an insertion-ordered cache holding values strongly.
func NewFIFO[K comparable, V any](maxSize int) Cache[K, V] {
	return New(Options[K, V]{Capacity: maxSize, Policy: fifo.New[K]()})
}

// NewWeakLRU returns an access-ordered cache whose values may be collected
// once nothing outside the cache references them.
func NewWeakLRU[K comparable, T any](maxSize int) Cache[K, *T] {
	return New(Options[K, *T]{Capacity: maxSize, Retention: ref.Weak[T]()})
}

// NewSoftLRU returns an access-ordered cache whose values are released to
// the collector under memory pressure, as detected by ref.DefaultMonitor.
func NewSoftLRU[K comparable, T any](maxSize int) Cache[K, *T] {
	return New(Options[K, *T]{Capacity: maxSize, Retention: ref.Soft[T](ref.DefaultMonitor())})
}

// ---- Cache[K,V] implementation ----

func (c *cache[K, V]) Put(k K, v V) {
	if c.stopped.Load() {
		return
	}
	c.mu.Lock()
	if n, ok := c.m[k]; ok {
		n.ref = c.ret.Retain(v)
		c.ord.OnUpdate(n)
		c.mu.Unlock()
		return
	}
	evicted := c.insertLocked(k, v)
	c.mu.Unlock()
	c.notify(evicted)
}

func (c *cache[K, V]) Add(k K, v V) bool {
	if c.stopped.Load() {
		return false
	}
	c.mu.Lock()
	if n, ok := c.m[k]; ok {
		if _, live := n.ref.Load(); live {
			c.mu.Unlock()
			return false
		}
		c.dropReclaimed(n)
	}
	evicted := c.insertLocked(k, v)
	c.mu.Unlock()
	c.notify(evicted)
	return true
}

func (c *cache[K, V]) PutAll(m map[K]V) {
	for k, v := range m {
		c.Put(k, v)
	}
}

func (c *cache[K, V]) Get(k K) (V, bool) {
	var zero V
	if c.stopped.Load() {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		c.miss()
		return zero, false
	}
	v, live := n.ref.Load()
	if !live {
		c.dropReclaimed(n)
		c.miss()
		return zero, false
	}
	c.ord.OnGet(n)
	c.hits.Add(1)
	c.met.Hit()
	return v, true
}

func (c *cache[K, V]) ContainsKey(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		return false
	}
	if _, live := n.ref.Load(); !live {
		c.dropReclaimed(n)
		return false
	}
	return true
}

func (c *cache[K, V]) Remove(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	c.unlink(n)
	c.met.Size(c.len)
	// Explicit Remove is not an eviction.
	return n.ref.Load()
}

func (c *cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expungeLocked()
	return c.len
}

func (c *cache[K, V]) IsEmpty() bool { return c.Len() == 0 }

func (c *cache[K, V]) Keys() []K {
	entries := c.Entries()
	keys := make([]K, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

func (c *cache[K, V]) Values() []V {
	entries := c.Entries()
	vals := make([]V, len(entries))
	for i, e := range entries {
		vals[i] = e.Value
	}
	return vals
}

// Entries dereferences each holder once; a value collected during the
// walk is simply left out.
func (c *cache[K, V]) Entries() []Entry[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry[K, V], 0, c.len)
	for n := c.tail; n != nil; {
		prev := n.prev
		if v, ok := n.ref.Load(); ok {
			out = append(out, Entry[K, V]{Key: n.key, Value: v})
		} else {
			c.dropReclaimed(n)
		}
		n = prev
	}
	return out
}

func (c *cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Reclaimed: c.reclaimed.Load(),
	}
}

func (c *cache[K, V]) Stop() error {
	if c.stopped.Swap(true) {
		return nil
	}
	c.mu.Lock()
	resident := make([]Entry[K, V], 0, c.len)
	for n := c.tail; n != nil; n = n.prev {
		if v, ok := n.ref.Load(); ok {
			resident = append(resident, Entry[K, V]{Key: n.key, Value: v})
		}
	}
	c.clearLocked()
	c.mu.Unlock()

	if cl, ok := c.ret.(ref.Closer); ok {
		cl.Close()
	}

	var errs []error
	for _, e := range resident {
		if err := c.stopValue(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ---- helpers ----

// insertLocked admits a new node and enforces capacity.
func (c *cache[K, V]) insertLocked(k K, v V) []Entry[K, V] {
	n := &node[K, V]{key: k, ref: c.ret.Retain(v)}
	c.m[k] = n
	c.ord.OnAdd(n)
	return c.enforceCapacityLocked()
}

func (c *cache[K, V]) clearLocked() {
	for n := c.head; n != nil; {
		next := n.next
		n.prev, n.next = nil, nil
		n = next
	}
	clear(c.m)
	c.head, c.tail, c.len = nil, nil, 0
	c.met.Size(0)
}

func (c *cache[K, V]) miss() {
	c.misses.Add(1)
	c.met.Miss()
}

// notify runs eviction callbacks outside the lock.
func (c *cache[K, V]) notify(evicted []Entry[K, V]) {
	for _, e := range evicted {
		if cb := c.opt.OnEvict; cb != nil {
			cb(e.Key, e.Value)
		}
		if c.opt.StopOnEviction {
			_ = c.stopValue(e)
		}
	}
}

// stopValue stops e.Value if it has a lifecycle. Failures are logged.
func (c *cache[K, V]) stopValue(e Entry[K, V]) error {
	s, ok := any(e.Value).(Stopper)
	if !ok {
		return nil
	}
	if err := s.Stop(); err != nil {
		c.log.Error("failed to stop cached value", "key", fmt.Sprint(e.Key), "error", err)
		return fmt.Errorf("cache: stop %v: %w", e.Key, err)
	}
	return nil
}
