// Package timeout implements a map whose entries expire after a period of
// inactivity. Every Get renews the entry (sliding expiration); expired
// entries are removed by a purge pass run periodically on a
// schedule.Scheduler.
package timeout

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/cachekit/internal/clock"
	"github.com/IvanBrykalov/cachekit/metrics"
	"github.com/IvanBrykalov/cachekit/schedule"
	"github.com/hashicorp/go-hclog"
)

// entry invariant: expireAt == last access + timeout.
type entry[V any] struct {
	value    V
	timeout  int64 // ns
	expireAt int64 // unix ns
}

// Map is a concurrency-safe map with per-entry sliding TTLs.
// A single mutex serializes renewal, mutation and purging.
type Map[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*entry[V]

	lmu       sync.RWMutex
	listeners []Listener[K, V]

	opt    Options[K, V]
	clk    clock.Clock
	met    metrics.Metrics
	log    hclog.Logger
	handle schedule.Handle

	stopped atomic.Bool
}

// New creates a Map and, when sched is non-nil, schedules Purge every
// opt.PurgeInterval after opt.InitialDelay. A nil sched disables purging.
// It panics if sched is set and PurgeInterval <= 0.
func New[K comparable, V any](sched schedule.Scheduler, opt Options[K, V]) *Map[K, V] {
	if sched != nil && opt.PurgeInterval <= 0 {
		panic(fmt.Sprintf("timeout: PurgeInterval must be > 0, got %s", opt.PurgeInterval))
	}
	if opt.InitialDelay <= 0 {
		opt.InitialDelay = DefaultInitialDelay
	}
	if opt.Logger == nil {
		opt.Logger = hclog.L().Named("timeout")
	}

	tm := &Map[K, V]{
		m:   make(map[K]*entry[V]),
		opt: opt,
		clk: clock.Or(opt.Clock),
		met: metrics.Or(opt.Metrics),
		log: opt.Logger,
	}
	if sched != nil {
		h, err := sched.ScheduleWithFixedDelay("timeout-purge", func() { tm.Purge() }, opt.InitialDelay, opt.PurgeInterval)
		if err != nil {
			tm.log.Error("cannot schedule purge, entries will not expire", "error", err)
		} else {
			tm.handle = h
		}
	}
	return tm
}

// Get returns the value for k and renews its expiry to now + timeout.
// Expiry is not checked here: an entry lives until a purge removes it.
func (tm *Map[K, V]) Get(k K) (V, bool) {
	var zero V
	if tm.stopped.Load() {
		return zero, false
	}
	now := tm.clk.NowUnixNano()

	tm.mu.Lock()
	e, ok := tm.m[k]
	if !ok || tm.stopped.Load() {
		tm.mu.Unlock()
		tm.met.Miss()
		return zero, false
	}
	e.expireAt = now + e.timeout
	v := e.value
	tm.mu.Unlock()

	tm.met.Hit()
	return v, true
}

// Put inserts or replaces k→v with the given time-to-live and returns the
// replaced value, if any.
func (tm *Map[K, V]) Put(k K, v V, ttl time.Duration) (prev V, replaced bool) {
	if tm.stopped.Load() {
		return prev, false
	}
	now := tm.clk.NowUnixNano()

	tm.mu.Lock()
	if tm.stopped.Load() {
		tm.mu.Unlock()
		return prev, false
	}
	if old, ok := tm.m[k]; ok {
		prev, replaced = old.value, true
	}
	tm.m[k] = &entry[V]{value: v, timeout: int64(ttl), expireAt: now + int64(ttl)}
	n := len(tm.m)
	tm.mu.Unlock()

	tm.met.Size(n)
	tm.emit(Event[K, V]{Type: EventPut, Key: k, Value: v})
	return prev, replaced
}

// PutIfAbsent stores k→v only if k is not present. When k is present its
// value is returned with loaded=true and its expiry is left untouched.
func (tm *Map[K, V]) PutIfAbsent(k K, v V, ttl time.Duration) (existing V, loaded bool) {
	if tm.stopped.Load() {
		return existing, false
	}
	now := tm.clk.NowUnixNano()

	tm.mu.Lock()
	if tm.stopped.Load() {
		tm.mu.Unlock()
		return existing, false
	}
	if old, ok := tm.m[k]; ok {
		tm.mu.Unlock()
		return old.value, true
	}
	tm.m[k] = &entry[V]{value: v, timeout: int64(ttl), expireAt: now + int64(ttl)}
	n := len(tm.m)
	tm.mu.Unlock()

	tm.met.Size(n)
	tm.emit(Event[K, V]{Type: EventPut, Key: k, Value: v})
	return existing, false
}

// Remove deletes k. Removing an absent key is not an error.
func (tm *Map[K, V]) Remove(k K) (V, bool) {
	tm.mu.Lock()
	e, ok := tm.m[k]
	if !ok {
		tm.mu.Unlock()
		var zero V
		return zero, false
	}
	delete(tm.m, k)
	n := len(tm.m)
	tm.mu.Unlock()

	tm.met.Size(n)
	tm.emit(Event[K, V]{Type: EventRemove, Key: k, Value: e.value})
	return e.value, true
}

// Purge removes every entry whose expiry is before now, unless vetoed by
// Options.CanEvict, and returns how many were removed. now is taken once
// per pass. A panicking CanEvict counts as a veto; a panicking OnEvict or
// listener is logged and the remaining entries are still notified.
func (tm *Map[K, V]) Purge() (evicted int) {
	now := tm.clk.NowUnixNano()
	expired, size := tm.collectExpired(now)
	tm.met.Size(size)

	for _, ev := range expired {
		tm.met.Evict(metrics.EvictTTL)
		if cb := tm.opt.OnEvict; cb != nil {
			tm.guard("OnEvict", ev.Key, func() { cb(ev.Key, ev.Value) })
		}
		tm.emit(ev)
	}
	if evicted = len(expired); evicted > 0 {
		tm.log.Trace("purged expired entries", "count", evicted, "remaining", size)
	}
	return evicted
}

func (tm *Map[K, V]) collectExpired(now int64) (expired []Event[K, V], size int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for k, e := range tm.m {
		if e.expireAt >= now || !tm.canEvict(k, e.value) {
			continue
		}
		delete(tm.m, k)
		expired = append(expired, Event[K, V]{Type: EventEvict, Key: k, Value: e.value})
	}
	return expired, len(tm.m)
}

func (tm *Map[K, V]) canEvict(k K, v V) (ok bool) {
	veto := tm.opt.CanEvict
	if veto == nil {
		return true
	}
	tm.guard("CanEvict", k, func() { ok = veto(k, v) })
	return ok
}

// guard runs fn, logging instead of propagating a panic.
func (tm *Map[K, V]) guard(hook string, k K, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			tm.log.Error("hook panicked", "hook", hook, "key", fmt.Sprint(k), "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// Len returns the number of entries, expired-but-unpurged included.
func (tm *Map[K, V]) Len() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.m)
}

// Keys returns a snapshot of the keys in unspecified order.
func (tm *Map[K, V]) Keys() []K {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	keys := make([]K, 0, len(tm.m))
	for k := range tm.m {
		keys = append(keys, k)
	}
	return keys
}

// AddListener registers fn for every subsequent Put, Remove and Evict.
func (tm *Map[K, V]) AddListener(fn Listener[K, V]) {
	if fn == nil {
		return
	}
	tm.lmu.Lock()
	tm.listeners = append(tm.listeners, fn)
	tm.lmu.Unlock()
}

func (tm *Map[K, V]) emit(ev Event[K, V]) {
	tm.lmu.RLock()
	ls := tm.listeners
	tm.lmu.RUnlock()
	for _, fn := range ls {
		tm.guard("listener", ev.Key, func() { fn(ev) })
	}
}

// Start is a no-op; purging is scheduled by New.
func (tm *Map[K, V]) Start() error { return nil }

// Stop cancels the scheduled purge and drops every entry without
// notification. A purge already running may finish; none start afterwards.
// Later operations are ignored.
func (tm *Map[K, V]) Stop() error {
	if tm.stopped.Swap(true) {
		return nil
	}
	if tm.handle != nil {
		tm.handle.Cancel()
	}
	tm.mu.Lock()
	clear(tm.m)
	tm.mu.Unlock()
	tm.met.Size(0)
	return nil
}
