package cache

import (
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/IvanBrykalov/cachekit/policy/fifo"
	"github.com/IvanBrykalov/cachekit/ref"
	"github.com/hashicorp/go-hclog"
)

// Basic Add/Put/Get/Remove semantics.
// Add inserts only if key is absent; Put updates; Remove deletes.
func TestCache_BasicAddPutGetRemove(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](8)
	t.Cleanup(func() { _ = c.Stop() })

	if !c.Add("a", 1) {
		t.Fatal("Add a=1 must be true")
	}
	if c.Add("a", 2) {
		t.Fatal("Add duplicate must be false")
	}

	c.Put("a", 11)
	if v, ok := c.Get("a"); !ok || v != 11 {
		t.Fatalf("Get a want 11, got %v ok=%v", v, ok)
	}

	if v, ok := c.Remove("a"); !ok || v != 11 {
		t.Fatalf("Remove a want 11, got %v ok=%v", v, ok)
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("a must be absent after Remove")
	}
	if _, ok := c.Remove("a"); ok {
		t.Fatal("second Remove must report absence")
	}
	if !c.IsEmpty() {
		t.Fatal("cache must be empty")
	}
}

// Accessing "a" promotes it; inserting "c" evicts the LRU ("b").
func TestCache_EvictionLRU(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](2)
	t.Cleanup(func() { _ = c.Stop() })

	c.Put("a", 1) // LRU = a
	c.Put("b", 2) // MRU = b

	if _, ok := c.Get("a"); !ok { // promote a -> MRU
		t.Fatal("expect hit for a")
	}
	c.Put("c", 3) // overflow -> evict LRU (b)

	if c.ContainsKey("b") {
		t.Fatal("b must be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a must survive (promoted)")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("c must be present")
	}
}

// Insertion order ignores reads: the oldest insert goes first.
func TestCache_EvictionFIFO(t *testing.T) {
	t.Parallel()

	c := NewFIFO[string, int](2)
	t.Cleanup(func() { _ = c.Stop() })

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")
	c.Put("a", 10) // overwrite keeps position
	c.Put("c", 3)

	if c.ContainsKey("a") {
		t.Fatal("a must be evicted in insertion order")
	}
	if got := c.Keys(); !slices.Equal(got, []string{"b", "c"}) {
		t.Fatalf("keys want [b c], got %v", got)
	}
}

// Every insert crossing the limit evicts exactly once and notifies.
func TestCache_OnEvictExactlyOncePerOverflow(t *testing.T) {
	t.Parallel()

	var evicted []string
	c := New[string, int](Options[string, int]{
		Capacity: 3,
		Policy:   fifo.New[string](),
		OnEvict:  func(k string, _ int) { evicted = append(evicted, k) },
	})
	t.Cleanup(func() { _ = c.Stop() })

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		c.Put(k, 0)
	}
	if !slices.Equal(evicted, []string{"a", "b"}) {
		t.Fatalf("want evictions [a b], got %v", evicted)
	}
	if s := c.Stats(); s.Evictions != 2 {
		t.Fatalf("want 2 evictions, got %d", s.Evictions)
	}
	if c.Len() != 3 {
		t.Fatalf("want len 3, got %d", c.Len())
	}
}

func TestCache_SnapshotsEldestFirst(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](4)
	c.PutAll(map[string]int{"x": 1})
	c.Put("y", 2)
	c.Put("z", 3)
	c.Get("x")

	if got := c.Keys(); !slices.Equal(got, []string{"y", "z", "x"}) {
		t.Fatalf("keys want [y z x], got %v", got)
	}
	if got := c.Values(); !slices.Equal(got, []int{2, 3, 1}) {
		t.Fatalf("values want [2 3 1], got %v", got)
	}
	es := c.Entries()
	if len(es) != 3 || es[2].Key != "x" || es[2].Value != 1 {
		t.Fatalf("unexpected entries %v", es)
	}
}

func TestCache_Stats(t *testing.T) {
	t.Parallel()

	c := NewLRU[int, int](1)
	c.Put(1, 1)
	c.Get(1)
	c.Get(2)
	c.Put(2, 2)

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Evictions != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

// Reclaimed values read as absent everywhere and are never reported
// through OnEvict.
func TestCache_ReclaimedValuesAreAbsent(t *testing.T) {
	t.Parallel()

	ret := &ref.Manual[string]{}
	var notified atomic.Int32
	c := New[string, string](Options[string, string]{
		Capacity:  4,
		Retention: ret,
		OnEvict:   func(string, string) { notified.Add(1) },
	})

	c.Put("a", "va")
	c.Put("b", "vb")
	c.Put("c", "vc")
	if !c.ContainsKey("b") {
		t.Fatal("b must be present before reclamation")
	}

	ret.Reclaim(func(v string) bool { return v == "vb" })

	if c.ContainsKey("b") {
		t.Fatal("reclaimed b must not be contained")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("reclaimed b must miss")
	}
	if c.Len() != 2 {
		t.Fatalf("len must skip reclaimed entries, got %d", c.Len())
	}

	ret.Reclaim(func(v string) bool { return v == "va" })
	if got := c.Keys(); !slices.Equal(got, []string{"c"}) {
		t.Fatalf("keys want [c], got %v", got)
	}
	if got := c.Values(); !slices.Equal(got, []string{"vc"}) {
		t.Fatalf("values want [vc], got %v", got)
	}
	if notified.Load() != 0 {
		t.Fatal("reclamation must not fire OnEvict")
	}
	if c.Stats().Reclaimed != 2 {
		t.Fatalf("want 2 reclaimed, got %d", c.Stats().Reclaimed)
	}
}

// Reclaimed entries are swept before a live entry is evicted.
func TestCache_ReclaimedMakeRoomBeforeEviction(t *testing.T) {
	t.Parallel()

	ret := &ref.Manual[int]{}
	var evicted []int
	c := New[int, int](Options[int, int]{
		Capacity:  2,
		Retention: ret,
		OnEvict:   func(k, _ int) { evicted = append(evicted, k) },
	})

	c.Put(1, 100)
	c.Put(2, 200)
	ret.Reclaim(func(v int) bool { return v == 200 })
	c.Put(3, 300)

	if len(evicted) != 0 {
		t.Fatalf("no live entry should be evicted, got %v", evicted)
	}
	if !c.ContainsKey(1) || !c.ContainsKey(3) {
		t.Fatal("1 and 3 must be resident")
	}
}

// Add treats a reclaimed value as absent.
func TestCache_AddOverReclaimed(t *testing.T) {
	t.Parallel()

	ret := &ref.Manual[string]{}
	c := New[string, string](Options[string, string]{Capacity: 2, Retention: ret})

	c.Put("k", "old")
	ret.Reclaim(func(string) bool { return true })
	if !c.Add("k", "new") {
		t.Fatal("Add must succeed over a reclaimed value")
	}
	if v, _ := c.Get("k"); v != "new" {
		t.Fatalf("want new, got %q", v)
	}
}

type service struct {
	stopped atomic.Int32
	err     error
}

func (s *service) Stop() error {
	s.stopped.Add(1)
	return s.err
}

func TestCache_StopStopsResidentValues(t *testing.T) {
	t.Parallel()

	c := New[string, *service](Options[string, *service]{
		Capacity: 4,
		Logger:   hclog.NewNullLogger(),
	})
	ok1, ok2 := &service{}, &service{}
	bad := &service{err: errors.New("boom")}
	c.Put("a", ok1)
	c.Put("b", ok2)
	c.Put("c", bad)

	err := c.Stop()
	if err == nil {
		t.Fatal("Stop must report the failing value")
	}
	for _, s := range []*service{ok1, ok2, bad} {
		if s.stopped.Load() != 1 {
			t.Fatal("every resident value must be stopped once")
		}
	}
	if c.Len() != 0 {
		t.Fatal("Stop must clear the cache")
	}

	// Stopped cache ignores writes; a second Stop is a no-op.
	c.Put("d", &service{})
	if c.ContainsKey("d") {
		t.Fatal("stopped cache must ignore Put")
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop must be a no-op, got %v", err)
	}
}

func TestCache_StopOnEviction(t *testing.T) {
	t.Parallel()

	c := New[string, *service](Options[string, *service]{
		Capacity:       1,
		StopOnEviction: true,
	})
	first := &service{}
	c.Put("a", first)
	c.Put("b", &service{})

	if first.stopped.Load() != 1 {
		t.Fatal("evicted value must be stopped")
	}
}

func TestCache_InvalidCapacityPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("New must panic on non-positive capacity")
		}
	}()
	New[string, int](Options[string, int]{Capacity: 0})
}

func TestCache_WeakLRUHoldsReferencedValues(t *testing.T) {
	t.Parallel()

	type endpoint struct{ uri string }
	c := NewWeakLRU[string, endpoint](2)
	ep := &endpoint{uri: "direct:a"}
	c.Put("a", ep)

	got, ok := c.Get("a")
	if !ok || got != ep {
		t.Fatal("referenced value must be loadable")
	}
	_ = c.Stop()
}

func TestWarmUp_Idempotent(t *testing.T) {
	WarmUp()
	WarmUp()
}
