package timeout

import (
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IvanBrykalov/cachekit/internal/clock"
	"github.com/IvanBrykalov/cachekit/schedule"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fixture struct {
	clk   *clock.Fake
	sched *schedule.Manual
	m     *Map[string, int]
}

// tick advances both the map clock and the scheduler, so purges observe
// the same time as the entries.
func (f *fixture) tick(d time.Duration) {
	f.clk.Add(d)
	f.sched.Advance(d)
}

func newFixture(t *testing.T, opt Options[string, int]) *fixture {
	t.Helper()
	f := &fixture{clk: &clock.Fake{}, sched: &schedule.Manual{}}
	opt.Clock = f.clk
	if opt.PurgeInterval == 0 {
		opt.PurgeInterval = 10 * time.Millisecond
	}
	if opt.InitialDelay == 0 {
		opt.InitialDelay = 10 * time.Millisecond
	}
	opt.Logger = hclog.NewNullLogger()
	f.m = New[string, int](f.sched, opt)
	t.Cleanup(func() { _ = f.m.Stop() })
	return f
}

func TestMap_PutGetImmediately(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options[string, int]{})

	_, replaced := f.m.Put("a", 1, 100*time.Millisecond)
	assert.False(t, replaced)

	v, ok := f.m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	prev, replaced := f.m.Put("a", 2, 100*time.Millisecond)
	assert.True(t, replaced)
	assert.Equal(t, 1, prev)
}

// Without access the entry is purged once its ttl has passed.
func TestMap_ExpiresAfterInactivity(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options[string, int]{})

	f.m.Put("a", 1, 100*time.Millisecond)
	f.tick(100 * time.Millisecond)
	assert.Equal(t, 1, f.m.Len(), "expireAt == now is not yet expired")

	f.tick(20 * time.Millisecond)
	_, ok := f.m.Get("a")
	assert.False(t, ok)
}

// Get renews the deadline: 60ms, get, 60ms, get must still hit.
func TestMap_GetRenewsExpiry(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options[string, int]{})

	f.m.Put("k", 7, 100*time.Millisecond)
	f.tick(60 * time.Millisecond)
	_, ok := f.m.Get("k")
	require.True(t, ok)

	f.tick(60 * time.Millisecond)
	v, ok := f.m.Get("k")
	require.True(t, ok, "renewed entry must survive past the original ttl")
	assert.Equal(t, 7, v)

	f.tick(150 * time.Millisecond)
	_, ok = f.m.Get("k")
	assert.False(t, ok)
}

// Without a purge an expired entry is still gettable, and the read renews it.
func TestMap_ExpiredButUnpurgedIsRenewed(t *testing.T) {
	t.Parallel()
	clk := &clock.Fake{}
	m := New[string, int](nil, Options[string, int]{Clock: clk})

	m.Put("a", 1, 10*time.Millisecond)
	clk.Add(50 * time.Millisecond)
	_, ok := m.Get("a")
	require.True(t, ok)

	assert.Zero(t, m.Purge())
	assert.Equal(t, 1, m.Len())
}

func TestMap_CanEvictVeto(t *testing.T) {
	t.Parallel()

	var inFlight sync.Map
	inFlight.Store("busy", true)
	f := newFixture(t, Options[string, int]{
		CanEvict: func(k string, _ int) bool {
			_, busy := inFlight.Load(k)
			return !busy
		},
	})

	f.m.Put("busy", 1, time.Millisecond)
	f.m.Put("idle", 2, time.Millisecond)
	f.tick(50 * time.Millisecond)

	assert.Equal(t, []string{"busy"}, f.m.Keys())

	inFlight.Delete("busy")
	f.tick(10 * time.Millisecond)
	assert.Zero(t, f.m.Len())
}

func TestMap_PurgeNotifiesOutsideLock(t *testing.T) {
	t.Parallel()

	var evicted []string
	var events []Event[string, int]
	var f *fixture
	f = newFixture(t, Options[string, int]{
		OnEvict: func(k string, _ int) {
			evicted = append(evicted, k)
			// Re-entrant call must not deadlock.
			_ = f.m.Len()
		},
	})
	f.m.AddListener(func(ev Event[string, int]) { events = append(events, ev) })

	f.m.Put("a", 1, time.Millisecond)
	f.m.Put("b", 2, time.Millisecond)
	f.m.Remove("b")
	f.tick(20 * time.Millisecond)

	assert.Equal(t, []string{"a"}, evicted)
	types := make([]EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	assert.Equal(t, []EventType{EventPut, EventPut, EventRemove, EventEvict}, types)
}

func TestMap_PurgePanicIsRecovered(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	f := newFixture(t, Options[string, int]{
		CanEvict: func(string, int) bool {
			calls.Add(1)
			panic("bad veto")
		},
	})

	f.m.Put("a", 1, time.Millisecond)
	assert.NotPanics(t, func() { f.tick(20 * time.Millisecond) })
	assert.NotPanics(t, func() { f.tick(20 * time.Millisecond) })
	assert.GreaterOrEqual(t, calls.Load(), int32(2), "later passes must keep running")
	assert.Equal(t, 1, f.m.Len())
}

// One failing OnEvict must not cost the other expired entries their
// notification.
func TestMap_OnEvictPanicStillNotifiesOthers(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		evicted []string
		first   atomic.Bool
	)
	f := newFixture(t, Options[string, int]{
		OnEvict: func(k string, _ int) {
			if first.CompareAndSwap(false, true) {
				panic("bad callback")
			}
			mu.Lock()
			evicted = append(evicted, k)
			mu.Unlock()
		},
	})
	var events atomic.Int32
	f.m.AddListener(func(ev Event[string, int]) {
		if ev.Type == EventEvict {
			events.Add(1)
		}
	})

	for _, k := range []string{"a", "b", "c", "d"} {
		f.m.Put(k, 0, time.Millisecond)
	}
	f.clk.Add(time.Hour)

	var n int
	require.NotPanics(t, func() { n = f.m.Purge() })
	assert.Equal(t, 4, n)
	assert.Zero(t, f.m.Len())
	assert.Len(t, evicted, 3)
	assert.Equal(t, int32(4), events.Load(), "every eviction reaches listeners")
}

// A panicking veto keeps that entry; entries already removed in the same
// pass are still reported.
func TestMap_CanEvictPanicActsAsVeto(t *testing.T) {
	t.Parallel()

	var calls, notified atomic.Int32
	f := newFixture(t, Options[string, int]{
		CanEvict: func(string, int) bool {
			if calls.Add(1) == 3 {
				panic("bad veto")
			}
			return true
		},
		OnEvict: func(string, int) { notified.Add(1) },
	})

	for _, k := range []string{"a", "b", "c", "d"} {
		f.m.Put(k, 0, time.Millisecond)
	}
	f.clk.Add(time.Hour)

	assert.Equal(t, 3, f.m.Purge())
	assert.Equal(t, int32(3), notified.Load())
	assert.Equal(t, 1, f.m.Len())
}

func TestMap_ListenerPanicIsContained(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options[string, int]{})

	var seen atomic.Int32
	f.m.AddListener(func(Event[string, int]) { panic("bad listener") })
	f.m.AddListener(func(Event[string, int]) { seen.Add(1) })

	assert.NotPanics(t, func() { f.m.Put("a", 1, time.Second) })
	assert.Equal(t, int32(1), seen.Load())
}

// Writes racing Stop never leave entries behind in the stopped map.
func TestMap_WritesRacingStop(t *testing.T) {
	t.Parallel()

	for round := 0; round < 50; round++ {
		m := New[int, int](nil, Options[int, int]{Logger: hclog.NewNullLogger()})
		var g errgroup.Group
		for w := 0; w < 4; w++ {
			g.Go(func() error {
				for i := 0; i < 100; i++ {
					m.Put(w*100+i, i, time.Hour)
					m.PutIfAbsent(-(w*100 + i), i, time.Hour)
				}
				return nil
			})
		}
		g.Go(m.Stop)
		require.NoError(t, g.Wait())
		assert.Zero(t, m.Len())
	}
}

func TestMap_PutIfAbsent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options[string, int]{})

	_, loaded := f.m.PutIfAbsent("a", 1, time.Second)
	assert.False(t, loaded)
	v, loaded := f.m.PutIfAbsent("a", 2, time.Second)
	assert.True(t, loaded)
	assert.Equal(t, 1, v)
}

func TestMap_RemoveAbsent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options[string, int]{})

	_, ok := f.m.Remove("missing")
	assert.False(t, ok)
}

func TestMap_StopCancelsPurgeAndClears(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options[string, int]{})

	f.m.Put("a", 1, time.Hour)
	require.Equal(t, 1, f.sched.Active())
	require.NoError(t, f.m.Start())

	require.NoError(t, f.m.Stop())
	assert.Zero(t, f.sched.Active())
	assert.Zero(t, f.m.Len())

	f.m.Put("b", 2, time.Hour)
	assert.Zero(t, f.m.Len(), "stopped map ignores writes")
	require.NoError(t, f.m.Stop())
}

func TestMap_NilSchedulerNeverPurges(t *testing.T) {
	t.Parallel()
	clk := &clock.Fake{}
	m := New[string, int](nil, Options[string, int]{Clock: clk, Logger: hclog.NewNullLogger()})

	m.Put("a", 1, time.Millisecond)
	clk.Add(time.Hour)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, m.Purge())
}

func TestMap_InvalidIntervalPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		New[string, int](&schedule.Manual{}, Options[string, int]{})
	})
}

func TestMap_Concurrent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options[string, int]{})

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 1_000; i++ {
				k := string(rune('a' + (i+w)%26))
				switch i % 4 {
				case 0:
					f.m.Put(k, i, time.Duration(i%5)*time.Millisecond)
				case 1:
					f.m.Get(k)
				case 2:
					f.m.Remove(k)
				default:
					f.m.Purge()
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	keys := f.m.Keys()
	slices.Sort(keys)
	assert.Len(t, slices.Compact(keys), len(keys))
}
