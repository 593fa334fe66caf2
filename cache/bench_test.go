package cache

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/IvanBrykalov/cachekit/policy"
	"github.com/IvanBrykalov/cachekit/policy/fifo"
	"github.com/IvanBrykalov/cachekit/policy/lru"
	"github.com/IvanBrykalov/cachekit/ref"
)

type blob struct{ b [128]byte }

type variant struct {
	name string
	pol  func() policy.Policy[int]
	ret  func() ref.Retention[*blob]
}

func variants() []variant {
	return []variant{
		{"LRU/strong", lru.New[int], ref.Strong[*blob]},
		{"FIFO/strong", fifo.New[int], ref.Strong[*blob]},
		{"LRU/weak", lru.New[int], func() ref.Retention[*blob] { return ref.Weak[blob]() }},
		{"LRU/soft", lru.New[int], func() ref.Retention[*blob] { return ref.Soft[blob](nil) }},
	}
}

// Values are held by the benchmark in pool, so weak and soft entries stay
// live and the numbers compare bookkeeping cost, not misses.
func BenchmarkCache_Mix(b *testing.B) {
	const capacity, keys = 1 << 14, 1 << 15
	pool := make([]*blob, keys)
	for i := range pool {
		pool[i] = &blob{}
	}

	for _, v := range variants() {
		for _, reads := range []int{90, 50} {
			b.Run(fmt.Sprintf("%s/%dr", v.name, reads), func(b *testing.B) {
				c := New[int, *blob](Options[int, *blob]{
					Capacity:  capacity,
					Policy:    v.pol(),
					Retention: v.ret(),
				})
				b.Cleanup(func() { _ = c.Stop() })
				for i := 0; i < capacity/2; i++ {
					c.Put(i, pool[i])
				}

				b.ReportAllocs()
				b.ResetTimer()

				var seed atomic.Uint64
				b.RunParallel(func(pb *testing.PB) {
					r := rand.New(rand.NewPCG(seed.Add(1), 0))
					for pb.Next() {
						k := r.IntN(keys)
						if r.IntN(100) < reads {
							c.Get(k)
						} else {
							c.Put(k, pool[k])
						}
					}
				})
			})
		}
	}
}

// Len and Entries sweep reclaimed entries; half the cache is reclaimed
// before each measured call.
func BenchmarkCache_ReclaimSweep(b *testing.B) {
	const capacity = 4096

	for _, op := range []string{"Len", "Entries"} {
		b.Run(op, func(b *testing.B) {
			ret := &ref.Manual[int]{}
			c := New[int, int](Options[int, int]{Capacity: capacity, Retention: ret})
			b.Cleanup(func() { _ = c.Stop() })

			b.ReportAllocs()
			for n := 0; n < b.N; n++ {
				b.StopTimer()
				for i := 0; i < capacity; i++ {
					c.Put(i, i)
				}
				ret.Reclaim(func(v int) bool { return v%2 == 0 })
				b.StartTimer()

				if op == "Len" {
					c.Len()
				} else {
					c.Entries()
				}
			}
		})
	}
}
