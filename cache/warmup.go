package cache

import (
	"runtime"
	"sync"

	"github.com/IvanBrykalov/cachekit/ref"
)

var warmOnce sync.Once

// WarmUp prepares the package for use: it starts ref.DefaultMonitor, which
// soft caches rely on to release values under memory pressure, and runs one
// put/get cycle through every retention variant. Call it once during
// process startup; later calls are no-ops.
func WarmUp() {
	warmOnce.Do(func() {
		ref.DefaultMonitor().Start()

		type warmValue struct{ _ [16]byte }
		caches := []Cache[int, *warmValue]{
			NewLRU[int, *warmValue](2),
			NewWeakLRU[int, warmValue](2),
			NewSoftLRU[int, warmValue](2),
		}
		for _, c := range caches {
			p := &warmValue{}
			c.Put(1, p)
			c.Get(1)
			runtime.KeepAlive(p)
			_ = c.Stop()
		}
	})
}
