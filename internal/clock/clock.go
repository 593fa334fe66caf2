// Package clock provides the time source shared by the cache packages.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// System reads the wall clock.
type System struct{}

// NowUnixNano implements Clock.
func (System) NowUnixNano() int64 { return time.Now().UnixNano() }

// Fake is a manually advanced Clock. The zero value starts at 0.
// Safe for concurrent use.
type Fake struct{ t atomic.Int64 }

// NowUnixNano implements Clock.
func (f *Fake) NowUnixNano() int64 { return f.t.Load() }

// Add advances the clock by d.
func (f *Fake) Add(d time.Duration) { f.t.Add(int64(d)) }

// Or returns c, or System when c is nil.
func Or(c Clock) Clock {
	if c == nil {
		return System{}
	}
	return c
}
