package ref

import (
	"math"
	"runtime"
	"runtime/debug"
	rtmetrics "runtime/metrics"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	// Limit is the heap size the pressure fraction applies to, in bytes.
	// Zero uses the runtime soft memory limit (GOMEMLIMIT); with no limit
	// configured the monitor never reports pressure.
	Limit uint64
	// Fraction of Limit above which soft references are released
	// (default 0.75).
	Fraction float64
	// Logger receives release notices (nil => hclog.L().Named("ref")).
	Logger hclog.Logger
}

// Monitor watches heap usage once per GC cycle and releases registered soft
// retentions when live heap crosses Fraction*Limit.
type Monitor struct {
	mu      sync.Mutex
	targets map[uint64]Releaser
	nextID  uint64

	limit    uint64
	fraction float64
	log      hclog.Logger

	// overridable in tests
	heapBytes  func() uint64
	limitBytes func() uint64

	started  atomic.Bool
	stopped  atomic.Bool
	releases atomic.Uint64
}

// NewMonitor creates a stopped Monitor. Call Start to attach it to the GC.
func NewMonitor(opt MonitorOptions) *Monitor {
	if opt.Fraction <= 0 || opt.Fraction > 1 {
		opt.Fraction = 0.75
	}
	if opt.Logger == nil {
		opt.Logger = hclog.L().Named("ref")
	}
	return &Monitor{
		targets:    make(map[uint64]Releaser),
		limit:      opt.Limit,
		fraction:   opt.Fraction,
		log:        opt.Logger,
		heapBytes:  liveHeapBytes,
		limitBytes: runtimeMemoryLimit,
	}
}

var (
	defaultOnce    sync.Once
	defaultMonitor *Monitor
)

// DefaultMonitor returns the process-wide Monitor used by soft caches that
// are not given one explicitly. It is not started until Start is called.
func DefaultMonitor() *Monitor {
	defaultOnce.Do(func() {
		defaultMonitor = NewMonitor(MonitorOptions{})
	})
	return defaultMonitor
}

// Register adds r to the release set and returns a func that removes it.
func (m *Monitor) Register(r Releaser) (unregister func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.targets[id] = r
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.targets, id)
			m.mu.Unlock()
		})
	}
}

// Start arms the GC sentinel. Calling Start more than once is a no-op.
func (m *Monitor) Start() {
	if m.started.Swap(true) {
		return
	}
	m.arm()
}

// Stop detaches the monitor from the GC after the next cycle.
func (m *Monitor) Stop() { m.stopped.Store(true) }

// Stopped reports whether Stop has been called.
func (m *Monitor) Stopped() bool { return m.stopped.Load() }

// Releases returns how many soft holds the monitor has released so far.
func (m *Monitor) Releases() uint64 { return m.releases.Load() }

// Check compares live heap against the configured limit and releases every
// registered target when the threshold is crossed. It reports whether a
// release happened.
func (m *Monitor) Check() bool {
	limit := m.limit
	if limit == 0 {
		limit = m.limitBytes()
	}
	if limit == 0 {
		return false
	}
	heap := m.heapBytes()
	if float64(heap) < m.fraction*float64(limit) {
		return false
	}

	m.mu.Lock()
	targets := make([]Releaser, 0, len(m.targets))
	for _, t := range m.targets {
		targets = append(targets, t)
	}
	m.mu.Unlock()

	released := 0
	for _, t := range targets {
		released += t.Release()
	}
	m.releases.Add(uint64(released))
	m.log.Debug("memory pressure, released soft references",
		"heap", heap, "limit", limit, "released", released)
	return true
}

// sentinel is finalized once per GC cycle; its finalizer re-arms itself.
type sentinel struct {
	m *Monitor
	_ [8]byte
}

func (m *Monitor) arm() {
	s := &sentinel{m: m}
	runtime.SetFinalizer(s, func(s *sentinel) {
		if s.m.stopped.Load() {
			return
		}
		s.m.Check()
		s.m.arm()
	})
}

func liveHeapBytes() uint64 {
	s := []rtmetrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}
	rtmetrics.Read(s)
	if s[0].Value.Kind() != rtmetrics.KindUint64 {
		return 0
	}
	return s[0].Value.Uint64()
}

func runtimeMemoryLimit() uint64 {
	l := debug.SetMemoryLimit(-1)
	if l <= 0 || l == math.MaxInt64 {
		return 0
	}
	return uint64(l)
}
