package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Manual is a Scheduler driven by explicit Advance calls instead of a
// wall clock. It is meant for deterministic tests of scheduled code.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*manualTask
	down  bool
}

type manualTask struct {
	name      string
	run       func()
	next      time.Duration
	delay     time.Duration
	cancelled bool
}

type manualHandle struct {
	m *Manual
	t *manualTask
}

func (h manualHandle) Cancel() {
	h.m.mu.Lock()
	h.t.cancelled = true
	h.m.mu.Unlock()
}

// ScheduleWithFixedDelay implements Scheduler.
func (m *Manual) ScheduleWithFixedDelay(name string, task func(), initialDelay, delay time.Duration) (Handle, error) {
	if err := validate(task, delay); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, ErrShutdown
	}
	t := &manualTask{name: name, run: task, next: m.now + max(initialDelay, 0), delay: delay}
	m.tasks = append(m.tasks, t)
	return manualHandle{m: m, t: t}, nil
}

// Advance moves the virtual clock forward by d and runs every task that
// comes due, in order, on the calling goroutine. It returns the number of
// runs.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	runs := 0
	for {
		m.mu.Lock()
		var due *manualTask
		for _, t := range m.tasks {
			if t.cancelled || t.next > target {
				continue
			}
			if due == nil || t.next < due.next {
				due = t
			}
		}
		if due == nil || m.down {
			m.now = target
			m.mu.Unlock()
			return runs
		}
		m.now = due.next
		due.next += due.delay
		run := due.run
		m.mu.Unlock()

		run()
		runs++
	}
}

// Active returns the number of tasks that have not been cancelled.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Shutdown implements Scheduler.
func (m *Manual) Shutdown(context.Context) error {
	m.mu.Lock()
	m.down = true
	for _, t := range m.tasks {
		t.cancelled = true
	}
	m.mu.Unlock()
	return nil
}

var _ Scheduler = (*Manual)(nil)
