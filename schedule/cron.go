package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
)

// CronOptions configures NewCron.
type CronOptions struct {
	// Logger receives job failures and, at Trace, runner activity
	// (nil => hclog.L().Named("schedule")).
	Logger hclog.Logger
	// Location used by the runner (nil => time.Local).
	Location *time.Location
}

// Cron is a Scheduler backed by a robfig/cron runner.
type Cron struct {
	c    *cron.Cron
	log  hclog.Logger
	down atomic.Bool
}

// NewCron creates and starts a cron-backed Scheduler.
func NewCron(opt CronOptions) *Cron {
	if opt.Logger == nil {
		opt.Logger = hclog.L().Named("schedule")
	}
	if opt.Location == nil {
		opt.Location = time.Local
	}
	cl := cronLogger{opt.Logger}
	c := cron.New(
		cron.WithLocation(opt.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Start()
	return &Cron{c: c, log: opt.Logger}
}

// ScheduleWithFixedDelay implements Scheduler.
func (s *Cron) ScheduleWithFixedDelay(name string, task func(), initialDelay, delay time.Duration) (Handle, error) {
	if s.down.Load() {
		return nil, ErrShutdown
	}
	if err := validate(task, delay); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", name, err)
	}
	if initialDelay < 0 {
		initialDelay = 0
	}

	id := s.c.Schedule(&fixedDelay{initial: initialDelay, delay: delay}, cron.FuncJob(task))
	s.log.Debug("scheduled task", "name", name, "initial_delay", initialDelay, "delay", delay)
	return &cronHandle{c: s.c, id: id}, nil
}

// Shutdown implements Scheduler.
func (s *Cron) Shutdown(ctx context.Context) error {
	if s.down.Swap(true) {
		return nil
	}
	done := s.c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of scheduled tasks.
func (s *Cron) Len() int { return len(s.c.Entries()) }

type cronHandle struct {
	c    *cron.Cron
	id   cron.EntryID
	once sync.Once
}

func (h *cronHandle) Cancel() {
	h.once.Do(func() { h.c.Remove(h.id) })
}

// fixedDelay is a cron.Schedule that fires once after initial and then
// every delay. Unlike cron.Every it keeps sub-second precision.
type fixedDelay struct {
	initial time.Duration
	delay   time.Duration
	started atomic.Bool
}

func (f *fixedDelay) Next(t time.Time) time.Time {
	if !f.started.Swap(true) {
		return t.Add(f.initial)
	}
	return t.Add(f.delay)
}

// cronLogger adapts hclog to cron.Logger. Runner chatter goes to Trace.
type cronLogger struct{ l hclog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Trace(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}

var (
	_ Scheduler   = (*Cron)(nil)
	_ cron.Logger = cronLogger{}
)
