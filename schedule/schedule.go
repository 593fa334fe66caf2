// Package schedule runs recurring background tasks such as timeout purges.
//
// The Scheduler interface is deliberately small so callers can inject their
// own executor; NewCron provides the default implementation on top of
// github.com/robfig/cron/v3 and Manual provides a deterministic one for
// tests.
package schedule

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrShutdown is returned when scheduling on a scheduler that was shut down.
	ErrShutdown = errors.New("schedule: scheduler is shut down")
	// ErrInvalidDelay is returned for a non-positive repeat delay.
	ErrInvalidDelay = errors.New("schedule: delay must be > 0")
	// ErrNilTask is returned when the task func is nil.
	ErrNilTask = errors.New("schedule: nil task")
)

// Scheduler executes tasks repeatedly with a fixed delay between runs.
type Scheduler interface {
	// ScheduleWithFixedDelay runs task first after initialDelay and then
	// every delay until the returned Handle is cancelled. Runs of the same
	// task never overlap. name is used in logs only.
	ScheduleWithFixedDelay(name string, task func(), initialDelay, delay time.Duration) (Handle, error)

	// Shutdown stops all scheduled tasks and waits for running ones to
	// finish, or for ctx to be done.
	Shutdown(ctx context.Context) error
}

// Handle controls one scheduled task.
type Handle interface {
	// Cancel prevents future runs. A run already in progress completes.
	// Cancel is idempotent.
	Cancel()
}

func validate(task func(), delay time.Duration) error {
	if task == nil {
		return ErrNilTask
	}
	if delay <= 0 {
		return ErrInvalidDelay
	}
	return nil
}
