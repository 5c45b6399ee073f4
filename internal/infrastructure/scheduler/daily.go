package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"NewsDigest/internal/ports"
)

// DailyScheduler fires a job once a day at a fixed wall-clock time in a
// location. The job runs on the scheduler goroutine, so runs never overlap;
// a tick that comes due while a run is still going is skipped.
type DailyScheduler struct {
	hour, minute int
	loc          *time.Location
	logger       *slog.Logger
	now          func() time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler for hour:minute in loc (UTC when nil).
func NewDailyScheduler(hour, minute int, loc *time.Location, logger *slog.Logger) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DailyScheduler{hour: hour, minute: minute, loc: loc, logger: logger, now: time.Now}
}

// Start launches the timer loop. Calling Start twice without Stop is a no-op.
func (d *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return errors.New("scheduler job is nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.loop(ctx, job, d.stop, d.done)
	return nil
}

func (d *DailyScheduler) loop(ctx context.Context, job func(time.Time), stop, done chan struct{}) {
	defer close(done)
	for {
		now := d.now()
		next := nextRun(now, d.hour, d.minute, d.loc)
		d.logger.Info("next run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		case fired := <-timer.C:
			job(fired.In(d.loc))
		}
	}
}

// Stop halts the loop and waits for an in-flight run to return or for ctx to
// expire.
func (d *DailyScheduler) Stop(ctx context.Context) error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// nextRun returns the first hour:minute in loc strictly after now.
func nextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
