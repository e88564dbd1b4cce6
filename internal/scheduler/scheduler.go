// Package scheduler runs the nightly data reset. It fires once at every
// UTC midnight until stopped.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// ResetFunc performs one reset. Errors are logged, not fatal; the
// scheduler keeps running.
type ResetFunc func(ctx context.Context) error

// Scheduler fires a ResetFunc at UTC midnight. Create with New, then
// Start once; Stop terminates the goroutine and waits for it.
type Scheduler struct {
	reset ResetFunc
	log   *slog.Logger

	stopCh    chan struct{}
	stoppedCh chan struct{}

	// now and timer are swappable for tests.
	now      func() time.Time
	newTimer func(d time.Duration) *time.Timer
}

// New creates a stopped scheduler.
func New(reset ResetFunc, log *slog.Logger) *Scheduler {
	return &Scheduler{
		reset:     reset,
		log:       log,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		now:       time.Now,
		newTimer:  time.NewTimer,
	}
}

// Start launches the scheduling goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop terminates the goroutine and waits for it to exit. A reset in
// flight finishes first.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.stoppedCh
}

// NextMidnightUTC returns the first UTC midnight strictly after now.
func NextMidnightUTC(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return next.AddDate(0, 0, 1)
}

func (s *Scheduler) run() {
	defer close(s.stoppedCh)

	for {
		next := NextMidnightUTC(s.now())
		timer := s.newTimer(next.Sub(s.now()))

		select {
		case <-timer.C:
			s.log.Info("scheduled reset starting", "at", next.Format(time.RFC3339))
			if err := s.reset(context.Background()); err != nil {
				s.log.Error("scheduled reset failed", "error", err)
			} else {
				s.log.Info("scheduled reset complete")
			}
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}
