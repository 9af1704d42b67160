// Package scheduler fires the word-of-day pipeline once a day at a fixed
// wall-clock hour, plus once shortly after boot to self-heal when the
// daily fire was missed during downtime.
//
// Both triggers are best-effort: a failed run is logged and the next
// scheduled fire proceeds normally. Operators wanting an immediate retry
// use the admin endpoint.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner is the pipeline entry point.
type Runner interface {
	RunToday(ctx context.Context) error
}

// Scheduler owns the daily and startup timers.
type Scheduler struct {
	runner       Runner
	hour         int
	minute       int
	loc          *time.Location
	startupDelay time.Duration
	log          *zap.Logger
	now          func() time.Time
}

// New creates a scheduler firing daily at hour:minute in loc.
func New(runner Runner, hour, minute int, loc *time.Location, startupDelay time.Duration, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		runner:       runner,
		hour:         hour,
		minute:       minute,
		loc:          loc,
		startupDelay: startupDelay,
		log:          log,
		now:          time.Now,
	}
}

// Start launches the startup and daily triggers. They stop when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.startupTrigger(ctx)
	go s.dailyLoop(ctx)
}

func (s *Scheduler) startupTrigger(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.startupDelay):
	}
	s.fire(ctx, "startup")
}

func (s *Scheduler) dailyLoop(ctx context.Context) {
	for {
		next := s.nextRun(s.now())
		s.log.Info("daily trigger scheduled", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.fire(ctx, "daily")
	}
}

// fire runs the pipeline, swallowing errors into the log.
func (s *Scheduler) fire(ctx context.Context, trigger string) {
	s.log.Info("word of day run starting", zap.String("trigger", trigger))
	if err := s.runner.RunToday(ctx); err != nil {
		s.log.Error("word of day run failed",
			zap.String("trigger", trigger),
			zap.Error(err))
		return
	}
	s.log.Info("word of day run finished", zap.String("trigger", trigger))
}

// nextRun computes the next fire time strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	now = now.In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
