package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultHour is the local hour of the daily sweep.
const DefaultHour = 8

// DefaultTimezone is where the configured hour is interpreted.
const DefaultTimezone = "Africa/Johannesburg"

// Scheduler fires the reminder sweep once a day at a fixed local hour.
type Scheduler struct {
	engine *Engine
	hour   int
	loc    *time.Location
	clock  Clock
	logger *slog.Logger
}

// NewScheduler creates a Scheduler sweeping daily at the given hour in
// the named timezone.
func NewScheduler(engine *Engine, hour int, timezone string, clock Clock) (*Scheduler, error) {
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("sweep hour %d out of range", hour)
	}
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %s: %w", timezone, err)
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Scheduler{
		engine: engine,
		hour:   hour,
		loc:    loc,
		clock:  clock,
		logger: slog.Default(),
	}, nil
}

// Run sweeps at the configured hour until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		wait := s.untilNext(s.clock.Now())
		s.logger.Info("next reminder sweep scheduled", "in", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		sent, err := s.engine.Sweep(ctx)
		if err != nil {
			s.logger.Error("reminder sweep failed", "error", err)
			continue
		}
		s.logger.Info("reminder sweep complete", "reminders_sent", sent)
	}
}

// untilNext returns the duration from now to the next occurrence of
// the sweep hour in the scheduler's timezone.
func (s *Scheduler) untilNext(now time.Time) time.Duration {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, s.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(local)
}
