package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/types"
)

// Scheduler emits a schedule request every time a cron expression fires.
// Expressions use the standard five-field syntax and are evaluated in UTC.
type Scheduler struct {
	expr   string
	sched  cron.Schedule
	logger *log.Logger

	now func() time.Time
}

// NewScheduler parses a standard cron expression.
func NewScheduler(expr string, logger *log.Logger) (*Scheduler, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", expr, err)
	}
	return &Scheduler{expr: expr, sched: sched, logger: logger, now: time.Now}, nil
}

// Next returns the first firing time strictly after t, in UTC.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.sched.Next(t.UTC())
}

// Run emits requests on out until ctx is done. The send blocks until the
// serve loop accepts the request, so a fire during a long run stays queued.
func (s *Scheduler) Run(ctx context.Context, out chan<- Request) {
	for {
		now := s.now()
		next := s.Next(now)
		s.logger.Info("next scheduled run", map[string]any{
			"schedule": s.expr,
			"at":       next.Format(time.RFC3339),
		})

		select {
		case <-time.After(next.Sub(now)):
		case <-ctx.Done():
			return
		}

		select {
		case out <- Request{Kind: types.TriggerSchedule, At: next}:
		case <-ctx.Done():
			return
		}
	}
}
