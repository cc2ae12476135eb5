package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// runTimeout bounds a single scheduled run.
const runTimeout = 10 * time.Minute

// Scheduler runs a Runner on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	log    *logrus.Logger
}

// NewScheduler parses spec (standard five-field cron syntax or a descriptor
// such as "@daily") and registers the runner.
func NewScheduler(spec string, runner *Runner, log *logrus.Logger) (*Scheduler, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Scheduler{cron: cron.New(), runner: runner, log: log}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid alert schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.runner.Run(ctx); err != nil {
		s.log.WithError(err).Error("Cash-flow digest failed")
	}
}

// Start begins the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("entries", len(s.cron.Entries())).Info("Cash-flow digest scheduled")
}

// Stop halts the schedule and waits for a running digest to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports when the digest next runs. Zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
