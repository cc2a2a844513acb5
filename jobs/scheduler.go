// Package jobs runs the server's periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Task is one unit of scheduled work. It must return when ctx is done.
type Task func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

// New builds a scheduler whose runs are cut off after timeout. A run that is
// still going when its next tick fires is skipped.
func New(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		timeout: timeout,
	}
}

func (s *Scheduler) Register(name, spec string, task Task) error {
	if _, err := s.cron.AddFunc(spec, s.wrap(name, task)); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	zap.S().Infow("job scheduled", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) wrap(name string, task Task) func() {
	return func() {
		defer func() {
			if err := recover(); err != nil {
				zap.S().Errorw("job panicked", "job", name, "panic", err)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		if err := task(ctx); err != nil {
			zap.S().Errorw("job failed", "job", name, "error", err, "elapsed", time.Since(start))
			return
		}
		zap.S().Debugw("job finished", "job", name, "elapsed", time.Since(start))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		zap.L().Warn("scheduler stop timed out, abandoning running jobs")
	}
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}
