// Package scheduler runs the recurring jobs on cron schedules. Each job is
// wrapped so a run that is still going when the next tick fires is skipped
// rather than overlapped.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"certtrack/internal/platform/metrics"
	"certtrack/pkg/requestcontext"
)

// JobFunc is one run of a recurring job. It receives a context carrying the
// run's single observation time.
type JobFunc func(ctx context.Context) error

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a stopped scheduler. Panics inside jobs are recovered and
// logged; a slow run suppresses the next tick instead of stacking.
func New(logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		logger:  logger,
		metrics: m,
	}
}

// Add registers a job under a cron spec. Every run gets a fresh context with
// the run's start time injected, so all records written in one run share one
// "now".
func (s *Scheduler) Add(spec, name string, job JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		ctx := requestcontext.WithTime(context.Background(), start)

		err := job(ctx)
		elapsed := time.Since(start)
		s.metrics.ObserveJobDuration(name, elapsed)
		if err != nil {
			s.logger.Error("job run failed", "job", name, "elapsed", elapsed, "error", err)
			return
		}
		s.logger.Info("job run complete", "job", name, "elapsed", elapsed)
	})
	return err
}

// Start begins scheduling in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
