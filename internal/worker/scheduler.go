package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"loantracker/internal/log"
	"loantracker/internal/metrics"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	jobs    map[string]Job

	// ctx parents cron-triggered runs. Run replaces it before starting cron.
	ctx context.Context
}

// NewScheduler creates a scheduler. Panicking jobs are recovered and logged.
func NewScheduler(logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger))),
		logger:  logger,
		metrics: m,
		timeout: 5 * time.Minute,
		jobs:    make(map[string]Job),
		ctx:     context.Background(),
	}
}

// Add registers job under name on a standard five-field cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunNow(s.ctx, name) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.jobs[name] = job
	s.logger.Info("Scheduled job", "job", name, "schedule", spec)
	return nil
}

// RunNow executes a registered job synchronously and records the result.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := job(ctx)
	s.metrics.JobRun(name, err)
	fields := log.NewFields().
		WithOperation(name).
		WithError(err)
	fields[log.FieldDuration] = time.Since(start).Milliseconds()
	if err != nil {
		s.logger.ErrorContext(ctx, "Job failed", fields.ToSlice()...)
		return err
	}
	s.logger.InfoContext(ctx, "Job completed", fields.ToSlice()...)
	return nil
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits for
// running jobs to finish. Jobs started by cron see ctx cancelled on shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
	return nil
}
