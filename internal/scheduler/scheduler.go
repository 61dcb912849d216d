// Package scheduler wires up the cron jobs that periodically trigger
// ingestion runs for the configured job boards.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/pipeline"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

// Job pairs a source adapter with its default search parameters and the cron
// spec that drives it.
type Job struct {
	Adapter vacancy.SourceAdapter
	Params  vacancy.SearchParams
	Spec    string
}

// Scheduler wraps robfig/cron and fires pipeline runs on schedule.
type Scheduler struct {
	cron       *cron.Cron
	pipeline   *pipeline.Pipeline
	jobs       []Job
	runOnStart bool
	logger     *zap.Logger
}

// New creates a Scheduler over the given jobs. When runOnStart is set, every
// job fires once immediately after Start so the store is populated without
// waiting for the first tick.
func New(p *pipeline.Pipeline, jobs []Job, runOnStart bool, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:       cron.New(),
		pipeline:   p,
		jobs:       jobs,
		runOnStart: runOnStart,
		logger:     logger,
	}
}

// Start registers every job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		job := job
		if _, err := s.cron.AddFunc(job.Spec, func() {
			s.runJob(ctx, job)
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Adapter.Platform(), err)
		}
		s.logger.Info("scheduled ingestion",
			zap.String("platform", string(job.Adapter.Platform())),
			zap.String("spec", job.Spec))
	}

	s.cron.Start()

	if s.runOnStart {
		for _, job := range s.jobs {
			job := job
			go s.runJob(ctx, job)
		}
	}

	return nil
}

// Stop halts the cron loop. Runs already in flight are not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	report := s.pipeline.Run(ctx, job.Adapter, job.Params)
	s.logger.Info("scheduled run finished",
		zap.String("platform", string(report.Platform)),
		zap.String("status", string(report.Status)),
		zap.Int("saved", report.SavedCount),
		zap.Int("errors", len(report.Errors)))
}
