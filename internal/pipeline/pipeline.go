// Package pipeline orchestrates one ingestion run: listing fetch, bounded
// concurrent detail fetches, per-source transformation, and idempotent
// persistence with partial-failure tolerance.
package pipeline

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/metrics"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

// Pipeline stage names used in record errors and metrics labels.
const (
	stageFetch     = "fetch"
	stageTransform = "transform"
	stagePersist   = "persist"
)

// RegionSource supplies the city-to-region mapping for a run, degrading to
// an empty mapping when reference data is unavailable.
type RegionSource interface {
	ResolveOrEmpty(ctx context.Context, platform vacancy.Platform) region.Mapping
}

// Config controls run-level behavior.
type Config struct {
	// Topic names the event-bus destination for finished-run reports.
	// Empty disables publishing.
	Topic string
}

// Pipeline executes ingestion runs against a store.
type Pipeline struct {
	store     vacancy.Store
	regions   RegionSource
	publisher vacancy.Publisher
	clock     vacancy.Clock
	idGen     vacancy.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Pipeline. Publisher may be nil when no event bus is
// configured.
func New(
	store vacancy.Store,
	regions RegionSource,
	publisher vacancy.Publisher,
	clock vacancy.Clock,
	idGen vacancy.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:     store,
		regions:   regions,
		publisher: publisher,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
	}
}

// recordOutcome is the per-record result of the fan-out. Outcomes arrive in
// completion order; the pipeline makes no ordering promise.
type recordOutcome struct {
	identifier string
	stage      string
	err        error
}

// Run executes the full listing-details-transform-persist flow for one
// source. A listing failure aborts the run (there is nothing to process);
// any per-record failure is recorded and skipped, never interrupting
// sibling records, and never rolling back records already persisted.
func (p *Pipeline) Run(ctx context.Context, adapter vacancy.SourceAdapter, params vacancy.SearchParams) vacancy.Report {
	platform := adapter.Platform()
	runID := p.newRunID()
	start := p.clock.Now()
	logger := p.logger.With(
		zap.String("run_id", runID),
		zap.String("platform", string(platform)),
	)

	regions := p.regions.ResolveOrEmpty(ctx, platform)

	ids, err := adapter.FetchListing(ctx, params)
	if err != nil {
		logger.Error("listing fetch failed, run aborted", zap.Error(err))
		metrics.RecordRun(string(platform), "aborted", p.clock.Now().Sub(start))
		report := vacancy.Report{
			RunID:    runID,
			Platform: platform,
			Status:   vacancy.ReportStatusError,
			Errors:   []vacancy.RecordError{},
			Message:  err.Error(),
		}
		p.publish(ctx, report, logger)
		return report
	}
	logger.Info("listing fetched", zap.Int("ids", len(ids)))

	outcomes := make(chan recordOutcome, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			outcomes <- p.processRecord(ctx, adapter, id, regions)
		}(id)
	}
	wg.Wait()
	close(outcomes)

	report := vacancy.Report{
		RunID:     runID,
		Platform:  platform,
		Status:    vacancy.ReportStatusSuccess,
		Attempted: len(ids),
		Errors:    []vacancy.RecordError{},
	}
	for outcome := range outcomes {
		if outcome.err == nil {
			report.SavedCount++
			continue
		}
		metrics.AddRecordError(string(platform), outcome.stage)
		report.Errors = append(report.Errors, vacancy.RecordError{
			Identifier: outcome.identifier,
			Reason:     outcome.err.Error(),
		})
		logger.Warn("record skipped",
			zap.String("identifier", outcome.identifier),
			zap.String("stage", outcome.stage),
			zap.Error(outcome.err),
		)
	}
	report.Message = vacancy.SuccessMessage(report.SavedCount)

	metrics.AddSaved(string(platform), report.SavedCount)
	metrics.RecordRun(string(platform), "completed", p.clock.Now().Sub(start))
	logger.Info("run completed",
		zap.Int("saved", report.SavedCount),
		zap.Int("attempted", report.Attempted),
		zap.Int("errors", len(report.Errors)),
	)

	p.publish(ctx, report, logger)
	return report
}

// processRecord runs the fetch-transform-persist tiers for one id. The
// in-flight bound on detail fetches is enforced by the HTTP client's shared
// semaphore underneath adapter.FetchDetail.
func (p *Pipeline) processRecord(
	ctx context.Context,
	adapter vacancy.SourceAdapter,
	id string,
	regions region.Mapping,
) recordOutcome {
	raw, err := adapter.FetchDetail(ctx, id)
	if err != nil {
		return recordOutcome{identifier: id, stage: stageFetch, err: err}
	}
	rec, err := adapter.Transform(raw, regions)
	if err != nil {
		return recordOutcome{identifier: id, stage: stageTransform, err: err}
	}
	if _, err := p.store.Upsert(ctx, rec); err != nil {
		perr := &vacancy.PersistenceError{Identifier: id, Err: err}
		return recordOutcome{identifier: id, stage: stagePersist, err: perr}
	}
	return recordOutcome{identifier: id}
}

// RunChannelBatch applies the transform and persist tiers to pushed channel
// messages. There is no listing tier: the batch itself is the listing.
func (p *Pipeline) RunChannelBatch(
	ctx context.Context,
	adapter vacancy.SourceAdapter,
	messages []vacancy.ChannelMessage,
) vacancy.Report {
	platform := adapter.Platform()
	runID := p.newRunID()
	start := p.clock.Now()
	logger := p.logger.With(
		zap.String("run_id", runID),
		zap.String("platform", string(platform)),
	)

	regions := p.regions.ResolveOrEmpty(ctx, platform)

	report := vacancy.Report{
		RunID:     runID,
		Platform:  platform,
		Status:    vacancy.ReportStatusSuccess,
		Attempted: len(messages),
		Errors:    []vacancy.RecordError{},
	}
	for _, msg := range messages {
		identifier := strconv.FormatInt(msg.MessageID, 10)
		raw, err := json.Marshal(msg)
		if err != nil {
			report.Errors = append(report.Errors, vacancy.RecordError{
				Identifier: identifier,
				Reason:     err.Error(),
			})
			continue
		}
		rec, err := adapter.Transform(raw, regions)
		if err != nil {
			metrics.AddRecordError(string(platform), stageTransform)
			report.Errors = append(report.Errors, vacancy.RecordError{
				Identifier: identifier,
				Reason:     err.Error(),
			})
			continue
		}
		if _, err := p.store.Upsert(ctx, rec); err != nil {
			metrics.AddRecordError(string(platform), stagePersist)
			report.Errors = append(report.Errors, vacancy.RecordError{
				Identifier: identifier,
				Reason:     err.Error(),
			})
			continue
		}
		report.SavedCount++
	}
	report.Message = vacancy.SuccessMessage(report.SavedCount)

	metrics.AddSaved(string(platform), report.SavedCount)
	metrics.RecordRun(string(platform), "completed", p.clock.Now().Sub(start))
	logger.Info("channel batch completed",
		zap.Int("saved", report.SavedCount),
		zap.Int("attempted", report.Attempted),
		zap.Int("errors", len(report.Errors)),
	)

	p.publish(ctx, report, logger)
	return report
}

func (p *Pipeline) publish(ctx context.Context, report vacancy.Report, logger *zap.Logger) {
	if p.cfg.Topic == "" || p.publisher == nil {
		return
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.Topic, report); err != nil {
		logger.Warn("report publish failed", zap.Error(err))
	}
}

func (p *Pipeline) newRunID() string {
	if p.idGen == nil {
		return ""
	}
	id, err := p.idGen.NewID()
	if err != nil {
		p.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}
