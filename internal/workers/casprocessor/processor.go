package casprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/analytics"
	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/pkg/metrics"
	"github.com/folio-service/folio_service/pkg/retry"
)

// Narrow views of the stores the pipeline touches.
type jobStore interface {
	MarkProcessing(ctx context.Context, id uuid.UUID, workerID string) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Job, error)
}

type lotStore interface {
	DeleteByJobID(ctx context.Context, jobID uuid.UUID) error
	CreateBatch(ctx context.Context, lots []*entities.Lot) error
}

type reportStore interface {
	Upsert(ctx context.Context, report *entities.Report) error
}

type statusCache interface {
	Set(ctx context.Context, snapshot *entities.JobStatusSnapshot)
	Invalidate(ctx context.Context, jobID uuid.UUID)
}

type documentStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

type statementParser interface {
	Parse(rawText string, userID, jobID uuid.UUID) ([]*entities.Lot, error)
}

type scorer interface {
	Score(ctx context.Context, userID uuid.UUID, lots []*entities.Lot) ([]*entities.PowerScore, error)
}

// Processor runs the statement pipeline for one job message: download,
// extract, parse, persist, score, report, status. Every step is idempotent
// under redelivery; lots are replaced wholesale and the report upserts on
// its job key.
type Processor struct {
	jobs      jobStore
	lots      lotStore
	reports   reportStore
	cache     statusCache
	documents documentStore
	extractor TextExtractor
	parser    statementParser
	engine    scorer
	logger    *zap.Logger

	downloadRetry retry.Config
	now           func() time.Time
}

// ProcessorConfig tunes the pipeline.
type ProcessorConfig struct {
	DownloadMaxAttempts int
	DownloadRetryDelay  time.Duration
}

// NewProcessor wires a pipeline from its collaborators.
func NewProcessor(
	jobs jobStore,
	lots lotStore,
	reports reportStore,
	cache statusCache,
	documents documentStore,
	extractor TextExtractor,
	parser statementParser,
	engine scorer,
	cfg ProcessorConfig,
	logger *zap.Logger,
) *Processor {
	retryCfg := retry.DefaultConfig()
	if cfg.DownloadMaxAttempts > 0 {
		retryCfg.MaxAttempts = cfg.DownloadMaxAttempts
	}
	if cfg.DownloadRetryDelay > 0 {
		retryCfg.Delay = cfg.DownloadRetryDelay
	}

	return &Processor{
		jobs:          jobs,
		lots:          lots,
		reports:       reports,
		cache:         cache,
		documents:     documents,
		extractor:     extractor,
		parser:        parser,
		engine:        engine,
		logger:        logger,
		downloadRetry: retryCfg,
		now:           time.Now,
	}
}

// ProcessJob runs the full pipeline for one job message. A nil return means
// the job reached COMPLETED; any error means it was marked FAILED (best
// effort) and the message should still be acknowledged, since retrying a
// deterministic failure cannot succeed.
func (p *Processor) ProcessJob(ctx context.Context, msg *entities.JobMessage, workerID string) error {
	start := p.now()
	log := p.logger.With(
		zap.String("job_id", msg.JobID.String()),
		zap.String("worker_id", workerID),
	)
	log.Info("processing job", zap.String("file_name", msg.FileName))

	if err := p.jobs.MarkProcessing(ctx, msg.JobID, workerID); err != nil {
		return p.failJob(ctx, msg, log, fmt.Errorf("failed to claim job: %w", err))
	}
	p.refreshStatus(ctx, msg.JobID)

	var data []byte
	err := retry.Do(ctx, p.downloadRetry, func() error {
		var downloadErr error
		data, downloadErr = p.documents.Download(ctx, msg.DocumentKey)
		if downloadErr != nil {
			metrics.DownloadRetriesTotal.Inc()
		}
		return downloadErr
	})
	if err != nil {
		return p.failJob(ctx, msg, log, fmt.Errorf("document download failed: %w", err))
	}

	rawText, err := p.extractor.Extract(data)
	if err != nil {
		return p.failJob(ctx, msg, log, fmt.Errorf("text extraction failed: %w", err))
	}

	lots, err := p.parser.Parse(rawText, msg.UserID, msg.JobID)
	if err != nil {
		return p.failJob(ctx, msg, log, fmt.Errorf("statement parsing failed: %w", err))
	}
	metrics.LotsParsedTotal.Add(float64(len(lots)))

	// Replace rather than append so a redelivered message cannot duplicate
	// the batch.
	if err := p.lots.DeleteByJobID(ctx, msg.JobID); err != nil {
		return p.failJob(ctx, msg, log, fmt.Errorf("failed to clear previous lots: %w", err))
	}
	if err := p.lots.CreateBatch(ctx, lots); err != nil {
		return p.failJob(ctx, msg, log, fmt.Errorf("failed to persist lots: %w", err))
	}

	scores, err := p.engine.Score(ctx, msg.UserID, lots)
	if err != nil {
		return p.failJob(ctx, msg, log, fmt.Errorf("score calculation failed: %w", err))
	}

	plan := analytics.CalculateRebalance(lots)

	job, err := p.jobs.GetByID(ctx, msg.JobID)
	if err != nil {
		return p.failJob(ctx, msg, log, fmt.Errorf("failed to reload job: %w", err))
	}

	report := BuildReport(job, lots, scores, plan, p.now())
	if err := p.reports.Upsert(ctx, report); err != nil {
		return p.failJob(ctx, msg, log, fmt.Errorf("failed to persist report: %w", err))
	}

	if err := p.jobs.MarkCompleted(ctx, msg.JobID); err != nil {
		return p.failJob(ctx, msg, log, fmt.Errorf("failed to mark job completed: %w", err))
	}
	p.refreshStatus(ctx, msg.JobID)

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobDuration.Observe(p.now().Sub(start).Seconds())
	log.Info("job completed",
		zap.Int("lots", len(lots)),
		zap.Int("funds_scored", len(scores)),
		zap.Duration("elapsed", p.now().Sub(start)),
	)
	return nil
}

// failJob records the failure and returns the original error. Bookkeeping
// here is best effort; the pipeline error is what matters to the caller.
func (p *Processor) failJob(ctx context.Context, msg *entities.JobMessage, log *zap.Logger, pipelineErr error) error {
	log.Error("job failed", zap.Error(pipelineErr))

	if err := p.jobs.MarkFailed(ctx, msg.JobID, pipelineErr.Error()); err != nil {
		log.Error("failed to record job failure", zap.Error(err))
	}
	p.cache.Invalidate(ctx, msg.JobID)

	metrics.JobsProcessedTotal.WithLabelValues("failed").Inc()
	return pipelineErr
}

// refreshStatus re-caches the job's current snapshot, dropping the stale
// entry when the job cannot be reloaded.
func (p *Processor) refreshStatus(ctx context.Context, jobID uuid.UUID) {
	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		p.cache.Invalidate(ctx, jobID)
		return
	}
	p.cache.Set(ctx, job.Snapshot())
}
