package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/infrastructure/repositories"
)

var (
	// ErrJobNotFound is returned when the job does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrAccessDenied is returned when a job belongs to a different user.
	ErrAccessDenied = errors.New("access denied")
	// ErrReportNotReady is returned when the job has not completed yet.
	ErrReportNotReady = errors.New("report not ready")
)

type jobRepository interface {
	Create(ctx context.Context, job *entities.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Job, int, error)
}

type reportRepository interface {
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*entities.Report, error)
}

type jobStatusCache interface {
	Set(ctx context.Context, snapshot *entities.JobStatusSnapshot)
	Get(ctx context.Context, jobID uuid.UUID) *entities.JobStatusSnapshot
}

type jobPublisher interface {
	PublishJob(ctx context.Context, msg *entities.JobMessage) error
}

// Service owns the job lifecycle from the client's side: submission,
// status polling, and report retrieval. The worker pool owns everything in
// between.
type Service struct {
	jobs    jobRepository
	reports reportRepository
	cache   jobStatusCache
	queue   jobPublisher
	logger  *zap.Logger
}

// NewService creates a job service.
func NewService(jobs jobRepository, reports reportRepository, cache jobStatusCache, queue jobPublisher, logger *zap.Logger) *Service {
	return &Service{
		jobs:    jobs,
		reports: reports,
		cache:   cache,
		queue:   queue,
		logger:  logger,
	}
}

// CreateJob records a pending job for an uploaded document and hands it to
// the worker pool.
func (s *Service) CreateJob(ctx context.Context, userID uuid.UUID, documentKey, fileName string, fileSize int64) (*entities.Job, error) {
	job := entities.NewJob(userID, documentKey, fileName, fileSize)

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	msg := &entities.JobMessage{
		JobID:       job.ID,
		UserID:      job.UserID,
		DocumentKey: job.DocumentKey,
		FileName:    job.FileName,
		Timestamp:   time.Now(),
	}
	if err := s.queue.PublishJob(ctx, msg); err != nil {
		// The job row stays PENDING; a requeue sweep can pick it up later.
		s.logger.Error("job created but not enqueued",
			zap.Error(err),
			zap.String("job_id", job.ID.String()),
		)
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.cache.Set(ctx, job.Snapshot())
	return job, nil
}

// GetJobStatus returns a job's status snapshot, serving from cache when
// possible. Snapshots carry their owner, so ownership is enforced on both
// the cached and the database path.
func (s *Service) GetJobStatus(ctx context.Context, userID, jobID uuid.UUID) (*entities.JobStatusSnapshot, error) {
	if snapshot := s.cache.Get(ctx, jobID); snapshot != nil {
		if snapshot.UserID != userID {
			return nil, ErrAccessDenied
		}
		return snapshot, nil
	}

	job, err := s.getOwnedJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	snapshot := job.Snapshot()
	s.cache.Set(ctx, snapshot)
	return snapshot, nil
}

// GetUserJobs returns a page of the user's jobs, newest first, plus the
// total count.
func (s *Service) GetUserJobs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Job, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.jobs.GetByUserID(ctx, userID, limit, offset)
}

// GetJobReport returns the completed job's report.
func (s *Service) GetJobReport(ctx context.Context, userID, jobID uuid.UUID) (*entities.Report, error) {
	job, err := s.getOwnedJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != entities.JobStatusCompleted {
		return nil, ErrReportNotReady
	}

	report, err := s.reports.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrReportNotFound) {
			return nil, ErrReportNotReady
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return report, nil
}

func (s *Service) getOwnedJob(ctx context.Context, userID, jobID uuid.UUID) (*entities.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job.UserID != userID {
		return nil, ErrAccessDenied
	}
	return job, nil
}
