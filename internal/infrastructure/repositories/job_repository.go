package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// ErrJobNotFound is returned when a job does not exist.
var ErrJobNotFound = fmt.Errorf("job not found")

// JobRepository handles job persistence operations
type JobRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *sqlx.DB, logger *zap.Logger) *JobRepository {
	return &JobRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *entities.Job) error {
	query := `
		INSERT INTO jobs (id, user_id, document_key, file_name, file_size,
			status, processed_by, error_message, created_at, updated_at, completed_at)
		VALUES (:id, :user_id, :document_key, :file_name, :file_size,
			:status, :processed_by, :error_message, :created_at, :updated_at, :completed_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		r.logger.Error("failed to create job",
			zap.Error(err),
			zap.String("job_id", job.ID.String()),
		)
		return fmt.Errorf("failed to create job: %w", err)
	}

	r.logger.Info("job created",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID.String()),
		zap.String("file_name", job.FileName),
	)
	return nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	query := `
		SELECT id, user_id, document_key, file_name, file_size,
			status, processed_by, error_message, created_at, updated_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	var job entities.Job
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrJobNotFound
		}
		r.logger.Error("failed to get job by ID",
			zap.Error(err),
			zap.String("job_id", id.String()),
		)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// GetByUserID retrieves a page of a user's jobs, newest first, along with
// the user's total job count.
func (r *JobRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Job, int, error) {
	query := `
		SELECT id, user_id, document_key, file_name, file_size,
			status, processed_by, error_message, created_at, updated_at, completed_at
		FROM jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var jobs []*entities.Job
	if err := r.db.SelectContext(ctx, &jobs, query, userID, limit, offset); err != nil {
		r.logger.Error("failed to query jobs by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, 0, fmt.Errorf("failed to query jobs: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM jobs WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	return jobs, total, nil
}

// MarkProcessing transitions a job to PROCESSING and records the worker
// that claimed it.
func (r *JobRepository) MarkProcessing(ctx context.Context, id uuid.UUID, workerID string) error {
	query := `
		UPDATE jobs
		SET status = $2, processed_by = $3, error_message = NULL, updated_at = $4
		WHERE id = $1
	`
	return r.updateStatus(ctx, id, query, string(entities.JobStatusProcessing), workerID, time.Now())
}

// MarkCompleted transitions a job to COMPLETED and stamps the completion
// time.
func (r *JobRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE jobs
		SET status = $2, error_message = NULL, updated_at = $3, completed_at = $3
		WHERE id = $1
	`
	return r.updateStatus(ctx, id, query, string(entities.JobStatusCompleted), now)
}

// MarkFailed transitions a job to FAILED with a human-readable reason.
func (r *JobRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $2, error_message = $3, updated_at = $4
		WHERE id = $1
	`
	return r.updateStatus(ctx, id, query, string(entities.JobStatusFailed), errMsg, time.Now())
}

func (r *JobRepository) updateStatus(ctx context.Context, id uuid.UUID, query string, args ...interface{}) error {
	allArgs := append([]interface{}{id}, args...)
	result, err := r.db.ExecContext(ctx, query, allArgs...)
	if err != nil {
		r.logger.Error("failed to update job status",
			zap.Error(err),
			zap.String("job_id", id.String()),
		)
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrJobNotFound
	}

	return nil
}
