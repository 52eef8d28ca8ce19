package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// LotRepository handles persistence of parsed transaction lots
type LotRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *sqlx.DB, logger *zap.Logger) *LotRepository {
	return &LotRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts all lots of a job in one statement. IDs and creation
// timestamps are assigned here so parsing stays deterministic.
func (r *LotRepository) CreateBatch(ctx context.Context, lots []*entities.Lot) error {
	if len(lots) == 0 {
		return nil
	}

	now := time.Now()
	for _, lot := range lots {
		if lot.ID == uuid.Nil {
			lot.ID = uuid.New()
		}
		if lot.CreatedAt.IsZero() {
			lot.CreatedAt = now
		}
	}

	query := `
		INSERT INTO lots (id, user_id, job_id, fund_name, folio_number,
			transaction_date, transaction_type, units, nav, amount,
			is_long_term, created_at)
		VALUES (:id, :user_id, :job_id, :fund_name, :folio_number,
			:transaction_date, :transaction_type, :units, :nav, :amount,
			:is_long_term, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, lots); err != nil {
		r.logger.Error("failed to insert lot batch",
			zap.Error(err),
			zap.String("job_id", lots[0].JobID.String()),
			zap.Int("count", len(lots)),
		)
		return fmt.Errorf("failed to insert lot batch: %w", err)
	}

	r.logger.Info("lot batch persisted",
		zap.String("job_id", lots[0].JobID.String()),
		zap.Int("count", len(lots)),
	)
	return nil
}

// DeleteByJobID removes a job's lots. Called before re-inserting so that a
// redelivered job replaces rather than duplicates its batch.
func (r *LotRepository) DeleteByJobID(ctx context.Context, jobID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lots WHERE job_id = $1`, jobID); err != nil {
		r.logger.Error("failed to delete lots for job",
			zap.Error(err),
			zap.String("job_id", jobID.String()),
		)
		return fmt.Errorf("failed to delete lots for job: %w", err)
	}
	return nil
}

// GetByJobID retrieves a job's lots in statement order.
func (r *LotRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) ([]*entities.Lot, error) {
	query := `
		SELECT id, user_id, job_id, fund_name, folio_number,
			transaction_date, transaction_type, units, nav, amount,
			is_long_term, created_at
		FROM lots
		WHERE job_id = $1
		ORDER BY transaction_date, id
	`

	var lots []*entities.Lot
	if err := r.db.SelectContext(ctx, &lots, query, jobID); err != nil {
		r.logger.Error("failed to query lots by job ID",
			zap.Error(err),
			zap.String("job_id", jobID.String()),
		)
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}

	return lots, nil
}
