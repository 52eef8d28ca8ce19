package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// ErrReportNotFound is returned when a job has no report yet.
var ErrReportNotFound = fmt.Errorf("report not found")

// ReportRepository handles report persistence operations
type ReportRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes a job's report. A job has at most one report, keyed by
// job_id; a redelivered job overwrites its earlier artifact instead of
// failing on the unique constraint.
func (r *ReportRepository) Upsert(ctx context.Context, report *entities.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	reportData, err := json.Marshal(report.ReportData)
	if err != nil {
		return fmt.Errorf("failed to marshal report data: %w", err)
	}
	scoreSummary, err := json.Marshal(report.PowerScoreSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal power score summary: %w", err)
	}

	query := `
		INSERT INTO reports (id, job_id, user_id, report_data, power_score_summary,
			total_investment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id) DO UPDATE SET
			report_data = EXCLUDED.report_data,
			power_score_summary = EXCLUDED.power_score_summary,
			total_investment = EXCLUDED.total_investment,
			created_at = EXCLUDED.created_at
	`

	_, err = r.db.ExecContext(ctx, query,
		report.ID,
		report.JobID,
		report.UserID,
		reportData,
		scoreSummary,
		report.TotalInvestment,
		report.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to upsert report",
			zap.Error(err),
			zap.String("job_id", report.JobID.String()),
		)
		return fmt.Errorf("failed to upsert report: %w", err)
	}

	r.logger.Info("report persisted",
		zap.String("job_id", report.JobID.String()),
		zap.String("user_id", report.UserID.String()),
	)
	return nil
}

// GetByJobID retrieves the report for a job.
func (r *ReportRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*entities.Report, error) {
	query := `
		SELECT id, job_id, user_id, report_data, power_score_summary,
			total_investment, created_at
		FROM reports
		WHERE job_id = $1
	`

	var row struct {
		ID                uuid.UUID `db:"id"`
		JobID             uuid.UUID `db:"job_id"`
		UserID            uuid.UUID `db:"user_id"`
		ReportData        []byte    `db:"report_data"`
		PowerScoreSummary []byte    `db:"power_score_summary"`
		TotalInvestment   string    `db:"total_investment"`
		CreatedAt         time.Time `db:"created_at"`
	}

	if err := r.db.GetContext(ctx, &row, query, jobID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReportNotFound
		}
		r.logger.Error("failed to get report by job ID",
			zap.Error(err),
			zap.String("job_id", jobID.String()),
		)
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	report := &entities.Report{
		ID:        row.ID,
		JobID:     row.JobID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.ReportData, &report.ReportData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report data: %w", err)
	}
	if err := json.Unmarshal(row.PowerScoreSummary, &report.PowerScoreSummary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal power score summary: %w", err)
	}
	if err := report.TotalInvestment.Scan(row.TotalInvestment); err != nil {
		return nil, fmt.Errorf("failed to parse total investment: %w", err)
	}

	return report, nil
}
