package casprocessor

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

func TestBuildReport(t *testing.T) {
	job := entities.NewJob(uuid.New(), "statements/cas.txt", "cas.txt", 128)
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	lots := []*entities.Lot{
		{
			FundName:        "ALPHA EQUITY FUND",
			TransactionDate: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
			Units:           decimal.NewFromInt(100),
			NAV:             decimal.RequireFromString("12.50"),
			Amount:          decimal.NewFromInt(1250),
		},
		{
			FundName:        "BETA LIQUID FUND",
			TransactionDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			Units:           decimal.NewFromInt(10),
			NAV:             decimal.NewFromInt(100),
			Amount:          decimal.NewFromInt(1000),
		},
	}
	scores := []*entities.PowerScore{
		{FundName: "ALPHA EQUITY FUND", Score: 55, Rating: entities.RatingYellow},
		{FundName: "BETA LIQUID FUND", Score: 80, Rating: entities.RatingGreen},
	}
	plan := &entities.RebalancePlan{TargetAllocation: entities.Allocation{Equity: 0.7, Debt: 0.3}}

	report := BuildReport(job, lots, scores, plan, now)

	assert.Equal(t, job.ID, report.JobID)
	assert.Equal(t, job.UserID, report.UserID)
	assert.Equal(t, now, report.CreatedAt)
	assert.True(t, report.TotalInvestment.Equal(decimal.NewFromInt(2250)))

	assert.Equal(t, 2, report.ReportData.Summary.TotalLots)
	assert.InDelta(t, 2250.0, report.ReportData.Summary.TotalInvestment, 1e-9)
	assert.Equal(t, 2, report.ReportData.Summary.FundsAnalyzed)
	assert.Equal(t, now, report.ReportData.GeneratedAt)
	assert.Same(t, plan, report.ReportData.Rebalance)

	require.Len(t, report.ReportData.Lots, 2)
	assert.Equal(t, "2023-01-01T00:00:00Z", report.ReportData.Lots[0].TransactionDate)
	assert.InDelta(t, 12.5, report.ReportData.Lots[0].NAV, 1e-9)

	// Ranking orders funds best first.
	require.Len(t, report.PowerScoreSummary.Scores, 2)
	assert.Equal(t, "BETA LIQUID FUND", report.PowerScoreSummary.Scores[0].FundName)
	assert.Equal(t, 1, report.PowerScoreSummary.Scores[0].Rank)
	assert.Equal(t, "ALPHA EQUITY FUND", report.PowerScoreSummary.Scores[1].FundName)
	assert.Equal(t, 2, report.PowerScoreSummary.Scores[1].Rank)
}

func TestRankScoresStableOnTies(t *testing.T) {
	summary := rankScores([]*entities.PowerScore{
		{FundName: "A FUND", Score: 60},
		{FundName: "B FUND", Score: 60},
		{FundName: "C FUND", Score: 90},
	})

	require.Len(t, summary.Scores, 3)
	assert.Equal(t, "C FUND", summary.Scores[0].FundName)
	assert.Equal(t, "A FUND", summary.Scores[1].FundName)
	assert.Equal(t, "B FUND", summary.Scores[2].FundName)
}

func TestRankScoresEmpty(t *testing.T) {
	summary := rankScores(nil)
	assert.Empty(t, summary.Scores)
}
