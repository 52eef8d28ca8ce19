package casprocessor

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// BuildReport assembles the durable report artifact from a job's lots,
// scores, and rebalance plan.
func BuildReport(job *entities.Job, lots []*entities.Lot, scores []*entities.PowerScore, plan *entities.RebalancePlan, now time.Time) *entities.Report {
	totalInvestment := decimal.Zero
	records := make([]entities.LotRecord, 0, len(lots))
	for _, lot := range lots {
		totalInvestment = totalInvestment.Add(lot.Amount)

		units, _ := lot.Units.Float64()
		navValue, _ := lot.NAV.Float64()
		amount, _ := lot.Amount.Float64()
		records = append(records, entities.LotRecord{
			FundName:        lot.FundName,
			TransactionDate: lot.TransactionDate.Format(time.RFC3339),
			Units:           units,
			NAV:             navValue,
			Amount:          amount,
		})
	}

	totalInvestmentF, _ := totalInvestment.Float64()

	return &entities.Report{
		JobID:  job.ID,
		UserID: job.UserID,
		ReportData: entities.ReportData{
			Summary: entities.ReportSummary{
				TotalLots:       len(lots),
				TotalInvestment: totalInvestmentF,
				FundsAnalyzed:   len(scores),
			},
			PowerScores: scores,
			Lots:        records,
			Rebalance:   plan,
			GeneratedAt: now,
		},
		PowerScoreSummary: rankScores(scores),
		TotalInvestment:   totalInvestment,
		CreatedAt:         now,
	}
}

// rankScores orders funds best first and assigns 1-based ranks. Ties keep
// the engine's name ordering, so ranking stays deterministic.
func rankScores(scores []*entities.PowerScore) entities.PowerScoreSummary {
	briefs := make([]entities.PowerScoreBrief, 0, len(scores))
	for _, s := range scores {
		briefs = append(briefs, entities.PowerScoreBrief{
			FundName: s.FundName,
			Score:    s.Score,
		})
	}

	sort.SliceStable(briefs, func(i, j int) bool {
		return briefs[i].Score > briefs[j].Score
	})
	for i := range briefs {
		briefs[i].Rank = i + 1
	}

	return entities.PowerScoreSummary{Scores: briefs}
}
