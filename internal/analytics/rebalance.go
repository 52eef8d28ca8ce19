package analytics

import (
	"math"
	"strings"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// TargetAllocation is the fixed rebalancing policy.
var TargetAllocation = entities.Allocation{
	Equity: 0.70,
	Debt:   0.30,
	Hybrid: 0.0,
}

// minActionAmount suppresses noise trades below one currency unit.
const minActionAmount = 1.0

var equityKeywords = []string{
	"equity", "bluechip", "small cap", "mid cap", "large cap", "index", "growth",
}

var debtKeywords = []string{
	"debt", "liquid", "income", "bond", "gilt",
}

// ClassifyFund buckets a fund name into an asset class by keyword. Every
// name maps to exactly one class; anything unrecognized is hybrid.
func ClassifyFund(fundName string) entities.AssetClass {
	name := strings.ToLower(fundName)
	for _, kw := range equityKeywords {
		if strings.Contains(name, kw) {
			return entities.AssetClassEquity
		}
	}
	for _, kw := range debtKeywords {
		if strings.Contains(name, kw) {
			return entities.AssetClassDebt
		}
	}
	return entities.AssetClassHybrid
}

// CalculateRebalance compares the portfolio's current per-class value
// against the target policy and emits the trades needed to close the gap.
// An empty portfolio yields an all-zero current allocation and no actions.
func CalculateRebalance(lots []*entities.Lot) *entities.RebalancePlan {
	totals := map[entities.AssetClass]float64{}
	for _, lot := range lots {
		amount, _ := lot.Amount.Float64()
		totals[ClassifyFund(lot.FundName)] += amount
	}

	portfolioValue := totals[entities.AssetClassEquity] +
		totals[entities.AssetClassDebt] +
		totals[entities.AssetClassHybrid]

	if portfolioValue == 0 {
		return &entities.RebalancePlan{
			TargetAllocation:  TargetAllocation,
			CurrentAllocation: entities.Allocation{},
			Actions:           []entities.RebalanceAction{},
		}
	}

	current := entities.Allocation{
		Equity: round4(totals[entities.AssetClassEquity] / portfolioValue),
		Debt:   round4(totals[entities.AssetClassDebt] / portfolioValue),
		Hybrid: round4(totals[entities.AssetClassHybrid] / portfolioValue),
	}

	actions := []entities.RebalanceAction{}
	appendAction := func(class entities.AssetClass, target float64) {
		diff := target*portfolioValue - totals[class]
		if math.Abs(diff) < minActionAmount {
			return
		}
		action := "BUY"
		if diff < 0 {
			action = "SELL"
		}
		actions = append(actions, entities.RebalanceAction{
			Action:     action,
			AssetClass: class,
			Amount:     math.Round(math.Abs(diff)),
		})
	}

	appendAction(entities.AssetClassEquity, TargetAllocation.Equity)
	appendAction(entities.AssetClassDebt, TargetAllocation.Debt)
	appendAction(entities.AssetClassHybrid, TargetAllocation.Hybrid)

	return &entities.RebalancePlan{
		TargetAllocation:  TargetAllocation,
		CurrentAllocation: current,
		Actions:           actions,
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
