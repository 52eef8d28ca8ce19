package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

func TestClassifyFund(t *testing.T) {
	tests := []struct {
		fundName string
		want     entities.AssetClass
	}{
		{"HDFC Equity Fund", entities.AssetClassEquity},
		{"AXIS BLUECHIP FUND", entities.AssetClassEquity},
		{"SBI Small Cap Fund", entities.AssetClassEquity},
		{"NIFTY Index Fund", entities.AssetClassEquity},
		{"ICICI Liquid Fund", entities.AssetClassDebt},
		{"HDFC Gilt Fund", entities.AssetClassDebt},
		{"Corporate Bond Fund", entities.AssetClassDebt},
		{"Multi Asset Allocator", entities.AssetClassHybrid},
		{"", entities.AssetClassHybrid},
	}

	for _, tt := range tests {
		t.Run(tt.fundName, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFund(tt.fundName))
		})
	}
}

func TestClassifyFundEquityWinsOverDebt(t *testing.T) {
	// Equity keywords are checked first, so mixed names land in equity.
	assert.Equal(t, entities.AssetClassEquity, ClassifyFund("Equity And Debt Combo Fund"))
}

func TestCalculateRebalanceMovesTowardTarget(t *testing.T) {
	// 50/50 split on a 10,000 portfolio against a 70/30 target.
	lots := []*entities.Lot{
		testLot("HDFC Equity Fund", 10, 500, 5000),
		testLot("ICICI Liquid Fund", 10, 500, 5000),
	}

	plan := CalculateRebalance(lots)
	require.NotNil(t, plan)

	assert.InDelta(t, 0.5, plan.CurrentAllocation.Equity, 1e-9)
	assert.InDelta(t, 0.5, plan.CurrentAllocation.Debt, 1e-9)
	assert.InDelta(t, 1.0, plan.CurrentAllocation.Sum(), 1e-9)
	assert.Equal(t, TargetAllocation, plan.TargetAllocation)

	require.Len(t, plan.Actions, 2)
	assert.Equal(t, "BUY", plan.Actions[0].Action)
	assert.Equal(t, entities.AssetClassEquity, plan.Actions[0].AssetClass)
	assert.InDelta(t, 2000, plan.Actions[0].Amount, 1e-9)
	assert.Equal(t, "SELL", plan.Actions[1].Action)
	assert.Equal(t, entities.AssetClassDebt, plan.Actions[1].AssetClass)
	assert.InDelta(t, 2000, plan.Actions[1].Amount, 1e-9)
}

func TestCalculateRebalanceBalancedPortfolioNoActions(t *testing.T) {
	lots := []*entities.Lot{
		testLot("HDFC Equity Fund", 10, 700, 7000),
		testLot("ICICI Liquid Fund", 10, 300, 3000),
	}

	plan := CalculateRebalance(lots)
	assert.Empty(t, plan.Actions)
}

func TestCalculateRebalanceSuppressesNoiseTrades(t *testing.T) {
	// 6999.50 / 3000.50 is within one currency unit of target.
	lots := []*entities.Lot{
		{FundName: "HDFC Equity Fund", Amount: decimal.NewFromFloat(6999.50)},
		{FundName: "ICICI Liquid Fund", Amount: decimal.NewFromFloat(3000.50)},
	}

	plan := CalculateRebalance(lots)
	assert.Empty(t, plan.Actions)
}

func TestCalculateRebalanceSellsHybridEntirely(t *testing.T) {
	lots := []*entities.Lot{
		testLot("Multi Asset Allocator", 10, 1000, 10000),
	}

	plan := CalculateRebalance(lots)
	assert.InDelta(t, 1.0, plan.CurrentAllocation.Hybrid, 1e-9)

	require.Len(t, plan.Actions, 3)
	assert.Equal(t, "BUY", plan.Actions[0].Action)
	assert.InDelta(t, 7000, plan.Actions[0].Amount, 1e-9)
	assert.Equal(t, "BUY", plan.Actions[1].Action)
	assert.InDelta(t, 3000, plan.Actions[1].Amount, 1e-9)
	assert.Equal(t, "SELL", plan.Actions[2].Action)
	assert.Equal(t, entities.AssetClassHybrid, plan.Actions[2].AssetClass)
	assert.InDelta(t, 10000, plan.Actions[2].Amount, 1e-9)
}

func TestCalculateRebalanceEmptyPortfolio(t *testing.T) {
	plan := CalculateRebalance(nil)
	require.NotNil(t, plan)
	assert.Zero(t, plan.CurrentAllocation.Sum())
	assert.Empty(t, plan.Actions)
	assert.Equal(t, TargetAllocation, plan.TargetAllocation)
}
