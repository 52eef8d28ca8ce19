package analytics

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/nav"
)

const (
	// tradingDaysPerYear is the NAV-point horizon for rolling windows.
	tradingDaysPerYear = 252

	// DefaultRiskFreeRate and DefaultBenchmarkReturn are policy constants,
	// not market-fetched values.
	DefaultRiskFreeRate    = 6.0
	DefaultBenchmarkReturn = 12.0
)

// NavSource supplies external scheme resolution and NAV history.
type NavSource interface {
	ResolveSchemeCode(ctx context.Context, fundName string) (string, error)
	GetNavHistory(ctx context.Context, schemeCode string) ([]nav.Point, error)
}

// Engine derives per-fund power scores from parsed lots, preferring external
// NAV history and falling back to a lot-only estimate when none is usable.
type Engine struct {
	navSource       NavSource
	logger          *zap.Logger
	riskFreeRate    float64
	benchmarkReturn float64
}

// EngineConfig carries the scoring policy constants. Zero values select the
// defaults.
type EngineConfig struct {
	RiskFreeRate    float64
	BenchmarkReturn float64
}

// NewEngine creates a scoring engine.
func NewEngine(navSource NavSource, cfg EngineConfig, logger *zap.Logger) *Engine {
	if cfg.RiskFreeRate == 0 {
		cfg.RiskFreeRate = DefaultRiskFreeRate
	}
	if cfg.BenchmarkReturn == 0 {
		cfg.BenchmarkReturn = DefaultBenchmarkReturn
	}
	return &Engine{
		navSource:       navSource,
		logger:          logger,
		riskFreeRate:    cfg.RiskFreeRate,
		benchmarkReturn: cfg.BenchmarkReturn,
	}
}

// Score produces one PowerScore per distinct fund name across the lots,
// ordered by fund name for determinism.
func (e *Engine) Score(ctx context.Context, userID uuid.UUID, lots []*entities.Lot) ([]*entities.PowerScore, error) {
	groups := groupByFund(lots)

	fundNames := make([]string, 0, len(groups))
	for name := range groups {
		fundNames = append(fundNames, name)
	}
	sort.Strings(fundNames)

	scores := make([]*entities.PowerScore, 0, len(fundNames))
	for _, name := range fundNames {
		score := e.scoreFund(ctx, name, groups[name])
		scores = append(scores, score)
	}

	e.logger.Info("power scores calculated",
		zap.String("user_id", userID.String()),
		zap.Int("funds", len(scores)),
	)
	return scores, nil
}

func groupByFund(lots []*entities.Lot) map[string][]*entities.Lot {
	groups := make(map[string][]*entities.Lot)
	for _, lot := range lots {
		groups[lot.FundName] = append(groups[lot.FundName], lot)
	}
	return groups
}

func (e *Engine) scoreFund(ctx context.Context, fundName string, lots []*entities.Lot) *entities.PowerScore {
	rollingReturn, sharpe, benchmark, resolved := e.externalMetrics(ctx, fundName)

	// External data that produced exactly zero for both the return and the
	// Sharpe ratio is indistinguishable from missing data; fall back to the
	// lot-only estimate in either case.
	if !resolved || (rollingReturn == 0 && sharpe == 0) {
		rollingReturn, sharpe, benchmark = e.lotOnlyMetrics(lots)
	}

	score := 50.0
	score += clamp(rollingReturn*2, -30, 30)
	score += clamp(sharpe*10, -10, 10)
	score += clamp(benchmark, -10, 10)
	score = clamp(score, 0, 100)

	rounded := int(math.Round(score))
	rating := ratingForScore(rounded)

	return &entities.PowerScore{
		FundName:       fundName,
		Score:          rounded,
		Rating:         rating,
		Recommendation: recommendationFor(rating),
		Metrics: entities.ScoreMetrics{
			RollingReturn:       round2(rollingReturn),
			SharpeRatio:         round2(sharpe),
			BenchmarkComparison: round2(benchmark),
		},
	}
}

// externalMetrics computes the NAV-history-backed metrics. resolved is false
// when the fund cannot be matched to a scheme or no history is available.
func (e *Engine) externalMetrics(ctx context.Context, fundName string) (rollingReturn, sharpe, benchmark float64, resolved bool) {
	schemeCode, err := e.navSource.ResolveSchemeCode(ctx, fundName)
	if err != nil {
		if !errors.Is(err, nav.ErrSchemeNotFound) {
			e.logger.Warn("scheme resolution failed",
				zap.String("fund_name", fundName), zap.Error(err))
		}
		return 0, 0, 0, false
	}

	history, err := e.navSource.GetNavHistory(ctx, schemeCode)
	if err != nil || len(history) < 2 {
		return 0, 0, 0, false
	}

	// History arrives newest first; the math wants chronological order.
	ascending := make([]float64, len(history))
	for i, p := range history {
		ascending[len(history)-1-i] = p.Value
	}

	latest := ascending[len(ascending)-1]
	if len(ascending) >= tradingDaysPerYear {
		yearAgo := ascending[len(ascending)-tradingDaysPerYear]
		rollingReturn = CAGR(yearAgo, latest, 1)
	} else {
		years := float64(len(ascending)) / tradingDaysPerYear
		rollingReturn = CAGR(ascending[0], latest, years)
	}

	window := ascending
	if len(window) > tradingDaysPerYear {
		window = window[len(window)-tradingDaysPerYear:]
	}
	volatility := AnnualizedVolatility(window)

	sharpe = SharpeRatio(rollingReturn, volatility, e.riskFreeRate)
	benchmark = rollingReturn - e.benchmarkReturn
	return rollingReturn, sharpe, benchmark, true
}

// lotOnlyMetrics estimates performance from the statement alone: simple
// return over invested amount, with a crude Sharpe proxy.
func (e *Engine) lotOnlyMetrics(lots []*entities.Lot) (rollingReturn, sharpe, benchmark float64) {
	totalInvestment := decimal.Zero
	currentValue := decimal.Zero
	for _, lot := range lots {
		totalInvestment = totalInvestment.Add(lot.Amount)
		currentValue = currentValue.Add(lot.CurrentValue())
	}

	if totalInvestment.IsZero() {
		return 0, 0, -e.benchmarkReturn
	}

	simpleReturn, _ := currentValue.Sub(totalInvestment).
		Div(totalInvestment).
		Mul(decimal.NewFromInt(100)).
		Float64()

	return simpleReturn, simpleReturn / 15, simpleReturn - e.benchmarkReturn
}

func ratingForScore(score int) entities.Rating {
	switch {
	case score >= 70:
		return entities.RatingGreen
	case score >= 40:
		return entities.RatingYellow
	default:
		return entities.RatingRed
	}
}

func recommendationFor(rating entities.Rating) string {
	switch rating {
	case entities.RatingGreen:
		return "Hold - fund is performing well."
	case entities.RatingYellow:
		return "Review - moderate performance; consider rebalancing."
	default:
		return "Consider reducing exposure or switching to a better-performing fund."
	}
}
