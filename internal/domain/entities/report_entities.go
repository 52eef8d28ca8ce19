package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rating buckets a fund's power score.
type Rating string

const (
	RatingRed    Rating = "RED"
	RatingYellow Rating = "YELLOW"
	RatingGreen  Rating = "GREEN"
)

// ScoreMetrics are the inputs behind a power score, rounded for display.
type ScoreMetrics struct {
	RollingReturn       float64 `json:"rollingReturn"`
	SharpeRatio         float64 `json:"sharpeRatio"`
	BenchmarkComparison float64 `json:"benchmarkComparison"`
}

// PowerScore is one fund's composite 0-100 performance summary.
type PowerScore struct {
	FundName       string       `json:"fundName"`
	Score          int          `json:"score"`
	Rating         Rating       `json:"rating"`
	Recommendation string       `json:"recommendation"`
	Metrics        ScoreMetrics `json:"metrics"`
}

// AssetClass is the coarse bucket used for rebalancing.
type AssetClass string

const (
	AssetClassEquity AssetClass = "equity"
	AssetClassDebt   AssetClass = "debt"
	AssetClassHybrid AssetClass = "hybrid"
)

// Allocation holds per-class fractions of total portfolio value.
type Allocation struct {
	Equity float64 `json:"equity"`
	Debt   float64 `json:"debt"`
	Hybrid float64 `json:"hybrid"`
}

// Sum returns the total of all class fractions.
func (a Allocation) Sum() float64 {
	return a.Equity + a.Debt + a.Hybrid
}

// RebalanceAction is a single suggested trade toward the target allocation.
type RebalanceAction struct {
	Action     string     `json:"action"` // BUY or SELL
	AssetClass AssetClass `json:"assetClass"`
	Amount     float64    `json:"amount"`
}

// RebalancePlan compares the current allocation against the target policy.
type RebalancePlan struct {
	TargetAllocation  Allocation        `json:"targetAllocation"`
	CurrentAllocation Allocation        `json:"currentAllocation"`
	Actions           []RebalanceAction `json:"actions"`
}

// ReportSummary aggregates the parsed statement.
type ReportSummary struct {
	TotalLots       int     `json:"totalLots"`
	TotalInvestment float64 `json:"totalInvestment"`
	FundsAnalyzed   int     `json:"fundsAnalyzed"`
}

// LotRecord is the JSON-safe serialization of a lot inside a report.
type LotRecord struct {
	FundName        string  `json:"fundName"`
	TransactionDate string  `json:"transactionDate"` // RFC 3339
	Units           float64 `json:"units"`
	NAV             float64 `json:"nav"`
	Amount          float64 `json:"amount"`
}

// PowerScoreBrief is the compact per-fund entry in the score summary.
type PowerScoreBrief struct {
	FundName string `json:"fundName"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank,omitempty"`
}

// PowerScoreSummary ranks funds by score for the report header.
type PowerScoreSummary struct {
	Scores []PowerScoreBrief `json:"scores"`
}

// ReportData is the full durable report payload, stored as JSON.
type ReportData struct {
	Summary     ReportSummary  `json:"summary"`
	PowerScores []*PowerScore  `json:"powerScores"`
	Lots        []LotRecord    `json:"lots"`
	Rebalance   *RebalancePlan `json:"rebalance,omitempty"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Report is the one durable artifact a completed job produces.
type Report struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	JobID             uuid.UUID         `json:"job_id" db:"job_id"`
	UserID            uuid.UUID         `json:"user_id" db:"user_id"`
	ReportData        ReportData        `json:"report_data" db:"report_data"`
	PowerScoreSummary PowerScoreSummary `json:"power_score_summary" db:"power_score_summary"`
	TotalInvestment   decimal.Decimal   `json:"total_investment" db:"total_investment"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
}
