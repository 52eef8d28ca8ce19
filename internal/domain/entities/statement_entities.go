package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot is a single transaction extracted from a consolidated account
// statement. Lots are immutable once parsed and are owned by the job that
// produced them; re-running a job replaces its whole batch.
type Lot struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	JobID           uuid.UUID       `json:"job_id" db:"job_id"`
	FundName        string          `json:"fund_name" db:"fund_name"`
	FolioNumber     *string         `json:"folio_number,omitempty" db:"folio_number"`
	TransactionDate time.Time       `json:"transaction_date" db:"transaction_date"`
	TransactionType string          `json:"transaction_type" db:"transaction_type"`
	Units           decimal.Decimal `json:"units" db:"units"`
	NAV             decimal.Decimal `json:"nav" db:"nav"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	IsLongTerm      bool            `json:"is_long_term" db:"is_long_term"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// CurrentValue returns units × NAV-at-transaction.
func (l *Lot) CurrentValue() decimal.Decimal {
	return l.Units.Mul(l.NAV)
}
