package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// ErrNoTransactionsFound is returned when a statement yields zero lots.
var ErrNoTransactionsFound = errors.New("no transaction lots found in statement")

// ParseError marks a line that matched a transaction shape but could not be
// parsed, with the offending line number.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// unknownFund is the sentinel fund name for rows parsed outside any section.
const unknownFund = "UNKNOWN FUND"

var fundKeywords = []string{
	"FUND", "GROWTH", "EQUITY", "DEBT", "LIQUID",
	"BALANCED", "DIRECT", "PLAN", "DIVIDEND",
}

var (
	spaceRunRe = regexp.MustCompile(`\s+`)

	// Boilerplate that must never be mistaken for fund names or rows.
	headerRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)consolidated account statement`),
		regexp.MustCompile(`(?i)^statement (of|period|date)\b`),
		regexp.MustCompile(`(?i)^date\s+(transaction|type|asset)\b`),
		regexp.MustCompile(`(?i)^page \d+( of \d+)?$`),
	}

	folioRe     = regexp.MustCompile(`(?i)folio\s*[:\s]*\s*([0-9A-Za-z/\-]+)`)
	separatorRe = regexp.MustCompile(`^-{3,}$`)

	// Numeric date row: 01-01-2024 BUY 100 12.34 1,234
	txnNumericRe = regexp.MustCompile(
		`(\d{2}[-/]\d{2}[-/]\d{4})\s+(\w+)\s+([\d,]+\.?\d*)\s+([\d,]+\.?\d*)\s+(-?[\d,]+\.?\d*)`)

	// Textual month row with an inline asset name: 05-Apr-24 Equity Buy 5 980 4,900
	txnMonthRe = regexp.MustCompile(
		`(\d{1,2}[-/]?[A-Za-z]{3}[-/]?\d{2,4})\s+([A-Za-z &]+)\s+([A-Za-z]+)\s+([\d,]+\.?\d*)\s+([\d,]+\.?\d*)\s+(-?[\d,]+\.?\d*)`)

	dateTokenRe = regexp.MustCompile(`^\d{1,2}[-/](\d{1,2}|[A-Za-z]{3})[-/]?\d{2,4}$`)
)

// Parser extracts transaction lots from the extracted text of a
// consolidated account statement. Statement layouts vary wildly across
// providers, so extraction is a best-effort line-oriented pass with a small
// amount of section state rather than a grammar.
type Parser struct {
	logger *zap.Logger
	now    func() time.Time
}

// New creates a parser using the wall clock for long-term classification.
func New(logger *zap.Logger) *Parser {
	return NewWithClock(logger, time.Now)
}

// NewWithClock creates a parser with an injectable reference clock.
func NewWithClock(logger *zap.Logger, now func() time.Time) *Parser {
	return &Parser{logger: logger, now: now}
}

// Parse walks the statement text once, tracking the current fund section and
// folio, and returns the lots it recognizes in order of appearance.
func (p *Parser) Parse(rawText string, userID, jobID uuid.UUID) ([]*entities.Lot, error) {
	lines := strings.Split(rawText, "\n")
	now := p.now()

	var lots []*entities.Lot
	var currentFund, currentFolio string
	skipNext := false

	for i, raw := range lines {
		if skipNext {
			skipNext = false
			continue
		}

		line := normalizeLine(raw)

		// Blank lines and dash rules end the current section.
		if line == "" || separatorRe.MatchString(line) {
			currentFund = ""
			currentFolio = ""
			continue
		}

		if isBoilerplate(line) {
			continue
		}

		if currentFund == "" && looksLikeFundName(line) {
			currentFund = line
			// A folio line often follows the fund header directly.
			if i+1 < len(lines) {
				next := normalizeLine(lines[i+1])
				if m := folioRe.FindStringSubmatch(next); m != nil {
					currentFolio = m[1]
					skipNext = true
				}
			}
			continue
		}

		if m := folioRe.FindStringSubmatch(line); m != nil {
			currentFolio = m[1]
			continue
		}

		if m := txnNumericRe.FindStringSubmatch(line); m != nil {
			lot, err := p.buildLot(i+1, userID, jobID, currentFund, currentFolio, now,
				m[1], "", m[2], m[3], m[4], m[5])
			if err != nil {
				return nil, err
			}
			if lot != nil {
				lots = append(lots, lot)
			}
			continue
		}

		if m := txnMonthRe.FindStringSubmatch(line); m != nil {
			lot, err := p.buildLot(i+1, userID, jobID, currentFund, currentFolio, now,
				m[1], strings.TrimSpace(m[2]), m[3], m[4], m[5], m[6])
			if err != nil {
				return nil, err
			}
			if lot != nil {
				lots = append(lots, lot)
			}
			continue
		}

		if lot := p.parseFallbackRow(line, userID, jobID, currentFund, currentFolio, now); lot != nil {
			lots = append(lots, lot)
		}
	}

	if len(lots) == 0 {
		return nil, ErrNoTransactionsFound
	}

	p.logger.Info("statement parsed",
		zap.String("job_id", jobID.String()),
		zap.Int("lots", len(lots)),
	)

	return lots, nil
}

// buildLot assembles a lot from the captures of the two strict row patterns.
// A bad date on a matched row fails the whole parse; a bad numeric field
// only drops the row.
func (p *Parser) buildLot(
	lineNo int,
	userID, jobID uuid.UUID,
	currentFund, currentFolio string,
	now time.Time,
	dateStr, assetName, txnType, unitsStr, navStr, amountStr string,
) (*entities.Lot, error) {
	date, err := ParseTransactionDate(dateStr)
	if err != nil {
		return nil, &ParseError{Line: lineNo, Err: err}
	}

	units, err := parseAmount(unitsStr)
	if err == nil {
		var nav decimal.Decimal
		nav, err = parseAmount(navStr)
		if err == nil {
			var amount decimal.Decimal
			amount, err = parseAmount(amountStr)
			if err == nil {
				return &entities.Lot{
					UserID:          userID,
					JobID:           jobID,
					FundName:        resolveFundName(currentFund, assetName),
					FolioNumber:     optional(currentFolio),
					TransactionDate: date,
					TransactionType: strings.ToUpper(txnType),
					Units:           units,
					NAV:             nav,
					Amount:          amount,
					IsLongTerm:      isLongTerm(date, now),
				}, nil
			}
		}
	}

	p.logger.Debug("dropping transaction row with unparseable numbers",
		zap.Int("line", lineNo), zap.Error(err))
	return nil, nil
}

// parseFallbackRow handles rows the strict patterns miss: at least five
// whitespace-delimited columns whose first token is date-shaped. The second
// token is the transaction type and the last three are units, NAV and
// amount. Everything here is heuristic, so rows that fail to parse are
// silently skipped.
func (p *Parser) parseFallbackRow(
	line string,
	userID, jobID uuid.UUID,
	currentFund, currentFolio string,
	now time.Time,
) *entities.Lot {
	fields := strings.Fields(line)
	if len(fields) < 5 || !dateTokenRe.MatchString(fields[0]) {
		return nil
	}

	date, err := ParseTransactionDate(fields[0])
	if err != nil {
		return nil
	}

	n := len(fields)
	units, err := parseAmount(fields[n-3])
	if err != nil {
		return nil
	}
	nav, err := parseAmount(fields[n-2])
	if err != nil {
		return nil
	}
	amount, err := parseAmount(fields[n-1])
	if err != nil {
		return nil
	}

	return &entities.Lot{
		UserID:          userID,
		JobID:           jobID,
		FundName:        resolveFundName(currentFund, ""),
		FolioNumber:     optional(currentFolio),
		TransactionDate: date,
		TransactionType: strings.ToUpper(fields[1]),
		Units:           units,
		NAV:             nav,
		Amount:          amount,
		IsLongTerm:      isLongTerm(date, now),
	}
}

// normalizeLine collapses extraction artifacts: non-breaking spaces, bullet
// glyphs (and their common mojibake form) and runs of whitespace.
func normalizeLine(line string) string {
	line = strings.NewReplacer(
		"\u00a0", " ",
		"■", " ",
		"•", " ",
		"â– ", " ",
	).Replace(line)
	line = strings.TrimSpace(line)
	return spaceRunRe.ReplaceAllString(line, " ")
}

func isBoilerplate(line string) bool {
	for _, re := range headerRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// looksLikeFundName detects section headers like
// "HDFC TOP 100 FUND - DIRECT PLAN - GROWTH".
func looksLikeFundName(line string) bool {
	if len(line) < 6 || len(line) > 200 {
		return false
	}
	first := strings.Fields(line)[0]
	if dateTokenRe.MatchString(first) {
		return false
	}
	upper := strings.ToUpper(line)
	for _, kw := range fundKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func resolveFundName(currentFund, assetName string) string {
	if currentFund != "" {
		return currentFund
	}
	if assetName != "" {
		return assetName
	}
	return unknownFund
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

// isLongTerm reports whether the transaction is more than one calendar year
// old relative to the reference time.
func isLongTerm(date, now time.Time) bool {
	return date.Before(now.AddDate(-1, 0, 0))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
