package parser

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testParser() *Parser {
	reference := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	return NewWithClock(zap.NewNop(), func() time.Time { return reference })
}

func TestParseStatementWithFundSections(t *testing.T) {
	text := `Consolidated Account Statement

HDFC TOP 100 FUND - DIRECT PLAN - GROWTH
Folio: 1234567/89
01-01-2023 BUY 100 12.50 1,250
01-03-2024 SELL 50 15.00 750

---------

AXIS LIQUID FUND
05-Apr-24 Debt Purchase 10 1,000 10,000
`

	userID := uuid.New()
	jobID := uuid.New()

	lots, err := testParser().Parse(text, userID, jobID)
	require.NoError(t, err)
	require.Len(t, lots, 3)

	first := lots[0]
	assert.Equal(t, userID, first.UserID)
	assert.Equal(t, jobID, first.JobID)
	assert.Equal(t, "HDFC TOP 100 FUND - DIRECT PLAN - GROWTH", first.FundName)
	require.NotNil(t, first.FolioNumber)
	assert.Equal(t, "1234567/89", *first.FolioNumber)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), first.TransactionDate)
	assert.Equal(t, "BUY", first.TransactionType)
	assert.True(t, first.Units.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.NAV.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(1250)))
	assert.True(t, first.IsLongTerm)

	second := lots[1]
	assert.Equal(t, "SELL", second.TransactionType)
	assert.False(t, second.IsLongTerm)

	third := lots[2]
	assert.Equal(t, "AXIS LIQUID FUND", third.FundName)
	assert.Nil(t, third.FolioNumber)
	assert.Equal(t, "PURCHASE", third.TransactionType)
	assert.Equal(t, time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC), third.TransactionDate)
}

func TestParseIsDeterministic(t *testing.T) {
	text := `ICICI BLUECHIP FUND
01-01-2024 BUY 10 100 1,000
02-01-2024 BUY 20 101 2,020
`
	p := testParser()
	userID := uuid.New()
	jobID := uuid.New()

	first, err := p.Parse(text, userID, jobID)
	require.NoError(t, err)
	second, err := p.Parse(text, userID, jobID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, lot := range first {
		assert.Equal(t, uuid.Nil, lot.ID)
		assert.True(t, lot.CreatedAt.IsZero())
	}
}

func TestParseRecoversAssetNameWithoutSection(t *testing.T) {
	text := "05-Apr-24 Equity Buy 5 980 4,900\n"

	lots, err := testParser().Parse(text, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "Equity", lots[0].FundName)
	assert.Equal(t, "BUY", lots[0].TransactionType)
}

func TestParseUnknownFundSentinel(t *testing.T) {
	text := "01-02-2024 BUY 10 10 100\n"

	lots, err := testParser().Parse(text, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "UNKNOWN FUND", lots[0].FundName)
}

func TestParseSeparatorResetsSection(t *testing.T) {
	text := `SBI EQUITY FUND
01-02-2024 BUY 10 10 100
-----
01-03-2024 BUY 5 20 100
`

	lots, err := testParser().Parse(text, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "SBI EQUITY FUND", lots[0].FundName)
	assert.Equal(t, "UNKNOWN FUND", lots[1].FundName)
}

func TestParseFallbackRow(t *testing.T) {
	// Single digit day keeps the strict patterns from matching.
	text := "1-01-2024 PURCHASE VIA SIP 10 100 1,000\n"

	lots, err := testParser().Parse(text, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "PURCHASE", lots[0].TransactionType)
	assert.True(t, lots[0].Units.Equal(decimal.NewFromInt(10)))
	assert.True(t, lots[0].NAV.Equal(decimal.NewFromInt(100)))
	assert.True(t, lots[0].Amount.Equal(decimal.NewFromInt(1000)))
}

func TestParseFallbackSkipsBadRows(t *testing.T) {
	text := `1-01-2024 BUY junk junk junk
2-01-2024 BUY 10 100 1,000
`

	lots, err := testParser().Parse(text, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), lots[0].TransactionDate)
}

func TestParseBadDateOnStrictRowFails(t *testing.T) {
	text := `SBI EQUITY FUND
31-13-2024 BUY 100 12.50 1,250
`

	_, err := testParser().Parse(text, uuid.New(), uuid.New())
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, parseErr.Line)
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestParseNoTransactions(t *testing.T) {
	text := `Consolidated Account Statement
Statement Period: Jan 2024
Page 1 of 2
`

	_, err := testParser().Parse(text, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNoTransactionsFound)
}

func TestParseNormalizesExtractionArtifacts(t *testing.T) {
	text := "HDFC TOP 100 FUND\n01-01-2024   BUY   10   10   100\n"

	lots, err := testParser().Parse(text, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "HDFC TOP 100 FUND", lots[0].FundName)
}
