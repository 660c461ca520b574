package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// P3: assets = liabilities + equity for every period, unclosed P&L included.
// P4: operating + investing + financing cash reconciles to the period's
// change in cash.
func TestLedgerReportIdentityAndCashReconcile(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	date := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)

	submitAndConfirm(t, engine, VoucherRequest{
		Date:        date,
		Description: "Loan proceeds",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(500), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "2002", Debit: Zero, Credit: decimal.NewFromInt(500), Dims: NoDimensions()},
		},
	}, userID)
	submitAndConfirm(t, engine, VoucherRequest{
		Date:        date,
		Description: "Cash sale",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(800), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "4000", Debit: Zero, Credit: decimal.NewFromInt(800), Dims: NoDimensions()},
		},
	}, userID)
	submitAndConfirm(t, engine, VoucherRequest{
		Date:        date,
		Description: "Cash expense",
		Entries: []VoucherEntry{
			{AccountCode: "5000", Debit: decimal.NewFromInt(300), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "1001", Debit: Zero, Credit: decimal.NewFromInt(300), Dims: NoDimensions()},
		},
	}, userID)

	report, err := engine.Statements.Generate(&StatementMapping{}, "2025-06")
	require.NoError(t, err)

	assert.True(t, report.IsBalanced, "balance_diff=%s", report.BalanceDiff.String())
	assert.True(t, report.BalanceDiff.IsZero())

	assert.True(t, report.CashReconciled, "cash_diff=%s", report.CashDiff.String())
	assert.True(t, report.CashDiff.IsZero())

	assert.True(t, report.CashFlowStatement["operating"].Equal(decimal.NewFromInt(500)))
	assert.True(t, report.CashFlowStatement["financing"].Equal(decimal.NewFromInt(500)))
	assert.True(t, report.CashFlowStatement["investing"].IsZero())
	assert.True(t, report.CashFlowStatement["net_change_in_cash"].Equal(decimal.NewFromInt(1000)))
}
