package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitAndConfirm(t *testing.T, engine *LedgerEngine, req VoucherRequest, userID string) *Voucher {
	t.Helper()
	v, err := engine.Vouchers.Submit(req, userID)
	require.NoError(t, err)
	_, err = engine.Vouchers.Review(v.ID)
	require.NoError(t, err)
	v, err = engine.Vouchers.Confirm(v.ID, userID)
	require.NoError(t, err)
	return v
}

// Scenario 3: period close with income statement.
func TestPeriodCloseProducesClosingVoucher(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	submitAndConfirm(t, engine, VoucherRequest{
		Date:        date,
		Description: "Revenue",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(50000), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "4000", Debit: Zero, Credit: decimal.NewFromInt(50000), Dims: NoDimensions()},
		},
	}, userID)
	submitAndConfirm(t, engine, VoucherRequest{
		Date:        date,
		Description: "Cost",
		Entries: []VoucherEntry{
			{AccountCode: "5000", Debit: decimal.NewFromInt(30000), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "1001", Debit: Zero, Credit: decimal.NewFromInt(30000), Dims: NoDimensions()},
		},
	}, userID)

	template := &ClosingTemplate{
		Code:              "pl_to_retained",
		Name:              "P&L to retained earnings",
		Sources:           AccountSelector{AccountTypes: []AccountType{Revenue, Expense}},
		TargetAccountCode: "3002",
		Active:            true,
	}

	vouchers, err := engine.ClosePeriod("2025-01", []*ClosingTemplate{template}, userID)
	require.NoError(t, err)
	require.Len(t, vouchers, 1)

	closing := vouchers[0]
	var debitRevenue, creditCost, creditRetained decimal.Decimal
	for _, e := range closing.Entries {
		switch e.AccountCode {
		case "4000":
			debitRevenue = e.Debit
		case "5000":
			creditCost = e.Credit
		case "3002":
			creditRetained = e.Credit
		}
	}
	assert.True(t, debitRevenue.Equal(decimal.NewFromInt(50000)))
	assert.True(t, creditCost.Equal(decimal.NewFromInt(30000)))
	assert.True(t, creditRetained.Equal(decimal.NewFromInt(20000)))

	nextOpening, err := engine.AccountBalance("3002", "2025-02", NoDimensions())
	require.NoError(t, err)
	assert.True(t, nextOpening.Opening.Equal(decimal.NewFromInt(20000)))
}

// P2: rebuild-by-replay reproduces the persisted balance index exactly.
func TestRebuildMatchesLiveBalances(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	date := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	submitAndConfirm(t, engine, VoucherRequest{
		Date:        date,
		Description: "Sale",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(200), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "4000", Debit: Zero, Credit: decimal.NewFromInt(200), Dims: NoDimensions()},
		},
	}, userID)

	mismatches, err := engine.Balances.VerifyAgainstRebuild()
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

// P5: opening balance of P+1 equals closing balance of P after rollover.
func TestPeriodContinuityAfterRollover(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	submitAndConfirm(t, engine, VoucherRequest{
		Date:        date,
		Description: "Cash deposit",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(400), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "3001", Debit: Zero, Credit: decimal.NewFromInt(400), Dims: NoDimensions()},
		},
	}, userID)

	require.NoError(t, engine.Balances.Rollover("2025-03"))

	march, err := engine.AccountBalance("1001", "2025-03", NoDimensions())
	require.NoError(t, err)
	april, err := engine.AccountBalance("1001", "2025-04", NoDimensions())
	require.NoError(t, err)
	assert.True(t, april.Opening.Equal(march.Closing))
}

// P6: void symmetry — a voucher and its reversal sum to the zero vector.
func TestVoidSymmetry(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	date := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	v := submitAndConfirm(t, engine, VoucherRequest{
		Date:        date,
		Description: "Deposit",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(300), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "3001", Debit: Zero, Credit: decimal.NewFromInt(300), Dims: NoDimensions()},
		},
	}, userID)

	_, err := engine.Vouchers.Void(v.ID, "reversal test", userID)
	require.NoError(t, err)

	cash, err := engine.AccountBalance("1001", "2025-04", NoDimensions())
	require.NoError(t, err)
	equity, err := engine.AccountBalance("3001", "2025-04", NoDimensions())
	require.NoError(t, err)
	assert.True(t, cash.Closing.IsZero())
	assert.True(t, equity.Closing.IsZero())
}
