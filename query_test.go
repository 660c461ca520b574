package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrialBalanceSplitsByNormalSide(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	submitAndConfirm(t, engine, VoucherRequest{
		Date:        date,
		Description: "Cash sale",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(900), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "4000", Debit: Zero, Credit: decimal.NewFromInt(900), Dims: NoDimensions()},
		},
	}, userID)

	rows, err := engine.TrialBalance("2025-09")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byCode := map[string]TrialBalanceRow{}
	for _, r := range rows {
		byCode[r.AccountCode] = r
	}

	cash := byCode["1001"]
	assert.True(t, cash.Debit.Equal(decimal.NewFromInt(900)))
	assert.True(t, cash.Credit.IsZero())

	revenue := byCode["4000"]
	assert.True(t, revenue.Credit.Equal(decimal.NewFromInt(900)))
	assert.True(t, revenue.Debit.IsZero())
}

func TestAccountsBySelectorFiltersByType(t *testing.T) {
	engine := newTestEngine(t)
	accounts, err := engine.AccountsBySelector(AccountSelector{AccountTypes: []AccountType{Revenue}})
	require.NoError(t, err)
	for _, a := range accounts {
		assert.Equal(t, Revenue, a.Type)
	}
	assert.NotEmpty(t, accounts)
}
