package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 7: FX revaluation.
func TestFXRevaluation(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	bookDate := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	submitAndConfirm(t, engine, VoucherRequest{
		Date:        bookDate,
		Description: "Foreign cash deposit",
		Entries: []VoucherEntry{
			{AccountCode: "1122", Debit: decimal.NewFromInt(700), Credit: Zero, CurrencyCode: "USD", ForeignDebit: decimal.NewFromInt(100), Dims: NoDimensions()},
			{AccountCode: "3001", Debit: Zero, Credit: decimal.NewFromInt(700), Dims: NoDimensions()},
		},
	}, userID)

	vouchers, err := engine.FX.RevalueAccount("1122", "2025-05", decimal.NewFromFloat(7.2), userID)
	require.NoError(t, err)
	require.Len(t, vouchers, 1)

	var gain decimal.Decimal
	for _, e := range vouchers[0].Entries {
		if e.AccountCode == FXGainAccount {
			gain = e.Credit
		}
	}
	assert.True(t, gain.Equal(decimal.NewFromInt(20)))

	bal, err := engine.AccountBalance("1122", "2025-05", NoDimensions())
	require.NoError(t, err)
	assert.True(t, bal.Closing.Equal(decimal.NewFromInt(720)))
	assert.True(t, bal.ForeignClosing.Equal(decimal.NewFromInt(100)))
}
