package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// P10: the sum of AR aging buckets equals the AR control account's
// outstanding balance, regardless of how invoices land across buckets.
func TestAgingBucketsSumToControlAccount(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	require.NoError(t, engine.Chart.AddDimension(&Dimension{Type: DimCustomer, Code: "cust1", Name: "cust1"}))
	require.NoError(t, engine.Chart.AddDimension(&Dimension{Type: DimCustomer, Code: "cust2", Name: "cust2"}))

	_, err := engine.Receivables.RecordInvoice("AR", "cust1", "4000", decimal.NewFromInt(1000),
		time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), userID)
	require.NoError(t, err)
	_, err = engine.Receivables.RecordInvoice("AR", "cust2", "4000", decimal.NewFromInt(400),
		time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), userID)
	require.NoError(t, err)

	asOf := time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)
	aging, err := engine.Receivables.AgingReport("AR", asOf)
	require.NoError(t, err)

	agingTotal := Zero
	for _, amount := range aging {
		agingTotal = agingTotal.Add(amount)
	}
	assert.True(t, agingTotal.Equal(decimal.NewFromInt(1400)), "expected 1400, got %s", agingTotal.String())

	history, err := engine.AccountHistory("1002")
	require.NoError(t, err)
	controlTotal := Zero
	for _, bal := range history {
		controlTotal = controlTotal.Add(bal.Closing)
	}
	assert.True(t, controlTotal.Equal(agingTotal), "control account total %s should equal aging total %s", controlTotal.String(), agingTotal.String())
}

// Settlement reduces both the item's outstanding balance and the AR control
// account by the settled amount.
func TestSettlementReducesOutstandingAndControl(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	date := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, engine.Chart.AddDimension(&Dimension{Type: DimCustomer, Code: "cust3", Name: "cust3"}))

	item, err := engine.Receivables.RecordInvoice("AR", "cust3", "4000", decimal.NewFromInt(600), date, userID)
	require.NoError(t, err)

	_, err = engine.Receivables.Settle(item.ID, decimal.NewFromInt(250), date, userID)
	require.NoError(t, err)

	updated, err := engine.storage.getReceivable(item.ID)
	require.NoError(t, err)
	assert.True(t, updated.Outstanding.Equal(decimal.NewFromInt(350)))

	ar, err := engine.AccountBalance("1002", "2025-08", DimensionRefs{Customer: "cust3"})
	require.NoError(t, err)
	assert.True(t, ar.Closing.Equal(decimal.NewFromInt(350)))
}
