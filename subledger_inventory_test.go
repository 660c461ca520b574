package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 8: FIFO inventory issue.
func TestFIFOInventoryIssue(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	when := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, engine.Inventory.RegisterItem(&InventoryItem{
		SKU:            "widget-1",
		InventoryAcct:  "1003",
		COGSAcct:       "5000",
		Method:         CostFIFO,
		NegativePolicy: NegativeReject,
	}))

	_, err := engine.Inventory.Receive("widget-1", decimal.NewFromInt(10), decimal.NewFromFloat(10.00), when, userID)
	require.NoError(t, err)
	_, err = engine.Inventory.Receive("widget-1", decimal.NewFromInt(5), decimal.NewFromFloat(12.00), when.Add(time.Hour), userID)
	require.NoError(t, err)

	_, cogs, err := engine.Inventory.Issue("widget-1", decimal.NewFromInt(12), when, userID)
	require.NoError(t, err)
	assert.True(t, cogs.Equal(decimal.NewFromInt(124)), "expected COGS 124, got %s", cogs.String())

	batches, err := engine.storage.batchesForSKU("widget-1")
	require.NoError(t, err)
	remaining := Zero
	for _, b := range batches {
		remaining = remaining.Add(b.Remaining)
	}
	assert.True(t, remaining.Equal(decimal.NewFromInt(3)))

	item, found, err := engine.storage.getInventoryItem("widget-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, item.QuantityOnHand.Equal(decimal.NewFromInt(3)))
}

// NegativeReject policy refuses an issue that would drive quantity below zero.
func TestInventoryNegativeRejected(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	when := time.Now()

	require.NoError(t, engine.Inventory.RegisterItem(&InventoryItem{
		SKU:            "widget-2",
		InventoryAcct:  "1003",
		COGSAcct:       "5000",
		Method:         CostMovingAverage,
		NegativePolicy: NegativeReject,
	}))
	_, err := engine.Inventory.Receive("widget-2", decimal.NewFromInt(2), decimal.NewFromInt(5), when, userID)
	require.NoError(t, err)

	_, _, err = engine.Inventory.Issue("widget-2", decimal.NewFromInt(5), when, userID)
	require.Error(t, err)
	ledgerErr, ok := AsLedgerError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNegativeInventory, ledgerErr.Code)
}
