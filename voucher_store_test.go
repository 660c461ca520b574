package ledger

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *LedgerEngine {
	t.Helper()
	dbFile := "test_" + t.Name() + ".db"
	dbFile = sanitizeFileName(dbFile)
	engine, err := NewLedgerEngine(dbFile)
	require.NoError(t, err)
	t.Cleanup(func() {
		engine.Close()
		os.Remove(dbFile)
	})
	return engine
}

func sanitizeFileName(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '/' {
			c = '_'
		}
		out[i] = c
	}
	return string(out)
}

// Scenario 1: minimal balanced voucher.
func TestMinimalBalancedVoucher(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	v, err := engine.Vouchers.Submit(VoucherRequest{
		Date:        date,
		Description: "Minimal voucher",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(1000), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "1002", Debit: Zero, Credit: decimal.NewFromInt(1000), Dims: NoDimensions()},
		},
	}, userID)
	require.NoError(t, err)

	_, err = engine.Vouchers.Review(v.ID)
	require.NoError(t, err)
	v, err = engine.Vouchers.Confirm(v.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, v.Status)

	cash, err := engine.AccountBalance("1001", "2025-01", NoDimensions())
	require.NoError(t, err)
	assert.True(t, cash.Closing.Equal(decimal.NewFromInt(1000)))

	ar, err := engine.AccountBalance("1002", "2025-01", NoDimensions())
	require.NoError(t, err)
	assert.True(t, ar.Closing.Equal(decimal.NewFromInt(-1000)))
}

// Scenario 2: red-letter reversal.
func TestVoidReversal(t *testing.T) {
	engine := newTestEngine(t)
	userID := "test_user"
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	v, err := engine.Vouchers.Submit(VoucherRequest{
		Date:        date,
		Description: "Minimal voucher",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(1000), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "1002", Debit: Zero, Credit: decimal.NewFromInt(1000), Dims: NoDimensions()},
		},
	}, userID)
	require.NoError(t, err)
	_, err = engine.Vouchers.Review(v.ID)
	require.NoError(t, err)
	v, err = engine.Vouchers.Confirm(v.ID, userID)
	require.NoError(t, err)

	reversal, err := engine.Vouchers.Void(v.ID, "test void", userID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, reversal.VoidOf)

	cash, err := engine.AccountBalance("1001", "2025-01", NoDimensions())
	require.NoError(t, err)
	assert.True(t, cash.Closing.IsZero())

	ar, err := engine.AccountBalance("1002", "2025-01", NoDimensions())
	require.NoError(t, err)
	assert.True(t, ar.Closing.IsZero())

	links, err := engine.storage.AllVoidLinks()
	require.NoError(t, err)
	assert.Len(t, links, 1)
	assert.Equal(t, v.ID, links[0].OriginalVoucherID)
	assert.Equal(t, reversal.ID, links[0].VoidVoucherID)

	original, err := engine.storage.GetVoucher(v.ID)
	require.NoError(t, err)
	assert.Equal(t, Voided, original.Status)
}

// P1: every persisted voucher balances within tolerance.
func TestVoucherMustBalance(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.Vouchers.Submit(VoucherRequest{
		Date:        time.Now(),
		Description: "Unbalanced",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(1000), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "1002", Debit: Zero, Credit: decimal.NewFromInt(999), Dims: NoDimensions()},
		},
	}, "test_user")
	require.Error(t, err)
	ledgerErr, ok := AsLedgerError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotBalanced, ledgerErr.Code)
}

// P7: idempotent resubmission by source_event_id.
func TestSubmitIdempotentBySourceEvent(t *testing.T) {
	engine := newTestEngine(t)
	req := VoucherRequest{
		Date:          time.Now(),
		Description:   "Idempotent",
		SourceEventID: "evt-123",
		Entries: []VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(500), Credit: Zero, Dims: NoDimensions()},
			{AccountCode: "1002", Debit: Zero, Credit: decimal.NewFromInt(500), Dims: NoDimensions()},
		},
	}
	first, err := engine.Vouchers.Submit(req, "test_user")
	require.NoError(t, err)

	second, err := engine.Vouchers.Submit(req, "test_user")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := engine.storage.AllVouchers()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
