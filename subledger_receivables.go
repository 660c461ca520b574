package ledger

// AR/AP sub-ledger (C5, §4.4). Each item carries customer/supplier, amount,
// date, and an outstanding balance; settlement consumes it partially or
// fully and emits a settlement voucher. Both books share one ReceivableItem
// shape and the same aging; bad-debt provisioning covers AR only.

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AccountCash        = "1001"
	AccountReceivable  = "1002"
	AccountPayable     = "2001"
	AccountBadDebtExp  = "5005"
	AccountProvisionAR = "1002" // contra-asset provision tracked on AR control account
)

// ReceivableItem is an AR or AP line item (Kind distinguishes the book).
type ReceivableItem struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"` // "AR" or "AP"
	PartyCode   string          `json:"party_code"` // customer or supplier dimension code
	Amount      decimal.Decimal `json:"amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	InvoiceDate time.Time       `json:"invoice_date"`
	VoucherID   string          `json:"voucher_id"`
}

type ReceivablesService struct {
	storage *Storage
	chart   *Chart
	submit  func(req VoucherRequest, userID string) (*Voucher, error)
	confirm func(id, userID string) (*Voucher, error)
}

func NewReceivablesService(storage *Storage, chart *Chart) *ReceivablesService {
	return &ReceivablesService{storage: storage, chart: chart}
}

func (rs *ReceivablesService) WireVoucherOps(
	submit func(req VoucherRequest, userID string) (*Voucher, error),
	confirm func(id, userID string) (*Voucher, error),
) {
	rs.submit = submit
	rs.confirm = confirm
}

// RecordInvoice opens an AR or AP item and posts its originating voucher:
// debit AR / credit revenue for AR, or debit expense / credit AP for AP.
func (rs *ReceivablesService) RecordInvoice(kind, partyCode, counterAccount string, amount decimal.Decimal, date time.Time, userID string) (*ReceivableItem, error) {
	item := &ReceivableItem{
		ID:          uuid.New().String(),
		Kind:        kind,
		PartyCode:   partyCode,
		Amount:      amount,
		Outstanding: amount,
		InvoiceDate: date,
	}

	var entries []VoucherEntry
	switch kind {
	case "AR":
		entries = []VoucherEntry{
			{AccountCode: AccountReceivable, Debit: amount, Credit: Zero, Dims: DimensionRefs{Customer: partyCode}},
			{AccountCode: counterAccount, Debit: Zero, Credit: amount, Dims: NoDimensions()},
		}
	case "AP":
		entries = []VoucherEntry{
			{AccountCode: counterAccount, Debit: amount, Credit: Zero, Dims: NoDimensions()},
			{AccountCode: AccountPayable, Debit: Zero, Credit: amount, Dims: DimensionRefs{Supplier: partyCode}},
		}
	default:
		return nil, fmt.Errorf("unknown sub-ledger kind %q", kind)
	}

	v, err := rs.postAndConfirm(entries, date, fmt.Sprintf("%s invoice for %s", kind, partyCode), userID)
	if err != nil {
		return nil, err
	}
	item.VoucherID = v.ID
	return item, rs.storage.saveReceivable(item)
}

// Settle consumes an item partially or fully and posts the settlement
// voucher (debit cash / credit AR for AR, or debit AP / credit cash for AP).
func (rs *ReceivablesService) Settle(itemID string, amount decimal.Decimal, date time.Time, userID string) (*Voucher, error) {
	item, err := rs.storage.getReceivable(itemID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(item.Outstanding) {
		amount = item.Outstanding
	}

	var entries []VoucherEntry
	switch item.Kind {
	case "AR":
		entries = []VoucherEntry{
			{AccountCode: AccountCash, Debit: amount, Credit: Zero, Dims: NoDimensions()},
			{AccountCode: AccountReceivable, Debit: Zero, Credit: amount, Dims: DimensionRefs{Customer: item.PartyCode}},
		}
	case "AP":
		entries = []VoucherEntry{
			{AccountCode: AccountPayable, Debit: amount, Credit: Zero, Dims: DimensionRefs{Supplier: item.PartyCode}},
			{AccountCode: AccountCash, Debit: Zero, Credit: amount, Dims: NoDimensions()},
		}
	}

	v, err := rs.postAndConfirm(entries, date, fmt.Sprintf("Settlement for %s", item.PartyCode), userID)
	if err != nil {
		return nil, err
	}

	item.Outstanding = RoundMoney(item.Outstanding.Sub(amount))
	if err := rs.storage.saveReceivable(item); err != nil {
		return nil, err
	}
	return v, nil
}

// AgingBucket is one of the four §4.4 buckets.
type AgingBucket string

const (
	Aging0to30   AgingBucket = "0-30"
	Aging31to60  AgingBucket = "31-60"
	Aging61to90  AgingBucket = "61-90"
	AgingOver90  AgingBucket = ">90"
)

// AgingReport buckets outstanding balances by days-past-invoice-date.
func (rs *ReceivablesService) AgingReport(kind string, asOf time.Time) (map[AgingBucket]decimal.Decimal, error) {
	items, err := rs.storage.allReceivables(kind)
	if err != nil {
		return nil, err
	}
	report := map[AgingBucket]decimal.Decimal{Aging0to30: Zero, Aging31to60: Zero, Aging61to90: Zero, AgingOver90: Zero}
	for _, item := range items {
		if item.Outstanding.IsZero() {
			continue
		}
		days := int(asOf.Sub(item.InvoiceDate).Hours() / 24)
		bucket := bucketFor(days)
		report[bucket] = report[bucket].Add(item.Outstanding)
	}
	return report, nil
}

func bucketFor(days int) AgingBucket {
	switch {
	case days <= 30:
		return Aging0to30
	case days <= 60:
		return Aging31to60
	case days <= 90:
		return Aging61to90
	default:
		return AgingOver90
	}
}

// ProvisionBadDebt applies configured per-bucket rates to AR aging buckets
// and posts a single provisioning voucher (debit bad-debt expense, credit
// AR control account) for the full computed provision. Each call posts the
// whole total again; it is not netted against earlier provisions and no
// reversal is posted when the required provision falls.
func (rs *ReceivablesService) ProvisionBadDebt(rates map[AgingBucket]decimal.Decimal, asOf time.Time, userID string) (*Voucher, decimal.Decimal, error) {
	aging, err := rs.AgingReport("AR", asOf)
	if err != nil {
		return nil, Zero, err
	}
	total := Zero
	for bucket, outstanding := range aging {
		rate, ok := rates[bucket]
		if !ok {
			continue
		}
		total = total.Add(RoundMoney(outstanding.Mul(rate)))
	}
	if total.IsZero() {
		return nil, Zero, nil
	}

	entries := []VoucherEntry{
		{AccountCode: AccountBadDebtExp, Debit: total, Credit: Zero, Dims: NoDimensions()},
		{AccountCode: AccountProvisionAR, Debit: Zero, Credit: total, Dims: NoDimensions()},
	}
	v, err := rs.postAndConfirm(entries, asOf, "Bad debt provision", userID)
	return v, total, err
}

func (rs *ReceivablesService) postAndConfirm(entries []VoucherEntry, date time.Time, desc, userID string) (*Voucher, error) {
	v, err := rs.submit(VoucherRequest{Date: date, Description: desc, EntryType: NormalEntry, Entries: entries}, userID)
	if err != nil {
		return nil, err
	}
	if v.Status == Draft {
		v.Status = Reviewed
		if err := rs.storage.SaveVoucher(v); err != nil {
			return nil, err
		}
	}
	return rs.confirm(v.ID, userID)
}
