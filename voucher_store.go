package ledger

// Voucher Store (C2): submit/review/unreview/confirm/void/delete/lookup
// over the draft -> reviewed -> confirmed -> voided lifecycle (§4.1).
// Admission rules run at submit time; confirm hands off to the Balance
// Engine. The voucher, its balance rows and its journal events are written
// in separate bbolt transactions, one per save, not in a single transaction.

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VoucherStore is the C2 component.
type VoucherStore struct {
	storage  *Storage
	events   *EventStore
	chart    *Chart
	periods  *PeriodEngine
	balances *BalanceEngine
	numbers  *voucherNumberer
}

func NewVoucherStore(storage *Storage, events *EventStore, chart *Chart, periods *PeriodEngine, balances *BalanceEngine) *VoucherStore {
	return &VoucherStore{
		storage:  storage,
		events:   events,
		chart:    chart,
		periods:  periods,
		balances: balances,
		numbers:  newVoucherNumberer(storage),
	}
}

// derivePeriod renders a date as its YYYY-MM period key.
func derivePeriod(t time.Time) string {
	return t.Format("2006-01")
}

// validateBalanced enforces the §4.1 balance check and returns the signed
// difference for diagnostics.
func validateBalanced(entries []VoucherEntry) error {
	debitTotal, creditTotal := Zero, Zero
	for _, e := range entries {
		debitTotal = debitTotal.Add(e.Debit)
		creditTotal = creditTotal.Add(e.Credit)
	}
	diff := debitTotal.Sub(creditTotal)
	if !WithinTolerance(diff) {
		return NewError(CodeNotBalanced, "voucher does not balance",
			"debit_total", debitTotal.String(), "credit_total", creditTotal.String(), "difference", diff.String())
	}
	return nil
}

// validateEntries enforces the §3/§4.1 account-existence and dimension
// checks for every entry line.
func (vs *VoucherStore) validateEntries(entries []VoucherEntry) error {
	for _, e := range entries {
		if _, err := vs.chart.RequireEnabledAccount(e.AccountCode); err != nil {
			return err
		}
		if err := vs.chart.RequireDimensions(e.Dims); err != nil {
			return err
		}
	}
	return nil
}

// Submit runs the §4.1 admission rules and persists a draft voucher.
// Idempotent on SourceEventID: a repeat submission returns the prior
// voucher unchanged (P7).
func (vs *VoucherStore) Submit(req VoucherRequest, userID string) (*Voucher, error) {
	if req.SourceEventID != "" {
		if existing, err := vs.storage.FindVoucherBySourceEvent(req.SourceEventID); err != nil {
			return nil, err
		} else if existing != nil {
			return existing, nil
		}
	}

	if err := validateBalanced(req.Entries); err != nil {
		return nil, err
	}
	if err := vs.validateEntries(req.Entries); err != nil {
		return nil, err
	}

	entryType := req.EntryType
	if entryType == "" {
		entryType = NormalEntry
	}
	period := derivePeriod(req.Date)
	if err := vs.periods.CheckAdmission(period, entryType); err != nil {
		return nil, err
	}

	for i := range req.Entries {
		req.Entries[i].LineNo = i + 1
	}

	v := &Voucher{
		ID:             uuid.New().String(),
		Date:           req.Date,
		Period:         period,
		Description:    req.Description,
		Status:         Draft,
		EntryType:      entryType,
		SourceTemplate: req.SourceTemplate,
		SourceEventID:  req.SourceEventID,
		Entries:        req.Entries,
		CreatedAt:      time.Now(),
	}

	if _, err := vs.events.CreateEvent(EventSubmitVoucher, VoucherSubmittedEvent{Voucher: v}, v.Date, userID); err != nil {
		return nil, err
	}
	if err := vs.storage.SaveVoucher(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Review transitions draft -> reviewed.
func (vs *VoucherStore) Review(id string) (*Voucher, error) {
	v, err := vs.storage.GetVoucher(id)
	if err != nil {
		return nil, err
	}
	if v.Status != Draft {
		return nil, NewError(CodeVoucherNotReviewed, "voucher is not a draft", "voucher_id", id, "status", string(v.Status))
	}
	v.Status = Reviewed
	return v, vs.storage.SaveVoucher(v)
}

// Unreview transitions reviewed -> draft.
func (vs *VoucherStore) Unreview(id string) (*Voucher, error) {
	v, err := vs.storage.GetVoucher(id)
	if err != nil {
		return nil, err
	}
	if v.Status != Reviewed {
		return nil, NewError(CodeVoucherNotReviewed, "voucher is not reviewed", "voucher_id", id, "status", string(v.Status))
	}
	v.Status = Draft
	return v, vs.storage.SaveVoucher(v)
}

// Delete removes a draft voucher. Permitted only from draft (§4.1).
func (vs *VoucherStore) Delete(id string) error {
	v, err := vs.storage.GetVoucher(id)
	if err != nil {
		return err
	}
	if v.Status != Draft {
		return NewError(CodeVoucherNotReviewed, "only draft vouchers may be deleted", "voucher_id", id, "status", string(v.Status))
	}
	return vs.storage.DeleteVoucher(id)
}

// Confirm transitions reviewed -> confirmed, assigns the voucher number if
// not yet assigned, and applies the posting to the Balance Engine — all
// within the same logical operation (§5).
func (vs *VoucherStore) Confirm(id string, userID string) (*Voucher, error) {
	v, err := vs.storage.GetVoucher(id)
	if err != nil {
		return nil, err
	}
	if v.Status != Reviewed {
		return nil, NewError(CodeVoucherNotReviewed, "voucher must be reviewed before confirm", "voucher_id", id, "status", string(v.Status))
	}
	// Re-check period admission: it may have closed between review and confirm.
	if err := vs.periods.CheckAdmission(v.Period, v.EntryType); err != nil {
		return nil, err
	}

	if v.Number == "" {
		num, err := vs.numbers.next(v.Date)
		if err != nil {
			return nil, err
		}
		v.Number = num
	}
	now := time.Now()
	v.Status = Confirmed
	v.ConfirmedAt = &now

	if err := vs.balances.Apply(v); err != nil {
		return nil, err
	}
	if err := vs.storage.SaveVoucher(v); err != nil {
		return nil, err
	}
	if _, err := vs.events.CreateEvent(EventConfirmVoucher, VoucherConfirmedEvent{VoucherID: v.ID, ConfirmedAt: now}, v.Date, userID); err != nil {
		return nil, err
	}
	return v, nil
}

// Void produces a confirmed red-letter reversal of a confirmed voucher,
// updates balances symmetrically (P6), and marks the original voided but
// retained (§4.1).
func (vs *VoucherStore) Void(id, reason, userID string) (*Voucher, error) {
	original, err := vs.storage.GetVoucher(id)
	if err != nil {
		return nil, err
	}
	if original.Status != Confirmed {
		return nil, NewError(CodeVoidConfirmed, "only confirmed vouchers may be voided", "voucher_id", id, "status", string(original.Status))
	}

	// Open Question resolution (§9): void against a closed period is
	// rejected unless the target period admits adjustment entries.
	if err := vs.periods.CheckAdmission(original.Period, AdjustmentEntry); err != nil {
		return nil, err
	}

	reversed := make([]VoucherEntry, len(original.Entries))
	for i, e := range original.Entries {
		r := e
		r.Debit, r.Credit = e.Credit, e.Debit
		r.ForeignDebit, r.ForeignCredit = e.ForeignCredit, e.ForeignDebit
		reversed[i] = r
	}

	now := time.Now()
	reversal := &Voucher{
		ID:          uuid.New().String(),
		Date:        original.Date,
		Period:      original.Period,
		Description: fmt.Sprintf("Reversal of %s: %s", original.Number, reason),
		Status:      Confirmed,
		EntryType:   AdjustmentEntry,
		VoidOf:      original.ID,
		VoidReason:  reason,
		Entries:     reversed,
		CreatedAt:   now,
		ConfirmedAt: &now,
	}
	num, err := vs.numbers.next(reversal.Date)
	if err != nil {
		return nil, err
	}
	reversal.Number = num

	if err := vs.balances.Apply(reversal); err != nil {
		return nil, err
	}
	if err := vs.storage.SaveVoucher(reversal); err != nil {
		return nil, err
	}

	original.Status = Voided
	original.VoidedAt = &now
	if err := vs.storage.SaveVoucher(original); err != nil {
		return nil, err
	}

	link := &VoidLink{
		ID:                uuid.New().String(),
		OriginalVoucherID: original.ID,
		VoidVoucherID:     reversal.ID,
		Reason:            reason,
		CreatedAt:         now,
	}
	if err := vs.storage.SaveVoidLink(link); err != nil {
		return nil, err
	}
	if _, err := vs.events.CreateEvent(EventVoidVoucher, VoucherVoidedEvent{
		OriginalVoucherID: original.ID, ReversalVoucherID: reversal.ID, Reason: reason, VoidedAt: now,
	}, reversal.Date, userID); err != nil {
		return nil, err
	}

	return reversal, nil
}

// Lookup finds vouchers matching f.
func (vs *VoucherStore) Lookup(f VoucherFilter) ([]*Voucher, error) {
	return vs.storage.LookupVouchers(f)
}

// voucherNumberer assigns V<YYYYMMDD><3-digit-seq> numbers, per-day
// monotonic and never reused (§3, §4.1).
type voucherNumberer struct {
	storage *Storage
}

func newVoucherNumberer(storage *Storage) *voucherNumberer {
	return &voucherNumberer{storage: storage}
}

func (n *voucherNumberer) next(date time.Time) (string, error) {
	prefix := "V" + date.Format("20060102")
	all, err := n.storage.AllVouchers()
	if err != nil {
		return "", err
	}
	seq := 0
	for _, v := range all {
		if v.Number != "" && len(v.Number) >= len(prefix) && v.Number[:len(prefix)] == prefix {
			seq++
		}
	}
	seq++
	return fmt.Sprintf("%s%03d", prefix, seq), nil
}
