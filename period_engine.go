package ledger

// Period & Closing Engine (C4): governs per-period status, runs the close
// operation against active closing templates, and reverses on reopen
// (§4.3).

import (
	"fmt"
	"time"
)

func parsePeriod(period string) (time.Time, error) {
	return time.Parse("2006-01", period)
}

// PeriodEngine owns period lifecycle and write-admission rules.
type PeriodEngine struct {
	storage  *Storage
	chart    *Chart
	balances *BalanceEngine
	// submit lets the closing engine synthesize closing vouchers without an
	// import cycle back to VoucherStore; wired by Engine at construction.
	submit func(req VoucherRequest, userID string) (*Voucher, error)
	confirm func(id, userID string) (*Voucher, error)
	void    func(id, reason, userID string) (*Voucher, error)
}

func NewPeriodEngine(storage *Storage, chart *Chart, balances *BalanceEngine) *PeriodEngine {
	return &PeriodEngine{storage: storage, chart: chart, balances: balances}
}

// WireVoucherOps lets Engine hand the period engine the voucher-lifecycle
// closures it needs to post closing/reopen entries, avoiding an import
// cycle between period_engine.go and voucher_store.go.
func (pe *PeriodEngine) WireVoucherOps(
	submit func(req VoucherRequest, userID string) (*Voucher, error),
	confirm func(id, userID string) (*Voucher, error),
	void func(id, reason, userID string) (*Voucher, error),
) {
	pe.submit = submit
	pe.confirm = confirm
	pe.void = void
}

// getOrCreate returns the Period row, defaulting to "open" if never seen.
func (pe *PeriodEngine) getOrCreate(period string) (*Period, error) {
	p, found, err := pe.storage.GetPeriod(period)
	if err != nil {
		return nil, err
	}
	if !found {
		now := time.Now()
		p = &Period{Period: period, Status: PeriodOpen, OpenedAt: &now}
		if err := pe.storage.SavePeriod(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// CheckAdmission enforces §4.1's period admission rule for a voucher of the
// given entry kind being posted into period.
func (pe *PeriodEngine) CheckAdmission(period string, kind EntryKind) error {
	p, err := pe.getOrCreate(period)
	if err != nil {
		return err
	}
	switch p.Status {
	case PeriodClosed:
		return NewError(CodePeriodClosed, "period is closed", "period", period)
	case PeriodAdjustment:
		if kind != AdjustmentEntry {
			return NewError(CodePeriodAdjustOnly, "period only admits adjustment entries", "period", period)
		}
	case PeriodOpen:
		// both normal and adjustment entries admitted
	}
	return nil
}

// SetAdjustment transitions open -> adjustment.
func (pe *PeriodEngine) SetAdjustment(period string) error {
	p, err := pe.getOrCreate(period)
	if err != nil {
		return err
	}
	if p.Status != PeriodOpen {
		return NewError(CodePeriodClosed, "period must be open to enter adjustment mode", "period", period)
	}
	p.Status = PeriodAdjustment
	return pe.storage.SavePeriod(p)
}

// Close runs the §4.3 close operation: verify, apply closing templates,
// roll balances forward, mark closed.
func (pe *PeriodEngine) Close(period string, templates []*ClosingTemplate, userID string) ([]*Voucher, error) {
	p, err := pe.getOrCreate(period)
	if err != nil {
		return nil, err
	}
	if p.Status == PeriodClosed {
		return nil, NewError(CodePeriodClosed, "period already closed", "period", period)
	}

	// 1. Sanity: every confirmed voucher in the period must already be
	// balanced (enforced at Submit time; re-verify defensively here).
	vouchers, err := pe.storage.LookupVouchers(VoucherFilter{Period: period, Status: Confirmed})
	if err != nil {
		return nil, err
	}
	for _, v := range vouchers {
		if err := validateBalanced(v.Entries); err != nil {
			return nil, NewError(CodeNotBalanced, "confirmed voucher failed close-time balance check", "voucher_id", v.ID)
		}
	}

	// 2-3. Evaluate and submit each active closing template.
	var closingVouchers []*Voucher
	for _, tmpl := range templates {
		if !tmpl.Active {
			continue
		}
		v, err := pe.applyClosingTemplate(tmpl, period, userID)
		if err != nil {
			return nil, err
		}
		if v != nil {
			closingVouchers = append(closingVouchers, v)
		}
	}

	// 4. Roll balances into P+1.
	if err := pe.balances.Rollover(period); err != nil {
		return nil, err
	}

	// 5. Mark closed.
	now := time.Now()
	p.Status = PeriodClosed
	p.ClosedAt = &now
	if err := pe.storage.SavePeriod(p); err != nil {
		return nil, err
	}

	return closingVouchers, nil
}

// applyClosingTemplate selects matching balances, builds a balanced voucher
// by construction (flatten sources into the target), and submits+confirms
// it with entry_type=normal and source_template set (§4.3).
func (pe *PeriodEngine) applyClosingTemplate(tmpl *ClosingTemplate, period, userID string) (*Voucher, error) {
	accounts, err := pe.storage.AllAccounts()
	if err != nil {
		return nil, err
	}

	var entries []VoucherEntry
	total := Zero
	for _, a := range accounts {
		if !matchesSelector(tmpl.Sources, a) {
			continue
		}
		rows, err := pe.storage.BalancesForAccount(a.Code)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.Period != period || row.Closing.IsZero() {
				continue
			}
			// Flatten this source account's closing balance into the
			// target: debit/credit it to zero, same-signed as its normal
			// side, and accumulate the opposite side on the target.
			if a.NormalSide == CreditSide {
				if row.Closing.IsPositive() {
					entries = append(entries, VoucherEntry{AccountCode: a.Code, Debit: row.Closing, Credit: Zero, Dims: row.Dims})
					total = total.Add(row.Closing)
				} else if row.Closing.IsNegative() {
					entries = append(entries, VoucherEntry{AccountCode: a.Code, Debit: Zero, Credit: row.Closing.Abs(), Dims: row.Dims})
					total = total.Sub(row.Closing.Abs())
				}
			} else {
				if row.Closing.IsPositive() {
					entries = append(entries, VoucherEntry{AccountCode: a.Code, Debit: Zero, Credit: row.Closing, Dims: row.Dims})
					total = total.Sub(row.Closing)
				} else if row.Closing.IsNegative() {
					entries = append(entries, VoucherEntry{AccountCode: a.Code, Debit: row.Closing.Abs(), Credit: Zero, Dims: row.Dims})
					total = total.Add(row.Closing.Abs())
				}
			}
		}
	}

	if len(entries) == 0 {
		return nil, nil
	}

	target, err := pe.chart.RequireEnabledAccount(tmpl.TargetAccountCode)
	if err != nil {
		return nil, err
	}
	if target.NormalSide == CreditSide {
		if total.IsPositive() {
			entries = append(entries, VoucherEntry{AccountCode: target.Code, Debit: Zero, Credit: total, Dims: NoDimensions()})
		} else if total.IsNegative() {
			entries = append(entries, VoucherEntry{AccountCode: target.Code, Debit: total.Abs(), Credit: Zero, Dims: NoDimensions()})
		}
	} else {
		if total.IsPositive() {
			entries = append(entries, VoucherEntry{AccountCode: target.Code, Debit: total, Credit: Zero, Dims: NoDimensions()})
		} else if total.IsNegative() {
			entries = append(entries, VoucherEntry{AccountCode: target.Code, Debit: Zero, Credit: total.Abs(), Dims: NoDimensions()})
		}
	}

	if err := validateBalanced(entries); err != nil {
		return nil, NewError(CodeTemplateUnbalanced, "closing template produced an unbalanced voucher", "template_code", tmpl.Code)
	}

	date, err := parsePeriod(period)
	if err != nil {
		return nil, err
	}
	// Post on the last day of the period, per §3's VoidLink convention of
	// "same date or first legal date" — here the natural close date.
	date = date.AddDate(0, 1, -1)

	req := VoucherRequest{
		Date:           date,
		Description:    renderTemplate(tmpl.DescriptionTmpl, period),
		EntryType:      NormalEntry,
		SourceTemplate: tmpl.Code,
		Entries:        entries,
	}
	v, err := pe.submit(req, userID)
	if err != nil {
		return nil, err
	}
	if v.Status == Draft {
		if _, err := pe.review(v.ID); err != nil {
			return nil, err
		}
	}
	return pe.confirm(v.ID, userID)
}

// review is a small local helper since PeriodEngine has no review closure
// wired; it reaches storage directly to flip draft->reviewed.
func (pe *PeriodEngine) review(id string) (*Voucher, error) {
	v, err := pe.storage.GetVoucher(id)
	if err != nil {
		return nil, err
	}
	v.Status = Reviewed
	return v, pe.storage.SaveVoucher(v)
}

func matchesSelector(sel AccountSelector, a *Account) bool {
	prefixOK := len(sel.Prefixes) == 0
	for _, p := range sel.Prefixes {
		if len(a.Code) >= len(p) && a.Code[:len(p)] == p {
			prefixOK = true
			break
		}
	}
	typeOK := len(sel.AccountTypes) == 0
	for _, t := range sel.AccountTypes {
		if a.Type == t {
			typeOK = true
			break
		}
	}
	return prefixOK && typeOK
}

func renderTemplate(tmpl, period string) string {
	if tmpl == "" {
		return fmt.Sprintf("Period close %s", period)
	}
	out := tmpl
	for _, old := range []string{"{period}", "{{period}}"} {
		out = replaceAll(out, old, period)
	}
	return out
}

func replaceAll(s, old, new string) string {
	for {
		idx := indexOf(s, old)
		if idx < 0 {
			return s
		}
		s = s[:idx] + new + s[idx+len(old):]
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// Reopen transitions closed -> open, voiding the closing vouchers produced
// at close time and un-rolling balances where P+1 saw no activity; where
// P+1 has had activity, its balance rows are left as they are and no
// adjustment-carry voucher is emitted. The period is moved to adjustment
// status while the voids post, since a closed period admits no entries.
// closingVoucherIDs are the ids returned by Close.
func (pe *PeriodEngine) Reopen(period string, closingVoucherIDs []string, userID string) error {
	p, found, err := pe.storage.GetPeriod(period)
	if err != nil {
		return err
	}
	if !found || p.Status != PeriodClosed {
		return NewError(CodePeriodClosed, "period is not closed", "period", period)
	}

	p.Status = PeriodAdjustment
	if err := pe.storage.SavePeriod(p); err != nil {
		return err
	}
	for _, id := range closingVoucherIDs {
		if _, err := pe.void(id, "period reopen", userID); err != nil {
			return err
		}
	}

	next, err := nextPeriodKey(period)
	if err != nil {
		return err
	}
	nextActivity, err := pe.storage.LookupVouchers(VoucherFilter{Period: next, Status: Confirmed})
	if err != nil {
		return err
	}
	if len(nextActivity) == 0 {
		// No activity yet in P+1: simply drop its rolled-forward rows.
		rows, err := pe.storage.BalancesForPeriod(next)
		if err != nil {
			return err
		}
		for _, row := range rows {
			row.Opening = Zero
			row.Closing = Zero
			if err := pe.storage.SaveBalance(row); err != nil {
				return err
			}
		}
	}
	// When P+1 already has activity, the adjustment-carry voucher is left
	// to the caller: it depends on which P+1 postings assumed the old P
	// closing values, which only the caller's domain context can resolve.

	p.Status = PeriodOpen
	return pe.storage.SavePeriod(p)
}
