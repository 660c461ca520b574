package ledger

// Balance Engine (C3): maintains the (account x period x dimension-tuple)
// balance index, applies voucher postings on confirm, rolls balances
// forward between periods, and rebuilds the whole index by replaying
// confirmed vouchers (§4.2). Void reuses Apply on the synthesized reversal
// voucher, so the engine itself never special-cases void (P6).

import (
	"sort"

	"github.com/shopspring/decimal"
)

type BalanceEngine struct {
	storage *Storage
	chart   *Chart
}

func NewBalanceEngine(storage *Storage, chart *Chart) *BalanceEngine {
	return &BalanceEngine{storage: storage, chart: chart}
}

// Apply posts every entry of a confirmed voucher into the balance index.
func (be *BalanceEngine) Apply(v *Voucher) error {
	for _, e := range v.Entries {
		if err := be.applyEntry(v.Period, e); err != nil {
			return err
		}
	}
	return nil
}

func (be *BalanceEngine) applyEntry(period string, e VoucherEntry) error {
	account, err := be.storage.GetAccount(e.AccountCode)
	if err != nil {
		return err
	}

	key := Balance{AccountCode: e.AccountCode, Period: period, Dims: e.Dims.normalize()}.Key()
	bal, found, err := be.storage.GetBalance(key)
	if err != nil {
		return err
	}
	if !found {
		bal = &Balance{
			AccountCode:  e.AccountCode,
			Period:       period,
			Dims:         e.Dims.normalize(),
			Opening:      Zero,
			Debit:        Zero,
			Credit:       Zero,
			Closing:      Zero,
			CurrencyCode: e.CurrencyCode,
		}
		// Carry forward opening balance from the prior period, if any.
		if prior, ok := priorPeriod(period); ok {
			priorKey := Balance{AccountCode: e.AccountCode, Period: prior, Dims: e.Dims.normalize()}.Key()
			if priorBal, priorFound, err := be.storage.GetBalance(priorKey); err == nil && priorFound {
				bal.Opening = priorBal.Closing
				bal.ForeignOpening = priorBal.ForeignClosing
			}
		}
	}

	bal.Debit = RoundMoney(bal.Debit.Add(e.Debit))
	bal.Credit = RoundMoney(bal.Credit.Add(e.Credit))
	bal.ForeignDebit = bal.ForeignDebit.Add(e.ForeignDebit)
	bal.ForeignCredit = bal.ForeignCredit.Add(e.ForeignCredit)

	bal.Closing = closingBalance(account.NormalSide, bal.Opening, bal.Debit, bal.Credit)
	bal.ForeignClosing = closingBalance(account.NormalSide, bal.ForeignOpening, bal.ForeignDebit, bal.ForeignCredit)

	return be.storage.SaveBalance(bal)
}

// closingBalance applies §3's sign convention: for debit-natured accounts
// closing = opening + debit - credit; credit-natured accounts invert.
func closingBalance(side NormalSide, opening, debit, credit decimal.Decimal) decimal.Decimal {
	if side == DebitSide {
		return RoundMoney(opening.Add(debit).Sub(credit))
	}
	return RoundMoney(opening.Add(credit).Sub(debit))
}

func priorPeriod(period string) (string, bool) {
	t, err := parsePeriod(period)
	if err != nil {
		return "", false
	}
	prior := t.AddDate(0, -1, 0)
	return prior.Format("2006-01"), true
}

func nextPeriodKey(period string) (string, error) {
	t, err := parsePeriod(period)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 1, 0).Format("2006-01"), nil
}

// Rollover materializes period P+1's opening rows from P's closing rows for
// every balance key not yet present in P+1. Idempotent (§4.2).
func (be *BalanceEngine) Rollover(period string) error {
	next, err := nextPeriodKey(period)
	if err != nil {
		return err
	}
	rows, err := be.storage.BalancesForPeriod(period)
	if err != nil {
		return err
	}
	for _, row := range rows {
		key := Balance{AccountCode: row.AccountCode, Period: next, Dims: row.Dims}.Key()
		_, found, err := be.storage.GetBalance(key)
		if err != nil {
			return err
		}
		if found {
			continue
		}
		newRow := &Balance{
			AccountCode:    row.AccountCode,
			Period:         next,
			Dims:           row.Dims,
			Opening:        row.Closing,
			Debit:          Zero,
			Credit:         Zero,
			Closing:        row.Closing,
			ForeignOpening: row.ForeignClosing,
			ForeignClosing: row.ForeignClosing,
			CurrencyCode:   row.CurrencyCode,
		}
		if err := be.storage.SaveBalance(newRow); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild replays all confirmed vouchers in voucher-number order and
// recomputes the entire balance index from scratch — the ground truth
// against which the persisted index is checked (P2).
func (be *BalanceEngine) Rebuild() error {
	if err := be.storage.ClearBalances(); err != nil {
		return err
	}
	vouchers, err := be.storage.AllConfirmedVouchersOrdered()
	if err != nil {
		return err
	}

	periods := map[string]bool{}
	for _, v := range vouchers {
		if err := be.Apply(v); err != nil {
			return err
		}
		periods[v.Period] = true
	}

	ordered := make([]string, 0, len(periods))
	for p := range periods {
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)
	for _, p := range ordered {
		if err := be.Rollover(p); err != nil {
			return err
		}
	}
	return nil
}

// VerifyAgainstRebuild compares the live balance index against a freshly
// rebuilt one, returning the mismatched keys (used by Consistency-kind
// checks per §7).
func (be *BalanceEngine) VerifyAgainstRebuild() ([]string, error) {
	live, err := be.storage.AllBalances()
	if err != nil {
		return nil, err
	}
	liveByKey := map[string]*Balance{}
	for _, b := range live {
		liveByKey[b.Key()] = b
	}

	if err := be.Rebuild(); err != nil {
		return nil, err
	}
	rebuilt, err := be.storage.AllBalances()
	if err != nil {
		return nil, err
	}

	var mismatches []string
	rebuiltByKey := map[string]*Balance{}
	for _, b := range rebuilt {
		rebuiltByKey[b.Key()] = b
	}
	for key, b := range liveByKey {
		rb, ok := rebuiltByKey[key]
		if !ok || !rb.Closing.Equal(b.Closing) {
			mismatches = append(mismatches, key)
		}
	}
	return mismatches, nil
}
