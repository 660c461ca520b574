package ledger

// Read-side query API. Thin convenience wrappers over storage and the
// voucher/balance lookups the other components already expose — nothing
// here writes state. Grouped on LedgerEngine so a caller never has to reach
// past it into storage directly.

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one account's closing position for a period.
type TrialBalanceRow struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// FindVouchers returns every voucher matching f, oldest first.
func (le *LedgerEngine) FindVouchers(f VoucherFilter) ([]*Voucher, error) {
	vouchers, err := le.Vouchers.Lookup(f)
	if err != nil {
		return nil, err
	}
	sort.Slice(vouchers, func(i, j int) bool { return vouchers[i].Date.Before(vouchers[j].Date) })
	return vouchers, nil
}

// AccountBalance returns the current balance row for accountCode/period, or
// a zeroed row if no entries have posted there yet.
func (le *LedgerEngine) AccountBalance(accountCode, period string, dims DimensionRefs) (*Balance, error) {
	key := Balance{AccountCode: accountCode, Period: period, Dims: dims.normalize()}.Key()
	b, found, err := le.storage.GetBalance(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Balance{AccountCode: accountCode, Period: period, Dims: dims.normalize()}, nil
	}
	return b, nil
}

// AccountHistory returns every balance row ever recorded for accountCode,
// across all periods and dimension combinations, oldest period first.
func (le *LedgerEngine) AccountHistory(accountCode string) ([]*Balance, error) {
	rows, err := le.storage.BalancesForAccount(accountCode)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Period < rows[j].Period })
	return rows, nil
}

// TrialBalance lists every account whose closing balance in period, summed
// across dimensions, is non-zero, each
// shown as a debit or credit per its normal side, sorted by account code.
func (le *LedgerEngine) TrialBalance(period string) ([]TrialBalanceRow, error) {
	rows, err := le.storage.BalancesForPeriod(period)
	if err != nil {
		return nil, err
	}
	accounts, err := le.storage.AllAccounts()
	if err != nil {
		return nil, err
	}
	byCode := map[string]*Account{}
	for _, a := range accounts {
		byCode[a.Code] = a
	}

	totals := map[string]decimal.Decimal{}
	for _, row := range rows {
		totals[row.AccountCode] = totals[row.AccountCode].Add(row.Closing)
	}

	var out []TrialBalanceRow
	for code, closing := range totals {
		if closing.IsZero() {
			continue
		}
		account := byCode[code]
		name := code
		side := DebitSide
		if account != nil {
			name = account.Name
			side = account.NormalSide
		}
		trow := TrialBalanceRow{AccountCode: code, AccountName: name}
		if side == DebitSide {
			if closing.IsPositive() {
				trow.Debit = RoundMoney(closing)
			} else {
				trow.Credit = RoundMoney(closing.Neg())
			}
		} else {
			if closing.IsPositive() {
				trow.Credit = RoundMoney(closing)
			} else {
				trow.Debit = RoundMoney(closing.Neg())
			}
		}
		out = append(out, trow)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountCode < out[j].AccountCode })
	return out, nil
}

// AccountsBySelector lists every enabled account matching sel, sorted by code.
func (le *LedgerEngine) AccountsBySelector(sel AccountSelector) ([]*Account, error) {
	accounts, err := le.storage.AllAccounts()
	if err != nil {
		return nil, err
	}
	var out []*Account
	for _, a := range accounts {
		if a.Enabled && matchesSelector(sel, a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Dimensions lists every registered dimension of type t.
func (le *LedgerEngine) Dimensions(t DimensionType) ([]*Dimension, error) {
	all, err := le.storage.AllDimensions()
	if err != nil {
		return nil, err
	}
	var out []*Dimension
	for _, d := range all {
		if d.Type == t {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
