package ledger

// FX layer (C5, §4.4 "FX layer" + §3 ExchangeRate). Looks up rates with
// nearest-prior-date fallback, and runs period-end revaluation over
// accounts marked Revaluable, emitting gain/loss vouchers (scenario 7).

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	FXGainAccount = "6000"
	FXLossAccount = "6001"
)

type FXService struct {
	storage *Storage
	chart   *Chart
	submit  func(req VoucherRequest, userID string) (*Voucher, error)
	confirm func(id, userID string) (*Voucher, error)
}

func NewFXService(storage *Storage, chart *Chart) *FXService {
	return &FXService{storage: storage, chart: chart}
}

func (fx *FXService) WireVoucherOps(
	submit func(req VoucherRequest, userID string) (*Voucher, error),
	confirm func(id, userID string) (*Voucher, error),
) {
	fx.submit = submit
	fx.confirm = confirm
}

// SetRate records a rate for (currency, date, rate_type).
func (fx *FXService) SetRate(currency string, date time.Time, rate decimal.Decimal, rateType RateType, source string) error {
	return fx.storage.SaveExchangeRate(&ExchangeRate{
		Currency: currency, Date: date, Rate: RoundRate(rate), RateType: rateType, Source: source,
	})
}

// Lookup finds the rate for (currency, rate_type) nearest-prior-or-equal to
// date; missing rates yield RATE_NOT_FOUND (§3).
func (fx *FXService) Lookup(currency string, rateType RateType, date time.Time) (decimal.Decimal, error) {
	rates, err := fx.storage.AllExchangeRates(currency, rateType)
	if err != nil {
		return Zero, err
	}
	var best *ExchangeRate
	for _, r := range rates {
		if r.Date.After(date) {
			continue
		}
		if best == nil || r.Date.After(best.Date) {
			best = r
		}
	}
	if best == nil {
		return Zero, NewError(CodeRateNotFound, "no exchange rate on or before date", "currency", currency, "rate_type", string(rateType))
	}
	return best.Rate, nil
}

// RevalueAccount computes delta = foreign_closing * period_end_rate -
// functional_closing for every dimension-row of a revaluable account in a
// period, and emits a single gain-or-loss voucher per row where the delta
// is non-zero (§4.4).
func (fx *FXService) RevalueAccount(accountCode, period string, periodEndRate decimal.Decimal, userID string) ([]*Voucher, error) {
	account, err := fx.chart.RequireEnabledAccount(accountCode)
	if err != nil {
		return nil, err
	}
	if !account.Revaluable {
		return nil, NewError(CodeAccountNotFound, "account is not marked revaluable", "account_code", accountCode)
	}

	rows, err := fx.storage.BalancesForAccount(accountCode)
	if err != nil {
		return nil, err
	}

	var vouchers []*Voucher
	for _, row := range rows {
		if row.Period != period {
			continue
		}
		revalued := RoundMoney(row.ForeignClosing.Mul(periodEndRate))
		delta := revalued.Sub(row.Closing)
		if delta.IsZero() {
			continue
		}

		var entries []VoucherEntry
		if delta.IsPositive() {
			// Functional value increased: debit the account, credit FX gain.
			entries = []VoucherEntry{
				{AccountCode: accountCode, Debit: delta, Credit: Zero, Dims: row.Dims},
				{AccountCode: FXGainAccount, Debit: Zero, Credit: delta, Dims: NoDimensions()},
			}
		} else {
			loss := delta.Abs()
			entries = []VoucherEntry{
				{AccountCode: FXLossAccount, Debit: loss, Credit: Zero, Dims: NoDimensions()},
				{AccountCode: accountCode, Debit: Zero, Credit: loss, Dims: row.Dims},
			}
		}

		periodEnd, err := parsePeriod(period)
		if err != nil {
			return nil, err
		}
		periodEnd = periodEnd.AddDate(0, 1, -1)

		v, err := fx.submit(VoucherRequest{
			Date:        periodEnd,
			Description: "FX revaluation " + accountCode + " " + period,
			EntryType:   AdjustmentEntry,
			Entries:     entries,
		}, userID)
		if err != nil {
			return nil, err
		}
		v, err = fx.reviewAndConfirm(v.ID, userID)
		if err != nil {
			return nil, err
		}
		// Posting the voucher above already restates the account's
		// functional closing balance via the Balance Engine; the foreign
		// balance is left untouched (it remains 100 in scenario 7).
		vouchers = append(vouchers, v)
	}
	return vouchers, nil
}

func (fx *FXService) reviewAndConfirm(id, userID string) (*Voucher, error) {
	v, err := fx.storage.GetVoucher(id)
	if err != nil {
		return nil, err
	}
	if v.Status == Draft {
		v.Status = Reviewed
		if err := fx.storage.SaveVoucher(v); err != nil {
			return nil, err
		}
	}
	return fx.confirm(id, userID)
}
