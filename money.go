package ledger

// Monetary precision helpers. Every persisted amount is two-decimal,
// half-away-from-zero rounded (spec §3); rate values carry six decimals.

import "github.com/shopspring/decimal"

// Tolerance is the maximum acceptable imbalance before a voucher, an
// identity check, or a reconciliation is rejected (§4.1, §4.5.1, §4.5.2).
var Tolerance = decimal.NewFromFloat(0.01)

// RoundMoney rounds to two decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundRate rounds an exchange rate to six decimal places.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(6)
}

// WithinTolerance reports whether d's absolute value is within Tolerance.
func WithinTolerance(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Tolerance)
}

// Zero is the canonical zero money value, used as a safe default instead of
// the Go zero value of decimal.Decimal (which is also zero, but spelling it
// out keeps construction sites readable).
var Zero = decimal.Zero
