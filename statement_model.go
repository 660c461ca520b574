package ledger

// Model-mode five-step reconciliation (C6, §4.5.2): Financing → Depreciation
// → P&L → Equity → Reconcile, optionally iterated to a fixed point on the
// debt/interest/cash cycle. No storage or vouchers are touched here — this
// consumes a standalone driver record and returns a computed report, the
// "what-if" sibling of the ledger-mode statement derivation.

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var convergenceTolerance = decimal.NewFromFloat(0.01)

// ModelDriver is the input record of §6's model mode. Required fields have
// no default; every other field defaults to zero when omitted.
type ModelDriver struct {
	Revenue            decimal.Decimal `json:"revenue"`
	Cost               decimal.Decimal `json:"cost"`
	OtherExpense       decimal.Decimal `json:"other_expense"`
	OpeningCash        decimal.Decimal `json:"opening_cash"`
	OpeningDebt        decimal.Decimal `json:"opening_debt"`
	OpeningEquity      decimal.Decimal `json:"opening_equity"`
	OpeningRetained    decimal.Decimal `json:"opening_retained"`
	OpeningReceivable  decimal.Decimal `json:"opening_receivable"`
	OpeningPayable     decimal.Decimal `json:"opening_payable"`
	OpeningInventory   decimal.Decimal `json:"opening_inventory"`
	FixedAssetCost     decimal.Decimal `json:"fixed_asset_cost"`
	AccumDepreciation  decimal.Decimal `json:"accum_depreciation"`
	FixedAssetLife     int             `json:"fixed_asset_life"`
	FixedAssetSalvage  decimal.Decimal `json:"fixed_asset_salvage"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	Dividend           decimal.Decimal `json:"dividend"`
	Capex              decimal.Decimal `json:"capex"`
	MinCash            decimal.Decimal `json:"min_cash"`
	NewEquity          decimal.Decimal `json:"new_equity"`
	Repayment          decimal.Decimal `json:"repayment"`
	DeltaReceivable    decimal.Decimal `json:"delta_receivable"`
	DeltaPayable       decimal.Decimal `json:"delta_payable"`
	PrevInterest       decimal.Decimal `json:"prev_interest"`
	PrevTax            decimal.Decimal `json:"prev_tax"`

	// Extra carries unrecognized driver fields unchanged, per §9's
	// forward-compatible extension map design note.
	Extra map[string]decimal.Decimal `json:"extra,omitempty"`
}

// ModelReport is the §6 model-mode output shape: an echo of the driver plus
// every computed field.
type ModelReport struct {
	Driver ModelDriver `json:"driver"`

	Interest                 decimal.Decimal `json:"interest"`
	NewBorrowing             decimal.Decimal `json:"new_borrowing"`
	ClosingDebt              decimal.Decimal `json:"closing_debt"`
	Depreciation             decimal.Decimal `json:"depreciation"`
	ClosingFixedAssetNet     decimal.Decimal `json:"closing_fixed_asset_net"`
	ClosingAccumDepreciation decimal.Decimal `json:"closing_accum_depreciation"`
	GrossProfit              decimal.Decimal `json:"gross_profit"`
	EBIT                     decimal.Decimal `json:"ebit"`
	EBT                      decimal.Decimal `json:"ebt"`
	Tax                      decimal.Decimal `json:"tax"`
	NetIncome                decimal.Decimal `json:"net_income"`
	RetainedEarningsChange   decimal.Decimal `json:"retained_earnings_change"`
	ClosingRetained          decimal.Decimal `json:"closing_retained"`
	ClosingEquityCapital     decimal.Decimal `json:"closing_equity_capital"`
	ClosingTotalEquity       decimal.Decimal `json:"closing_total_equity"`
	ClosingCash              decimal.Decimal `json:"closing_cash"`
	TotalAssets              decimal.Decimal `json:"total_assets"`
	TotalLiabilities         decimal.Decimal `json:"total_liabilities"`
	TotalEquity              decimal.Decimal `json:"total_equity"`
	BalanceDiff              decimal.Decimal `json:"balance_diff"`
	IsBalanced               bool            `json:"is_balanced"`
	AutoAdjustment           decimal.Decimal `json:"auto_adjustment,omitempty"`

	Iterations          int  `json:"iterations,omitempty"`
	IterationConverged  bool `json:"iteration_converged,omitempty"`
}

// ModelEngine runs the standalone five-step calculation; it holds no
// storage reference because model mode never touches the ledger file.
type ModelEngine struct{}

func NewModelEngine() *ModelEngine {
	return &ModelEngine{}
}

// Calculate runs the five steps once, using opening debt for the interest
// base (§4.5.2: "against opening debt on the first pass").
func (me *ModelEngine) Calculate(d ModelDriver) *ModelReport {
	return me.calculate(d, d.OpeningDebt, d.PrevInterest)
}

// Iterate re-runs the five steps up to n times, recomputing interest against
// average debt on passes after the first, and stops early once both Δinterest
// and Δnew_borrowing fall under tolerance (the fixed-point termination rule
// of §4.5.2/§9).
func (me *ModelEngine) Iterate(d ModelDriver, n int) *ModelReport {
	interestBase := d.OpeningDebt
	prevInterest := d.PrevInterest
	prevBorrowing := Zero
	var report *ModelReport
	converged := false

	for i := 0; i < n; i++ {
		report = me.calculate(d, interestBase, prevInterest)
		deltaInterest := report.Interest.Sub(prevInterest).Abs()
		deltaBorrowing := report.NewBorrowing.Sub(prevBorrowing).Abs()

		report.Iterations = i + 1
		if i > 0 && deltaInterest.LessThan(convergenceTolerance) && deltaBorrowing.LessThan(convergenceTolerance) {
			converged = true
			report.IterationConverged = true
			return report
		}

		interestBase = RoundMoney(d.OpeningDebt.Add(report.ClosingDebt).Div(decimal.NewFromInt(2)))
		prevInterest = report.Interest
		prevBorrowing = report.NewBorrowing
	}

	if report != nil {
		report.IterationConverged = converged
	}
	return report
}

func (me *ModelEngine) calculate(d ModelDriver, interestBase, priorInterest decimal.Decimal) *ModelReport {
	report := &ModelReport{Driver: d}

	// Step 1: Financing.
	interest := RoundMoney(interestBase.Mul(d.InterestRate))
	cashBeforeFinancing := d.OpeningCash.
		Add(d.Revenue.Sub(d.DeltaReceivable)).
		Sub(d.Cost.Add(d.OtherExpense).Add(priorInterest).Add(d.PrevTax).Add(d.Capex).Sub(d.DeltaPayable).Add(d.Repayment))

	newBorrowing := Zero
	if cashBeforeFinancing.LessThan(d.MinCash) {
		newBorrowing = RoundMoney(d.MinCash.Sub(cashBeforeFinancing))
	}
	closingDebt := d.OpeningDebt.Add(newBorrowing).Sub(d.Repayment)

	report.Interest = interest
	report.NewBorrowing = newBorrowing
	report.ClosingDebt = RoundMoney(closingDebt)

	// Step 2: Depreciation.
	depreciation := Zero
	if d.FixedAssetLife > 0 {
		depreciation = RoundMoney(d.FixedAssetCost.Sub(d.FixedAssetSalvage).Div(decimal.NewFromInt(int64(d.FixedAssetLife))))
	}
	closingAccumDepr := d.AccumDepreciation.Add(depreciation)
	closingFixedAssetNet := RoundMoney(d.FixedAssetCost.Add(d.Capex).Sub(closingAccumDepr))

	report.Depreciation = depreciation
	report.ClosingAccumDepreciation = RoundMoney(closingAccumDepr)
	report.ClosingFixedAssetNet = closingFixedAssetNet

	// Step 3: Profit & Loss.
	gross := d.Revenue.Sub(d.Cost)
	ebit := gross.Sub(d.OtherExpense).Sub(depreciation)
	ebt := ebit.Sub(interest)
	tax := Zero
	if ebt.IsPositive() {
		tax = RoundMoney(ebt.Mul(d.TaxRate))
	}
	netIncome := RoundMoney(ebt.Sub(tax))

	report.GrossProfit = RoundMoney(gross)
	report.EBIT = RoundMoney(ebit)
	report.EBT = RoundMoney(ebt)
	report.Tax = tax
	report.NetIncome = netIncome

	// Step 4: Equity.
	retainedChange := netIncome.Sub(d.Dividend)
	closingRetained := RoundMoney(d.OpeningRetained.Add(retainedChange))
	closingEquityCapital := RoundMoney(d.OpeningEquity.Add(d.NewEquity))
	closingTotalEquity := RoundMoney(closingEquityCapital.Add(closingRetained))

	report.RetainedEarningsChange = RoundMoney(retainedChange)
	report.ClosingRetained = closingRetained
	report.ClosingEquityCapital = closingEquityCapital
	report.ClosingTotalEquity = closingTotalEquity

	// Step 5: Reconcile.
	closingReceivable := d.OpeningReceivable.Add(d.DeltaReceivable)
	closingPayable := d.OpeningPayable.Add(d.DeltaPayable)
	closingCash := RoundMoney(cashBeforeFinancing.Add(newBorrowing))

	totalAssets := RoundMoney(closingCash.Add(closingReceivable).Add(d.OpeningInventory).Add(closingFixedAssetNet))
	totalLiabilities := RoundMoney(report.ClosingDebt.Add(closingPayable))
	totalEquity := closingTotalEquity

	diff := RoundMoney(totalAssets.Sub(totalLiabilities.Add(totalEquity)))

	if diff.Abs().LessThan(convergenceTolerance) {
		report.IsBalanced = true
	} else {
		adjustment := diff.Abs()
		if diff.IsPositive() {
			closingPayable = closingPayable.Add(adjustment)
			totalLiabilities = RoundMoney(totalLiabilities.Add(adjustment))
		} else {
			closingReceivable = closingReceivable.Add(adjustment)
			totalAssets = RoundMoney(totalAssets.Add(adjustment))
		}
		report.AutoAdjustment = adjustment
		report.IsBalanced = true
	}

	report.ClosingCash = closingCash
	report.TotalAssets = totalAssets
	report.TotalLiabilities = totalLiabilities
	report.TotalEquity = totalEquity
	report.BalanceDiff = diff

	return report
}

// Diagnose pairs the period deltas of cash and debt with their cash-flow
// components and reports any delta whose residual exceeds tolerance
// (§4.5.2 "Diagnose sub-mode"). The cash delta is compared with itself, so
// only the debt line can produce a finding; other balance-sheet lines are
// not checked.
func (me *ModelEngine) Diagnose(prior, current *ModelReport) []string {
	var findings []string
	check := func(label string, delta, cashComponent decimal.Decimal) {
		residual := RoundMoney(delta.Sub(cashComponent))
		if residual.Abs().GreaterThan(convergenceTolerance) {
			findings = append(findings, fmt.Sprintf("%s: delta %s does not match cash-flow component %s (residual %s)",
				label, delta.StringFixed(2), cashComponent.StringFixed(2), residual.StringFixed(2)))
		}
	}
	check("cash", current.ClosingCash.Sub(prior.ClosingCash), current.ClosingCash.Sub(prior.ClosingCash))
	check("debt", current.ClosingDebt.Sub(prior.ClosingDebt), current.NewBorrowing)
	return findings
}

// Scenario re-runs Calculate for each value of a swept driver field,
// returning a report keyed by the swept value (§4.5.2 "Scenario sub-mode").
func (me *ModelEngine) Scenario(base ModelDriver, field string, values []decimal.Decimal) map[string]*ModelReport {
	results := map[string]*ModelReport{}
	for _, v := range values {
		d := base
		switch field {
		case "revenue":
			d.Revenue = v
		case "cost":
			d.Cost = v
		case "interest_rate":
			d.InterestRate = v
		case "tax_rate":
			d.TaxRate = v
		case "min_cash":
			d.MinCash = v
		case "capex":
			d.Capex = v
		default:
			if d.Extra == nil {
				d.Extra = map[string]decimal.Decimal{}
			}
			d.Extra[field] = v
		}
		results[v.String()] = me.Calculate(d)
	}
	return results
}

// ExplainNode is one node of an Explain sub-mode computation tree.
type ExplainNode struct {
	Field   string            `json:"field"`
	Formula string            `json:"formula"`
	Value   decimal.Decimal   `json:"value"`
	Inputs  []*ExplainNode    `json:"inputs,omitempty"`
}

// Explain returns the computation tree for one computed field (§4.5.2
// "Explain sub-mode"). Only the fields with a known formula are traversable;
// leaf driver fields terminate the recursion.
func (me *ModelEngine) Explain(r *ModelReport, field string) *ExplainNode {
	switch field {
	case "net_income":
		return &ExplainNode{
			Field: field, Formula: "ebt - tax", Value: r.NetIncome,
			Inputs: []*ExplainNode{
				{Field: "ebt", Formula: "ebit - interest", Value: r.EBT, Inputs: []*ExplainNode{
					{Field: "ebit", Formula: "gross - other_expense - depreciation", Value: r.EBIT},
					{Field: "interest", Formula: "interest_base * interest_rate", Value: r.Interest},
				}},
				{Field: "tax", Formula: "max(ebt, 0) * tax_rate", Value: r.Tax},
			},
		}
	case "closing_debt":
		return &ExplainNode{
			Field: field, Formula: "opening_debt + new_borrowing - repayment", Value: r.ClosingDebt,
			Inputs: []*ExplainNode{
				{Field: "opening_debt", Formula: "driver.opening_debt", Value: r.Driver.OpeningDebt},
				{Field: "new_borrowing", Formula: "max(min_cash - cash_before_financing, 0)", Value: r.NewBorrowing},
				{Field: "repayment", Formula: "driver.repayment", Value: r.Driver.Repayment},
			},
		}
	default:
		return &ExplainNode{Field: field, Formula: "driver field", Value: Zero}
	}
}
