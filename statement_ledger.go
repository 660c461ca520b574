package ledger

// Ledger-mode statement derivation (C6, §4.5.1). A declarative mapping
// document drives every statement line: selectors plus a source field
// (opening/closing/debit/credit/net-change) plus a sign, aggregated over
// matching balance rows for a period. Two identities are asserted and the
// report is rejected if either breaks by more than the 0.01 tolerance.

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type StatementSign string

const (
	SignDebit  StatementSign = "debit"
	SignCredit StatementSign = "credit"
)

type SourceField string

const (
	SourceOpening   SourceField = "opening_balance"
	SourceClosing   SourceField = "closing_balance"
	SourceDebit     SourceField = "debit_total"
	SourceCredit    SourceField = "credit_total"
	SourceNetChange SourceField = "net_change"
)

// StatementLineMapping is one declarative line in a mapping document.
type StatementLineMapping struct {
	Name     string          `json:"name"`
	Section  string          `json:"section"` // "balance_sheet", "income_statement"
	Sources  AccountSelector `json:"sources"`
	Field    SourceField     `json:"field"`
	Sign     StatementSign   `json:"sign"`
	Dims     DimensionRefs   `json:"dims,omitempty"`
	HasDims  bool            `json:"has_dims,omitempty"`
}

// StatementMapping is the whole document driving ledger-mode derivation.
type StatementMapping struct {
	BalanceSheetLines   []StatementLineMapping `json:"balance_sheet_lines"`
	IncomeStatementLines []StatementLineMapping `json:"income_statement_lines"`
}

// LedgerReport is the §6 ledger-mode output shape.
type LedgerReport struct {
	Period             string                     `json:"period"`
	BalanceSheet       map[string]decimal.Decimal `json:"balance_sheet"`
	IncomeStatement    map[string]decimal.Decimal `json:"income_statement"`
	CashFlowStatement  map[string]decimal.Decimal `json:"cash_flow_statement"`
	IsBalanced         bool                       `json:"is_balanced"`
	BalanceDiff        decimal.Decimal            `json:"balance_diff"`
	CashReconciled     bool                       `json:"cash_reconciled"`
	CashDiff           decimal.Decimal            `json:"cash_diff"`
}

type StatementEngine struct {
	storage *Storage
	chart   *Chart
}

func NewStatementEngine(storage *Storage, chart *Chart) *StatementEngine {
	return &StatementEngine{storage: storage, chart: chart}
}

// Generate derives a full ledger-mode report for period from mapping.
func (se *StatementEngine) Generate(mapping *StatementMapping, period string) (*LedgerReport, error) {
	rows, err := se.storage.BalancesForPeriod(period)
	if err != nil {
		return nil, err
	}
	accountsByCode, err := se.accountIndex()
	if err != nil {
		return nil, err
	}

	report := &LedgerReport{
		Period:            period,
		BalanceSheet:      map[string]decimal.Decimal{},
		IncomeStatement:   map[string]decimal.Decimal{},
		CashFlowStatement: map[string]decimal.Decimal{},
	}

	for _, line := range mapping.BalanceSheetLines {
		report.BalanceSheet[line.Name] = se.aggregate(line, rows, accountsByCode)
	}
	for _, line := range mapping.IncomeStatementLines {
		report.IncomeStatement[line.Name] = se.aggregate(line, rows, accountsByCode)
	}

	cashFlow, cashDiff, err := se.cashFlow(period, accountsByCode)
	if err != nil {
		return nil, err
	}
	report.CashFlowStatement = cashFlow
	report.CashDiff = cashDiff
	report.CashReconciled = WithinTolerance(cashDiff)
	if !report.CashReconciled {
		return report, NewError(CodeTemplateUnbalanced, "cash flow does not reconcile to change in cash",
			"cash_diff", cashDiff.String())
	}

	totalAssets, totalLiab, totalEquity := se.identityTotals(rows, accountsByCode)
	report.BalanceDiff = RoundMoney(totalAssets.Sub(totalLiab.Add(totalEquity)))
	report.IsBalanced = WithinTolerance(report.BalanceDiff)

	if !report.IsBalanced {
		return report, NewError(CodeTemplateUnbalanced, "accounting identity violated",
			"total_assets", totalAssets.String(), "total_liabilities_plus_equity", totalLiab.Add(totalEquity).String())
	}
	return report, nil
}

func (se *StatementEngine) accountIndex() (map[string]*Account, error) {
	accounts, err := se.storage.AllAccounts()
	if err != nil {
		return nil, err
	}
	idx := map[string]*Account{}
	for _, a := range accounts {
		idx[a.Code] = a
	}
	return idx, nil
}

func (se *StatementEngine) aggregate(line StatementLineMapping, rows []*Balance, accounts map[string]*Account) decimal.Decimal {
	total := Zero
	for _, row := range rows {
		account, ok := accounts[row.AccountCode]
		if !ok || !matchesSelector(line.Sources, account) {
			continue
		}
		if line.HasDims && row.Dims != line.Dims {
			continue
		}
		var value decimal.Decimal
		switch line.Field {
		case SourceOpening:
			value = row.Opening
		case SourceClosing:
			value = row.Closing
		case SourceDebit:
			value = row.Debit
		case SourceCredit:
			value = row.Credit
		case SourceNetChange:
			value = row.Debit.Sub(row.Credit)
		}
		if line.Sign == SignCredit {
			value = value.Neg()
		}
		total = total.Add(value)
	}
	return RoundMoney(total)
}

// identityTotals sums closing balances by type for the accounting identity.
// Closings are already signed "positive on increase" per the account's
// normal side (closingBalance), so liability/equity closings add directly;
// unclosed revenue/expense fold into equity so the identity holds mid-period
// as well as post-close (P3). Credit-natured asset accounts (accumulated
// depreciation) are contra-assets and subtract from total assets.
func (se *StatementEngine) identityTotals(rows []*Balance, accounts map[string]*Account) (assets, liabilities, equity decimal.Decimal) {
	assets, liabilities, equity = Zero, Zero, Zero
	for _, row := range rows {
		account, ok := accounts[row.AccountCode]
		if !ok {
			continue
		}
		switch account.Type {
		case Asset:
			if account.NormalSide == CreditSide {
				assets = assets.Sub(row.Closing)
			} else {
				assets = assets.Add(row.Closing)
			}
		case Liability:
			liabilities = liabilities.Add(row.Closing)
		case Equity, Revenue:
			equity = equity.Add(row.Closing)
		case Expense:
			equity = equity.Sub(row.Closing)
		}
	}
	return RoundMoney(assets), RoundMoney(liabilities), RoundMoney(equity)
}

// cashFlow derives the indirect-method statement (§4.5.1): operating starts
// from net income and walks non-cash add-backs and working-capital deltas;
// investing is the negated change in fixed-asset cost (1004), with no
// separate disposal-proceeds line; financing is the movement in debt (2002)
// and share capital (3001), with no separate dividend line.
// cashDiff is operating+investing+financing − Δcash.
func (se *StatementEngine) cashFlow(period string, accounts map[string]*Account) (map[string]decimal.Decimal, decimal.Decimal, error) {
	prior, err := priorPeriodKey(period)
	if err != nil {
		return nil, Zero, err
	}

	curRows, err := se.storage.BalancesForPeriod(period)
	if err != nil {
		return nil, Zero, err
	}
	priorRows, err := se.storage.BalancesForPeriod(prior)
	if err != nil {
		return nil, Zero, err
	}
	priorClosing := closingIndex(priorRows)

	netIncome := Zero
	deprExpense := Zero
	impairmentExpense := Zero
	deltaReceivable := Zero
	deltaInventory := Zero
	deltaPayable := Zero
	deltaDebt := Zero
	deltaEquity := Zero
	deltaFixedAssetCost := Zero
	openingCash := Zero
	closingCash := Zero

	for _, row := range curRows {
		account, ok := accounts[row.AccountCode]
		if !ok {
			continue
		}
		prevClosing := priorClosing[row.Key()]
		delta := row.Closing.Sub(prevClosing)

		switch {
		case account.Type == Revenue:
			netIncome = netIncome.Add(row.Closing)
		case account.Type == Expense:
			netIncome = netIncome.Sub(row.Closing)
			if account.Code == AccountDeprExpense {
				deprExpense = deprExpense.Add(row.Closing)
			}
			if account.Code == AccountImpairmentExpense {
				impairmentExpense = impairmentExpense.Add(row.Closing)
			}
		}
		switch account.Code {
		case AccountReceivable:
			deltaReceivable = deltaReceivable.Add(delta)
		case "1003": // inventory
			deltaInventory = deltaInventory.Add(delta)
		case AccountPayable:
			deltaPayable = deltaPayable.Add(delta)
		case "2002": // debt
			deltaDebt = deltaDebt.Add(delta)
		case "3001": // share capital
			deltaEquity = deltaEquity.Add(delta)
		case AccountFixedAsset:
			deltaFixedAssetCost = deltaFixedAssetCost.Add(delta)
		case AccountCash, "1122":
			openingCash = openingCash.Add(prevClosing)
			closingCash = closingCash.Add(row.Closing)
		}
	}

	operating := RoundMoney(netIncome.Add(deprExpense).Add(impairmentExpense).Sub(deltaReceivable).Sub(deltaInventory).Add(deltaPayable))
	investing := RoundMoney(deltaFixedAssetCost.Neg())
	financing := RoundMoney(deltaDebt.Add(deltaEquity))

	deltaCash := RoundMoney(closingCash.Sub(openingCash))
	diff := RoundMoney(operating.Add(investing).Add(financing).Sub(deltaCash))

	return map[string]decimal.Decimal{
		"operating": operating,
		"investing": investing,
		"financing": financing,
		"net_change_in_cash": RoundMoney(operating.Add(investing).Add(financing)),
	}, diff, nil
}

func closingIndex(rows []*Balance) map[string]decimal.Decimal {
	idx := map[string]decimal.Decimal{}
	for _, r := range rows {
		idx[r.Key()] = r.Closing
	}
	return idx
}

func priorPeriodKey(period string) (string, error) {
	t, err := parsePeriod(period)
	if err != nil {
		return "", err
	}
	prev := t.AddDate(0, -1, 0)
	return prev.Format("2006-01"), nil
}

// FormatReport renders a report the way the teacher's demo formatters did:
// a plain-text statement for human inspection, not a templating system.
func FormatReport(r *LedgerReport) string {
	out := fmt.Sprintf("\nLedger report for %s\n", r.Period)
	out += "==========================================\n"
	out += "BALANCE SHEET\n"
	for name, amount := range r.BalanceSheet {
		out += fmt.Sprintf("  %-28s %12s\n", name, amount.StringFixed(2))
	}
	out += "INCOME STATEMENT\n"
	for name, amount := range r.IncomeStatement {
		out += fmt.Sprintf("  %-28s %12s\n", name, amount.StringFixed(2))
	}
	out += "CASH FLOW\n"
	for name, amount := range r.CashFlowStatement {
		out += fmt.Sprintf("  %-28s %12s\n", name, amount.StringFixed(2))
	}
	out += fmt.Sprintf("\nis_balanced=%v balance_diff=%s cash_reconciled=%v cash_diff=%s\n",
		r.IsBalanced, r.BalanceDiff.StringFixed(2), r.CashReconciled, r.CashDiff.StringFixed(2))
	return out
}
