package ledger

// Chart of Accounts & Dimensions (C1). Boot-time seeding loads a standard,
// chart-agnostic set of accounts; the chart stays mutable afterward (add,
// disable) but seeded accounts are never deleted, and dimension addition is
// unrestricted across the five auxiliary types (spec §4.6).

import (
	"time"
)

// Chart owns account and dimension CRUD over storage.
type Chart struct {
	storage *Storage
}

func NewChart(storage *Storage) *Chart {
	return &Chart{storage: storage}
}

// SeedStandardChart loads a small, generic asset/liability/equity/revenue/
// expense chart if the storage is empty of accounts. It is safe to call on
// every boot: it is a no-op once accounts already exist.
func (c *Chart) SeedStandardChart() error {
	existing, err := c.storage.AllAccounts()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now()
	seed := []Account{
		{Code: "1000", Name: "Assets", Type: Asset, NormalSide: DebitSide, CashFlow: CFNone, Enabled: true, SystemSeeded: true},
		{Code: "1001", Name: "Cash and Cash Equivalents", Type: Asset, NormalSide: DebitSide, CashFlow: CFOperating, ParentCode: "1000", Enabled: true, SystemSeeded: true},
		{Code: "1002", Name: "Accounts Receivable", Type: Asset, NormalSide: DebitSide, CashFlow: CFOperating, ParentCode: "1000", Enabled: true, SystemSeeded: true},
		{Code: "1003", Name: "Inventory", Type: Asset, NormalSide: DebitSide, CashFlow: CFOperating, ParentCode: "1000", Enabled: true, SystemSeeded: true},
		{Code: "1004", Name: "Fixed Assets", Type: Asset, NormalSide: DebitSide, CashFlow: CFInvesting, ParentCode: "1000", Enabled: true, SystemSeeded: true},
		{Code: "1005", Name: "Accumulated Depreciation", Type: Asset, NormalSide: CreditSide, CashFlow: CFNone, ParentCode: "1000", Enabled: true, SystemSeeded: true},
		{Code: "1006", Name: "Construction in Progress", Type: Asset, NormalSide: DebitSide, CashFlow: CFInvesting, ParentCode: "1000", Enabled: true, SystemSeeded: true},
		{Code: "1122", Name: "Foreign Currency Cash", Type: Asset, NormalSide: DebitSide, CashFlow: CFOperating, ParentCode: "1000", Enabled: true, SystemSeeded: true, Revaluable: true},
		{Code: "2000", Name: "Liabilities", Type: Liability, NormalSide: CreditSide, CashFlow: CFNone, Enabled: true, SystemSeeded: true},
		{Code: "2001", Name: "Accounts Payable", Type: Liability, NormalSide: CreditSide, CashFlow: CFOperating, ParentCode: "2000", Enabled: true, SystemSeeded: true},
		{Code: "2002", Name: "Debt", Type: Liability, NormalSide: CreditSide, CashFlow: CFFinancing, ParentCode: "2000", Enabled: true, SystemSeeded: true},
		{Code: "3000", Name: "Equity", Type: Equity, NormalSide: CreditSide, CashFlow: CFNone, Enabled: true, SystemSeeded: true},
		{Code: "3001", Name: "Share Capital", Type: Equity, NormalSide: CreditSide, CashFlow: CFFinancing, ParentCode: "3000", Enabled: true, SystemSeeded: true},
		{Code: "3002", Name: "Retained Earnings", Type: Equity, NormalSide: CreditSide, CashFlow: CFNone, ParentCode: "3000", Enabled: true, SystemSeeded: true},
		{Code: "4000", Name: "Revenue", Type: Revenue, NormalSide: CreditSide, CashFlow: CFOperating, Enabled: true, SystemSeeded: true},
		{Code: "5000", Name: "Cost of Goods Sold", Type: Expense, NormalSide: DebitSide, CashFlow: CFOperating, Enabled: true, SystemSeeded: true},
		{Code: "5001", Name: "Operating Expense", Type: Expense, NormalSide: DebitSide, CashFlow: CFOperating, Enabled: true, SystemSeeded: true},
		{Code: "5002", Name: "Depreciation Expense", Type: Expense, NormalSide: DebitSide, CashFlow: CFOperating, Enabled: true, SystemSeeded: true},
		{Code: "5003", Name: "Interest Expense", Type: Expense, NormalSide: DebitSide, CashFlow: CFOperating, Enabled: true, SystemSeeded: true},
		{Code: "5004", Name: "Income Tax Expense", Type: Expense, NormalSide: DebitSide, CashFlow: CFOperating, Enabled: true, SystemSeeded: true},
		{Code: "5005", Name: "Bad Debt Expense", Type: Expense, NormalSide: DebitSide, CashFlow: CFOperating, Enabled: true, SystemSeeded: true},
		{Code: "5006", Name: "Impairment Loss", Type: Expense, NormalSide: DebitSide, CashFlow: CFOperating, Enabled: true, SystemSeeded: true},
		{Code: "5007", Name: "Inventory Variance", Type: Expense, NormalSide: DebitSide, CashFlow: CFOperating, Enabled: true, SystemSeeded: true},
		{Code: "6000", Name: "FX Gain", Type: Revenue, NormalSide: CreditSide, CashFlow: CFNone, Enabled: true, SystemSeeded: true},
		{Code: "6001", Name: "FX Loss", Type: Expense, NormalSide: DebitSide, CashFlow: CFNone, Enabled: true, SystemSeeded: true},
	}

	for i := range seed {
		seed[i].CreatedAt = now
		if err := c.storage.SaveAccount(&seed[i]); err != nil {
			return err
		}
	}
	return nil
}

// AddAccount validates parent-type consistency (§3 invariant: "parent
// exists and has the same type") and saves a new, non-seeded account.
func (c *Chart) AddAccount(a *Account) error {
	if a.ParentCode != "" {
		parent, err := c.storage.GetAccount(a.ParentCode)
		if err != nil {
			return err
		}
		if parent.Type != a.Type {
			return NewError(CodeAccountNotFound, "parent account type mismatch", "account_code", a.Code, "parent_code", a.ParentCode)
		}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if !a.Enabled {
		a.Enabled = true
	}
	return c.storage.SaveAccount(a)
}

// DisableAccount flips the enabled flag; accounts, including seeded ones,
// may be disabled but are never deleted (§3).
func (c *Chart) DisableAccount(code string) error {
	a, err := c.storage.GetAccount(code)
	if err != nil {
		return err
	}
	a.Enabled = false
	return c.storage.SaveAccount(a)
}

// RequireEnabledAccount fetches an account and enforces it exists and is
// enabled, the check every voucher admission performs per entry (§4.1).
func (c *Chart) RequireEnabledAccount(code string) (*Account, error) {
	a, err := c.storage.GetAccount(code)
	if err != nil {
		return nil, err
	}
	if !a.Enabled {
		return nil, NewError(CodeAccountDisabled, "account is disabled", "account_code", code)
	}
	return a, nil
}

// AddDimension is unrestricted (§4.6): any code/name pair may be registered
// under its type's namespace.
func (c *Chart) AddDimension(d *Dimension) error {
	d.Enabled = true
	return c.storage.SaveDimension(d)
}

// RequireDimension validates a single dimension reference, treating the
// sentinel as always valid.
func (c *Chart) RequireDimension(t DimensionType, code string) error {
	if code == "" || code == DimensionSentinel {
		return nil
	}
	d, err := c.storage.GetDimension(t, code)
	if err != nil {
		return err
	}
	if !d.Enabled {
		return NewError(CodeDimensionNotFound, "dimension is disabled", "type", string(t), "code", code)
	}
	return nil
}

// RequireDimensions validates an entire DimensionRefs tuple.
func (c *Chart) RequireDimensions(d DimensionRefs) error {
	d = d.normalize()
	if err := c.RequireDimension(DimDepartment, d.Department); err != nil {
		return err
	}
	if err := c.RequireDimension(DimProject, d.Project); err != nil {
		return err
	}
	if err := c.RequireDimension(DimCustomer, d.Customer); err != nil {
		return err
	}
	if err := c.RequireDimension(DimSupplier, d.Supplier); err != nil {
		return err
	}
	if err := c.RequireDimension(DimEmployee, d.Employee); err != nil {
		return err
	}
	return nil
}
