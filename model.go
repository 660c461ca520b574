package ledger

// Core data structures for the double-entry ledger: chart of accounts,
// auxiliary dimensions, vouchers and their entries, the derived balance
// index, periods, void links, exchange rates, and the two template kinds
// that drive closing and event-sourced posting. No business logic lives
// here; that is layered on in chart.go, voucher_store.go, balance_engine.go
// and friends.

import (
	"time"

	"github.com/shopspring/decimal"
)

// ----------------------------------------------------------------------------
// 🗃️  Chart of Accounts -------------------------------------------------------
// ----------------------------------------------------------------------------

type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

type NormalSide string

const (
	DebitSide  NormalSide = "DEBIT"
	CreditSide NormalSide = "CREDIT"
)

type CashFlowCategory string

const (
	CFOperating CashFlowCategory = "OPERATING"
	CFInvesting CashFlowCategory = "INVESTING"
	CFFinancing CashFlowCategory = "FINANCING"
	CFNone      CashFlowCategory = "NONE"
)

// Account is a node in the chart of accounts, identified by a stable,
// hierarchical code rather than an internal id.
type Account struct {
	Code         string           `json:"code"`
	ParentCode   string           `json:"parent_code,omitempty"`
	Name         string           `json:"name"`
	Type         AccountType      `json:"type"`
	NormalSide   NormalSide       `json:"normal_side"`
	CashFlow     CashFlowCategory `json:"cash_flow"`
	Enabled      bool             `json:"enabled"`
	SystemSeeded bool             `json:"system"`
	// Revaluable marks the account as subject to period-end FX revaluation (§4.4).
	Revaluable bool      `json:"revaluable,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ----------------------------------------------------------------------------
// 📐 Auxiliary Dimensions ------------------------------------------------------
// ----------------------------------------------------------------------------

type DimensionType string

const (
	DimDepartment DimensionType = "department"
	DimProject    DimensionType = "project"
	DimCustomer   DimensionType = "customer"
	DimSupplier   DimensionType = "supplier"
	DimEmployee   DimensionType = "employee"
)

// DimensionSentinel is the "no reference" value for a dimension slot, used
// instead of the empty string so the balance index can key on it uniformly.
const DimensionSentinel = "0"

// Dimension is a typed, named tag within its own code namespace.
type Dimension struct {
	Type    DimensionType `json:"type"`
	Code    string        `json:"code"`
	Name    string        `json:"name"`
	Enabled bool          `json:"enabled"`
}

// DimensionRefs carries at most one reference per dimension type on any
// entry line or balance row. Absent references are the sentinel, not "".
type DimensionRefs struct {
	Department string `json:"dept_id"`
	Project    string `json:"project_id"`
	Customer   string `json:"customer_id"`
	Supplier   string `json:"supplier_id"`
	Employee   string `json:"employee_id"`
}

// NoDimensions returns a fully-sentinel DimensionRefs.
func NoDimensions() DimensionRefs {
	return DimensionRefs{
		Department: DimensionSentinel,
		Project:    DimensionSentinel,
		Customer:   DimensionSentinel,
		Supplier:   DimensionSentinel,
		Employee:   DimensionSentinel,
	}
}

// normalize fills any blank field with the sentinel value.
func (d DimensionRefs) normalize() DimensionRefs {
	if d.Department == "" {
		d.Department = DimensionSentinel
	}
	if d.Project == "" {
		d.Project = DimensionSentinel
	}
	if d.Customer == "" {
		d.Customer = DimensionSentinel
	}
	if d.Supplier == "" {
		d.Supplier = DimensionSentinel
	}
	if d.Employee == "" {
		d.Employee = DimensionSentinel
	}
	return d
}

// Key renders the tuple as a string suitable for use as a balance-index key.
func (d DimensionRefs) Key() string {
	d = d.normalize()
	return d.Department + "|" + d.Project + "|" + d.Customer + "|" + d.Supplier + "|" + d.Employee
}

// ----------------------------------------------------------------------------
// 📜 Vouchers & Entries --------------------------------------------------------
// ----------------------------------------------------------------------------

type VoucherStatus string

const (
	Draft     VoucherStatus = "DRAFT"
	Reviewed  VoucherStatus = "REVIEWED"
	Confirmed VoucherStatus = "CONFIRMED"
	Voided    VoucherStatus = "VOIDED"
)

type EntryKind string

const (
	NormalEntry     EntryKind = "normal"
	AdjustmentEntry EntryKind = "adjustment"
)

// VoucherEntry is a single balanced line within a voucher.
type VoucherEntry struct {
	LineNo         int             `json:"line_no"`
	AccountCode    string          `json:"account_code"`
	AccountName    string          `json:"account_name,omitempty"`
	Description    string          `json:"description,omitempty"`
	Debit          decimal.Decimal `json:"debit_amount"`
	Credit         decimal.Decimal `json:"credit_amount"`
	CurrencyCode   string          `json:"currency_code,omitempty"`
	FXRate         decimal.Decimal `json:"fx_rate,omitempty"`
	ForeignDebit   decimal.Decimal `json:"foreign_debit,omitempty"`
	ForeignCredit  decimal.Decimal `json:"foreign_credit,omitempty"`
	Dims           DimensionRefs   `json:"dims"`
}

// Voucher is the atomic unit of posting: a timestamped, balanced set of
// debit and credit lines moving through the draft/reviewed/confirmed/voided
// lifecycle.
type Voucher struct {
	ID             string         `json:"id"`
	Number         string         `json:"voucher_no,omitempty"`
	Date           time.Time      `json:"date"`
	Period         string         `json:"period"`
	Description    string         `json:"description,omitempty"`
	Status         VoucherStatus  `json:"status"`
	EntryType      EntryKind      `json:"entry_type"`
	SourceTemplate string         `json:"source_template,omitempty"`
	SourceEventID  string         `json:"source_event_id,omitempty"`
	VoidOf         string         `json:"void_of,omitempty"`
	VoidReason     string         `json:"void_reason,omitempty"`
	Entries        []VoucherEntry `json:"entries"`
	CreatedAt      time.Time      `json:"created_at"`
	ConfirmedAt    *time.Time     `json:"confirmed_at,omitempty"`
	VoidedAt       *time.Time     `json:"voided_at,omitempty"`
}

// VoucherRequest is the unvalidated input to Submit; it carries everything
// a Voucher does except lifecycle/identity fields, which Submit assigns.
type VoucherRequest struct {
	Date          time.Time
	Description   string
	EntryType     EntryKind
	SourceTemplate string
	SourceEventID string
	Entries       []VoucherEntry
}

// ----------------------------------------------------------------------------
// 📊 Balance Index -------------------------------------------------------------
// ----------------------------------------------------------------------------

// Balance is uniquely keyed by (account_code, period, dept, project,
// customer, supplier, employee). It is derived state: rebuilding it by
// replaying all confirmed vouchers must reproduce the same values exactly.
type Balance struct {
	AccountCode string          `json:"account_code"`
	Period      string          `json:"period"`
	Dims        DimensionRefs   `json:"dims"`
	Opening     decimal.Decimal `json:"opening_balance"`
	Debit       decimal.Decimal `json:"debit_amount"`
	Credit      decimal.Decimal `json:"credit_amount"`
	Closing     decimal.Decimal `json:"closing_balance"`

	ForeignOpening decimal.Decimal `json:"foreign_opening,omitempty"`
	ForeignDebit   decimal.Decimal `json:"foreign_debit,omitempty"`
	ForeignCredit  decimal.Decimal `json:"foreign_credit,omitempty"`
	ForeignClosing decimal.Decimal `json:"foreign_closing,omitempty"`
	CurrencyCode   string          `json:"currency_code,omitempty"`
}

// Key is the storage key for this balance row.
func (b Balance) Key() string {
	return b.AccountCode + "/" + b.Period + "/" + b.Dims.Key()
}

// ----------------------------------------------------------------------------
// 📅 Periods --------------------------------------------------------------------
// ----------------------------------------------------------------------------

type PeriodStatus string

const (
	PeriodOpen       PeriodStatus = "open"
	PeriodAdjustment PeriodStatus = "adjustment"
	PeriodClosed     PeriodStatus = "closed"
)

type Period struct {
	Period   string       `json:"period"` // YYYY-MM
	Status   PeriodStatus `json:"status"`
	OpenedAt *time.Time   `json:"opened_at,omitempty"`
	ClosedAt *time.Time   `json:"closed_at,omitempty"`
}

// ----------------------------------------------------------------------------
// 🔁 Void Links -----------------------------------------------------------------
// ----------------------------------------------------------------------------

type VoidLink struct {
	ID                string    `json:"id"`
	OriginalVoucherID string    `json:"original_voucher_id"`
	VoidVoucherID     string    `json:"void_voucher_id"`
	Reason            string    `json:"reason"`
	CreatedAt         time.Time `json:"created_at"`
}

// ----------------------------------------------------------------------------
// 💱 Exchange Rates ---------------------------------------------------------------
// ----------------------------------------------------------------------------

type RateType string

const (
	RateSpot    RateType = "spot"
	RateClosing RateType = "closing"
	RateAverage RateType = "average"
)

type ExchangeRate struct {
	Currency string          `json:"currency"`
	Date     time.Time       `json:"date"`
	Rate     decimal.Decimal `json:"rate"`
	RateType RateType        `json:"rate_type"`
	Source   string          `json:"source,omitempty"`
}

// ----------------------------------------------------------------------------
// 🧮 Closing Templates -----------------------------------------------------------
// ----------------------------------------------------------------------------

// AccountSelector matches accounts by code prefix and/or type; either may be
// left blank/empty to not filter on that axis.
type AccountSelector struct {
	Prefixes     []string      `json:"prefixes,omitempty"`
	AccountTypes []AccountType `json:"account_types,omitempty"`
}

// ClosingTemplate flattens a set of source accounts into a target account at
// period close. The rule is declarative: it names its sources and target,
// not an imperative procedure.
type ClosingTemplate struct {
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	Sources           AccountSelector `json:"sources"`
	TargetAccountCode string          `json:"target_account_code"`
	DescriptionTmpl   string          `json:"description_template"`
	Active            bool            `json:"is_active"`
}

// ----------------------------------------------------------------------------
// 🧾 Voucher Templates (event-driven posting rules) ------------------------------
// ----------------------------------------------------------------------------

type FieldType string

const (
	FieldNumber FieldType = "number"
	FieldString FieldType = "string"
)

// EventSchema names and types the fields a voucher template's expressions
// may reference.
type EventSchema map[string]FieldType

// TemplateEntryShape is one entry line whose account, debit/credit amounts,
// and dimension references are expressions evaluated against event fields.
type TemplateEntryShape struct {
	AccountExpr string            `json:"account_expr"`
	DebitExpr   string            `json:"debit_expr,omitempty"`
	CreditExpr  string            `json:"credit_expr,omitempty"`
	DescExpr    string            `json:"desc_expr,omitempty"`
	DimExprs    map[string]string `json:"dim_exprs,omitempty"`
}

type VoucherTemplate struct {
	Code    string               `json:"code"`
	Name    string               `json:"name"`
	Schema  EventSchema          `json:"schema"`
	Entries []TemplateEntryShape `json:"entries"`
	Active  bool                 `json:"is_active"`
}

// ----------------------------------------------------------------------------
// 📝 Event Sourcing ---------------------------------------------------------------
// ----------------------------------------------------------------------------

// JournalEvent is the atomic, append-only audit record of a voucher
// lifecycle step; idempotency is checked against vouchers, not events.
type JournalEvent struct {
	ID              string    `json:"id"`
	EventType       string    `json:"event_type"`
	Payload         []byte    `json:"payload"`
	ValidTime       time.Time `json:"valid_time"`
	TransactionTime time.Time `json:"transaction_time"`
	UserID          string    `json:"user_id,omitempty"`
}
