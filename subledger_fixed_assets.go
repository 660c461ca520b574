package ledger

// Fixed-assets sub-ledger (C5, §4.4). Assets depreciate by straight-line,
// double-declining-balance, or sum-of-years-digits; an impairment can write
// an asset's book value down below its depreciation schedule; CIP projects
// accumulate capitalized cost and transfer into a depreciable asset on
// completion.

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DepreciationMethod string

const (
	DepreciationStraightLine       DepreciationMethod = "straight_line"
	DepreciationDoubleDeclining    DepreciationMethod = "double_declining"
	DepreciationSumOfYearsDigits   DepreciationMethod = "sum_of_years_digits"
)

const (
	AccountFixedAsset       = "1004"
	AccountAccumDepr        = "1005"
	AccountCIP              = "1006"
	AccountDeprExpense      = "5002"
	AccountImpairmentExpense = "5006"
)

// FixedAsset tracks one depreciable asset's schedule and accumulated
// depreciation.
type FixedAsset struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	AcquiredAt      time.Time          `json:"acquired_at"`
	Cost            decimal.Decimal    `json:"cost"`
	Salvage         decimal.Decimal    `json:"salvage"`
	UsefulLifeYears int                `json:"useful_life_years"`
	Method          DepreciationMethod `json:"method"`
	AccumDepr       decimal.Decimal    `json:"accumulated_depreciation"`
	Impairment      decimal.Decimal    `json:"impairment"`
	PeriodsElapsed  int                `json:"periods_elapsed"`
	Disposed        bool               `json:"disposed"`
}

// BookValue is cost less accumulated depreciation and impairment.
func (fa *FixedAsset) BookValue() decimal.Decimal {
	return RoundMoney(fa.Cost.Sub(fa.AccumDepr).Sub(fa.Impairment))
}

// CIPProject accumulates capitalized cost prior to an asset going into
// service; Transfer converts it into a FixedAsset.
type CIPProject struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	AccumCost    decimal.Decimal `json:"accumulated_cost"`
	Completed    bool            `json:"completed"`
	TransferAsset string         `json:"transferred_asset_id,omitempty"`
}

type FixedAssetService struct {
	storage *Storage
	submit  func(req VoucherRequest, userID string) (*Voucher, error)
	confirm func(id, userID string) (*Voucher, error)
}

func NewFixedAssetService(storage *Storage) *FixedAssetService {
	return &FixedAssetService{storage: storage}
}

func (fas *FixedAssetService) WireVoucherOps(
	submit func(req VoucherRequest, userID string) (*Voucher, error),
	confirm func(id, userID string) (*Voucher, error),
) {
	fas.submit = submit
	fas.confirm = confirm
}

// OpenCIPProject starts a construction-in-progress accumulation.
func (fas *FixedAssetService) OpenCIPProject(name string) (*CIPProject, error) {
	p := &CIPProject{ID: uuid.New().String(), Name: name}
	return p, fas.storage.saveCIPProject(p)
}

// CapitalizeCost books a CIP cost addition (debit CIP, credit cash).
func (fas *FixedAssetService) CapitalizeCost(projectID string, amount decimal.Decimal, date time.Time, userID string) (*Voucher, error) {
	p, err := fas.storage.getCIPProject(projectID)
	if err != nil {
		return nil, err
	}
	entries := []VoucherEntry{
		{AccountCode: AccountCIP, Debit: amount, Credit: Zero, Dims: NoDimensions()},
		{AccountCode: AccountCash, Debit: Zero, Credit: amount, Dims: NoDimensions()},
	}
	v, err := fas.postAndConfirm(entries, date, "CIP capitalization "+p.Name, userID)
	if err != nil {
		return nil, err
	}
	p.AccumCost = p.AccumCost.Add(amount)
	return v, fas.storage.saveCIPProject(p)
}

// TransferToAsset closes a completed CIP project into an in-service fixed
// asset (credit CIP, debit the fixed-asset account) and starts its
// depreciation schedule.
func (fas *FixedAssetService) TransferToAsset(projectID string, usefulLifeYears int, method DepreciationMethod, salvage decimal.Decimal, date time.Time, userID string) (*FixedAsset, error) {
	p, err := fas.storage.getCIPProject(projectID)
	if err != nil {
		return nil, err
	}

	asset := &FixedAsset{
		ID:              uuid.New().String(),
		Name:            p.Name,
		AcquiredAt:      date,
		Cost:            p.AccumCost,
		Salvage:         salvage,
		UsefulLifeYears: usefulLifeYears,
		Method:          method,
	}

	entries := []VoucherEntry{
		{AccountCode: AccountFixedAsset, Debit: p.AccumCost, Credit: Zero, Dims: NoDimensions()},
		{AccountCode: AccountCIP, Debit: Zero, Credit: p.AccumCost, Dims: NoDimensions()},
	}
	if _, err := fas.postAndConfirm(entries, date, "CIP transfer "+p.Name, userID); err != nil {
		return nil, err
	}

	p.Completed = true
	p.TransferAsset = asset.ID
	if err := fas.storage.saveCIPProject(p); err != nil {
		return nil, err
	}
	return asset, fas.storage.saveFixedAsset(asset)
}

// PostDepreciation computes one period's charge per the asset's method and
// posts it (debit depreciation expense, credit accumulated depreciation).
func (fas *FixedAssetService) PostDepreciation(assetID string, date time.Time, userID string) (*Voucher, decimal.Decimal, error) {
	asset, err := fas.storage.getFixedAsset(assetID)
	if err != nil {
		return nil, Zero, err
	}
	if asset.Disposed {
		return nil, Zero, NewError(CodeAccountNotFound, "asset is disposed", "asset_id", assetID)
	}

	depreciable := asset.Cost.Sub(asset.Salvage)
	var charge decimal.Decimal
	switch asset.Method {
	case DepreciationDoubleDeclining:
		rate := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(asset.UsefulLifeYears)))
		bookValue := asset.BookValue()
		charge = RoundMoney(bookValue.Mul(rate))
		maxCharge := bookValue.Sub(asset.Salvage)
		if charge.GreaterThan(maxCharge) {
			charge = maxCharge
		}
	case DepreciationSumOfYearsDigits:
		n := asset.UsefulLifeYears
		sumOfYears := decimal.NewFromInt(int64(n * (n + 1) / 2))
		yearsRemaining := n - asset.PeriodsElapsed
		if yearsRemaining < 0 {
			yearsRemaining = 0
		}
		charge = RoundMoney(depreciable.Mul(decimal.NewFromInt(int64(yearsRemaining))).Div(sumOfYears))
	default: // straight line
		charge = RoundMoney(depreciable.Div(decimal.NewFromInt(int64(asset.UsefulLifeYears))))
	}

	if charge.IsNegative() {
		charge = Zero
	}
	remaining := asset.BookValue().Sub(asset.Salvage)
	if charge.GreaterThan(remaining) {
		charge = remaining
	}
	if charge.IsZero() {
		return nil, Zero, nil
	}

	entries := []VoucherEntry{
		{AccountCode: AccountDeprExpense, Debit: charge, Credit: Zero, Dims: NoDimensions()},
		{AccountCode: AccountAccumDepr, Debit: Zero, Credit: charge, Dims: NoDimensions()},
	}
	v, err := fas.postAndConfirm(entries, date, "Depreciation "+asset.Name, userID)
	if err != nil {
		return nil, Zero, err
	}

	asset.AccumDepr = asset.AccumDepr.Add(charge)
	asset.PeriodsElapsed++
	return v, charge, fas.storage.saveFixedAsset(asset)
}

// Impair writes the asset's book value down by amount, posting the loss to
// AccountImpairmentExpense.
func (fas *FixedAssetService) Impair(assetID string, amount decimal.Decimal, date time.Time, userID string) (*Voucher, error) {
	asset, err := fas.storage.getFixedAsset(assetID)
	if err != nil {
		return nil, err
	}
	entries := []VoucherEntry{
		{AccountCode: AccountImpairmentExpense, Debit: amount, Credit: Zero, Dims: NoDimensions()},
		{AccountCode: AccountAccumDepr, Debit: Zero, Credit: amount, Dims: NoDimensions()},
	}
	v, err := fas.postAndConfirm(entries, date, "Impairment "+asset.Name, userID)
	if err != nil {
		return nil, err
	}
	asset.Impairment = asset.Impairment.Add(amount)
	return v, fas.storage.saveFixedAsset(asset)
}

func (fas *FixedAssetService) postAndConfirm(entries []VoucherEntry, date time.Time, desc, userID string) (*Voucher, error) {
	v, err := fas.submit(VoucherRequest{Date: date, Description: desc, EntryType: NormalEntry, Entries: entries}, userID)
	if err != nil {
		return nil, err
	}
	if v.Status == Draft {
		v.Status = Reviewed
		if err := fas.storage.SaveVoucher(v); err != nil {
			return nil, err
		}
	}
	return fas.confirm(v.ID, userID)
}
