package ledger

// Inventory sub-ledger (C5, §4.4). Costing method is configurable per SKU:
// moving-average, FIFO (oldest batches first), or standard (actual vs.
// standard variance posted on receipt, issues at standard). Negative
// inventory is rejected by default; "allow" issues at last known cost and
// marks the deficit pending_cost_adjustment; the next receipt reduces that
// pending quantity and posts no cost-correction voucher.

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CostingMethod string

const (
	CostMovingAverage CostingMethod = "moving_average"
	CostFIFO          CostingMethod = "fifo"
	CostStandard      CostingMethod = "standard"
)

type NegativeInventoryPolicy string

const (
	NegativeReject NegativeInventoryPolicy = "reject"
	NegativeAllow  NegativeInventoryPolicy = "allow"
)

const AccountVarianceExpense = "5007"

// InventoryItem is the per-SKU configuration and running cost state.
type InventoryItem struct {
	SKU             string                  `json:"sku"`
	InventoryAcct   string                  `json:"inventory_account"`
	COGSAcct        string                  `json:"cogs_account"`
	Method          CostingMethod           `json:"method"`
	NegativePolicy  NegativeInventoryPolicy `json:"negative_policy"`
	StandardCost    decimal.Decimal         `json:"standard_cost,omitempty"`
	MovingAvgCost   decimal.Decimal         `json:"moving_avg_cost,omitempty"`
	QuantityOnHand  decimal.Decimal         `json:"quantity_on_hand"`
	PendingAdjustQty decimal.Decimal        `json:"pending_cost_adjustment_qty,omitempty"`
}

// InventoryBatch is one FIFO receipt lot.
type InventoryBatch struct {
	ID           string          `json:"id"`
	SKU          string          `json:"sku"`
	ReceivedAt   time.Time       `json:"received_at"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Remaining    decimal.Decimal `json:"remaining"`
}

// InventoryMove records a receipt or issue for audit purposes.
type InventoryMove struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Kind      string          `json:"kind"` // "receipt" or "issue"
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost,omitempty"`
	Total     decimal.Decimal `json:"total,omitempty"`
	VoucherID string          `json:"voucher_id"`
	MovedAt   time.Time       `json:"moved_at"`
}

type InventoryService struct {
	storage *Storage
	submit  func(req VoucherRequest, userID string) (*Voucher, error)
	confirm func(id, userID string) (*Voucher, error)
}

func NewInventoryService(storage *Storage) *InventoryService {
	return &InventoryService{storage: storage}
}

func (is *InventoryService) WireVoucherOps(
	submit func(req VoucherRequest, userID string) (*Voucher, error),
	confirm func(id, userID string) (*Voucher, error),
) {
	is.submit = submit
	is.confirm = confirm
}

// RegisterItem configures a SKU's costing method and accounts.
func (is *InventoryService) RegisterItem(item *InventoryItem) error {
	if item.NegativePolicy == "" {
		item.NegativePolicy = NegativeReject
	}
	return is.storage.saveInventoryItem(item)
}

// Receive posts a receipt: for moving-average, blends the cost; for FIFO,
// adds a new batch; for standard, posts actual-vs-standard variance to
// AccountVarianceExpense and books the stock at standard (§4.4).
func (is *InventoryService) Receive(sku string, qty, actualUnitCost decimal.Decimal, when time.Time, userID string) (*Voucher, error) {
	item, found, err := is.storage.getInventoryItem(sku)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NewError(CodeAccountNotFound, "inventory item not registered", "sku", sku)
	}

	var bookUnitCost decimal.Decimal
	var varianceTotal decimal.Decimal
	switch item.Method {
	case CostFIFO:
		batch := &InventoryBatch{ID: uuid.New().String(), SKU: sku, ReceivedAt: when, Quantity: qty, UnitCost: actualUnitCost, Remaining: qty}
		if err := is.storage.saveInventoryBatch(batch); err != nil {
			return nil, err
		}
		bookUnitCost = actualUnitCost
	case CostStandard:
		bookUnitCost = item.StandardCost
		varianceTotal = RoundMoney(actualUnitCost.Sub(item.StandardCost).Mul(qty))
	default: // moving average
		totalCostBefore := item.MovingAvgCost.Mul(item.QuantityOnHand)
		totalCostAfter := totalCostBefore.Add(actualUnitCost.Mul(qty))
		newQty := item.QuantityOnHand.Add(qty)
		if newQty.IsPositive() {
			item.MovingAvgCost = RoundMoney(totalCostAfter.Div(newQty))
		}
		bookUnitCost = actualUnitCost
	}

	item.QuantityOnHand = item.QuantityOnHand.Add(qty)
	if item.PendingAdjustQty.IsPositive() {
		// A prior "allow" deficit is cleared from the pending quantity; no
		// correction voucher is posted for it.
		adjustQty := decimal.Min(item.PendingAdjustQty, qty)
		item.PendingAdjustQty = item.PendingAdjustQty.Sub(adjustQty)
	}
	if err := is.storage.saveInventoryItem(item); err != nil {
		return nil, err
	}

	total := RoundMoney(qty.Mul(bookUnitCost))
	entries := []VoucherEntry{
		{AccountCode: item.InventoryAcct, Debit: total, Credit: Zero, Dims: NoDimensions()},
	}
	if item.Method == CostStandard && !varianceTotal.IsZero() {
		if varianceTotal.IsPositive() {
			entries = append(entries, VoucherEntry{AccountCode: AccountVarianceExpense, Debit: varianceTotal, Credit: Zero, Dims: NoDimensions()})
			entries = append(entries, VoucherEntry{AccountCode: AccountCash, Debit: Zero, Credit: total.Add(varianceTotal), Dims: NoDimensions()})
		} else {
			entries = append(entries, VoucherEntry{AccountCode: AccountVarianceExpense, Debit: Zero, Credit: varianceTotal.Abs(), Dims: NoDimensions()})
			entries = append(entries, VoucherEntry{AccountCode: AccountCash, Debit: Zero, Credit: total.Sub(varianceTotal.Abs()), Dims: NoDimensions()})
		}
	} else {
		entries = append(entries, VoucherEntry{AccountCode: AccountCash, Debit: Zero, Credit: total, Dims: NoDimensions()})
	}

	v, err := is.postAndConfirm(entries, when, "Inventory receipt "+sku, userID)
	if err != nil {
		return nil, err
	}
	_ = is.storage.saveInventoryMove(&InventoryMove{ID: uuid.New().String(), SKU: sku, Kind: "receipt", Quantity: qty, UnitCost: bookUnitCost, Total: total, VoucherID: v.ID, MovedAt: when})
	return v, nil
}

// Issue consumes qty, computing COGS per the item's costing method, and
// posts a COGS voucher. Scenario 8's FIFO numbers are the canonical check.
func (is *InventoryService) Issue(sku string, qty decimal.Decimal, when time.Time, userID string) (*Voucher, decimal.Decimal, error) {
	item, found, err := is.storage.getInventoryItem(sku)
	if err != nil {
		return nil, Zero, err
	}
	if !found {
		return nil, Zero, NewError(CodeAccountNotFound, "inventory item not registered", "sku", sku)
	}

	if qty.GreaterThan(item.QuantityOnHand) && item.NegativePolicy == NegativeReject {
		return nil, Zero, NewError(CodeNegativeInventory, "issue would drive inventory negative", "sku", sku)
	}

	var cogs decimal.Decimal
	deficit := Zero
	issueQty := qty
	if qty.GreaterThan(item.QuantityOnHand) {
		deficit = qty.Sub(item.QuantityOnHand)
		issueQty = item.QuantityOnHand
	}

	switch item.Method {
	case CostFIFO:
		cogs, err = is.consumeFIFO(sku, issueQty)
		if err != nil {
			return nil, Zero, err
		}
		if deficit.IsPositive() {
			// allow path: price the deficit at last known cost.
			lastCost, _ := is.lastFIFOCost(sku)
			cogs = cogs.Add(RoundMoney(deficit.Mul(lastCost)))
		}
	case CostStandard:
		cogs = RoundMoney(qty.Mul(item.StandardCost))
	default:
		cogs = RoundMoney(qty.Mul(item.MovingAvgCost))
	}

	item.QuantityOnHand = item.QuantityOnHand.Sub(qty)
	if item.QuantityOnHand.IsNegative() {
		item.QuantityOnHand = Zero
	}
	if deficit.IsPositive() {
		item.PendingAdjustQty = item.PendingAdjustQty.Add(deficit)
	}
	if err := is.storage.saveInventoryItem(item); err != nil {
		return nil, Zero, err
	}

	entries := []VoucherEntry{
		{AccountCode: item.COGSAcct, Debit: cogs, Credit: Zero, Dims: NoDimensions()},
		{AccountCode: item.InventoryAcct, Debit: Zero, Credit: cogs, Dims: NoDimensions()},
	}
	v, err := is.postAndConfirm(entries, when, "Inventory issue "+sku, userID)
	if err != nil {
		return nil, Zero, err
	}
	_ = is.storage.saveInventoryMove(&InventoryMove{ID: uuid.New().String(), SKU: sku, Kind: "issue", Quantity: qty, Total: cogs, VoucherID: v.ID, MovedAt: when})
	return v, cogs, nil
}

// consumeFIFO consumes qty from the oldest remaining batches first and
// returns the total cost consumed.
func (is *InventoryService) consumeFIFO(sku string, qty decimal.Decimal) (decimal.Decimal, error) {
	batches, err := is.storage.batchesForSKU(sku)
	if err != nil {
		return Zero, err
	}
	sortBatchesByDate(batches)

	remaining := qty
	total := Zero
	for _, b := range batches {
		if remaining.IsZero() || !remaining.IsPositive() {
			break
		}
		if b.Remaining.IsZero() {
			continue
		}
		take := decimal.Min(b.Remaining, remaining)
		total = total.Add(take.Mul(b.UnitCost))
		b.Remaining = b.Remaining.Sub(take)
		remaining = remaining.Sub(take)
		if err := is.storage.saveInventoryBatch(b); err != nil {
			return Zero, err
		}
	}
	return RoundMoney(total), nil
}

func (is *InventoryService) lastFIFOCost(sku string) (decimal.Decimal, error) {
	batches, err := is.storage.batchesForSKU(sku)
	if err != nil {
		return Zero, err
	}
	if len(batches) == 0 {
		return Zero, nil
	}
	sortBatchesByDate(batches)
	return batches[len(batches)-1].UnitCost, nil
}

func sortBatchesByDate(bs []*InventoryBatch) {
	for i := 1; i < len(bs); i++ {
		for j := i; j > 0 && bs[j-1].ReceivedAt.After(bs[j].ReceivedAt); j-- {
			bs[j-1], bs[j] = bs[j], bs[j-1]
		}
	}
}

func (is *InventoryService) postAndConfirm(entries []VoucherEntry, date time.Time, desc, userID string) (*Voucher, error) {
	v, err := is.submit(VoucherRequest{Date: date, Description: desc, EntryType: NormalEntry, Entries: entries}, userID)
	if err != nil {
		return nil, err
	}
	if v.Status == Draft {
		v.Status = Reviewed
		if err := is.storage.SaveVoucher(v); err != nil {
			return nil, err
		}
	}
	return is.confirm(v.ID, userID)
}
