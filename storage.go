package ledger

// Storage layer. Persists the engine's tables in bbolt buckets, JSON-encoded
// per row; inventory items share the inventory-moves bucket with batches. The teacher's original storage layer
// serialized through a generated protobuf package that shipped without its
// .proto sources or generated code in this pack; JSON replaces it here,
// extending the event-payload encoding the teacher already used elsewhere
// (see event_store.go) rather than introducing a new pattern.

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Storage buckets, one per logical table of spec §6.
var (
	BucketEvents           = []byte("events")
	BucketAccounts         = []byte("accounts")
	BucketDimensions       = []byte("dimensions")
	BucketVouchers         = []byte("vouchers")
	BucketBalances         = []byte("balances")
	BucketPeriods          = []byte("periods")
	BucketVoidLinks        = []byte("void_vouchers")
	BucketExchangeRates    = []byte("exchange_rates")
	BucketClosingTemplates = []byte("closing_templates")
	BucketVoucherTemplates = []byte("voucher_templates")
	BucketARItems          = []byte("ar_items")
	BucketAPItems          = []byte("ap_items")
	BucketInventoryBatches = []byte("inventory_batches")
	BucketInventoryMoves   = []byte("inventory_moves")
	BucketFixedAssets      = []byte("fixed_assets")
	BucketCIPProjects      = []byte("cip_projects")
	BucketSchedules        = []byte("recognition_schedules")
	BucketReconciliations  = []byte("reconciliations")
)

var allBuckets = [][]byte{
	BucketEvents, BucketAccounts, BucketDimensions, BucketVouchers,
	BucketBalances, BucketPeriods, BucketVoidLinks, BucketExchangeRates,
	BucketClosingTemplates, BucketVoucherTemplates, BucketARItems,
	BucketAPItems, BucketInventoryBatches, BucketInventoryMoves,
	BucketFixedAssets, BucketCIPProjects, BucketSchedules, BucketReconciliations,
}

// Storage provides persistent storage for the ledger, backed by a single
// bbolt file — the unit of isolation per spec §5.
type Storage struct {
	db *bbolt.DB
}

// NewStorage opens (creating if absent) the ledger file at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}

	s := &Storage{db: db}
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

func put(tx *bbolt.Tx, bucket []byte, key string, v any) error {
	b := tx.Bucket(bucket)
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", bucket, key, err)
	}
	return b.Put([]byte(key), data)
}

func get(tx *bbolt.Tx, bucket []byte, key string, v any) (bool, error) {
	b := tx.Bucket(bucket)
	data := b.Get([]byte(key))
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

func scan[T any](tx *bbolt.Tx, bucket []byte, match func(*T) bool) ([]*T, error) {
	var out []*T
	b := tx.Bucket(bucket)
	err := b.ForEach(func(k, v []byte) error {
		item := new(T)
		if err := json.Unmarshal(v, item); err != nil {
			return fmt.Errorf("failed to unmarshal %s/%s: %w", bucket, k, err)
		}
		if match == nil || match(item) {
			out = append(out, item)
		}
		return nil
	})
	return out, err
}

// ---- Events -----------------------------------------------------------------

func (s *Storage) AppendEvent(event *JournalEvent) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		key := fmt.Sprintf("%020d_%s", event.TransactionTime.UnixNano(), event.ID)
		return put(tx, BucketEvents, key, event)
	})
}

func (s *Storage) GetEvents(from, to time.Time) ([]*JournalEvent, error) {
	var events []*JournalEvent
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(BucketEvents)
		c := b.Cursor()
		fromKey := []byte(fmt.Sprintf("%020d", from.UnixNano()))
		toKey := []byte(fmt.Sprintf("%020d", to.UnixNano()+1))
		for k, v := c.Seek(fromKey); k != nil && string(k) < string(toKey); k, v = c.Next() {
			var event JournalEvent
			if err := json.Unmarshal(v, &event); err != nil {
				return fmt.Errorf("failed to unmarshal event %s: %w", k, err)
			}
			events = append(events, &event)
		}
		return nil
	})
	return events, err
}

// ---- Accounts -----------------------------------------------------------------

func (s *Storage) SaveAccount(a *Account) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketAccounts, a.Code, a) })
}

func (s *Storage) GetAccount(code string) (*Account, error) {
	var a Account
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var e error
		found, e = get(tx, BucketAccounts, code, &a)
		return e
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NewError(CodeAccountNotFound, "account not found", "account_code", code)
	}
	return &a, nil
}

func (s *Storage) AllAccounts() ([]*Account, error) {
	var out []*Account
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[Account](tx, BucketAccounts, nil)
		out = items
		return e
	})
	return out, err
}

// ---- Dimensions -----------------------------------------------------------------

func dimKey(t DimensionType, code string) string { return string(t) + "/" + code }

func (s *Storage) SaveDimension(d *Dimension) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketDimensions, dimKey(d.Type, d.Code), d) })
}

func (s *Storage) GetDimension(t DimensionType, code string) (*Dimension, error) {
	if code == "" || code == DimensionSentinel {
		return nil, nil
	}
	var d Dimension
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var e error
		found, e = get(tx, BucketDimensions, dimKey(t, code), &d)
		return e
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NewError(CodeDimensionNotFound, "dimension not found", "type", string(t), "code", code)
	}
	return &d, nil
}

func (s *Storage) AllDimensions() ([]*Dimension, error) {
	var out []*Dimension
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[Dimension](tx, BucketDimensions, nil)
		out = items
		return e
	})
	return out, err
}

// ---- Vouchers -----------------------------------------------------------------

func (s *Storage) SaveVoucher(v *Voucher) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketVouchers, v.ID, v) })
}

func (s *Storage) GetVoucher(id string) (*Voucher, error) {
	var v Voucher
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var e error
		found, e = get(tx, BucketVouchers, id, &v)
		return e
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NewError(CodeVoucherNotFound, "voucher not found", "voucher_id", id)
	}
	return &v, nil
}

func (s *Storage) FindVoucherBySourceEvent(sourceEventID string) (*Voucher, error) {
	var found *Voucher
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[Voucher](tx, BucketVouchers, func(v *Voucher) bool {
			return sourceEventID != "" && v.SourceEventID == sourceEventID
		})
		if len(items) > 0 {
			found = items[0]
		}
		return e
	})
	return found, err
}

// VoucherFilter is the lookup predicate for the Voucher Store's `lookup`.
type VoucherFilter struct {
	Period      string
	Status      VoucherStatus
	AccountCode string
}

func (s *Storage) LookupVouchers(f VoucherFilter) ([]*Voucher, error) {
	var out []*Voucher
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[Voucher](tx, BucketVouchers, func(v *Voucher) bool {
			if f.Period != "" && v.Period != f.Period {
				return false
			}
			if f.Status != "" && v.Status != f.Status {
				return false
			}
			if f.AccountCode != "" {
				hit := false
				for _, entry := range v.Entries {
					if entry.AccountCode == f.AccountCode {
						hit = true
						break
					}
				}
				if !hit {
					return false
				}
			}
			return true
		})
		out = items
		return e
	})
	return out, err
}

func (s *Storage) AllConfirmedVouchersOrdered() ([]*Voucher, error) {
	all, err := s.AllVouchers()
	if err != nil {
		return nil, err
	}
	var confirmed []*Voucher
	for _, v := range all {
		if v.Status == Confirmed || v.Status == Voided {
			confirmed = append(confirmed, v)
		}
	}
	sortVouchersByNumber(confirmed)
	return confirmed, nil
}

func (s *Storage) AllVouchers() ([]*Voucher, error) {
	var out []*Voucher
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[Voucher](tx, BucketVouchers, nil)
		out = items
		return e
	})
	return out, err
}

func (s *Storage) DeleteVoucher(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketVouchers).Delete([]byte(id))
	})
}

func sortVouchersByNumber(vs []*Voucher) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j-1].Number > vs[j].Number; j-- {
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}

// ---- Balances -----------------------------------------------------------------

func (s *Storage) SaveBalance(b *Balance) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketBalances, b.Key(), b) })
}

func (s *Storage) GetBalance(key string) (*Balance, bool, error) {
	var b Balance
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var e error
		found, e = get(tx, BucketBalances, key, &b)
		return e
	})
	return &b, found, err
}

func (s *Storage) BalancesForPeriod(period string) ([]*Balance, error) {
	var out []*Balance
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[Balance](tx, BucketBalances, func(b *Balance) bool { return b.Period == period })
		out = items
		return e
	})
	return out, err
}

func (s *Storage) BalancesForAccount(accountCode string) ([]*Balance, error) {
	var out []*Balance
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[Balance](tx, BucketBalances, func(b *Balance) bool { return b.AccountCode == accountCode })
		out = items
		return e
	})
	return out, err
}

func (s *Storage) AllBalances() ([]*Balance, error) {
	var out []*Balance
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[Balance](tx, BucketBalances, nil)
		out = items
		return e
	})
	return out, err
}

func (s *Storage) ClearBalances() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(BucketBalances); err != nil {
			return err
		}
		_, err := tx.CreateBucket(BucketBalances)
		return err
	})
}

// ---- Periods -----------------------------------------------------------------

func (s *Storage) SavePeriod(p *Period) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketPeriods, p.Period, p) })
}

func (s *Storage) GetPeriod(period string) (*Period, bool, error) {
	var p Period
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var e error
		found, e = get(tx, BucketPeriods, period, &p)
		return e
	})
	return &p, found, err
}

// ---- Void links -----------------------------------------------------------------

func (s *Storage) SaveVoidLink(v *VoidLink) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketVoidLinks, v.ID, v) })
}

func (s *Storage) AllVoidLinks() ([]*VoidLink, error) {
	var out []*VoidLink
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[VoidLink](tx, BucketVoidLinks, nil)
		out = items
		return e
	})
	return out, err
}

// ---- Exchange rates -----------------------------------------------------------------

func rateKey(currency string, rateType RateType, date time.Time) string {
	return currency + "/" + string(rateType) + "/" + date.Format("2006-01-02")
}

func (s *Storage) SaveExchangeRate(r *ExchangeRate) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, BucketExchangeRates, rateKey(r.Currency, r.RateType, r.Date), r)
	})
}

func (s *Storage) AllExchangeRates(currency string, rateType RateType) ([]*ExchangeRate, error) {
	var out []*ExchangeRate
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[ExchangeRate](tx, BucketExchangeRates, func(r *ExchangeRate) bool {
			return r.Currency == currency && r.RateType == rateType
		})
		out = items
		return e
	})
	return out, err
}

// ---- Closing & voucher templates -----------------------------------------------------------------

func (s *Storage) SaveClosingTemplate(t *ClosingTemplate) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketClosingTemplates, t.Code, t) })
}

func (s *Storage) AllClosingTemplates() ([]*ClosingTemplate, error) {
	var out []*ClosingTemplate
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[ClosingTemplate](tx, BucketClosingTemplates, nil)
		out = items
		return e
	})
	return out, err
}

func (s *Storage) SaveVoucherTemplate(t *VoucherTemplate) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketVoucherTemplates, t.Code, t) })
}

func (s *Storage) GetVoucherTemplate(code string) (*VoucherTemplate, bool, error) {
	var t VoucherTemplate
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var e error
		found, e = get(tx, BucketVoucherTemplates, code, &t)
		return e
	})
	return &t, found, err
}

// ---- AR/AP items -----------------------------------------------------------------

func (s *Storage) saveReceivable(item *ReceivableItem) error {
	bucket := BucketARItems
	if item.Kind == "AP" {
		bucket = BucketAPItems
	}
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, bucket, item.ID, item) })
}

func (s *Storage) getReceivable(id string) (*ReceivableItem, error) {
	var item ReceivableItem
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		if f, e := get(tx, BucketARItems, id, &item); e != nil {
			return e
		} else if f {
			found = true
			return nil
		}
		var e error
		found, e = get(tx, BucketAPItems, id, &item)
		return e
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("receivable item not found: %s", id)
	}
	return &item, nil
}

func (s *Storage) allReceivables(kind string) ([]*ReceivableItem, error) {
	bucket := BucketARItems
	if kind == "AP" {
		bucket = BucketAPItems
	}
	var out []*ReceivableItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[ReceivableItem](tx, bucket, nil)
		out = items
		return e
	})
	return out, err
}

// ---- Inventory -----------------------------------------------------------------

func (s *Storage) saveInventoryBatch(b *InventoryBatch) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketInventoryBatches, b.ID, b) })
}

func (s *Storage) batchesForSKU(sku string) ([]*InventoryBatch, error) {
	var out []*InventoryBatch
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[InventoryBatch](tx, BucketInventoryBatches, func(b *InventoryBatch) bool { return b.SKU == sku })
		out = items
		return e
	})
	return out, err
}

func (s *Storage) saveInventoryMove(m *InventoryMove) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketInventoryMoves, m.ID, m) })
}

func (s *Storage) getInventoryItem(sku string) (*InventoryItem, bool, error) {
	var item InventoryItem
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var e error
		found, e = get(tx, BucketInventoryMoves, "item/"+sku, &item)
		return e
	})
	return &item, found, err
}

func (s *Storage) saveInventoryItem(item *InventoryItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketInventoryMoves, "item/"+item.SKU, item) })
}

// ---- Fixed assets -----------------------------------------------------------------

func (s *Storage) saveFixedAsset(a *FixedAsset) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketFixedAssets, a.ID, a) })
}

func (s *Storage) getFixedAsset(id string) (*FixedAsset, error) {
	var a FixedAsset
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var e error
		found, e = get(tx, BucketFixedAssets, id, &a)
		return e
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("fixed asset not found: %s", id)
	}
	return &a, nil
}

func (s *Storage) allFixedAssets() ([]*FixedAsset, error) {
	var out []*FixedAsset
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[FixedAsset](tx, BucketFixedAssets, nil)
		out = items
		return e
	})
	return out, err
}

func (s *Storage) saveCIPProject(p *CIPProject) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketCIPProjects, p.ID, p) })
}

func (s *Storage) getCIPProject(id string) (*CIPProject, error) {
	var p CIPProject
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var e error
		found, e = get(tx, BucketCIPProjects, id, &p)
		return e
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("CIP project not found: %s", id)
	}
	return &p, nil
}

// ---- Recognition schedules -----------------------------------------------------------------

func (s *Storage) saveSchedule(sch *RecognitionSchedule) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketSchedules, sch.ID, sch) })
}

func (s *Storage) allSchedules() ([]*RecognitionSchedule, error) {
	var out []*RecognitionSchedule
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[RecognitionSchedule](tx, BucketSchedules, nil)
		out = items
		return e
	})
	return out, err
}

// ---- Reconciliations -----------------------------------------------------------------

func (s *Storage) SaveReconciliation(r *Reconciliation) error {
	return s.db.Update(func(tx *bbolt.Tx) error { return put(tx, BucketReconciliations, r.ID, r) })
}

func (s *Storage) AllReconciliations() ([]*Reconciliation, error) {
	var out []*Reconciliation
	err := s.db.View(func(tx *bbolt.Tx) error {
		items, e := scan[Reconciliation](tx, BucketReconciliations, nil)
		out = items
		return e
	})
	return out, err
}
