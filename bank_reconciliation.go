package ledger

// Bank/statement reconciliation (§4.4). Matches externally-reported
// statement lines against posted voucher entries for an account: exact
// amount-and-near-date matches first, then two-entry combinations that sum
// to the statement amount. Confirmed matches are recorded so later runs
// skip already-reconciled entries.

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExternalStatement is one externally reported line (e.g. a bank statement
// row) to reconcile against the ledger.
type ExternalStatement struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference"`
}

// ledgerEntryRef identifies one voucher line for matching purposes.
type ledgerEntryRef struct {
	VoucherID string
	LineNo    int
	Date      time.Time
	Amount    decimal.Decimal
}

func (r ledgerEntryRef) id() string {
	return r.VoucherID + "/" + itoa(r.LineNo)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ReconciliationMatch proposes internal entries for one external statement
// line.
type ReconciliationMatch struct {
	Statement *ExternalStatement `json:"statement"`
	EntryIDs  []string           `json:"entry_ids"`
	Score     float64            `json:"score"`
	MatchType string             `json:"match_type"` // "exact" or "combination"
}

type ReconciliationStatus string

const (
	Reconciled ReconciliationStatus = "reconciled"
)

// Reconciliation is a confirmed link between an external reference and the
// ledger entries it accounts for.
type Reconciliation struct {
	ID          string               `json:"id"`
	ExternalRef string               `json:"external_ref"`
	AccountCode string               `json:"account_code"`
	EntryIDs    []string             `json:"entry_ids"`
	Status      ReconciliationStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
}

// ReconciliationSummary reports an account's book balance and how many of
// its entries are reconciled; it carries no bank-statement balance.
type ReconciliationSummary struct {
	AccountCode        string          `json:"account_code"`
	BookBalance        decimal.Decimal `json:"book_balance"`
	ReconciledCount    int             `json:"reconciled_count"`
	UnreconciledCount  int             `json:"unreconciled_count"`
	ReconciliationRate float64         `json:"reconciliation_rate"`
}

type ReconciliationService struct {
	storage *Storage
}

func NewReconciliationService(storage *Storage) *ReconciliationService {
	return &ReconciliationService{storage: storage}
}

// entriesForAccount collects every confirmed voucher line posted to
// accountCode, tagged with its voucher/line identity.
func (rs *ReconciliationService) entriesForAccount(accountCode string) ([]ledgerEntryRef, error) {
	vouchers, err := rs.storage.AllVouchers()
	if err != nil {
		return nil, err
	}
	var refs []ledgerEntryRef
	for _, v := range vouchers {
		if v.Status != Confirmed {
			continue
		}
		for _, e := range v.Entries {
			if e.AccountCode != accountCode {
				continue
			}
			amount := e.Debit
			if !e.Credit.IsZero() {
				amount = e.Credit.Neg()
			}
			refs = append(refs, ledgerEntryRef{VoucherID: v.ID, LineNo: e.LineNo, Date: v.Date, Amount: amount})
		}
	}
	return refs, nil
}

func (rs *ReconciliationService) reconciledSet(accountCode string) (map[string]bool, error) {
	recs, err := rs.storage.AllReconciliations()
	if err != nil {
		return nil, err
	}
	set := map[string]bool{}
	for _, r := range recs {
		if r.AccountCode != accountCode {
			continue
		}
		for _, id := range r.EntryIDs {
			set[id] = true
		}
	}
	return set, nil
}

// AutoReconcile proposes matches for each statement line against the
// unreconciled entries of accountCode: exact amount within 3 days first,
// then 2-entry combinations summing to the statement amount.
func (rs *ReconciliationService) AutoReconcile(accountCode string, statements []*ExternalStatement) ([]*ReconciliationMatch, error) {
	refs, err := rs.entriesForAccount(accountCode)
	if err != nil {
		return nil, err
	}
	reconciled, err := rs.reconciledSet(accountCode)
	if err != nil {
		return nil, err
	}
	var open []ledgerEntryRef
	for _, r := range refs {
		if !reconciled[r.id()] {
			open = append(open, r)
		}
	}

	var matches []*ReconciliationMatch
	for _, stmt := range statements {
		if m := rs.findBestMatch(stmt, open); m != nil {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (rs *ReconciliationService) findBestMatch(stmt *ExternalStatement, entries []ledgerEntryRef) *ReconciliationMatch {
	var best *ReconciliationMatch
	bestScore := 0.0

	for _, entry := range entries {
		if !entry.Amount.Equal(stmt.Amount) {
			continue
		}
		days := daysBetween(stmt.Date, entry.Date)
		if days > 3 {
			continue
		}
		score := 1.0 - float64(days)*0.1
		if score > bestScore {
			bestScore = score
			best = &ReconciliationMatch{Statement: stmt, EntryIDs: []string{entry.id()}, Score: score, MatchType: "exact"}
		}
	}
	if best != nil {
		return best
	}

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			combined := entries[i].Amount.Add(entries[j].Amount)
			if combined.Equal(stmt.Amount) {
				return &ReconciliationMatch{
					Statement: stmt,
					EntryIDs:  []string{entries[i].id(), entries[j].id()},
					Score:     0.8,
					MatchType: "combination",
				}
			}
		}
	}
	return nil
}

func daysBetween(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

// Confirm persists a proposed match as a Reconciliation record.
func (rs *ReconciliationService) Confirm(accountCode string, match *ReconciliationMatch) (*Reconciliation, error) {
	r := &Reconciliation{
		ID:          uuid.New().String(),
		ExternalRef: match.Statement.Reference,
		AccountCode: accountCode,
		EntryIDs:    match.EntryIDs,
		Status:      Reconciled,
		CreatedAt:   match.Statement.Date,
	}
	return r, rs.storage.SaveReconciliation(r)
}

// ManualReconcile records an operator-confirmed link bypassing AutoReconcile.
func (rs *ReconciliationService) ManualReconcile(accountCode, externalRef string, entryIDs []string, at time.Time) (*Reconciliation, error) {
	r := &Reconciliation{
		ID:          uuid.New().String(),
		ExternalRef: externalRef,
		AccountCode: accountCode,
		EntryIDs:    entryIDs,
		Status:      Reconciled,
		CreatedAt:   at,
	}
	return r, rs.storage.SaveReconciliation(r)
}

// Summary reports the reconciliation rate for an account's entries as of
// the current ledger state.
func (rs *ReconciliationService) Summary(accountCode string, bookBalance decimal.Decimal) (*ReconciliationSummary, error) {
	refs, err := rs.entriesForAccount(accountCode)
	if err != nil {
		return nil, err
	}
	reconciled, err := rs.reconciledSet(accountCode)
	if err != nil {
		return nil, err
	}
	reconciledCount := 0
	for _, r := range refs {
		if reconciled[r.id()] {
			reconciledCount++
		}
	}
	total := len(refs)
	rate := 0.0
	if total > 0 {
		rate = float64(reconciledCount) / float64(total)
	}
	return &ReconciliationSummary{
		AccountCode:        accountCode,
		BookBalance:        bookBalance,
		ReconciledCount:    reconciledCount,
		UnreconciledCount:  total - reconciledCount,
		ReconciliationRate: rate,
	}, nil
}
