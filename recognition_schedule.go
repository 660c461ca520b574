package ledger

// Revenue/expense recognition scheduling (§4.4 "deferred revenue/expense
// schedules"). A schedule splits a lump amount over N periods, posting one
// recognition voucher per period as it comes due; the last period absorbs
// the rounding remainder so the sum always equals the original total.

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ScheduleFrequency string

const (
	Monthly   ScheduleFrequency = "monthly"
	Quarterly ScheduleFrequency = "quarterly"
	Yearly    ScheduleFrequency = "yearly"
)

type RecognitionStatus string

const (
	RecognitionPending   RecognitionStatus = "pending"
	RecognitionProcessed RecognitionStatus = "processed"
)

// RecognitionEntry is one period's slice of a schedule.
type RecognitionEntry struct {
	PeriodNumber    int               `json:"period_number"`
	RecognitionDate time.Time         `json:"recognition_date"`
	Amount          decimal.Decimal   `json:"amount"`
	Status          RecognitionStatus `json:"status"`
	VoucherID       string            `json:"voucher_id,omitempty"`
}

// RecognitionSchedule spreads TotalAmount across Occurrences periods,
// recognizing DeferredAccount into RecognizedAccount on each due date.
type RecognitionSchedule struct {
	ID               string              `json:"id"`
	Description      string              `json:"description"`
	DeferredAccount  string              `json:"deferred_account"`
	RecognizedAccount string             `json:"recognized_account"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	Frequency        ScheduleFrequency   `json:"frequency"`
	Occurrences      int                 `json:"occurrences"`
	StartDate        time.Time           `json:"start_date"`
	Entries          []*RecognitionEntry `json:"entries"`
	CreatedAt        time.Time           `json:"created_at"`
}

type AccrualService struct {
	storage *Storage
	submit  func(req VoucherRequest, userID string) (*Voucher, error)
	confirm func(id, userID string) (*Voucher, error)
}

func NewAccrualService(storage *Storage) *AccrualService {
	return &AccrualService{storage: storage}
}

func (as *AccrualService) WireVoucherOps(
	submit func(req VoucherRequest, userID string) (*Voucher, error),
	confirm func(id, userID string) (*Voucher, error),
) {
	as.submit = submit
	as.confirm = confirm
}

// CreateSchedule lays out and saves the recognition entries, even-split with
// the remainder on the final period. It posts no deferral voucher.
func (as *AccrualService) CreateSchedule(description, deferredAccount, recognizedAccount string, total decimal.Decimal, frequency ScheduleFrequency, occurrences int, start time.Time) (*RecognitionSchedule, error) {
	sched := &RecognitionSchedule{
		ID:                uuid.New().String(),
		Description:       description,
		DeferredAccount:   deferredAccount,
		RecognizedAccount: recognizedAccount,
		TotalAmount:       total,
		Frequency:         frequency,
		Occurrences:       occurrences,
		StartDate:         start,
		CreatedAt:         start,
	}

	per := RoundMoney(total.Div(decimal.NewFromInt(int64(occurrences))))
	allocated := Zero
	current := start
	for i := 0; i < occurrences; i++ {
		amount := per
		if i == occurrences-1 {
			amount = RoundMoney(total.Sub(allocated))
		} else {
			allocated = allocated.Add(per)
		}
		sched.Entries = append(sched.Entries, &RecognitionEntry{
			PeriodNumber:    i + 1,
			RecognitionDate: current,
			Amount:          amount,
			Status:          RecognitionPending,
		})
		current = addFrequency(current, frequency)
	}

	return sched, as.storage.saveSchedule(sched)
}

func addFrequency(date time.Time, freq ScheduleFrequency) time.Time {
	switch freq {
	case Quarterly:
		return date.AddDate(0, 3, 0)
	case Yearly:
		return date.AddDate(1, 0, 0)
	default:
		return date.AddDate(0, 1, 0)
	}
}

// ProcessDue posts a recognition voucher for every pending entry whose
// RecognitionDate is on or before upTo, across every schedule.
func (as *AccrualService) ProcessDue(upTo time.Time, userID string) ([]*Voucher, error) {
	schedules, err := as.storage.allSchedules()
	if err != nil {
		return nil, err
	}
	var posted []*Voucher
	for _, sched := range schedules {
		for _, entry := range sched.Entries {
			if entry.Status == RecognitionProcessed {
				continue
			}
			if entry.RecognitionDate.After(upTo) {
				continue
			}
			v, err := as.postEntry(sched, entry, userID)
			if err != nil {
				return posted, err
			}
			posted = append(posted, v)
		}
		if err := as.storage.saveSchedule(sched); err != nil {
			return posted, err
		}
	}
	return posted, nil
}

func (as *AccrualService) postEntry(sched *RecognitionSchedule, entry *RecognitionEntry, userID string) (*Voucher, error) {
	entries := []VoucherEntry{
		{AccountCode: sched.DeferredAccount, Debit: entry.Amount, Credit: Zero, Dims: NoDimensions()},
		{AccountCode: sched.RecognizedAccount, Debit: Zero, Credit: entry.Amount, Dims: NoDimensions()},
	}
	v, err := as.submit(VoucherRequest{
		Date:        entry.RecognitionDate,
		Description: sched.Description + " recognition",
		EntryType:   AdjustmentEntry,
		Entries:     entries,
	}, userID)
	if err != nil {
		return nil, err
	}
	if v.Status == Draft {
		v.Status = Reviewed
		if err := as.storage.SaveVoucher(v); err != nil {
			return nil, err
		}
	}
	v, err = as.confirm(v.ID, userID)
	if err != nil {
		return nil, err
	}
	entry.Status = RecognitionProcessed
	entry.VoucherID = v.ID
	return v, nil
}
