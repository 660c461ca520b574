package ledger

// EventStore is the append-only journal of voucher submit/confirm/void
// events, kept as an audit trail. Idempotent submission looks up vouchers by
// source event id, and balance rebuild replays vouchers; neither reads this
// journal.

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventSubmitVoucher  = "SUBMIT_VOUCHER"
	EventReviewVoucher  = "REVIEW_VOUCHER"
	EventConfirmVoucher = "CONFIRM_VOUCHER"
	EventVoidVoucher    = "VOID_VOUCHER"
	EventClosePeriod    = "CLOSE_PERIOD"
	EventReopenPeriod   = "REOPEN_PERIOD"
)

// EventStore manages the append-only event log.
type EventStore struct {
	storage *Storage
}

func NewEventStore(storage *Storage) *EventStore {
	return &EventStore{storage: storage}
}

// CreateEvent appends a new journal event and returns it.
func (es *EventStore) CreateEvent(eventType string, payload any, validTime time.Time, userID string) (*JournalEvent, error) {
	payloadData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &JournalEvent{
		ID:              uuid.New().String(),
		EventType:       eventType,
		Payload:         payloadData,
		ValidTime:       validTime,
		TransactionTime: time.Now(),
		UserID:          userID,
	}

	if err := es.storage.AppendEvent(event); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}
	return event, nil
}

// GetEvents retrieves events within a time range.
func (es *EventStore) GetEvents(from, to time.Time) ([]*JournalEvent, error) {
	return es.storage.GetEvents(from, to)
}

// ReplayEvents replays events in [from, to] to an arbitrary handler. No code
// in this package calls it; the balance engine's rebuild (P2) replays
// vouchers, not events.
func (es *EventStore) ReplayEvents(from, to time.Time, handler func(*JournalEvent) error) error {
	events, err := es.GetEvents(from, to)
	if err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}
	for _, event := range events {
		if err := handler(event); err != nil {
			return fmt.Errorf("failed to handle event %s: %w", event.ID, err)
		}
	}
	return nil
}

// VoucherSubmittedEvent is the payload for EventSubmitVoucher.
type VoucherSubmittedEvent struct {
	Voucher *Voucher `json:"voucher"`
}

// VoucherConfirmedEvent is the payload for EventConfirmVoucher.
type VoucherConfirmedEvent struct {
	VoucherID   string    `json:"voucher_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// VoucherVoidedEvent is the payload for EventVoidVoucher.
type VoucherVoidedEvent struct {
	OriginalVoucherID string    `json:"original_voucher_id"`
	ReversalVoucherID string    `json:"reversal_voucher_id"`
	Reason            string    `json:"reason"`
	VoidedAt          time.Time `json:"voided_at"`
}
