package ledger

// Typed errors for the ledger package. A single LedgerError carries a Code
// from §6's error list plus caller-facing details; Unwrap returns the single
// package sentinel ErrLedger, so errors.Is tells ledger errors from others
// and the Code field tells them apart from each other.

import (
	"errors"
	"fmt"
)

// Code is one of the error codes enumerated in spec §6.
type Code string

const (
	CodeNotBalanced         Code = "NOT_BALANCED"
	CodeAccountNotFound     Code = "ACCOUNT_NOT_FOUND"
	CodeAccountDisabled     Code = "ACCOUNT_DISABLED"
	CodeDimensionNotFound   Code = "DIMENSION_NOT_FOUND"
	CodeVoucherNotFound     Code = "VOUCHER_NOT_FOUND"
	CodeVoucherNotReviewed  Code = "VOUCHER_NOT_REVIEWED"
	CodePeriodClosed        Code = "PERIOD_CLOSED"
	CodePeriodAdjustOnly    Code = "PERIOD_ADJUSTMENT_ONLY"
	CodeVoidConfirmed       Code = "VOID_CONFIRMED"
	CodeTemplateDisabled    Code = "TEMPLATE_DISABLED"
	CodeTemplateUnbalanced  Code = "TEMPLATE_UNBALANCED"
	CodeRateNotFound        Code = "RATE_NOT_FOUND"
	CodeNegativeInventory   Code = "NEGATIVE_INVENTORY"
	CodeIterationDiverged   Code = "ITERATION_DIVERGED"
)

// Kind partitions errors per §7: Validation, State, Consistency, Capacity,
// Convergence.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindState       Kind = "state"
	KindConsistency Kind = "consistency"
	KindCapacity    Kind = "capacity"
	KindConvergence Kind = "convergence"
)

var kindByCode = map[Code]Kind{
	CodeNotBalanced:        KindValidation,
	CodeAccountNotFound:    KindValidation,
	CodeAccountDisabled:    KindValidation,
	CodeDimensionNotFound:  KindValidation,
	CodeVoucherNotFound:    KindValidation,
	CodeVoucherNotReviewed: KindState,
	CodePeriodClosed:       KindState,
	CodePeriodAdjustOnly:   KindState,
	CodeVoidConfirmed:      KindState,
	CodeTemplateDisabled:   KindState,
	CodeTemplateUnbalanced: KindValidation,
	CodeRateNotFound:       KindValidation,
	CodeNegativeInventory:  KindState,
	CodeIterationDiverged:  KindConvergence,
}

// ErrLedger is the sentinel every *LedgerError wraps, so callers can test
// for "any ledger-domain error" with errors.Is(err, ErrLedger).
var ErrLedger = errors.New("ledger error")

// LedgerError is the structured {code, message, details} shape of §6.
type LedgerError struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *LedgerError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Code, e.Message, e.Details)
}

func (e *LedgerError) Unwrap() error {
	return ErrLedger
}

// Kind reports this error's §7 partition.
func (e *LedgerError) Kind() Kind {
	if k, ok := kindByCode[e.Code]; ok {
		return k
	}
	return KindValidation
}

// NewError builds a LedgerError with optional key/value detail pairs
// (must come in pairs: key, value, key, value, ...).
func NewError(code Code, message string, kv ...any) *LedgerError {
	details := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			details[key] = kv[i+1]
		}
	}
	return &LedgerError{Code: code, Message: message, Details: details}
}

// AsLedgerError unwraps err into a *LedgerError, if it is one.
func AsLedgerError(err error) (*LedgerError, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
