/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All rejection reasons in one place. Every error here is a policy
  rejection: non-fatal, recorded by the engine, never aborting a run.
  Fatal conditions (malformed input) live with the input adapters.

ERROR CATEGORIES:
  1. Sentinel errors  - One per rejection reason, use with errors.Is()
  2. Structured errors - Carry amounts/ids, unwrap to a sentinel
  3. Rejection        - The (record, reason) pair kept by the sink

USAGE:
  if err := engine.Apply(rec); errors.Is(err, ledger.ErrInsufficientFunds) {
      // withdrawal exceeded the available balance
  }

SEE ALSO:
  - engine.go: Translates these into sink entries
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountLocked is returned for a deposit or withdrawal on a
	// locked account, and for dispute-family records when the engine
	// is configured to reject them on locked accounts.
	ErrAccountLocked = errors.New("account locked")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the
	// available balance, or when a dispute would hold more than is
	// currently available.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransactionID is returned when a deposit or
	// withdrawal reuses a tx id already present in the journal. The
	// original entry is never overwritten.
	ErrDuplicateTransactionID = errors.New("duplicate transaction id")

	// ErrUnknownTransaction is returned when a dispute-family record
	// references a tx id absent from the journal, or one recorded for
	// a different client.
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrInvalidDisputeState is returned for a dispute on an entry
	// that is not clean, or a resolve/chargeback on an entry that is
	// not currently disputed.
	ErrInvalidDisputeState = errors.New("invalid dispute state")

	// ErrHeldAmountExceeded is returned when a resolve or chargeback
	// would drive the held balance negative. This guards against
	// corrupted or adversarial state.
	ErrHeldAmountExceeded = errors.New("held amount exceeded")

	// ErrUnknownAccount is returned for a dispute-family record
	// referencing a client with no account. Deposits and withdrawals
	// always establish the account, so they never produce this.
	ErrUnknownAccount = errors.New("unknown account")
)

// =============================================================================
// REASON CODES - Stable spellings for sinks, stores and wire formats
// =============================================================================

type Reason string

const (
	ReasonAccountLocked          Reason = "account_locked"
	ReasonInsufficientFunds      Reason = "insufficient_funds"
	ReasonDuplicateTransactionID Reason = "duplicate_transaction_id"
	ReasonUnknownTransaction     Reason = "unknown_transaction"
	ReasonInvalidDisputeState    Reason = "invalid_dispute_state"
	ReasonHeldAmountExceeded     Reason = "held_amount_exceeded"
	ReasonUnknownAccount         Reason = "unknown_account"
)

// ReasonOf maps a rejection error to its stable reason code.
// Returns "" for nil and for errors outside the taxonomy.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccountLocked):
		return ReasonAccountLocked
	case errors.Is(err, ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, ErrDuplicateTransactionID):
		return ReasonDuplicateTransactionID
	case errors.Is(err, ErrUnknownTransaction):
		return ReasonUnknownTransaction
	case errors.Is(err, ErrInvalidDisputeState):
		return ReasonInvalidDisputeState
	case errors.Is(err, ErrHeldAmountExceeded):
		return ReasonHeldAmountExceeded
	case errors.Is(err, ErrUnknownAccount):
		return ReasonUnknownAccount
	}
	return ""
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports a shortfall on a withdrawal or dispute hold.
type InsufficientFundsError struct {
	Client    ClientID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("client %d: insufficient funds: requested %s, available %s",
		e.Client, e.Requested, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// HeldAmountError reports a resolve/chargeback that exceeds the held balance.
type HeldAmountError struct {
	Client    ClientID
	Requested decimal.Decimal
	Held      decimal.Decimal
}

func (e *HeldAmountError) Error() string {
	return fmt.Sprintf("client %d: held amount exceeded: requested %s, held %s",
		e.Client, e.Requested, e.Held)
}

func (e *HeldAmountError) Unwrap() error { return ErrHeldAmountExceeded }

// LockedAccountError identifies the locked account that refused a record.
type LockedAccountError struct {
	Client ClientID
}

func (e *LockedAccountError) Error() string {
	return fmt.Sprintf("account %d is locked", e.Client)
}

func (e *LockedAccountError) Unwrap() error { return ErrAccountLocked }

// DuplicateTransactionError identifies a reused tx id.
type DuplicateTransactionError struct {
	Tx TxID
}

func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf("transaction %d is duplicated", e.Tx)
}

func (e *DuplicateTransactionError) Unwrap() error { return ErrDuplicateTransactionID }

// UnknownTransactionError identifies a dispute-family reference that
// matched no journal entry for the record's client.
type UnknownTransactionError struct {
	Tx     TxID
	Client ClientID
}

func (e *UnknownTransactionError) Error() string {
	return fmt.Sprintf("transaction %d not found for client %d", e.Tx, e.Client)
}

func (e *UnknownTransactionError) Unwrap() error { return ErrUnknownTransaction }

// =============================================================================
// REJECTION - What the sink records
// =============================================================================

// Rejection pairs a rejected record with its reason code. Rejections
// are appended in arrival order and never mutated.
type Rejection struct {
	Record Record
	Reason Reason
}

// RejectionError is what Engine.Apply returns on a policy rejection.
// It unwraps to the underlying taxonomy error, so callers can use
// errors.Is against the sentinels above.
type RejectionError struct {
	Record Record
	Err    error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s %d rejected: %v", e.Record.Kind, e.Record.Tx, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

// Reason returns the stable reason code for this rejection.
func (e *RejectionError) Reason() Reason { return ReasonOf(e.Err) }
