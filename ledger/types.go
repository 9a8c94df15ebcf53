/*
Package ledger implements the per-client payments ledger engine.

PURPOSE:
  This package contains the domain types and the state machine that
  turn a stream of transaction records (deposit, withdrawal, dispute,
  resolve, chargeback) into final per-client balances.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record:   An immutable typed value describing one input event
  - Kind:     Closed set of the five transaction kinds
  - ClientID: Account identifier (records may reference new clients)
  - TxID:     Transaction identifier, unique across deposits/withdrawals
  - Balance:  A read-only view of one account for output

DESIGN PRINCIPLES:
  1. Precision: Amounts use decimal.Decimal, never float64
  2. Closed variants: Records are built via constructors so invalid
     combinations (a dispute carrying an amount) cannot be expressed
  3. Immutability: A Record is never modified after construction

USAGE:
  rec, err := ledger.NewDeposit(1, 100, decimal.NewFromInt(25))
  if err != nil { ... }
  engine.Apply(rec)

SEE ALSO:
  - account.go: Account state machine
  - journal.go: Dispute-addressable index of accepted transactions
  - engine.go:  Orchestration, audit log and rejection sink
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ClientID identifies an account. Accounts are created lazily on
// first reference, so a ClientID is valid even before any account
// exists for it.
type ClientID uint16

// TxID identifies a deposit or withdrawal. Dispute, resolve and
// chargeback records reference an existing TxID rather than
// introducing a new one.
type TxID uint32

// =============================================================================
// KIND - Closed set of transaction kinds
// =============================================================================

type Kind string

const (
	Deposit    Kind = "deposit"
	Withdrawal Kind = "withdrawal"
	Dispute    Kind = "dispute"
	Resolve    Kind = "resolve"
	Chargeback Kind = "chargeback"
)

// ParseKind maps the wire spelling of a transaction kind to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Deposit, Withdrawal, Dispute, Resolve, Chargeback:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

// Monetary reports whether records of this kind carry an amount and
// create a journal entry. Only deposits and withdrawals do; the
// dispute family operates on an existing entry's amount.
func (k Kind) Monetary() bool {
	return k == Deposit || k == Withdrawal
}

// =============================================================================
// RECORD - One input event
// =============================================================================

// Record is an immutable description of a single transaction. Use the
// New* constructors; they enforce the amount rules per kind.
type Record struct {
	Kind   Kind
	Client ClientID
	Tx     TxID

	// Amount is set only for deposits and withdrawals. It is always
	// zero for the dispute family.
	Amount decimal.Decimal
}

// NewDeposit builds a deposit record. The amount must be non-negative;
// a negative amount is a structural fault of the producer, not a
// policy rejection, so it is surfaced as an error here.
func NewDeposit(client ClientID, tx TxID, amount decimal.Decimal) (Record, error) {
	return newMonetary(Deposit, client, tx, amount)
}

// NewWithdrawal builds a withdrawal record. Same amount rules as NewDeposit.
func NewWithdrawal(client ClientID, tx TxID, amount decimal.Decimal) (Record, error) {
	return newMonetary(Withdrawal, client, tx, amount)
}

func newMonetary(kind Kind, client ClientID, tx TxID, amount decimal.Decimal) (Record, error) {
	if amount.IsNegative() {
		return Record{}, fmt.Errorf("%s %d: negative amount %s", kind, tx, amount)
	}
	return Record{Kind: kind, Client: client, Tx: tx, Amount: amount}, nil
}

// NewDispute builds a dispute referencing an earlier deposit or withdrawal.
func NewDispute(client ClientID, tx TxID) Record {
	return Record{Kind: Dispute, Client: client, Tx: tx}
}

// NewResolve builds a resolve closing an open dispute.
func NewResolve(client ClientID, tx TxID) Record {
	return Record{Kind: Resolve, Client: client, Tx: tx}
}

// NewChargeback builds a chargeback finalizing an open dispute.
func NewChargeback(client ClientID, tx TxID) Record {
	return Record{Kind: Chargeback, Client: client, Tx: tx}
}

// =============================================================================
// BALANCE - Read-only account view
// =============================================================================

// Balance is a snapshot of one account. Total is materialized at
// snapshot time from available + held.
type Balance struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}
