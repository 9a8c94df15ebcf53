/*
journal.go - Index of accepted deposits and withdrawals

PURPOSE:
  The journal is how dispute, resolve and chargeback records find the
  transaction they refer to. Every ACCEPTED deposit or withdrawal gets
  exactly one entry; the entry's facts (tx, client, kind, amount) are
  immutable and only its dispute state changes over time.

DISPUTE STATE MACHINE (per entry):
  clean ──dispute──> disputed ──resolve──> clean
                     disputed ──chargeback──> charged_back (terminal)

  A charged-back entry can never be disputed or resolved again.

UNIQUENESS:
  Tx ids are unique across deposits and withdrawals. A repeated id is
  a rejection and never overwrites the original entry.

SEE ALSO:
  - engine.go: Records entries and walks the state machine
*/
package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// DISPUTE STATE
// =============================================================================

type DisputeState string

const (
	// DisputeNone means the entry is clean and may be disputed.
	DisputeNone DisputeState = "none"

	// Disputed means a dispute is open; funds are held.
	Disputed DisputeState = "disputed"

	// ChargedBack is terminal; the funds left the account.
	ChargedBack DisputeState = "charged_back"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is the dispute-addressable record of one accepted deposit or
// withdrawal. State is the only mutable field.
type Entry struct {
	Tx     TxID
	Client ClientID
	Kind   Kind
	Amount decimal.Decimal
	State  DisputeState
}

// OpenDispute moves a clean entry to disputed.
func (e *Entry) OpenDispute() error {
	if e.State != DisputeNone {
		return ErrInvalidDisputeState
	}
	e.State = Disputed
	return nil
}

// CloseDispute returns a disputed entry to clean. The entry may be
// disputed again later.
func (e *Entry) CloseDispute() error {
	if e.State != Disputed {
		return ErrInvalidDisputeState
	}
	e.State = DisputeNone
	return nil
}

// MarkChargedBack finalizes a disputed entry. Terminal.
func (e *Entry) MarkChargedBack() error {
	if e.State != Disputed {
		return ErrInvalidDisputeState
	}
	e.State = ChargedBack
	return nil
}

// =============================================================================
// JOURNAL
// =============================================================================

// Journal indexes accepted deposit/withdrawal entries by tx id.
type Journal struct {
	entries map[TxID]*Entry
}

func NewJournal() *Journal {
	return &Journal{entries: make(map[TxID]*Entry)}
}

// Contains reports whether a tx id is already journaled.
func (j *Journal) Contains(tx TxID) bool {
	_, ok := j.entries[tx]
	return ok
}

// Record adds an entry for an accepted deposit or withdrawal.
// A reused tx id is refused and the original entry is untouched.
func (j *Journal) Record(rec Record) error {
	if _, ok := j.entries[rec.Tx]; ok {
		return &DuplicateTransactionError{Tx: rec.Tx}
	}
	j.entries[rec.Tx] = &Entry{
		Tx:     rec.Tx,
		Client: rec.Client,
		Kind:   rec.Kind,
		Amount: rec.Amount,
		State:  DisputeNone,
	}
	return nil
}

// Lookup resolves a dispute-family reference. A missing entry and a
// client mismatch are the same failure: the referenced transaction
// does not exist for that client.
func (j *Journal) Lookup(tx TxID, client ClientID) (*Entry, error) {
	entry, ok := j.entries[tx]
	if !ok || entry.Client != client {
		return nil, &UnknownTransactionError{Tx: tx, Client: client}
	}
	return entry, nil
}

// Len returns the number of journaled entries.
func (j *Journal) Len() int {
	return len(j.entries)
}
