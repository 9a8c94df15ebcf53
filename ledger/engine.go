/*
engine.go - Ledger engine orchestration

PURPOSE:
  The Engine owns all run state: the account map, the journal, the
  historical log and the rejection sink. It applies one record at a
  time, in input order, and exposes a deterministic snapshot when the
  stream is exhausted.

FAILURE SEMANTICS:
  Every policy rejection is NON-FATAL. Apply records the rejection in
  the sink, returns a *RejectionError for callers that care, and the
  engine is immediately ready for the next record. Nothing in this
  package aborts a run; structurally malformed input is the input
  adapter's problem and never reaches Apply.

MUTATION SCOPE:
  Applying one record mutates exactly one account and at most one
  journal entry. There are no cross-account effects.

CONCURRENCY:
  None. The engine is single-threaded by design: one record is applied
  to completion before the next is accepted. Concurrent callers (the
  HTTP surface) must serialize access themselves. A sharded-by-client
  variant would still not order causal chains that span two clients;
  that ordering is explicitly not guaranteed here.

LOCKED-ACCOUNT DISPUTES:
  Whether dispute/resolve/chargeback are permitted against an already
  locked account is a policy choice, configurable via
  WithLockedDisputes. The default refuses them, matching the rule for
  deposits and withdrawals.

USAGE:
  engine := ledger.NewEngine()
  for rec := range records {
      _ = engine.Apply(rec) // rejections are tracked internally
  }
  for _, b := range engine.Snapshot() { ... }

SEE ALSO:
  - account.go: The transitions Apply drives
  - journal.go: Dispute reference resolution
*/
package ledger

// =============================================================================
// ENGINE
// =============================================================================

// Engine applies transaction records to per-client accounts.
// The zero value is not usable; use NewEngine.
type Engine struct {
	accounts map[ClientID]*Account
	order    []ClientID // first-seen order, fixes snapshot ordering
	journal  *Journal

	// trail holds every observed record with its outcome. The
	// historical log and the rejection sink are projections of it.
	trail []AuditEntry

	lockedDisputes bool
}

// AuditEntry is one observed record with its outcome. Reason is empty
// for accepted records.
type AuditEntry struct {
	Record Record
	Reason Reason
}

// Option configures an Engine.
type Option func(*Engine)

// WithLockedDisputes permits dispute, resolve and chargeback records
// against locked accounts. Deposits and withdrawals stay refused
// regardless.
func WithLockedDisputes() Option {
	return func(e *Engine) { e.lockedDisputes = true }
}

// NewEngine returns an empty engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		accounts: make(map[ClientID]*Account),
		journal:  NewJournal(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// APPLY - One record, one transition
// =============================================================================

// Apply processes a single record. The record always lands in the
// historical log. On a policy rejection the record also lands in the
// rejection sink and a *RejectionError is returned; account state is
// left exactly as it was. A nil return means the transition was
// applied in full.
func (e *Engine) Apply(rec Record) error {
	var err error
	if rec.Kind.Monetary() {
		err = e.applyMonetary(rec)
	} else {
		err = e.applyDispute(rec)
	}

	e.trail = append(e.trail, AuditEntry{Record: rec, Reason: ReasonOf(err)})
	if err != nil {
		return &RejectionError{Record: rec, Err: err}
	}
	return nil
}

// applyMonetary handles deposits and withdrawals. The duplicate check
// runs before any account mutation so a replayed tx id can never move
// funds twice.
func (e *Engine) applyMonetary(rec Record) error {
	if e.journal.Contains(rec.Tx) {
		return &DuplicateTransactionError{Tx: rec.Tx}
	}

	account := e.account(rec.Client)

	var err error
	switch rec.Kind {
	case Deposit:
		err = account.Deposit(rec.Amount)
	case Withdrawal:
		err = account.Withdraw(rec.Amount)
	}
	if err != nil {
		return err
	}

	// Only accepted transactions are journaled; a rejected withdrawal
	// leaves its tx id free for reuse by the same upstream retry.
	return e.journal.Record(rec)
}

// applyDispute handles dispute, resolve and chargeback. Validation
// order: account existence, lock policy, journal reference, dispute
// state, then funds movement.
func (e *Engine) applyDispute(rec Record) error {
	account, ok := e.accounts[rec.Client]
	if !ok {
		return ErrUnknownAccount
	}

	if account.Locked && !e.lockedDisputes {
		return &LockedAccountError{Client: rec.Client}
	}

	entry, err := e.journal.Lookup(rec.Tx, rec.Client)
	if err != nil {
		return err
	}

	switch rec.Kind {
	case Dispute:
		if entry.State != DisputeNone {
			return ErrInvalidDisputeState
		}
		if err := account.Hold(entry.Amount); err != nil {
			return err
		}
		return entry.OpenDispute()

	case Resolve:
		if entry.State != Disputed {
			return ErrInvalidDisputeState
		}
		if err := account.Release(entry.Amount); err != nil {
			return err
		}
		return entry.CloseDispute()

	case Chargeback:
		if entry.State != Disputed {
			return ErrInvalidDisputeState
		}
		if err := account.Chargeback(entry.Amount); err != nil {
			return err
		}
		return entry.MarkChargedBack()
	}
	return ErrUnknownTransaction
}

// account returns the client's account, creating it on first reference.
func (e *Engine) account(client ClientID) *Account {
	if a, ok := e.accounts[client]; ok {
		return a
	}
	a := NewAccount(client)
	e.accounts[client] = a
	e.order = append(e.order, client)
	return a
}

// =============================================================================
// READ SIDE
// =============================================================================

// Snapshot returns every account ever referenced, in first-seen
// order. Callable at any time; consistent with the most recently
// applied record.
func (e *Engine) Snapshot() []Balance {
	out := make([]Balance, 0, len(e.order))
	for _, client := range e.order {
		out = append(out, e.accounts[client].Balance())
	}
	return out
}

// Account returns the balance of a single client, if it exists.
func (e *Engine) Account(client ClientID) (Balance, bool) {
	a, ok := e.accounts[client]
	if !ok {
		return Balance{}, false
	}
	return a.Balance(), true
}

// History returns every record the engine observed, accepted or not,
// in arrival order.
func (e *Engine) History() []Record {
	out := make([]Record, len(e.trail))
	for i, entry := range e.trail {
		out[i] = entry.Record
	}
	return out
}

// Rejected returns the rejection sink in arrival order.
func (e *Engine) Rejected() []Rejection {
	var out []Rejection
	for _, entry := range e.trail {
		if entry.Reason != "" {
			out = append(out, Rejection{Record: entry.Record, Reason: entry.Reason})
		}
	}
	return out
}

// Trail returns every observed record paired with its outcome, in
// arrival order. This is the audit consumers' view; History and
// Rejected are projections of it.
func (e *Engine) Trail() []AuditEntry {
	out := make([]AuditEntry, len(e.trail))
	copy(out, e.trail)
	return out
}
