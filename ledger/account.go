/*
account.go - Per-client account state machine

PURPOSE:
  Holds the mutable state of one account (available, held, locked) and
  the five transitions that mutate it. The account knows nothing about
  tx ids or the journal; the engine resolves dispute references to an
  amount before calling in here.

CRITICAL INVARIANTS (hold after every successful transition):
  1. total == available + held
  2. available >= 0
  3. held >= 0
  4. locked is terminal for deposits and withdrawals

TRANSITIONS:
  Deposit(amount)     available += amount
  Withdraw(amount)    available -= amount      (rejected if short)
  Hold(amount)        available -> held        (open dispute)
  Release(amount)     held -> available        (resolve dispute)
  Chargeback(amount)  held -= amount, lock     (funds leave the account)

  Total is derived, never stored, so it cannot drift from the parts.

LOCK POLICY:
  Deposit and Withdraw refuse a locked account themselves. The
  dispute-family transitions do NOT check the lock; whether disputes
  are allowed on a locked account is an engine policy (see engine.go),
  so the check lives there.

SEE ALSO:
  - engine.go:  Applies records to accounts
  - journal.go: Resolves dispute references to amounts
*/
package ledger

import "github.com/shopspring/decimal"

// Account is the mutable per-client state. One exists per referenced
// client, created lazily by the engine and never deleted.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// NewAccount returns a zero-balance unlocked account.
func NewAccount(client ClientID) *Account {
	return &Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

// Total is always derived from the parts.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Balance returns a read-only snapshot of this account.
func (a *Account) Balance() Balance {
	return Balance{
		Client:    a.Client,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	}
}

// Deposit credits the available balance. Refused on a locked account.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if a.Locked {
		return &LockedAccountError{Client: a.Client}
	}
	a.Available = a.Available.Add(amount)
	return nil
}

// Withdraw debits the available balance. Refused on a locked account
// or when the amount exceeds what is available.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if a.Locked {
		return &LockedAccountError{Client: a.Client}
	}
	if amount.GreaterThan(a.Available) {
		return &InsufficientFundsError{Client: a.Client, Requested: amount, Available: a.Available}
	}
	a.Available = a.Available.Sub(amount)
	return nil
}

// Hold moves funds from available to held for an open dispute.
// Total is unchanged. Refused when the account does not have the
// full amount available, which keeps available non-negative.
func (a *Account) Hold(amount decimal.Decimal) error {
	if amount.GreaterThan(a.Available) {
		return &InsufficientFundsError{Client: a.Client, Requested: amount, Available: a.Available}
	}
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
	return nil
}

// Release moves funds back from held to available when a dispute is
// resolved. Total is unchanged.
func (a *Account) Release(amount decimal.Decimal) error {
	if amount.GreaterThan(a.Held) {
		return &HeldAmountError{Client: a.Client, Requested: amount, Held: a.Held}
	}
	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
	return nil
}

// Chargeback withdraws held funds from the account entirely and locks
// it. The held guard keeps held non-negative even against corrupted
// input sequences.
func (a *Account) Chargeback(amount decimal.Decimal) error {
	if amount.GreaterThan(a.Held) {
		return &HeldAmountError{Client: a.Client, Requested: amount, Held: a.Held}
	}
	a.Held = a.Held.Sub(amount)
	a.Locked = true
	return nil
}
