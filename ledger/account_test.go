package ledger_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/payments-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func checkBalances(t *testing.T, a *ledger.Account, available, held string) {
	t.Helper()
	if !a.Available.Equal(dec(available)) {
		t.Errorf("available = %s, want %s", a.Available, available)
	}
	if !a.Held.Equal(dec(held)) {
		t.Errorf("held = %s, want %s", a.Held, held)
	}
	if !a.Total().Equal(a.Available.Add(a.Held)) {
		t.Errorf("total %s != available %s + held %s", a.Total(), a.Available, a.Held)
	}
}

// =============================================================================
// DEPOSIT / WITHDRAW
// =============================================================================

func TestAccount_Deposit_IncreasesAvailableAndTotal(t *testing.T) {
	a := ledger.NewAccount(1)

	if err := a.Deposit(dec("100.1234")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkBalances(t, a, "100.1234", "0")

	if err := a.Deposit(dec("0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkBalances(t, a, "100.2234", "0")
}

func TestAccount_Withdraw_DecreasesAvailableAndTotal(t *testing.T) {
	a := ledger.NewAccount(1)
	a.Deposit(dec("200.5"))

	if err := a.Withdraw(dec("50.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkBalances(t, a, "150", "0")
}

func TestAccount_Withdraw_InsufficientFunds(t *testing.T) {
	a := ledger.NewAccount(1)
	a.Deposit(dec("50"))

	err := a.Withdraw(dec("100"))
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	var ife *ledger.InsufficientFundsError
	if !errors.As(err, &ife) {
		t.Fatalf("expected *InsufficientFundsError, got %T", err)
	}
	if !ife.Available.Equal(dec("50")) {
		t.Errorf("reported available = %s, want 50", ife.Available)
	}
	checkBalances(t, a, "50", "0")
}

// =============================================================================
// HOLD / RELEASE / CHARGEBACK
// =============================================================================

func TestAccount_Hold_MovesFundsToHeld(t *testing.T) {
	a := ledger.NewAccount(1)
	a.Deposit(dec("150"))

	if err := a.Hold(dec("50")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkBalances(t, a, "100", "50")
}

func TestAccount_Hold_MoreThanAvailable_Rejected(t *testing.T) {
	a := ledger.NewAccount(1)
	a.Deposit(dec("10"))
	a.Withdraw(dec("8"))

	err := a.Hold(dec("10"))
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	checkBalances(t, a, "2", "0")
}

func TestAccount_Release_ReturnsHeldToAvailable(t *testing.T) {
	a := ledger.NewAccount(1)
	a.Deposit(dec("200"))
	a.Hold(dec("80"))

	if err := a.Release(dec("80")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkBalances(t, a, "200", "0")
}

func TestAccount_Release_MoreThanHeld_Rejected(t *testing.T) {
	a := ledger.NewAccount(1)
	a.Deposit(dec("200"))
	a.Hold(dec("80"))

	err := a.Release(dec("90"))
	if !errors.Is(err, ledger.ErrHeldAmountExceeded) {
		t.Fatalf("expected ErrHeldAmountExceeded, got %v", err)
	}
	checkBalances(t, a, "120", "80")
}

func TestAccount_Chargeback_RemovesHeldAndLocks(t *testing.T) {
	a := ledger.NewAccount(1)
	a.Deposit(dec("120"))
	a.Hold(dec("50"))

	if err := a.Chargeback(dec("50")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkBalances(t, a, "70", "0")
	if !a.Locked {
		t.Error("account should be locked after chargeback")
	}
}

func TestAccount_Chargeback_MoreThanHeld_Rejected(t *testing.T) {
	a := ledger.NewAccount(1)
	a.Deposit(dec("120"))
	a.Hold(dec("50"))

	err := a.Chargeback(dec("51"))
	if !errors.Is(err, ledger.ErrHeldAmountExceeded) {
		t.Fatalf("expected ErrHeldAmountExceeded, got %v", err)
	}
	if a.Locked {
		t.Error("rejected chargeback must not lock the account")
	}
	checkBalances(t, a, "70", "50")
}

// =============================================================================
// LOCKED ACCOUNTS
// =============================================================================

func TestAccount_Locked_RefusesDepositAndWithdraw(t *testing.T) {
	a := ledger.NewAccount(1)
	a.Deposit(dec("100"))
	a.Locked = true

	if err := a.Deposit(dec("5")); !errors.Is(err, ledger.ErrAccountLocked) {
		t.Errorf("deposit on locked account: expected ErrAccountLocked, got %v", err)
	}
	if err := a.Withdraw(dec("5")); !errors.Is(err, ledger.ErrAccountLocked) {
		t.Errorf("withdraw on locked account: expected ErrAccountLocked, got %v", err)
	}
	checkBalances(t, a, "100", "0")
}
