package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payments-engine/ledger"
)

func deposit(t *testing.T, client ledger.ClientID, tx ledger.TxID, amount string) ledger.Record {
	t.Helper()
	rec, err := ledger.NewDeposit(client, tx, dec(amount))
	require.NoError(t, err)
	return rec
}

func withdrawal(t *testing.T, client ledger.ClientID, tx ledger.TxID, amount string) ledger.Record {
	t.Helper()
	rec, err := ledger.NewWithdrawal(client, tx, dec(amount))
	require.NoError(t, err)
	return rec
}

func TestJournal_Record_DuplicateTxID_Rejected(t *testing.T) {
	// GIVEN: A journaled deposit
	// WHEN: Another deposit reuses the tx id
	// THEN: The second is rejected and the original entry survives

	j := ledger.NewJournal()
	require.NoError(t, j.Record(deposit(t, 1, 1, "10")))

	err := j.Record(deposit(t, 1, 1, "5"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateTransactionID)

	entry, err := j.Lookup(1, 1)
	require.NoError(t, err)
	assert.True(t, entry.Amount.Equal(dec("10")), "original amount must survive")
	assert.Equal(t, 1, j.Len())
}

func TestJournal_Lookup_ClientMismatch_IsUnknownTransaction(t *testing.T) {
	// GIVEN: A deposit journaled for client 1
	// WHEN: Client 2 references its tx id
	// THEN: The reference resolves to nothing

	j := ledger.NewJournal()
	require.NoError(t, j.Record(deposit(t, 1, 7, "10")))

	_, err := j.Lookup(7, 2)
	assert.ErrorIs(t, err, ledger.ErrUnknownTransaction)

	_, err = j.Lookup(99, 1)
	assert.ErrorIs(t, err, ledger.ErrUnknownTransaction)
}

func TestJournal_WithdrawalEntries_AreDisputable(t *testing.T) {
	// Withdrawals journal exactly like deposits; the dispute family
	// treats both kinds the same.

	j := ledger.NewJournal()
	require.NoError(t, j.Record(withdrawal(t, 1, 3, "4.5")))

	entry, err := j.Lookup(3, 1)
	require.NoError(t, err)
	assert.Equal(t, ledger.Withdrawal, entry.Kind)
	require.NoError(t, entry.OpenDispute())
	assert.Equal(t, ledger.Disputed, entry.State)
}

func TestEntry_DisputeStateMachine(t *testing.T) {
	j := ledger.NewJournal()
	require.NoError(t, j.Record(deposit(t, 1, 1, "10")))
	entry, err := j.Lookup(1, 1)
	require.NoError(t, err)

	// clean -> disputed
	require.NoError(t, entry.OpenDispute())
	assert.ErrorIs(t, entry.OpenDispute(), ledger.ErrInvalidDisputeState, "double dispute")

	// disputed -> clean -> disputed again (re-enterable)
	require.NoError(t, entry.CloseDispute())
	assert.ErrorIs(t, entry.CloseDispute(), ledger.ErrInvalidDisputeState, "resolve without dispute")
	require.NoError(t, entry.OpenDispute())

	// disputed -> charged_back is terminal
	require.NoError(t, entry.MarkChargedBack())
	assert.ErrorIs(t, entry.OpenDispute(), ledger.ErrInvalidDisputeState)
	assert.ErrorIs(t, entry.CloseDispute(), ledger.ErrInvalidDisputeState)
	assert.ErrorIs(t, entry.MarkChargedBack(), ledger.ErrInvalidDisputeState)
}

func TestNewDeposit_NegativeAmount_IsConstructionError(t *testing.T) {
	_, err := ledger.NewDeposit(1, 1, dec("-5"))
	assert.Error(t, err, "negative amounts are a producer fault, not a policy rejection")

	_, err = ledger.NewWithdrawal(1, 1, dec("-5"))
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"deposit", "withdrawal", "dispute", "resolve", "chargeback"} {
		kind, err := ledger.ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, ledger.Kind(s), kind)
	}

	_, err := ledger.ParseKind("transfer")
	assert.Error(t, err)
}
