/*
Package events defines the audit event stream emitted by the service.

PURPOSE:
  When the engine runs as a service, every applied record produces an
  event: transaction.accepted or transaction.rejected. Consumers
  (fraud review, reporting) subscribe downstream; the engine itself
  never depends on anyone reading them.

IMPLEMENTATIONS:
  - Noop:        Discards events (batch CLI, tests)
  - kafka.Publisher: Writes JSON events to a Kafka topic

SEE ALSO:
  - kafka/publisher.go: The Kafka implementation
  - api/handlers.go:    Where events are emitted
*/
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payments-engine/ledger"
)

// Publisher delivers audit events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// =============================================================================
// EVENT PAYLOADS
// =============================================================================

// TransactionAccepted is emitted after a record is applied in full.
type TransactionAccepted struct {
	EventID    string          `json:"event_id"`
	Kind       string          `json:"kind"`
	Client     uint16          `json:"client"`
	Tx         uint32          `json:"tx"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// TransactionRejected is emitted when a record fails policy validation.
type TransactionRejected struct {
	EventID    string          `json:"event_id"`
	Kind       string          `json:"kind"`
	Client     uint16          `json:"client"`
	Tx         uint32          `json:"tx"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewTransactionAccepted builds the event for an applied record.
func NewTransactionAccepted(rec ledger.Record) TransactionAccepted {
	return TransactionAccepted{
		EventID:    uuid.NewString(),
		Kind:       string(rec.Kind),
		Client:     uint16(rec.Client),
		Tx:         uint32(rec.Tx),
		Amount:     rec.Amount,
		OccurredAt: time.Now().UTC(),
	}
}

// NewTransactionRejected builds the event for a rejected record.
func NewTransactionRejected(rec ledger.Record, reason ledger.Reason) TransactionRejected {
	return TransactionRejected{
		EventID:    uuid.NewString(),
		Kind:       string(rec.Kind),
		Client:     uint16(rec.Client),
		Tx:         uint32(rec.Tx),
		Amount:     rec.Amount,
		Reason:     string(reason),
		OccurredAt: time.Now().UTC(),
	}
}

// =============================================================================
// NOOP
// =============================================================================

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, any) error { return nil }
