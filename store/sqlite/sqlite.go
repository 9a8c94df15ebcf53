/*
Package sqlite provides the SQLite-backed audit store.

PURPOSE:
  Persists the engine's audit trail: every observed transaction record
  (accepted or rejected, with the rejection reason) and the balance
  snapshot. The engine itself never reads any of this back; the store
  is a write-only audit surface consumed by people and the HTTP API.

KEY TABLES:
  transactions: Append-only log of every observed record
  balances:     Latest snapshot per client (upserted on save)

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE is ever issued against the transactions table.
  Balances are an upserted projection, not a source of truth.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payments.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  store.RecordTransaction(ctx, rec, reason)
  store.SaveSnapshot(ctx, engine.Snapshot())

MIGRATION:
  Schema is auto-migrated on New(). Use ":memory:" for tests.

SEE ALSO:
  - ledger/engine.go: The in-memory audit vectors this mirrors
  - api/handlers.go:  Serves the audit trail over HTTP
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payments-engine/ledger"
)

// Store implements audit persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only audit log, accepted and rejected alike)
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		client INTEGER NOT NULL,
		tx INTEGER NOT NULL,
		amount TEXT,
		accepted BOOLEAN NOT NULL,
		reason TEXT,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_client
		ON transactions(client);
	CREATE INDEX IF NOT EXISTS idx_transactions_tx
		ON transactions(tx);
	CREATE INDEX IF NOT EXISTS idx_transactions_rejected
		ON transactions(accepted) WHERE accepted = FALSE;

	-- Balances (latest snapshot projection, one row per client)
	CREATE TABLE IF NOT EXISTS balances (
		client INTEGER PRIMARY KEY,
		available TEXT NOT NULL,
		held TEXT NOT NULL,
		total TEXT NOT NULL,
		locked BOOLEAN NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// AUDIT RECORDS
// =============================================================================

// AuditRecord is one row of the persisted transaction log.
type AuditRecord struct {
	Seq        int64
	Record     ledger.Record
	Reason     ledger.Reason // "" when accepted
	RecordedAt time.Time
}

// Accepted reports whether the record passed policy validation.
func (r AuditRecord) Accepted() bool { return r.Reason == "" }

// RecordTransaction appends one observed record. An empty reason
// marks an accepted record.
func (s *Store) RecordTransaction(ctx context.Context, rec ledger.Record, reason ledger.Reason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var amount any
	if rec.Kind.Monetary() {
		amount = rec.Amount.String()
	}

	query := `
		INSERT INTO transactions (kind, client, tx, amount, accepted, reason, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(rec.Kind),
		rec.Client,
		rec.Tx,
		amount,
		reason == "",
		nullString(string(reason)),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// LoadHistory returns the full persisted transaction log in arrival order.
func (s *Store) LoadHistory(ctx context.Context) ([]AuditRecord, error) {
	return s.loadAudit(ctx, `
		SELECT seq, kind, client, tx, amount, reason, recorded_at
		FROM transactions ORDER BY seq
	`)
}

// LoadRejected returns only the rejected records, in arrival order.
func (s *Store) LoadRejected(ctx context.Context) ([]AuditRecord, error) {
	return s.loadAudit(ctx, `
		SELECT seq, kind, client, tx, amount, reason, recorded_at
		FROM transactions WHERE accepted = FALSE ORDER BY seq
	`)
}

func (s *Store) loadAudit(ctx context.Context, query string) ([]AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit log: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var (
			rec        AuditRecord
			kind       string
			client     uint16
			tx         uint32
			amount     sql.NullString
			reason     sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&rec.Seq, &kind, &client, &tx, &amount, &reason, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}

		rec.Record = ledger.Record{
			Kind:   ledger.Kind(kind),
			Client: ledger.ClientID(client),
			Tx:     ledger.TxID(tx),
		}
		if amount.Valid {
			d, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt amount %q in audit row %d: %w", amount.String, rec.Seq, err)
			}
			rec.Record.Amount = d
		}
		rec.Reason = ledger.Reason(reason.String)
		if t, err := time.Parse(time.RFC3339, recordedAt); err == nil {
			rec.RecordedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// BALANCE SNAPSHOTS
// =============================================================================

// SaveSnapshot upserts the latest balance for every account in the
// snapshot. Amounts are stored at full precision.
func (s *Store) SaveSnapshot(ctx context.Context, balances []ledger.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot save: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO balances (client, available, held, total, locked, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(client) DO UPDATE SET
			available = excluded.available,
			held = excluded.held,
			total = excluded.total,
			locked = excluded.locked,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, b := range balances {
		if _, err := tx.ExecContext(ctx, query,
			b.Client,
			b.Available.String(),
			b.Held.String(),
			b.Total.String(),
			b.Locked,
			now,
		); err != nil {
			return fmt.Errorf("failed to save balance for client %d: %w", b.Client, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot returns the persisted balances ordered by client id.
func (s *Store) LoadSnapshot(ctx context.Context) ([]ledger.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT client, available, held, total, locked
		FROM balances ORDER BY client
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer rows.Close()

	var out []ledger.Balance
	for rows.Next() {
		var (
			b                      ledger.Balance
			client                 uint16
			available, held, total string
		)
		if err := rows.Scan(&client, &available, &held, &total, &b.Locked); err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		b.Client = ledger.ClientID(client)
		if b.Available, err = decimal.NewFromString(available); err != nil {
			return nil, fmt.Errorf("corrupt available for client %d: %w", client, err)
		}
		if b.Held, err = decimal.NewFromString(held); err != nil {
			return nil, fmt.Errorf("corrupt held for client %d: %w", client, err)
		}
		if b.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("corrupt total for client %d: %w", client, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
