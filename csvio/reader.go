/*
Package csvio adapts the ledger engine to its CSV wire formats.

PURPOSE:
  Reads `type,client,tx,amount` transaction rows into ledger.Record
  values one at a time, and writes the final balance table back out.

FATAL vs POLICY ERRORS:
  Everything this package rejects is STRUCTURAL: bad header, an id
  that does not parse, a negative or unparseable amount, an amount on
  a dispute-family row. Structural faults are fatal to the run and
  carry the offending line number. Policy rejections (insufficient
  funds, duplicate tx ids, ...) are the engine's business and never
  originate here.

FORMAT NOTES:
  - Header is required; column order is taken from the header, so
    `client,type,tx,amount` inputs work too
  - Leading whitespace in fields is tolerated
  - Dispute/resolve/chargeback rows leave the amount column empty or
    omit it entirely
  - Amounts are fixed-precision decimals, never floats

SEE ALSO:
  - writer.go: The output side
  - ledger/types.go: Record constructors this reader feeds
*/
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/payments-engine/ledger"
)

// =============================================================================
// READER
// =============================================================================

// Reader streams transaction records from CSV input.
type Reader struct {
	csv  *csv.Reader
	cols columns
	line int
}

// columns maps header names to field positions. amount is optional in
// data rows, the other three are required in the header.
type columns struct {
	kind   int
	client int
	tx     int
	amount int
}

// NewReader wraps r. The header is read lazily on the first Read call.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// Dispute rows commonly omit the trailing amount field.
	cr.FieldsPerRecord = -1
	return &Reader{csv: cr, cols: columns{kind: -1, client: -1, tx: -1, amount: -1}}
}

// Read returns the next record, or io.EOF when the input is
// exhausted. Any other error is a structural fault and the stream
// should be abandoned.
func (r *Reader) Read() (ledger.Record, error) {
	if r.line == 0 {
		if err := r.readHeader(); err != nil {
			return ledger.Record{}, err
		}
	}

	row, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ledger.Record{}, io.EOF
		}
		return ledger.Record{}, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	r.line++

	rec, err := r.parseRow(row)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	return rec, nil
}

func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("missing header row")
		}
		return fmt.Errorf("reading header: %w", err)
	}
	r.line = 1

	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "type":
			r.cols.kind = i
		case "client":
			r.cols.client = i
		case "tx":
			r.cols.tx = i
		case "amount":
			r.cols.amount = i
		default:
			return fmt.Errorf("unexpected header column %q", name)
		}
	}
	if r.cols.kind < 0 || r.cols.client < 0 || r.cols.tx < 0 {
		return fmt.Errorf("header must name type, client and tx columns, got %v", header)
	}
	return nil
}

func (r *Reader) parseRow(row []string) (ledger.Record, error) {
	kindField, err := field(row, r.cols.kind, "type")
	if err != nil {
		return ledger.Record{}, err
	}
	kind, err := ledger.ParseKind(strings.TrimSpace(kindField))
	if err != nil {
		return ledger.Record{}, err
	}

	clientField, err := field(row, r.cols.client, "client")
	if err != nil {
		return ledger.Record{}, err
	}
	client, err := strconv.ParseUint(strings.TrimSpace(clientField), 10, 16)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("client %q: %w", clientField, err)
	}

	txField, err := field(row, r.cols.tx, "tx")
	if err != nil {
		return ledger.Record{}, err
	}
	tx, err := strconv.ParseUint(strings.TrimSpace(txField), 10, 32)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("tx %q: %w", txField, err)
	}

	amountField := ""
	if r.cols.amount >= 0 && r.cols.amount < len(row) {
		amountField = strings.TrimSpace(row[r.cols.amount])
	}

	switch kind {
	case ledger.Deposit, ledger.Withdrawal:
		if amountField == "" {
			return ledger.Record{}, fmt.Errorf("%s %d: missing amount", kind, tx)
		}
		amount, err := decimal.NewFromString(amountField)
		if err != nil {
			return ledger.Record{}, fmt.Errorf("amount %q: %w", amountField, err)
		}
		if kind == ledger.Deposit {
			return ledger.NewDeposit(ledger.ClientID(client), ledger.TxID(tx), amount)
		}
		return ledger.NewWithdrawal(ledger.ClientID(client), ledger.TxID(tx), amount)

	case ledger.Dispute:
		if amountField != "" {
			return ledger.Record{}, fmt.Errorf("%s %d: unexpected amount %q", kind, tx, amountField)
		}
		return ledger.NewDispute(ledger.ClientID(client), ledger.TxID(tx)), nil
	case ledger.Resolve:
		if amountField != "" {
			return ledger.Record{}, fmt.Errorf("%s %d: unexpected amount %q", kind, tx, amountField)
		}
		return ledger.NewResolve(ledger.ClientID(client), ledger.TxID(tx)), nil
	case ledger.Chargeback:
		if amountField != "" {
			return ledger.Record{}, fmt.Errorf("%s %d: unexpected amount %q", kind, tx, amountField)
		}
		return ledger.NewChargeback(ledger.ClientID(client), ledger.TxID(tx)), nil
	}
	return ledger.Record{}, fmt.Errorf("unhandled kind %q", kind)
}

func field(row []string, idx int, name string) (string, error) {
	if idx < 0 || idx >= len(row) {
		return "", fmt.Errorf("missing %s column", name)
	}
	return row[idx], nil
}
