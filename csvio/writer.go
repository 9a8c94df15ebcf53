/*
writer.go - Balance table output

Renders a snapshot as `client,available,held,total,locked` rows with
amounts fixed to 4 decimal places. Row order is the snapshot's order,
so output is deterministic for a given input.
*/
package csvio

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/warp/payments-engine/ledger"
)

// Writer renders balance snapshots as CSV.
type Writer struct {
	csv *csv.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteSnapshot writes the header and one row per account, then
// flushes. Amounts are presented at 4 decimal places.
func (w *Writer) WriteSnapshot(balances []ledger.Balance) error {
	if err := w.csv.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return err
	}
	for _, b := range balances {
		row := []string{
			strconv.FormatUint(uint64(b.Client), 10),
			b.Available.StringFixed(4),
			b.Held.StringFixed(4),
			b.Total.StringFixed(4),
			strconv.FormatBool(b.Locked),
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	w.csv.Flush()
	return w.csv.Error()
}
