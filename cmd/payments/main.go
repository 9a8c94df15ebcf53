/*
main.go - Batch CLI entry point

PURPOSE:
  Reads a transaction CSV, applies every record in input order, and
  writes the final balance table as CSV.

USAGE:
  # From a file
  ./payments transactions.csv > balances.csv

  # From stdin
  cat transactions.csv | ./payments > balances.csv

COMMAND-LINE FLAGS:
  -output    Write balances to a file instead of stdout
  -audit-db  Persist the audit trail and snapshot to a SQLite database
  -allow-locked-disputes
             Permit dispute/resolve/chargeback on locked accounts
  -v         Log each policy rejection to stderr

EXIT BEHAVIOR:
  Policy rejections never stop the run; they are counted and, with -v,
  logged. A structurally malformed input row is fatal: the run stops
  and the exit code is non-zero. Balances are only written for
  complete runs.

SEE ALSO:
  - csvio/reader.go: Input format
  - ledger/engine.go: Processing semantics
*/
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/warp/payments-engine/csvio"
	"github.com/warp/payments-engine/ledger"
	"github.com/warp/payments-engine/store/sqlite"
)

func main() {
	output := flag.String("output", "", "write balances to a file instead of stdout")
	auditDB := flag.String("audit-db", "", "persist the audit trail to this SQLite database")
	allowLockedDisputes := flag.Bool("allow-locked-disputes", false,
		"permit dispute/resolve/chargeback on locked accounts")
	verbose := flag.Bool("v", false, "log each policy rejection")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	if err := run(log, flag.Arg(0), *output, *auditDB, *allowLockedDisputes); err != nil {
		log.Fatal().Err(err).Msg("processing failed")
	}
}

func run(log zerolog.Logger, inputPath, outputPath, auditDB string, allowLockedDisputes bool) error {
	input := io.Reader(os.Stdin)
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	output := io.Writer(os.Stdout)
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}

	var opts []ledger.Option
	if allowLockedDisputes {
		opts = append(opts, ledger.WithLockedDisputes())
	}
	engine := ledger.NewEngine(opts...)

	reader := csvio.NewReader(input)
	var processed, rejected int
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		processed++
		if err := engine.Apply(rec); err != nil {
			rejected++
			var rej *ledger.RejectionError
			if errors.As(err, &rej) {
				log.Debug().
					Str("kind", string(rec.Kind)).
					Uint16("client", uint16(rec.Client)).
					Uint32("tx", uint32(rec.Tx)).
					Str("reason", string(rej.Reason())).
					Msg("transaction rejected")
			}
		}
	}

	snapshot := engine.Snapshot()
	if err := csvio.NewWriter(output).WriteSnapshot(snapshot); err != nil {
		return err
	}

	if auditDB != "" {
		if err := persistAudit(auditDB, engine, snapshot); err != nil {
			return err
		}
	}

	log.Info().
		Int("processed", processed).
		Int("rejected", rejected).
		Int("accounts", len(snapshot)).
		Msg("run complete")
	return nil
}

// persistAudit writes the full audit trail and the final snapshot.
func persistAudit(path string, engine *ledger.Engine, snapshot []ledger.Balance) error {
	store, err := sqlite.New(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	for _, entry := range engine.Trail() {
		if err := store.RecordTransaction(ctx, entry.Record, entry.Reason); err != nil {
			return err
		}
	}

	return store.SaveSnapshot(ctx, snapshot)
}
