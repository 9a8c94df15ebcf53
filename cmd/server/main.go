/*
main.go - Service entry point

PURPOSE:
  Initializes and starts the payments ledger service. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file or environment)
  2. Initialize the SQLite audit store
  3. Initialize the Kafka publisher (when brokers are configured)
  4. Create the ledger engine and API handler
  5. Start the server with graceful shutdown

CONFIGURATION (configs/app.env or environment):
  SERVER_ADDRESS  Listen address (default :8080)
  AUDIT_DB        SQLite audit database path (":memory:" supported)
  KAFKA_BROKERS   Comma-separated broker list; empty disables events
  KAFKA_TOPIC     Audit event topic (default ledger_audit)
  GO_ENV          "development" enables console logging

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the audit store and publisher

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/payments-engine/api"
	"github.com/warp/payments-engine/config"
	"github.com/warp/payments-engine/events"
	"github.com/warp/payments-engine/events/kafka"
	"github.com/warp/payments-engine/ledger"
	"github.com/warp/payments-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load("./configs")
	if err != nil {
		logger := zerolog.New(os.Stderr)
		logger.Fatal().Err(err).Msg("cannot load config")
	}

	log := newLogger(cfg)

	store, err := sqlite.New(cfg.AuditDB)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open audit store")
	}
	defer store.Close()

	var publisher events.Publisher = events.Noop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kp := kafka.NewPublisher(brokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("audit events enabled")
	}

	engine := ledger.NewEngine()
	handler := api.NewHandler(engine, store, publisher, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ServerAddress).Msg("payments ledger listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

func newLogger(cfg config.Config) zerolog.Logger {
	log := zerolog.New(os.Stderr).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()

	if cfg.Environment == "development" {
		log = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(zerolog.DebugLevel)
	}

	return log
}
