/*
handlers.go - HTTP API handlers for the payments ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Transactions:
    POST   /api/transactions          Apply one transaction
    POST   /api/transactions/import   Apply a CSV stream (text/csv body)

  Accounts:
    GET    /api/accounts              Balance snapshot, first-seen order
    GET    /api/accounts/{id}         One account

  Audit:
    GET    /api/audit/history         Every observed record
    GET    /api/audit/rejected        Policy rejections with reasons

ARCHITECTURE:
  Handler holds the engine, the optional audit store and the event
  publisher. The engine is single-threaded; the handler owns the
  mutex that serializes Apply across HTTP goroutines.

ERROR HANDLING:
  - 400: Malformed request body or CSV (structural faults)
  - 404: Unknown account
  - 422: Policy rejection (body carries the reason code)
  - 500: Audit store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/payments-engine/csvio"
	"github.com/warp/payments-engine/events"
	"github.com/warp/payments-engine/ledger"
	"github.com/warp/payments-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *ledger.Engine
	Store     *sqlite.Store // optional, nil disables audit persistence
	Publisher events.Publisher
	Log       zerolog.Logger

	// Serializes Apply: the engine processes one record to completion
	// before accepting the next.
	mu sync.Mutex
}

// NewHandler creates a handler around an engine. Store may be nil;
// publisher defaults to a no-op when nil.
func NewHandler(engine *ledger.Engine, store *sqlite.Store, publisher events.Publisher, log zerolog.Logger) *Handler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Handler{
		Engine:    engine,
		Store:     store,
		Publisher: publisher,
		Log:       log,
	}
}

// apply runs one record through the engine under the handler lock and
// fans out to the audit store and event stream. Audit failures are
// surfaced; publish failures are logged and swallowed, the ledger is
// the source of truth.
func (h *Handler) apply(r *http.Request, rec ledger.Record) (ledger.Reason, error) {
	h.mu.Lock()
	err := h.Engine.Apply(rec)
	h.mu.Unlock()

	reason := ledger.Reason("")
	var rejection *ledger.RejectionError
	if errors.As(err, &rejection) {
		reason = rejection.Reason()
	}

	if h.Store != nil {
		if storeErr := h.Store.RecordTransaction(r.Context(), rec, reason); storeErr != nil {
			return reason, storeErr
		}
	}

	var event any
	if reason == "" {
		event = events.NewTransactionAccepted(rec)
	} else {
		event = events.NewTransactionRejected(rec, reason)
	}
	if pubErr := h.Publisher.Publish(r.Context(), event); pubErr != nil {
		h.Log.Warn().Err(pubErr).Uint32("tx", uint32(rec.Tx)).Msg("failed to publish audit event")
	}

	return reason, nil
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ApplyTransaction applies a single transaction from a JSON body.
func (h *Handler) ApplyTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := recordFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction", err)
		return
	}

	reason, err := h.apply(r, rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist audit record", err)
		return
	}
	if reason != "" {
		writeJSON(w, http.StatusUnprocessableEntity, ApplyResponse{Accepted: false, Reason: string(reason)})
		return
	}
	writeJSON(w, http.StatusAccepted, ApplyResponse{Accepted: true})
}

// ImportTransactions streams a CSV body through the engine. The
// response counts policy outcomes; a structural CSV fault aborts the
// import with 400, leaving previously applied rows in effect.
func (h *Handler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	reader := csvio.NewReader(r.Body)
	var resp ImportResponse

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "Malformed CSV input", err)
			return
		}

		reason, err := h.apply(r, rec)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to persist audit record", err)
			return
		}
		resp.Processed++
		if reason == "" {
			resp.Accepted++
		} else {
			resp.Rejected++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns the balance snapshot in first-seen order.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	snapshot := h.Engine.Snapshot()
	h.mu.Unlock()

	dtos := make([]BalanceDTO, len(snapshot))
	for i, b := range snapshot {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 16)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid client id", err)
		return
	}

	h.mu.Lock()
	balance, ok := h.Engine.Account(ledger.ClientID(id))
	h.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// GetHistory returns every record the engine observed.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	history := h.Engine.History()
	h.mu.Unlock()

	dtos := make([]TransactionDTO, len(history))
	for i, rec := range history {
		dtos[i] = toTransactionDTO(rec, "")
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRejected returns the rejection sink.
func (h *Handler) GetRejected(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	rejected := h.Engine.Rejected()
	h.mu.Unlock()

	dtos := make([]TransactionDTO, len(rejected))
	for i, rej := range rejected {
		dtos[i] = toTransactionDTO(rej.Record, rej.Reason)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func recordFromRequest(req TransactionRequest) (ledger.Record, error) {
	kind, err := ledger.ParseKind(req.Type)
	if err != nil {
		return ledger.Record{}, err
	}

	client := ledger.ClientID(req.Client)
	tx := ledger.TxID(req.Tx)

	switch kind {
	case ledger.Deposit, ledger.Withdrawal:
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return ledger.Record{}, err
		}
		if kind == ledger.Deposit {
			return ledger.NewDeposit(client, tx, amount)
		}
		return ledger.NewWithdrawal(client, tx, amount)
	case ledger.Dispute:
		if req.Amount != "" {
			return ledger.Record{}, errors.New("dispute must not carry an amount")
		}
		return ledger.NewDispute(client, tx), nil
	case ledger.Resolve:
		if req.Amount != "" {
			return ledger.Record{}, errors.New("resolve must not carry an amount")
		}
		return ledger.NewResolve(client, tx), nil
	default:
		if req.Amount != "" {
			return ledger.Record{}, errors.New("chargeback must not carry an amount")
		}
		return ledger.NewChargeback(client, tx), nil
	}
}

func toBalanceDTO(b ledger.Balance) BalanceDTO {
	return BalanceDTO{
		Client:    uint16(b.Client),
		Available: b.Available.StringFixed(4),
		Held:      b.Held.StringFixed(4),
		Total:     b.Total.StringFixed(4),
		Locked:    b.Locked,
	}
}

func toTransactionDTO(rec ledger.Record, reason ledger.Reason) TransactionDTO {
	dto := TransactionDTO{
		Type:   string(rec.Kind),
		Client: uint16(rec.Client),
		Tx:     uint32(rec.Tx),
		Reason: string(reason),
	}
	if rec.Kind.Monetary() {
		dto.Amount = rec.Amount.String()
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
