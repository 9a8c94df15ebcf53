/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Applying transactions over HTTP (accept and reject paths)
- CSV import
- Snapshot and audit endpoints
*/
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/warp/payments-engine/events"
	"github.com/warp/payments-engine/ledger"
)

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()
	h := NewHandler(ledger.NewEngine(), nil, events.Noop{}, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, h
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func TestApplyTransaction_Accepted(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/transactions",
		`{"type":"deposit","client":1,"tx":1,"amount":"10.0"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	body := decodeBody[ApplyResponse](t, resp)
	if !body.Accepted {
		t.Error("expected accepted response")
	}
}

func TestApplyTransaction_PolicyRejection_Is422(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/transactions",
		`{"type":"withdrawal","client":1,"tx":1,"amount":"5.0"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	body := decodeBody[ApplyResponse](t, resp)
	if body.Reason != string(ledger.ReasonInsufficientFunds) {
		t.Errorf("reason = %q, want insufficient_funds", body.Reason)
	}
}

func TestApplyTransaction_StructuralFault_Is400(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, body := range []string{
		`{"type":"transfer","client":1,"tx":1,"amount":"5.0"}`,
		`{"type":"deposit","client":1,"tx":1,"amount":"-5.0"}`,
		`{"type":"dispute","client":1,"tx":1,"amount":"5.0"}`,
		`not json`,
	} {
		resp := postJSON(t, srv.URL+"/api/transactions", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestImportTransactions_CountsOutcomes(t *testing.T) {
	srv, _ := newTestServer(t)

	csvBody := "type,client,tx,amount\n" +
		"deposit,1,1,10.0\n" +
		"withdrawal,1,2,3.0\n" +
		"withdrawal,1,3,100.0\n" // insufficient

	resp, err := http.Post(srv.URL+"/api/transactions/import", "text/csv", strings.NewReader(csvBody))
	if err != nil {
		t.Fatalf("POST import: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[ImportResponse](t, resp)
	if body.Processed != 3 || body.Accepted != 2 || body.Rejected != 1 {
		t.Errorf("counts = %+v, want 3/2/1", body)
	}
}

func TestGetAccount_SnapshotAndNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	postJSON(t, srv.URL+"/api/transactions",
		`{"type":"deposit","client":7,"tx":1,"amount":"2.5"}`).Body.Close()

	resp, err := http.Get(srv.URL + "/api/accounts/7")
	if err != nil {
		t.Fatalf("GET account: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[BalanceDTO](t, resp)
	if body.Available != "2.5000" || body.Total != "2.5000" {
		t.Errorf("balance = %+v, want 2.5000", body)
	}

	resp, err = http.Get(srv.URL + "/api/accounts/9")
	if err != nil {
		t.Fatalf("GET missing account: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAuditEndpoints_ExposeHistoryAndRejections(t *testing.T) {
	srv, _ := newTestServer(t)

	postJSON(t, srv.URL+"/api/transactions",
		`{"type":"deposit","client":1,"tx":1,"amount":"1.0"}`).Body.Close()
	postJSON(t, srv.URL+"/api/transactions",
		`{"type":"deposit","client":1,"tx":1,"amount":"1.0"}`).Body.Close() // duplicate

	resp, err := http.Get(srv.URL + "/api/audit/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	history := decodeBody[[]TransactionDTO](t, resp)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}

	resp, err = http.Get(srv.URL + "/api/audit/rejected")
	if err != nil {
		t.Fatalf("GET rejected: %v", err)
	}
	rejected := decodeBody[[]TransactionDTO](t, resp)
	if len(rejected) != 1 {
		t.Fatalf("rejected length = %d, want 1", len(rejected))
	}
	if rejected[0].Reason != string(ledger.ReasonDuplicateTransactionID) {
		t.Errorf("reason = %q, want duplicate_transaction_id", rejected[0].Reason)
	}
}
