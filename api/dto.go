/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the ledger domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// TransactionRequest is the request to apply one transaction.
// Amount is a decimal string and must be absent (or empty) for
// dispute, resolve and chargeback.
type TransactionRequest struct {
	Type   string `json:"type"`
	Client uint16 `json:"client"`
	Tx     uint32 `json:"tx"`
	Amount string `json:"amount,omitempty"`
}

// BalanceDTO represents one account in API responses. Amounts are
// decimal strings at 4 places, matching the CSV output.
type BalanceDTO struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// TransactionDTO represents one audit log entry.
type TransactionDTO struct {
	Type   string `json:"type"`
	Client uint16 `json:"client"`
	Tx     uint32 `json:"tx"`
	Amount string `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ApplyResponse reports the outcome of a single transaction.
type ApplyResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ImportResponse reports the outcome of a CSV import.
type ImportResponse struct {
	Processed int `json:"processed"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
