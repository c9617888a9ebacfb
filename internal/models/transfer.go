package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is the status of a transfer. COMPLETED and FAILED are
// terminal: once set they never change.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusFailed    TransferStatus = "FAILED"
)

// IsFinal reports whether the status is terminal
func (s TransferStatus) IsFinal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed
}

// Transfer represents a fund movement attempt between two cards
type Transfer struct {
	ID          int64           `json:"id"`
	FromCardID  int64           `json:"from_card_id"`
	ToCardID    int64           `json:"to_card_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      TransferStatus  `json:"status"`
	Description string          `json:"description"`
	UserID      int64           `json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransferResponse is the outward-facing view of a transfer with masked
// card numbers
type TransferResponse struct {
	ID             int64           `json:"id"`
	FromCardID     int64           `json:"from_card_id"`
	FromCardMasked string          `json:"from_card_number_masked"`
	ToCardID       int64           `json:"to_card_id"`
	ToCardMasked   string          `json:"to_card_number_masked"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	Description    string          `json:"description"`
	UserID         int64           `json:"user_id"`
	CreatedAt      time.Time       `json:"created_at"`
}
