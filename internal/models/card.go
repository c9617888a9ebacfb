package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle status of a card
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// ValidCardStatus reports whether s is a known card status
func ValidCardStatus(s string) bool {
	switch CardStatus(s) {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired:
		return true
	}
	return false
}

// Card represents a bank card
type Card struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	NumberEncrypted string          `json:"-"` // Never serialized; masked in responses
	NumberHMAC      string          `json:"-"` // Deterministic digest for duplicate lookups
	Holder          string          `json:"card_holder"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	Status          CardStatus      `json:"status"`
	Balance         decimal.Decimal `json:"balance"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsExpired reports whether the card's expiry date is in the past
func (c *Card) IsExpired() bool {
	return c.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the card is expired as of the given moment.
// The card remains valid through the whole expiry day.
func (c *Card) IsExpiredAt(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ey, em, ed := c.ExpiryDate.Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return today.After(expiry)
}

// IsUsable reports whether the card can participate in a transfer
func (c *Card) IsUsable() bool {
	return c.Status == CardStatusActive && !c.IsExpired()
}

// CardResponse is the outward-facing view of a card with a masked number
type CardResponse struct {
	ID           int64           `json:"id"`
	NumberMasked string          `json:"card_number_masked"`
	Holder       string          `json:"card_holder"`
	ExpiryDate   string          `json:"expiry_date"` // Format: YYYY-MM-DD
	Status       string          `json:"status"`
	Balance      decimal.Decimal `json:"balance"`
	UserID       int64           `json:"user_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
