package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a cash account (checking, savings, wallet)
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Transaction represents one cash movement on an account. A negative
// amount is an expense, a positive amount is income.
type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category,omitempty"`
	Note      string          `json:"note,omitempty"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"createdAt"`
}
