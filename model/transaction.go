package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes the two directions a ledger entry can take.
type TransactionKind string

const (
	Credit TransactionKind = "credit"
	Debit  TransactionKind = "debit"
)

// Transaction is one immutable, signed movement of value into or out of a
// ledger account. Entries are written once and never updated or deleted;
// account balances are a projection of these rows.
type Transaction struct {
	ID            int64           `json:"-"`
	TransactionID string          `json:"transaction_id"`
	Principal     Principal       `json:"principal"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          TransactionKind `json:"kind"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reference     string          `json:"reference,omitempty"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SignedAmount returns the amount with its direction applied: positive for
// credits, negative for debits. Summing signed amounts per (principal,
// currency) reproduces the account balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Kind == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Validate checks the shape of a transaction before it is allowed anywhere
// near an account lock or a SQL statement.
func (t *Transaction) Validate() error {
	if t.Principal.ID == "" || t.Principal.Kind == "" {
		return errors.New("transaction principal is required")
	}
	if t.Currency == "" {
		return errors.New("transaction currency is required")
	}
	if !t.Amount.IsPositive() {
		return errors.New("transaction amount must be positive")
	}
	if t.Kind != Credit && t.Kind != Debit {
		return errors.New("transaction kind must be credit or debit")
	}
	return nil
}

// TransactionFilter narrows a transaction listing. Zero values mean the
// dimension is not filtered.
type TransactionFilter struct {
	Kind      TransactionKind
	Reference string
	From      time.Time
	To        time.Time
}
