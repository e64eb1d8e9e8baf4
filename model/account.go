package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance is returned by ApplyDebit when the debit would
// drive the balance negative. The service layer wraps it into the stable
// error taxonomy; keeping a sentinel here lets pure code stay free of that
// dependency.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Account is the current balance of one principal in one currency. Accounts
// are created lazily on first transaction and never deleted. The balance
// field is a cache over the transaction log: it is only ever mutated in the
// same atomic unit as the log append that explains the change.
type Account struct {
	ID        int64           `json:"-"`
	AccountID string          `json:"account_id"`
	Principal Principal       `json:"principal"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewAccount returns a zero-balance account for the given pair.
func NewAccount(principal Principal, currency string) *Account {
	return &Account{
		AccountID: GenerateUUIDWithSuffix("acc"),
		Principal: principal,
		Currency:  currency,
		Balance:   decimal.Zero,
	}
}

// ApplyCredit increases the balance. The amount must already be validated
// as positive.
func (a *Account) ApplyCredit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}

// ApplyDebit decreases the balance, refusing to go below zero.
func (a *Account) ApplyDebit(amount decimal.Decimal) error {
	if amount.GreaterThan(a.Balance) {
		return ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}
