package fincore

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/edupay/fincore/internal/apierror"
	redlock "github.com/edupay/fincore/internal/lock"
	"github.com/edupay/fincore/model"
)

// EntryRequest is one credit or debit against a (principal, currency) pair.
// Reference is optional; a non-empty reference must be unique across the
// whole log and makes the entry idempotent.
type EntryRequest struct {
	Principal model.Principal `json:"principal"`
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	Note      string          `json:"note,omitempty"`
}

func (r EntryRequest) validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Principal, validation.By(validPrincipal(r.Principal))),
		validation.Field(&r.Currency, validation.Required, validation.Length(3, 10)),
		validation.Field(&r.Amount, validation.By(positiveAmount(r.Amount))),
	)
}

func validPrincipal(p model.Principal) validation.RuleFunc {
	return func(interface{}) error {
		if p.ID == "" || p.Kind == "" {
			return errors.New("id and kind are required")
		}
		return nil
	}
}

func positiveAmount(d decimal.Decimal) validation.RuleFunc {
	return func(interface{}) error {
		if !d.IsPositive() {
			return errors.New("must be greater than zero")
		}
		return nil
	}
}

// Credit adds funds to the pair's account, creating the account on first
// use. The account lock is held across read, mutation and commit so
// concurrent entries against the same pair fully serialize.
func (f *Fincore) Credit(ctx context.Context, req EntryRequest) (*model.Transaction, error) {
	if err := req.validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}
	amount := model.RoundMoney(req.Amount)

	locker, err := f.acquireLock(ctx, redlock.AccountKey(req.Principal, req.Currency))
	if err != nil {
		return nil, err
	}
	defer f.releaseLock(ctx, locker)

	account, err := f.getOrCreateAccount(ctx, req.Principal, req.Currency)
	if err != nil {
		return nil, err
	}

	account.ApplyCredit(amount)
	txn := newEntry(req, amount, model.Credit, account.Balance)
	if err := f.datasource.ApplyTransaction(ctx, account, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Debit removes funds from the pair's account. A pair that has never
// transacted holds zero, so debiting it fails the same way an overdraft
// does.
func (f *Fincore) Debit(ctx context.Context, req EntryRequest) (*model.Transaction, error) {
	if err := req.validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}
	amount := model.RoundMoney(req.Amount)

	locker, err := f.acquireLock(ctx, redlock.AccountKey(req.Principal, req.Currency))
	if err != nil {
		return nil, err
	}
	defer f.releaseLock(ctx, locker)

	account, err := f.datasource.GetAccount(ctx, req.Principal, req.Currency)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			return nil, apierror.NewAPIError(apierror.ErrInsufficientFunds,
				fmt.Sprintf("Cannot debit %s %s: no funds held by %s", amount, req.Currency, req.Principal.Key()), nil)
		}
		return nil, err
	}

	if err := account.ApplyDebit(amount); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInsufficientFunds,
			fmt.Sprintf("Cannot debit %s %s: balance is %s", amount, req.Currency, account.Balance), nil)
	}

	txn := newEntry(req, amount, model.Debit, account.Balance)
	if err := f.datasource.ApplyTransaction(ctx, account, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func newEntry(req EntryRequest, amount decimal.Decimal, kind model.TransactionKind, balanceAfter decimal.Decimal) *model.Transaction {
	return &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		Principal:     req.Principal,
		Currency:      req.Currency,
		Amount:        amount,
		Kind:          kind,
		BalanceAfter:  balanceAfter,
		Reference:     req.Reference,
		Note:          req.Note,
	}
}

// Balance is a point-in-time read. A pair that has never transacted reads as
// zero rather than as an error.
func (f *Fincore) Balance(ctx context.Context, principal model.Principal, currency string) (decimal.Decimal, error) {
	account, err := f.datasource.GetAccount(ctx, principal, currency)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// GetAccounts lists every currency account a principal holds.
func (f *Fincore) GetAccounts(ctx context.Context, principal model.Principal) ([]model.Account, error) {
	return f.datasource.GetAccountsByPrincipal(ctx, principal)
}

// GetTransactions lists a pair's log entries newest-first.
func (f *Fincore) GetTransactions(ctx context.Context, principal model.Principal, currency string, filter model.TransactionFilter, limit int, offset int64) ([]model.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return f.datasource.GetTransactions(ctx, principal, currency, filter, limit, offset)
}

// RebuildBalance replays the full log for a pair and returns the result. The
// stored balance is a projection of the log; drift between the two means a
// write bypassed the atomic unit and is worth an alert, not an auto-repair.
func (f *Fincore) RebuildBalance(ctx context.Context, principal model.Principal, currency string) (decimal.Decimal, error) {
	replayed, err := f.datasource.SumTransactionAmounts(ctx, principal, currency)
	if err != nil {
		return decimal.Zero, err
	}

	account, err := f.datasource.GetAccount(ctx, principal, currency)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			return replayed, nil
		}
		return decimal.Zero, err
	}

	if !replayed.Equal(account.Balance) {
		logrus.Warnf("balance drift on %s %s: stored %s, log replays to %s",
			principal.Key(), currency, account.Balance, replayed)
	}
	return replayed, nil
}
