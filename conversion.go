package fincore

import (
	"context"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/edupay/fincore/internal/apierror"
	redlock "github.com/edupay/fincore/internal/lock"
	"github.com/edupay/fincore/model"
)

// ConversionRequest moves value between two of one principal's currency
// accounts. The fee is absorbed from the debited amount, so the source is
// debited the full amount and only the net converts.
type ConversionRequest struct {
	Principal    model.Principal `json:"principal"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Amount       decimal.Decimal `json:"amount"`
}

func (r ConversionRequest) validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Principal, validation.By(validPrincipal(r.Principal))),
	)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}
	return validateConversionShape(r.FromCurrency, r.ToCurrency, r.Amount)
}

func validateConversionShape(from, to string, amount decimal.Decimal) error {
	err := validation.Errors{
		"from_currency": validation.Validate(from, validation.Required),
		"to_currency":   validation.Validate(to, validation.Required),
		"amount":        validation.Validate(amount, validation.By(positiveAmount(amount))),
	}.Filter()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}
	if from == to {
		return apierror.NewAPIError(apierror.ErrSameCurrency,
			fmt.Sprintf("Cannot convert %s to itself", from), nil)
	}
	return nil
}

// fetchRate asks the provider for the pair's rate. Absence of a rate is a
// first-class outcome, not an internal failure.
func (f *Fincore) fetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if f.rates == nil {
		return decimal.Zero, apierror.NewAPIError(apierror.ErrRateUnavailable,
			"No rate provider is configured", nil)
	}
	quote, err := f.rates.Rate(ctx, from, to)
	if err != nil {
		if apierror.Is(err, apierror.ErrRateUnavailable) {
			return decimal.Zero, err
		}
		return decimal.Zero, apierror.NewAPIError(apierror.ErrExternalService,
			fmt.Sprintf("Rate provider failed for %s/%s", from, to), err)
	}
	if !quote.Value.IsPositive() {
		return decimal.Zero, apierror.NewAPIError(apierror.ErrRateUnavailable,
			fmt.Sprintf("No rate published for %s/%s", from, to), nil)
	}
	return quote.Value, nil
}

// Preview computes the quote a conversion would commit with, without side
// effects. It shares the exact computation with Convert so the two can never
// disagree.
func (f *Fincore) Preview(ctx context.Context, from, to string, amount decimal.Decimal) (model.Quote, error) {
	if err := validateConversionShape(from, to, amount); err != nil {
		return model.Quote{}, err
	}
	rate, err := f.fetchRate(ctx, from, to)
	if err != nil {
		return model.Quote{}, err
	}
	return model.NewQuote(model.RoundMoney(amount), rate, f.feePercent), nil
}

// Convert executes a conversion. The rate is fetched before any lock is
// taken so a slow provider cannot extend the critical section; both account
// locks are then acquired in key order to rule out deadlock with a
// concurrent opposite-direction conversion.
func (f *Fincore) Convert(ctx context.Context, req ConversionRequest) (*model.Conversion, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	amount := model.RoundMoney(req.Amount)

	rate, err := f.fetchRate(ctx, req.FromCurrency, req.ToCurrency)
	if err != nil {
		return nil, err
	}
	quote := model.NewQuote(amount, rate, f.feePercent)
	if !quote.ToAmount.IsPositive() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("%s %s converts to zero %s at the current rate", amount, req.FromCurrency, req.ToCurrency), nil)
	}

	keys := []string{
		redlock.AccountKey(req.Principal, req.FromCurrency),
		redlock.AccountKey(req.Principal, req.ToCurrency),
	}
	sort.Strings(keys)
	for _, key := range keys {
		locker, err := f.acquireLock(ctx, key)
		if err != nil {
			return nil, err
		}
		defer f.releaseLock(ctx, locker)
	}

	source, err := f.datasource.GetAccount(ctx, req.Principal, req.FromCurrency)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			return nil, apierror.NewAPIError(apierror.ErrInsufficientFunds,
				fmt.Sprintf("Cannot convert %s %s: no funds held by %s", amount, req.FromCurrency, req.Principal.Key()), nil)
		}
		return nil, err
	}
	if err := source.ApplyDebit(amount); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInsufficientFunds,
			fmt.Sprintf("Cannot convert %s %s: balance is %s", amount, req.FromCurrency, source.Balance), nil)
	}

	destination, err := f.getOrCreateAccount(ctx, req.Principal, req.ToCurrency)
	if err != nil {
		return nil, err
	}
	destination.ApplyCredit(quote.ToAmount)

	conv := &model.Conversion{
		ConversionID: model.GenerateUUIDWithSuffix("cnv"),
		Principal:    req.Principal,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		FromAmount:   amount,
		ToAmount:     quote.ToAmount,
		Rate:         quote.Rate,
		Fee:          quote.Fee,
	}
	debit := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		Principal:     req.Principal,
		Currency:      req.FromCurrency,
		Amount:        amount,
		Kind:          model.Debit,
		BalanceAfter:  source.Balance,
		Reference:     conv.ConversionID + "_src",
		Note:          fmt.Sprintf("conversion to %s", req.ToCurrency),
	}
	credit := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		Principal:     req.Principal,
		Currency:      req.ToCurrency,
		Amount:        quote.ToAmount,
		Kind:          model.Credit,
		BalanceAfter:  destination.Balance,
		Reference:     conv.ConversionID + "_dst",
		Note:          fmt.Sprintf("conversion from %s", req.FromCurrency),
	}

	if err := f.datasource.ApplyConversion(ctx, source, destination, debit, credit, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversion retrieves a committed conversion by ID.
func (f *Fincore) GetConversion(ctx context.Context, id string) (*model.Conversion, error) {
	return f.datasource.GetConversion(ctx, id)
}
