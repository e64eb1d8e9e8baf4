package fincore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/fincore/internal/apierror"
)

func ngnUsdRate() stubRates {
	return stubRates{quote: &RateQuote{Value: decimal.NewFromFloat(0.0012), AsOf: time.Now()}}
}

func TestPreview(t *testing.T) {
	f, mock := newTestFincore(t, WithRateProvider(ngnUsdRate()))

	quote, err := f.Preview(context.Background(), "NGN", "USD", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "5", quote.Fee.String())
	assert.Equal(t, "1.19", quote.ToAmount.String())
	expectationsMet(t, mock)
}

func TestPreviewSameCurrency(t *testing.T) {
	f, mock := newTestFincore(t, WithRateProvider(ngnUsdRate()))

	_, err := f.Preview(context.Background(), "NGN", "NGN", decimal.NewFromInt(100))
	assert.True(t, apierror.Is(err, apierror.ErrSameCurrency), "got %v", err)
	expectationsMet(t, mock)
}

func TestConvert(t *testing.T) {
	f, mock := newTestFincore(t, WithRateProvider(ngnUsdRate()))

	// source exists with enough funds; destination is created lazily
	mock.ExpectQuery("SELECT .* FROM accounts").WillReturnRows(accountRow("1500.00", 1))
	mock.ExpectQuery("SELECT .* FROM accounts").WillReturnRows(noAccountRow())
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO accounts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "version"}).AddRow(2, 1))
	mock.ExpectQuery("INSERT INTO transactions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectQuery("INSERT INTO transactions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(2, time.Now()))
	mock.ExpectQuery("INSERT INTO conversions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectCommit()

	conv, err := f.Convert(context.Background(), ConversionRequest{
		Principal: tutor(), FromCurrency: "NGN", ToCurrency: "USD",
		Amount: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	assert.Equal(t, "5", conv.Fee.String())
	assert.Equal(t, "1.19", conv.ToAmount.String())
	assert.True(t, decimal.NewFromInt(1000).Equal(conv.FromAmount))
	expectationsMet(t, mock)
}

func TestConvertSameCurrency(t *testing.T) {
	f, mock := newTestFincore(t, WithRateProvider(ngnUsdRate()))

	_, err := f.Convert(context.Background(), ConversionRequest{
		Principal: tutor(), FromCurrency: "USD", ToCurrency: "USD",
		Amount: decimal.NewFromInt(10),
	})
	assert.True(t, apierror.Is(err, apierror.ErrSameCurrency), "got %v", err)
	expectationsMet(t, mock)
}

func TestConvertRateUnavailable(t *testing.T) {
	f, mock := newTestFincore(t, WithRateProvider(stubRates{
		err: apierror.NewAPIError(apierror.ErrRateUnavailable, "No rate published for NGN/USD", nil),
	}))

	_, err := f.Convert(context.Background(), ConversionRequest{
		Principal: tutor(), FromCurrency: "NGN", ToCurrency: "USD",
		Amount: decimal.NewFromInt(1000),
	})
	assert.True(t, apierror.Is(err, apierror.ErrRateUnavailable), "got %v", err)
	expectationsMet(t, mock)
}

func TestConvertNoProviderConfigured(t *testing.T) {
	f, mock := newTestFincore(t)

	_, err := f.Convert(context.Background(), ConversionRequest{
		Principal: tutor(), FromCurrency: "NGN", ToCurrency: "USD",
		Amount: decimal.NewFromInt(1000),
	})
	assert.True(t, apierror.Is(err, apierror.ErrRateUnavailable), "got %v", err)
	expectationsMet(t, mock)
}

func TestConvertAmountTooSmall(t *testing.T) {
	f, mock := newTestFincore(t, WithRateProvider(ngnUsdRate()))

	// 1 NGN nets 0.99 after the fee and rounds to 0.00 USD; the conversion
	// is rejected before any lock or account read
	_, err := f.Convert(context.Background(), ConversionRequest{
		Principal: tutor(), FromCurrency: "NGN", ToCurrency: "USD",
		Amount: decimal.NewFromInt(1),
	})
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput), "got %v", err)
	expectationsMet(t, mock)
}

func TestConvertInsufficientFunds(t *testing.T) {
	f, mock := newTestFincore(t, WithRateProvider(ngnUsdRate()))

	mock.ExpectQuery("SELECT .* FROM accounts").WillReturnRows(accountRow("500.00", 1))

	_, err := f.Convert(context.Background(), ConversionRequest{
		Principal: tutor(), FromCurrency: "NGN", ToCurrency: "USD",
		Amount: decimal.NewFromInt(1000),
	})
	assert.True(t, apierror.Is(err, apierror.ErrInsufficientFunds), "got %v", err)
	expectationsMet(t, mock)
}
