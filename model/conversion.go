package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Conversion records one movement of value between two currencies inside a
// single principal's accounts. Every conversion is accompanied by exactly
// two transactions, a debit on the source currency and a credit on the
// destination, written in the same atomic unit as this record.
type Conversion struct {
	ID           int64           `json:"-"`
	ConversionID string          `json:"conversion_id"`
	Principal    Principal       `json:"principal"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	FromAmount   decimal.Decimal `json:"from_amount"`
	ToAmount     decimal.Decimal `json:"to_amount"`
	Rate         decimal.Decimal `json:"rate"`
	Fee          decimal.Decimal `json:"fee"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Quote is the pure outcome of a conversion computation, used both for
// previewing and for the committed conversion itself so the two can never
// disagree.
type Quote struct {
	Rate     decimal.Decimal `json:"rate"`
	Fee      decimal.Decimal `json:"fee"`
	ToAmount decimal.Decimal `json:"to_amount"`
}

// NewQuote computes the fee and destination amount for converting amount at
// the given rate with the given fee percentage. The fee is absorbed from the
// debited amount: the source account is debited the full amount, and only
// the net is converted. Rounding is applied exactly once per figure, so the
// error never compounds.
func NewQuote(amount, rate, feePercent decimal.Decimal) Quote {
	fee := RoundMoney(amount.Mul(feePercent).Div(oneHundred))
	net := amount.Sub(fee)
	return Quote{
		Rate:     rate,
		Fee:      fee,
		ToAmount: RoundMoney(net.Mul(rate)),
	}
}
