package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueShare records how one gross sale was divided between the platform
// and the seller at purchase time. Exactly one credit transaction for the
// seller's share accompanies each record; the platform's share is recorded
// here but not credited to any account.
type RevenueShare struct {
	ID             int64           `json:"-"`
	ShareID        string          `json:"share_id"`
	SaleReference  string          `json:"sale_reference"`
	Principal      Principal       `json:"principal"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	PlatformShare  decimal.Decimal `json:"platform_share"`
	SellerShare    decimal.Decimal `json:"seller_share"`
	Currency       string          `json:"currency"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SplitGross divides a gross amount by the commission rate. The platform
// share is rounded once; the seller share is the remainder, not an
// independently rounded figure, so the two always sum exactly to the gross.
func SplitGross(gross, commissionRate decimal.Decimal) (platform, seller decimal.Decimal) {
	platform = RoundMoney(gross.Mul(commissionRate).Div(oneHundred))
	seller = gross.Sub(platform)
	return platform, seller
}
