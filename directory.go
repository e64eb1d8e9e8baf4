package fincore

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/edupay/fincore/model"
)

// PrincipalDirectory answers whether a principal exists in the surrounding
// system. It is consulted once, before the first account is created for a
// principal, so money can never be credited to an identifier nobody owns.
type PrincipalDirectory interface {
	Exists(ctx context.Context, principal model.Principal) (bool, error)
}

// GrantSource reports how much of a resource a principal's plan grants in
// total. The unlimited flag bypasses availability checks entirely; granted
// totals for unlimited plans are meaningless and ignored.
type GrantSource interface {
	GrantedTotal(ctx context.Context, principal model.Principal, resourceType string) (granted decimal.Decimal, unlimited bool, err error)
}
