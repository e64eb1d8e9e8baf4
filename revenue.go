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

// SettlementRequest divides one gross sale between the platform and the
// seller. A nil CommissionRate means the configured default applies; a
// hundred-percent override routes the whole sale to the platform.
type SettlementRequest struct {
	SaleReference  string           `json:"sale_reference"`
	Principal      model.Principal  `json:"principal"`
	GrossAmount    decimal.Decimal  `json:"gross_amount"`
	Currency       string           `json:"currency"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
}

func (r SettlementRequest) validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.SaleReference, validation.Required),
		validation.Field(&r.Principal, validation.By(validPrincipal(r.Principal))),
		validation.Field(&r.Currency, validation.Required),
		validation.Field(&r.GrossAmount, validation.By(positiveAmount(r.GrossAmount))),
		validation.Field(&r.CommissionRate, validation.By(rateInRange(r.CommissionRate))),
	)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}
	return nil
}

func rateInRange(rate *decimal.Decimal) validation.RuleFunc {
	return func(interface{}) error {
		if rate == nil {
			return nil
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return errors.New("must be between 0 and 100")
		}
		return nil
	}
}

// Settle splits a sale and credits the seller's share, exactly once per sale
// reference. Re-settling a sale returns the stored record unchanged: the
// pre-check catches the common case cheaply, and the unique constraint on
// sale_reference catches the concurrent race. When the commission takes the
// whole sale, only the share record is written: the ledger never carries a
// zero-amount entry and no account is touched.
func (f *Fincore) Settle(ctx context.Context, req SettlementRequest) (*model.RevenueShare, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if existing, err := f.datasource.GetRevenueShareBySaleRef(ctx, req.SaleReference); err == nil {
		return existing, nil
	} else if !apierror.Is(err, apierror.ErrNotFound) {
		return nil, err
	}

	rate := f.defaultCommission
	if req.CommissionRate != nil {
		rate = *req.CommissionRate
	}
	gross := model.RoundMoney(req.GrossAmount)
	platform, seller := model.SplitGross(gross, rate)

	share := &model.RevenueShare{
		ShareID:        model.GenerateUUIDWithSuffix("shr"),
		SaleReference:  req.SaleReference,
		Principal:      req.Principal,
		GrossAmount:    gross,
		CommissionRate: rate,
		PlatformShare:  platform,
		SellerShare:    seller,
		Currency:       req.Currency,
	}

	if seller.IsZero() {
		if err := f.datasource.ApplySettlement(ctx, nil, nil, share); err != nil {
			return f.resolveDuplicateSettle(ctx, req.SaleReference, err)
		}
		return share, nil
	}

	locker, err := f.acquireLock(ctx, redlock.AccountKey(req.Principal, req.Currency))
	if err != nil {
		return nil, err
	}
	defer f.releaseLock(ctx, locker)

	account, err := f.getOrCreateAccount(ctx, req.Principal, req.Currency)
	if err != nil {
		return nil, err
	}
	account.ApplyCredit(seller)

	credit := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		Principal:     req.Principal,
		Currency:      req.Currency,
		Amount:        seller,
		Kind:          model.Credit,
		BalanceAfter:  account.Balance,
		Reference:     req.SaleReference,
		Note:          fmt.Sprintf("seller share of sale %s", req.SaleReference),
	}

	if err := f.datasource.ApplySettlement(ctx, account, credit, share); err != nil {
		return f.resolveDuplicateSettle(ctx, req.SaleReference, err)
	}
	return share, nil
}

// resolveDuplicateSettle turns a lost settle race into the winner's record.
func (f *Fincore) resolveDuplicateSettle(ctx context.Context, saleReference string, err error) (*model.RevenueShare, error) {
	if apierror.Is(err, apierror.ErrDuplicateReference) {
		logrus.Infof("sale %s settled concurrently, returning stored record", saleReference)
		return f.datasource.GetRevenueShareBySaleRef(ctx, saleReference)
	}
	return nil, err
}

// GetRevenueShare retrieves the stored split for a sale.
func (f *Fincore) GetRevenueShare(ctx context.Context, saleReference string) (*model.RevenueShare, error) {
	return f.datasource.GetRevenueShareBySaleRef(ctx, saleReference)
}
