package fincore

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/edupay/fincore/internal/apierror"
	"github.com/edupay/fincore/model"
)

// VerificationRequest asks the reconciler to confirm one payment reference
// against the gateway and settle it if the money really moved.
type VerificationRequest struct {
	Reference      string           `json:"reference"`
	Principal      model.Principal  `json:"principal"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
}

// VerificationResult reports what the reconciler concluded. Share is set
// only when the reference settled, on this call or a previous one.
type VerificationResult struct {
	Outcome        string              `json:"outcome"`
	Share          *model.RevenueShare `json:"share,omitempty"`
	AlreadySettled bool                `json:"already_settled"`
}

// Verify confirms a payment with the gateway and settles it exactly once.
// The gateway call happens before any lock so a slow processor cannot stall
// unrelated ledger work. Only a confirmed successful payment moves money;
// failed and pending outcomes record attempt metadata and nothing else.
func (f *Fincore) Verify(ctx context.Context, req VerificationRequest) (*VerificationResult, error) {
	err := validation.Errors{
		"reference": validation.Validate(req.Reference, validation.Required),
		"principal": validation.Validate(req.Principal, validation.By(validPrincipal(req.Principal))),
	}.Filter()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}
	if f.gateway == nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "No payment gateway is configured", nil)
	}

	gw, err := f.gateway.Check(ctx, req.Reference)
	if err != nil {
		if recErr := f.datasource.RecordVerificationAttempt(ctx, req.Reference, "error"); recErr != nil {
			logrus.Errorf("could not record verification attempt for %s: %v", req.Reference, recErr)
		}
		return nil, apierror.NewAPIError(apierror.ErrExternalService,
			"Payment gateway check failed", err)
	}

	switch gw.Status {
	case GatewayStatusSuccessful:
		return f.settleVerified(ctx, req, gw)
	case GatewayStatusFailed:
		if err := f.datasource.RecordVerificationAttempt(ctx, req.Reference, GatewayStatusFailed); err != nil {
			return nil, err
		}
		return &VerificationResult{Outcome: GatewayStatusFailed}, nil
	default:
		// anything the gateway has not confirmed yet counts as pending
		if err := f.datasource.RecordVerificationAttempt(ctx, req.Reference, GatewayStatusPending); err != nil {
			return nil, err
		}
		return &VerificationResult{Outcome: GatewayStatusPending}, nil
	}
}

// settleVerified credits the seller for a confirmed payment. The log's
// reference uniqueness is the idempotency guard: however many verifications
// of one reference race, at most one settlement commits.
func (f *Fincore) settleVerified(ctx context.Context, req VerificationRequest, gw *GatewayResult) (*VerificationResult, error) {
	settled, err := f.datasource.TransactionExistsByRef(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	if settled {
		share, err := f.datasource.GetRevenueShareBySaleRef(ctx, req.Reference)
		if err != nil && !apierror.Is(err, apierror.ErrNotFound) {
			return nil, err
		}
		return &VerificationResult{Outcome: GatewayStatusSuccessful, Share: share, AlreadySettled: true}, nil
	}

	share, err := f.Settle(ctx, SettlementRequest{
		SaleReference:  req.Reference,
		Principal:      req.Principal,
		GrossAmount:    gw.Amount,
		Currency:       gw.Currency,
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		return nil, err
	}
	return &VerificationResult{Outcome: GatewayStatusSuccessful, Share: share}, nil
}

// GetVerificationAttempt retrieves the attempt bookkeeping for a reference
// that has not settled.
func (f *Fincore) GetVerificationAttempt(ctx context.Context, reference string) (*model.VerificationAttempt, error) {
	return f.datasource.GetVerificationAttempt(ctx, reference)
}
