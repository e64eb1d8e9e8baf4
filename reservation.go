package fincore

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/edupay/fincore/internal/apierror"
	redlock "github.com/edupay/fincore/internal/lock"
	"github.com/edupay/fincore/model"
)

// Reserve opens a hold against a principal's resource pool. Availability is
// what the plan grants minus every hold still open; the pool lock spans the
// check and the write, so two concurrent reserves cannot both pass a check
// only one can satisfy. Unlimited plans skip the check but still record the
// hold, keeping usage history complete.
func (f *Fincore) Reserve(ctx context.Context, principal model.Principal, resourceType string, amount decimal.Decimal) (*model.Reservation, error) {
	err := validation.Errors{
		"principal":     validation.Validate(principal, validation.By(validPrincipal(principal))),
		"resource_type": validation.Validate(resourceType, validation.Required),
		"amount":        validation.Validate(amount, validation.By(positiveAmount(amount))),
	}.Filter()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}
	if f.grants == nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "No grant source is configured", nil)
	}

	locker, err := f.acquireLock(ctx, redlock.PoolKey(principal, resourceType))
	if err != nil {
		return nil, err
	}
	defer f.releaseLock(ctx, locker)

	granted, unlimited, err := f.grants.GrantedTotal(ctx, principal, resourceType)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrExternalService,
			fmt.Sprintf("Could not resolve %s grant for %s", resourceType, principal.Key()), err)
	}

	if !unlimited {
		open, err := f.datasource.SumOpenReservations(ctx, principal, resourceType)
		if err != nil {
			return nil, err
		}
		available := granted.Sub(open)
		if amount.GreaterThan(available) {
			return nil, apierror.NewAPIError(apierror.ErrResourceExhausted,
				fmt.Sprintf("Cannot reserve %s %s: %s available", amount, resourceType, available), nil)
		}
	}

	reservation := model.NewReservation(principal, resourceType, amount, unlimited)
	if err := f.datasource.CreateReservation(ctx, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

// Consume resolves a hold with the actual usage. Using less than was
// reserved refunds the difference; using the full amount or more consumes
// exactly what was held, with no extra charge for the overage.
func (f *Fincore) Consume(ctx context.Context, reservationID string, actual decimal.Decimal) (*model.Reservation, error) {
	return f.finalize(ctx, reservationID, func(r *model.Reservation) error {
		return r.Consume(actual, time.Now())
	})
}

// Release rolls a hold back in full. It is the compensating action for a
// downstream failure that happened before any consumption.
func (f *Fincore) Release(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return f.finalize(ctx, reservationID, func(r *model.Reservation) error {
		return r.Release(time.Now())
	})
}

// finalize applies one terminal transition under the reservation lock. The
// datasource re-checks the status on write, so even a transition racing past
// the lock cannot resolve a reservation twice.
func (f *Fincore) finalize(ctx context.Context, reservationID string, transition func(*model.Reservation) error) (*model.Reservation, error) {
	if err := validation.Validate(reservationID, validation.Required); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "reservation_id: "+err.Error(), nil)
	}

	locker, err := f.acquireLock(ctx, redlock.ReservationKey(reservationID))
	if err != nil {
		return nil, err
	}
	defer f.releaseLock(ctx, locker)

	reservation, err := f.datasource.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if err := transition(reservation); err != nil {
		if errors.Is(err, model.ErrReservationResolved) {
			return nil, apierror.NewAPIError(apierror.ErrConflict,
				fmt.Sprintf("Reservation '%s' has already been resolved", reservationID), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}

	if err := f.datasource.FinalizeReservation(ctx, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

// GetReservation retrieves one hold by ID.
func (f *Fincore) GetReservation(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return f.datasource.GetReservation(ctx, reservationID)
}

// GetReservations lists a principal's holds newest-first.
func (f *Fincore) GetReservations(ctx context.Context, principal model.Principal, resourceType string, limit int, offset int64) ([]model.Reservation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return f.datasource.GetReservations(ctx, principal, resourceType, limit, offset)
}
