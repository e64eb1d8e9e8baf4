package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a resource hold. Transitions
// are monotonic: reserved is the only non-terminal state, and a terminal
// reservation never changes again.
type ReservationStatus string

const (
	StatusReserved          ReservationStatus = "reserved"
	StatusConsumed          ReservationStatus = "consumed"
	StatusRefunded          ReservationStatus = "refunded"
	StatusPartiallyRefunded ReservationStatus = "partially_refunded"
)

// ErrReservationResolved is returned when a terminal transition is attempted
// on a reservation that has already been resolved.
var ErrReservationResolved = errors.New("reservation already resolved")

// Reservation is a hold against a finite, non-currency resource pool, such
// as coaching hours, pending consumption or refund. Once terminal,
// consumed + refunded always equals the reserved amount.
type Reservation struct {
	ID             int64             `json:"-"`
	ReservationID  string            `json:"reservation_id"`
	Principal      Principal         `json:"principal"`
	ResourceType   string            `json:"resource_type"`
	ReservedAmount decimal.Decimal   `json:"reserved_amount"`
	ConsumedAmount decimal.Decimal   `json:"consumed_amount"`
	RefundedAmount decimal.Decimal   `json:"refunded_amount"`
	Status         ReservationStatus `json:"status"`
	Unlimited      bool              `json:"unlimited"`
	CreatedAt      time.Time         `json:"created_at"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
}

// NewReservation opens a hold for the given amount. Reservations created
// under an unlimited plan skip the availability check but are still
// recorded, so usage history stays complete.
func NewReservation(principal Principal, resourceType string, amount decimal.Decimal, unlimited bool) *Reservation {
	return &Reservation{
		ReservationID:  GenerateUUIDWithSuffix("rsv"),
		Principal:      principal,
		ResourceType:   resourceType,
		ReservedAmount: amount,
		ConsumedAmount: decimal.Zero,
		RefundedAmount: decimal.Zero,
		Status:         StatusReserved,
		Unlimited:      unlimited,
	}
}

// Consume resolves the reservation with the actual usage. Using less than
// was reserved refunds the difference; using the full amount or more
// consumes exactly what was reserved. Overage carries no additional charge.
func (r *Reservation) Consume(actual decimal.Decimal, now time.Time) error {
	if r.Status != StatusReserved {
		return ErrReservationResolved
	}
	if !actual.IsPositive() {
		return fmt.Errorf("actual amount must be positive, got %s", actual)
	}
	if actual.LessThan(r.ReservedAmount) {
		r.ConsumedAmount = actual
		r.RefundedAmount = r.ReservedAmount.Sub(actual)
		r.Status = StatusPartiallyRefunded
	} else {
		r.ConsumedAmount = r.ReservedAmount
		r.RefundedAmount = decimal.Zero
		r.Status = StatusConsumed
	}
	r.ResolvedAt = &now
	return nil
}

// Release is the compensating rollback for a reservation whose downstream
// operation failed before any consumption occurred.
func (r *Reservation) Release(now time.Time) error {
	if r.Status != StatusReserved {
		return ErrReservationResolved
	}
	r.ConsumedAmount = decimal.Zero
	r.RefundedAmount = r.ReservedAmount
	r.Status = StatusRefunded
	r.ResolvedAt = &now
	return nil
}

// Terminal reports whether the reservation has reached a final state.
func (r *Reservation) Terminal() bool {
	return r.Status != StatusReserved
}
