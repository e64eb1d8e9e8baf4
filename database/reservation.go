package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/edupay/fincore/internal/apierror"
	"github.com/edupay/fincore/model"
)

func (d Datasource) CreateReservation(ctx context.Context, r *model.Reservation) error {
	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO reservations (reservation_id, principal_id, principal_kind, resource_type, reserved_amount, consumed_amount, refunded_amount, status, unlimited, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`, r.ReservationID, r.Principal.ID, r.Principal.Kind, r.ResourceType, r.ReservedAmount,
		r.ConsumedAmount, r.RefundedAmount, r.Status, r.Unlimited).
		Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create reservation", err)
	}
	return nil
}

func (d Datasource) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, reservation_id, principal_id, principal_kind, resource_type, reserved_amount, consumed_amount, refunded_amount, status, unlimited, created_at, resolved_at
		FROM reservations
		WHERE reservation_id = $1
	`, id)

	r := &model.Reservation{}
	var resolvedAt sql.NullTime
	err := row.Scan(&r.ID, &r.ReservationID, &r.Principal.ID, &r.Principal.Kind, &r.ResourceType,
		&r.ReservedAmount, &r.ConsumedAmount, &r.RefundedAmount, &r.Status, &r.Unlimited, &r.CreatedAt, &resolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("Reservation with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve reservation", err)
	}
	if resolvedAt.Valid {
		r.ResolvedAt = &resolvedAt.Time
	}
	return r, nil
}

// SumOpenReservations totals the holds still outstanding against one
// principal's pool. Unlimited holds are excluded: they never count against
// availability.
func (d Datasource) SumOpenReservations(ctx context.Context, principal model.Principal, resourceType string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(reserved_amount), 0)
		FROM reservations
		WHERE principal_id = $1 AND principal_kind = $2 AND resource_type = $3
		AND status = 'reserved' AND unlimited = FALSE
	`, principal.ID, principal.Kind, resourceType).Scan(&total)
	if err != nil {
		return decimal.Zero, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sum open reservations", err)
	}
	return total, nil
}

// FinalizeReservation applies a terminal transition computed in memory. The
// status = 'reserved' guard makes the transition race-safe at the storage
// level: of two concurrent consume/release attempts, exactly one matches the
// row and wins; the loser observes zero affected rows.
func (d Datasource) FinalizeReservation(ctx context.Context, r *model.Reservation) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE reservations
		SET consumed_amount = $2, refunded_amount = $3, status = $4, resolved_at = $5
		WHERE reservation_id = $1 AND status = 'reserved'
	`, r.ReservationID, r.ConsumedAmount, r.RefundedAmount, r.Status, r.ResolvedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to finalize reservation", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Reservation '%s' has already been resolved", r.ReservationID), nil)
	}
	return nil
}

func (d Datasource) GetReservations(ctx context.Context, principal model.Principal, resourceType string, limit int, offset int64) ([]model.Reservation, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, reservation_id, principal_id, principal_kind, resource_type, reserved_amount, consumed_amount, refunded_amount, status, unlimited, created_at, resolved_at
		FROM reservations
		WHERE principal_id = $1 AND principal_kind = $2 AND resource_type = $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`, principal.ID, principal.Kind, resourceType, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve reservations", err)
	}
	defer rows.Close()

	var reservations []model.Reservation
	for rows.Next() {
		r := model.Reservation{}
		var resolvedAt sql.NullTime
		err = rows.Scan(&r.ID, &r.ReservationID, &r.Principal.ID, &r.Principal.Kind, &r.ResourceType,
			&r.ReservedAmount, &r.ConsumedAmount, &r.RefundedAmount, &r.Status, &r.Unlimited, &r.CreatedAt, &resolvedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan reservation data", err)
		}
		if resolvedAt.Valid {
			r.ResolvedAt = &resolvedAt.Time
		}
		reservations = append(reservations, r)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over reservations", err)
	}
	return reservations, nil
}
