package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edupay/fincore/internal/apierror"
	"github.com/edupay/fincore/model"
)

// ApplyConversion persists a conversion and both of its legs in one SQL
// transaction: the source debit, the destination credit, both log rows and
// the conversion record commit together or not at all. Partial application
// is never observable.
func (d Datasource) ApplyConversion(ctx context.Context, source, destination *model.Account, debit, credit *model.Transaction, conv *model.Conversion) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin conversion", err)
	}

	rollback := func(err error, msg string) error {
		_ = tx.Rollback()
		var apiErr apierror.APIError
		if errors.As(err, &apiErr) {
			return err
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, msg, err)
	}

	if err := persistAccount(ctx, tx, source); err != nil {
		return rollback(err, "Failed to update source account")
	}
	if err := persistAccount(ctx, tx, destination); err != nil {
		return rollback(err, "Failed to update destination account")
	}
	if err := insertTransaction(ctx, tx, debit); err != nil {
		return rollback(err, "Failed to record debit leg")
	}
	if err := insertTransaction(ctx, tx, credit); err != nil {
		return rollback(err, "Failed to record credit leg")
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO conversions (conversion_id, principal_id, principal_kind, from_currency, to_currency, from_amount, to_amount, rate, fee, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`, conv.ConversionID, conv.Principal.ID, conv.Principal.Kind, conv.FromCurrency, conv.ToCurrency,
		conv.FromAmount, conv.ToAmount, conv.Rate, conv.Fee).
		Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		return rollback(err, "Failed to record conversion")
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit conversion", err)
	}

	d.invalidateAccount(ctx, source)
	d.invalidateAccount(ctx, destination)
	return nil
}

func (d Datasource) GetConversion(ctx context.Context, id string) (*model.Conversion, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, conversion_id, principal_id, principal_kind, from_currency, to_currency, from_amount, to_amount, rate, fee, created_at
		FROM conversions
		WHERE conversion_id = $1
	`, id)

	conv := &model.Conversion{}
	err := row.Scan(&conv.ID, &conv.ConversionID, &conv.Principal.ID, &conv.Principal.Kind,
		&conv.FromCurrency, &conv.ToCurrency, &conv.FromAmount, &conv.ToAmount, &conv.Rate, &conv.Fee, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("Conversion with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve conversion", err)
	}
	return conv, nil
}
