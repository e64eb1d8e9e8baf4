package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edupay/fincore/internal/apierror"
	"github.com/edupay/fincore/model"
)

// ApplySettlement persists a revenue share record and the seller's credit in
// one SQL transaction. The unique constraint on sale_reference (and the
// credit's reference index) rejects a racing duplicate settle, surfaced as
// DuplicateReference for the caller to resolve against the stored record.
// A fully-commissioned sale has no credit leg: a nil credit writes the share
// record alone, touching no account. The log never carries zero amounts.
func (d Datasource) ApplySettlement(ctx context.Context, account *model.Account, credit *model.Transaction, share *model.RevenueShare) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin settlement", err)
	}

	rollback := func(err error, msg string) error {
		_ = tx.Rollback()
		var apiErr apierror.APIError
		if errors.As(err, &apiErr) {
			return err
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, msg, err)
	}

	if credit != nil {
		if err := persistAccount(ctx, tx, account); err != nil {
			return rollback(err, "Failed to update seller account")
		}
		if err := insertTransaction(ctx, tx, credit); err != nil {
			return rollback(err, "Failed to record seller credit")
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO revenue_shares (share_id, sale_reference, principal_id, principal_kind, gross_amount, commission_rate, platform_share, seller_share, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`, share.ShareID, share.SaleReference, share.Principal.ID, share.Principal.Kind, share.GrossAmount,
		share.CommissionRate, share.PlatformShare, share.SellerShare, share.Currency).
		Scan(&share.ID, &share.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "sale_reference") {
			return rollback(apierror.NewAPIError(apierror.ErrDuplicateReference,
				fmt.Sprintf("Sale '%s' has already been settled", share.SaleReference), nil), "")
		}
		return rollback(err, "Failed to record revenue share")
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit settlement", err)
	}

	if account != nil {
		d.invalidateAccount(ctx, account)
	}
	return nil
}

func (d Datasource) GetRevenueShareBySaleRef(ctx context.Context, saleReference string) (*model.RevenueShare, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, share_id, sale_reference, principal_id, principal_kind, gross_amount, commission_rate, platform_share, seller_share, currency, created_at
		FROM revenue_shares
		WHERE sale_reference = $1
	`, saleReference)

	share := &model.RevenueShare{}
	err := row.Scan(&share.ID, &share.ShareID, &share.SaleReference, &share.Principal.ID, &share.Principal.Kind,
		&share.GrossAmount, &share.CommissionRate, &share.PlatformShare, &share.SellerShare, &share.Currency, &share.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("Revenue share for sale '%s' not found", saleReference), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve revenue share", err)
	}
	return share, nil
}
