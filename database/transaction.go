package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/edupay/fincore/internal/apierror"
	"github.com/edupay/fincore/model"
)

// isUniqueViolation reports whether err is a postgres duplicate-key error on
// the named constraint (or any unique violation when constraint is empty).
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return constraint == "" || strings.Contains(pqErr.Constraint, constraint)
	}
	return false
}

// insertTransaction writes one immutable log row inside an open SQL
// transaction. A duplicate non-empty reference trips the partial unique
// index and is reported as DuplicateReference.
func insertTransaction(ctx context.Context, tx *sql.Tx, txn *model.Transaction) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO transactions (transaction_id, principal_id, principal_kind, currency, amount, kind, balance_after, reference, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`, txn.TransactionID, txn.Principal.ID, txn.Principal.Kind, txn.Currency, txn.Amount, txn.Kind,
		txn.BalanceAfter, txn.Reference, txn.Note).
		Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "transactions_reference_key") {
			return apierror.NewAPIError(apierror.ErrDuplicateReference,
				fmt.Sprintf("Reference '%s' has already been used", txn.Reference), nil)
		}
		return err
	}
	return nil
}

// ApplyTransaction persists one log entry together with the account balance
// it explains. Both writes share one SQL transaction: either the log row and
// the new balance commit together or neither does.
func (d Datasource) ApplyTransaction(ctx context.Context, account *model.Account, txn *model.Transaction) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	if err := persistAccount(ctx, tx, account); err != nil {
		_ = tx.Rollback()
		var apiErr apierror.APIError
		if errors.As(err, &apiErr) {
			return err
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account balance", err)
	}

	if err := insertTransaction(ctx, tx, txn); err != nil {
		_ = tx.Rollback()
		var apiErr apierror.APIError
		if errors.As(err, &apiErr) {
			return err
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}

	d.invalidateAccount(ctx, account)
	return nil
}

func (d Datasource) TransactionExistsByRef(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM transactions WHERE reference = $1)
	`, reference).Scan(&exists)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check if transaction exists", err)
	}
	return exists, nil
}

func (d Datasource) GetTransactionByRef(ctx context.Context, reference string) (*model.Transaction, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, transaction_id, principal_id, principal_kind, currency, amount, kind, balance_after, reference, note, created_at
		FROM transactions
		WHERE reference = $1
	`, reference)

	txn := &model.Transaction{}
	err := row.Scan(&txn.ID, &txn.TransactionID, &txn.Principal.ID, &txn.Principal.Kind, &txn.Currency,
		&txn.Amount, &txn.Kind, &txn.BalanceAfter, &txn.Reference, &txn.Note, &txn.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("Transaction with reference '%s' not found", reference), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}
	return txn, nil
}

// GetTransactions lists one pair's log entries newest-first. The filter
// narrows by kind, reference and time range; limit/offset page the result so
// the listing is restartable.
func (d Datasource) GetTransactions(ctx context.Context, principal model.Principal, currency string, filter model.TransactionFilter, limit int, offset int64) ([]model.Transaction, error) {
	query := `
		SELECT id, transaction_id, principal_id, principal_kind, currency, amount, kind, balance_after, reference, note, created_at
		FROM transactions
		WHERE principal_id = $1 AND principal_kind = $2 AND currency = $3
	`
	args := []interface{}{principal.ID, principal.Kind, currency}
	argIndex := 4

	if filter.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argIndex)
		args = append(args, filter.Kind)
		argIndex++
	}
	if filter.Reference != "" {
		query += fmt.Sprintf(" AND reference = $%d", argIndex)
		args = append(args, filter.Reference)
		argIndex++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, filter.From)
		argIndex++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, filter.To)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transactions", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		txn := model.Transaction{}
		err = rows.Scan(&txn.ID, &txn.TransactionID, &txn.Principal.ID, &txn.Principal.Kind, &txn.Currency,
			&txn.Amount, &txn.Kind, &txn.BalanceAfter, &txn.Reference, &txn.Note, &txn.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction data", err)
		}
		transactions = append(transactions, txn)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over transactions", err)
	}
	return transactions, nil
}

// SumTransactionAmounts replays the log for one pair: credits count
// positive, debits negative. The result must always equal the cached account
// balance; RebuildBalance uses this to prove it.
func (d Datasource) SumTransactionAmounts(ctx context.Context, principal model.Principal, currency string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN kind = 'credit' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE principal_id = $1 AND principal_kind = $2 AND currency = $3
	`, principal.ID, principal.Kind, currency).Scan(&total)
	if err != nil {
		return decimal.Zero, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sum transactions", err)
	}
	return total, nil
}
