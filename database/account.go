package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/edupay/fincore/internal/apierror"
	"github.com/edupay/fincore/model"
)

const accountCacheTTL = 5 * time.Minute

func accountCacheKey(principal model.Principal, currency string) string {
	return fmt.Sprintf("account:%s:%s", principal.Key(), currency)
}

// GetAccount retrieves the account for one (principal, currency) pair,
// consulting the cache first. Accounts are created lazily by the service
// layer, so a missing row is a normal outcome surfaced as ErrNotFound.
func (d Datasource) GetAccount(ctx context.Context, principal model.Principal, currency string) (*model.Account, error) {
	if d.Cache != nil {
		cached := &model.Account{}
		if err := d.Cache.Get(ctx, accountCacheKey(principal, currency), cached); err == nil && cached.AccountID != "" {
			return cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, account_id, principal_id, principal_kind, currency, balance, version, created_at
		FROM accounts
		WHERE principal_id = $1 AND principal_kind = $2 AND currency = $3
	`, principal.ID, principal.Kind, currency)

	account := &model.Account{}
	err := row.Scan(&account.ID, &account.AccountID, &account.Principal.ID, &account.Principal.Kind,
		&account.Currency, &account.Balance, &account.Version, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("Account for %s in %s not found", principal.Key(), currency), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}

	if d.Cache != nil {
		_ = d.Cache.Set(ctx, accountCacheKey(principal, currency), account, accountCacheTTL)
	}
	return account, nil
}

// GetAccountsByPrincipal retrieves every currency account a principal holds.
func (d Datasource) GetAccountsByPrincipal(ctx context.Context, principal model.Principal) ([]model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, account_id, principal_id, principal_kind, currency, balance, version, created_at
		FROM accounts
		WHERE principal_id = $1 AND principal_kind = $2
		ORDER BY currency ASC
	`, principal.ID, principal.Kind)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve accounts", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account := model.Account{}
		err = rows.Scan(&account.ID, &account.AccountID, &account.Principal.ID, &account.Principal.Kind,
			&account.Currency, &account.Balance, &account.Version, &account.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan account data", err)
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over accounts", err)
	}
	return accounts, nil
}

// persistAccount writes the account's balance inside an open SQL
// transaction. New accounts (never persisted, ID zero) are inserted;
// existing accounts are updated behind an optimistic version check, so a
// write racing past the redis lock still cannot apply a stale balance.
func persistAccount(ctx context.Context, tx *sql.Tx, account *model.Account) error {
	if account.ID == 0 {
		return tx.QueryRowContext(ctx, `
			INSERT INTO accounts (account_id, principal_id, principal_kind, currency, balance, version, created_at)
			VALUES ($1, $2, $3, $4, $5, 1, NOW())
			RETURNING id, version
		`, account.AccountID, account.Principal.ID, account.Principal.Kind, account.Currency, account.Balance).
			Scan(&account.ID, &account.Version)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $2, version = version + 1
		WHERE account_id = $1 AND version = $3
	`, account.AccountID, account.Balance, account.Version)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Account %s was modified concurrently", account.AccountID), nil)
	}
	account.Version++
	return nil
}

// invalidateAccount drops the cached copy after a committed mutation.
func (d Datasource) invalidateAccount(ctx context.Context, account *model.Account) {
	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, accountCacheKey(account.Principal, account.Currency))
	}
}
