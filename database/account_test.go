package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/fincore/cache"
	"github.com/edupay/fincore/config"
	"github.com/edupay/fincore/internal/apierror"
	"github.com/edupay/fincore/model"
)

func newCachedDatasource(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	t.Helper()
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		ProjectName: "fincore-test",
		DataSource:  config.DataSourceConfig{Dns: "postgres://test"},
		Redis:       config.RedisConfig{Dns: mr.Addr()},
	})
	ca, err := cache.NewCache()
	require.NoError(t, err)

	d, mock := newTestDatasource(t)
	d.Cache = ca
	return d, mock
}

func TestGetAccount(t *testing.T) {
	d, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"id", "account_id", "principal_id", "principal_kind", "currency", "balance", "version", "created_at"}).
		AddRow(1, "acc_1", "tut_42", "tutor", "NGN", "1500.00", 2, time.Now())

	mock.ExpectQuery("SELECT .* FROM accounts").
		WithArgs("tut_42", "tutor", "NGN").
		WillReturnRows(rows)

	account, err := d.GetAccount(context.Background(), testPrincipal(), "NGN")
	require.NoError(t, err)
	assert.Equal(t, "acc_1", account.AccountID)
	assert.True(t, decimal.NewFromInt(1500).Equal(account.Balance))
	assert.EqualValues(t, 2, account.Version)
	expectationsMet(t, mock)
}

func TestGetAccountNotFound(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT .* FROM accounts").
		WithArgs("tut_42", "tutor", "EUR").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := d.GetAccount(context.Background(), testPrincipal(), "EUR")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound), "got %v", err)
	expectationsMet(t, mock)
}

func TestGetAccountCacheHitAndInvalidation(t *testing.T) {
	d, mock := newCachedDatasource(t)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "account_id", "principal_id", "principal_kind", "currency", "balance", "version", "created_at"}).
		AddRow(1, "acc_1", "tut_42", "tutor", "NGN", "1500.00", 2, time.Now())
	mock.ExpectQuery("SELECT .* FROM accounts").
		WithArgs("tut_42", "tutor", "NGN").
		WillReturnRows(rows)

	account, err := d.GetAccount(ctx, testPrincipal(), "NGN")
	require.NoError(t, err)

	// second read is served from the cache: no SQL expectation is queued,
	// so a round trip to the database would fail the test
	cached, err := d.GetAccount(ctx, testPrincipal(), "NGN")
	require.NoError(t, err)
	assert.Equal(t, "acc_1", cached.AccountID)
	assert.True(t, decimal.NewFromInt(1500).Equal(cached.Balance))

	account.ApplyCredit(decimal.NewFromInt(100))
	txn := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		Principal:     testPrincipal(),
		Currency:      "NGN",
		Amount:        decimal.NewFromInt(100),
		Kind:          model.Credit,
		BalanceAfter:  account.Balance,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO transactions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectCommit()
	require.NoError(t, d.ApplyTransaction(ctx, account, txn))

	// commit dropped the cached copy, so the next read goes back to the
	// database and sees the fresh balance
	refreshed := sqlmock.NewRows([]string{"id", "account_id", "principal_id", "principal_kind", "currency", "balance", "version", "created_at"}).
		AddRow(1, "acc_1", "tut_42", "tutor", "NGN", "1600.00", 3, time.Now())
	mock.ExpectQuery("SELECT .* FROM accounts").
		WithArgs("tut_42", "tutor", "NGN").
		WillReturnRows(refreshed)

	fresh, err := d.GetAccount(ctx, testPrincipal(), "NGN")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1600).Equal(fresh.Balance))
	expectationsMet(t, mock)
}

func TestGetAccountsByPrincipal(t *testing.T) {
	d, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"id", "account_id", "principal_id", "principal_kind", "currency", "balance", "version", "created_at"}).
		AddRow(1, "acc_1", "tut_42", "tutor", "NGN", "1500.00", 1, time.Now()).
		AddRow(2, "acc_2", "tut_42", "tutor", "USD", "12.50", 1, time.Now())

	mock.ExpectQuery("SELECT .* FROM accounts").
		WithArgs("tut_42", "tutor").
		WillReturnRows(rows)

	accounts, err := d.GetAccountsByPrincipal(context.Background(), testPrincipal())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "NGN", accounts[0].Currency)
	assert.Equal(t, "USD", accounts[1].Currency)
	expectationsMet(t, mock)
}
