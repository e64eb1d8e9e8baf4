package fincore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/edupay/fincore/config"
	"github.com/edupay/fincore/database"
	"github.com/edupay/fincore/model"
)

func newTestFincore(t *testing.T, opts ...Option) (*Fincore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	config.MockConfig(&config.Configuration{
		ProjectName: "fincore-test",
		DataSource:  config.DataSourceConfig{Dns: "postgres://test"},
		Redis:       config.RedisConfig{Dns: mr.Addr()},
		Ledger: config.LedgerConfig{
			ConversionFeePercent:  0.5,
			DefaultCommissionRate: 20,
		},
	})

	f, err := New(database.Datasource{Conn: db}, append([]Option{WithRedis(client)}, opts...)...)
	require.NoError(t, err)
	return f, mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func tutor() model.Principal {
	return model.Principal{ID: "tut_42", Kind: "tutor"}
}

type stubRates struct {
	quote *RateQuote
	err   error
}

func (s stubRates) Rate(context.Context, string, string) (*RateQuote, error) {
	return s.quote, s.err
}

type stubGateway struct {
	result *GatewayResult
	err    error
}

func (s stubGateway) Check(context.Context, string) (*GatewayResult, error) {
	return s.result, s.err
}

type stubDirectory struct {
	exists bool
	err    error
}

func (s stubDirectory) Exists(context.Context, model.Principal) (bool, error) {
	return s.exists, s.err
}

type stubGrants struct {
	granted   decimal.Decimal
	unlimited bool
	err       error
}

func (s stubGrants) GrantedTotal(context.Context, model.Principal, string) (decimal.Decimal, bool, error) {
	return s.granted, s.unlimited, s.err
}
