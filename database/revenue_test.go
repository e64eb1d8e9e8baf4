package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/fincore/internal/apierror"
	"github.com/edupay/fincore/model"
)

func settlementFixture() (*model.Account, *model.Transaction, *model.RevenueShare) {
	gross := decimal.NewFromInt(5000)
	rate := decimal.NewFromInt(20)
	platform, seller := model.SplitGross(gross, rate)

	account := model.NewAccount(testPrincipal(), "NGN")
	account.ApplyCredit(seller)

	credit := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		Principal:     testPrincipal(),
		Currency:      "NGN",
		Amount:        seller,
		Kind:          model.Credit,
		BalanceAfter:  account.Balance,
		Reference:     "sale_001",
	}
	share := &model.RevenueShare{
		ShareID:        model.GenerateUUIDWithSuffix("shr"),
		SaleReference:  "sale_001",
		Principal:      testPrincipal(),
		GrossAmount:    gross,
		CommissionRate: rate,
		PlatformShare:  platform,
		SellerShare:    seller,
		Currency:       "NGN",
	}
	return account, credit, share
}

func TestApplySettlement(t *testing.T) {
	d, mock := newTestDatasource(t)
	account, credit, share := settlementFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO accounts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "version"}).AddRow(1, 1))
	mock.ExpectQuery("INSERT INTO transactions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectQuery("INSERT INTO revenue_shares").
		WithArgs(share.ShareID, "sale_001", "tut_42", "tutor", share.GrossAmount,
			share.CommissionRate, share.PlatformShare, share.SellerShare, "NGN").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectCommit()

	err := d.ApplySettlement(context.Background(), account, credit, share)
	require.NoError(t, err)
	assert.EqualValues(t, 1, share.ID)
	expectationsMet(t, mock)
}

func TestApplySettlementDuplicateSale(t *testing.T) {
	d, mock := newTestDatasource(t)
	account, credit, share := settlementFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO accounts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "version"}).AddRow(1, 1))
	mock.ExpectQuery("INSERT INTO transactions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectQuery("INSERT INTO revenue_shares").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "revenue_shares_sale_reference_key"})
	mock.ExpectRollback()

	err := d.ApplySettlement(context.Background(), account, credit, share)
	assert.True(t, apierror.Is(err, apierror.ErrDuplicateReference), "got %v", err)
	expectationsMet(t, mock)
}

func TestApplySettlementWithoutCreditLeg(t *testing.T) {
	d, mock := newTestDatasource(t)

	gross := decimal.NewFromInt(5000)
	platform, seller := model.SplitGross(gross, decimal.NewFromInt(100))
	share := &model.RevenueShare{
		ShareID:        model.GenerateUUIDWithSuffix("shr"),
		SaleReference:  "sale_full",
		Principal:      testPrincipal(),
		GrossAmount:    gross,
		CommissionRate: decimal.NewFromInt(100),
		PlatformShare:  platform,
		SellerShare:    seller,
		Currency:       "NGN",
	}

	// only the share record commits; accounts and transactions stay untouched
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO revenue_shares").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectCommit()

	err := d.ApplySettlement(context.Background(), nil, nil, share)
	require.NoError(t, err)
	assert.True(t, seller.IsZero())
	expectationsMet(t, mock)
}

func TestGetRevenueShareBySaleRef(t *testing.T) {
	d, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"id", "share_id", "sale_reference", "principal_id", "principal_kind", "gross_amount", "commission_rate", "platform_share", "seller_share", "currency", "created_at"}).
		AddRow(1, "shr_1", "sale_001", "tut_42", "tutor", "5000.00", "20", "1000.00", "4000.00", "NGN", time.Now())

	mock.ExpectQuery("SELECT .* FROM revenue_shares").
		WithArgs("sale_001").
		WillReturnRows(rows)

	share, err := d.GetRevenueShareBySaleRef(context.Background(), "sale_001")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4000).Equal(share.SellerShare))
	assert.True(t, share.PlatformShare.Add(share.SellerShare).Equal(share.GrossAmount))
	expectationsMet(t, mock)
}

func TestGetRevenueShareNotFound(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT .* FROM revenue_shares").
		WithArgs("sale_missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := d.GetRevenueShareBySaleRef(context.Background(), "sale_missing")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound), "got %v", err)
	expectationsMet(t, mock)
}
