package fincore

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/fincore/internal/apierror"
)

func TestHTTPRateProvider(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://rates.test/quote",
		httpmock.NewStringResponder(http.StatusOK,
			`{"rate": "0.0012", "as_of": "2026-08-28T10:00:00Z"}`))

	p := &HTTPRateProvider{url: "https://rates.test/quote", timeout: time.Second}
	quote, err := p.Rate(context.Background(), "NGN", "USD")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(0.0012).Equal(quote.Value))
	assert.False(t, quote.AsOf.IsZero())
}

func TestHTTPRateProviderMissingPair(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://rates.test/quote",
		httpmock.NewStringResponder(http.StatusNotFound, `{}`))

	p := &HTTPRateProvider{url: "https://rates.test/quote", timeout: time.Second}
	_, err := p.Rate(context.Background(), "NGN", "XYZ")
	assert.True(t, apierror.Is(err, apierror.ErrRateUnavailable), "got %v", err)
}

func TestHTTPRateProviderZeroRate(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://rates.test/quote",
		httpmock.NewStringResponder(http.StatusOK, `{"rate": "0"}`))

	p := &HTTPRateProvider{url: "https://rates.test/quote", timeout: time.Second}
	_, err := p.Rate(context.Background(), "NGN", "USD")
	assert.True(t, apierror.Is(err, apierror.ErrRateUnavailable), "got %v", err)
}
