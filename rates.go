package fincore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/edupay/fincore/config"
	"github.com/edupay/fincore/internal/apierror"
	"github.com/edupay/fincore/internal/request"
)

// RateQuote is one exchange rate observation. AsOf is the provider's own
// timestamp, not the time we asked.
type RateQuote struct {
	Value decimal.Decimal `json:"rate"`
	AsOf  time.Time       `json:"as_of"`
}

// RateProvider supplies the current exchange rate between two currencies.
// A provider that has no rate for a pair returns an error; it never invents
// a value.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (*RateQuote, error)
}

// HTTPRateProvider fetches rates from a JSON endpoint. Same retry posture as
// the gateway adapter: transient failures retry, a missing pair does not.
type HTTPRateProvider struct {
	url     string
	timeout time.Duration
}

func NewHTTPRateProvider() (*HTTPRateProvider, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	if cfg.Rates.Url == "" {
		return nil, errors.New("rates url is not configured")
	}
	return &HTTPRateProvider{
		url:     cfg.Rates.Url,
		timeout: time.Duration(cfg.Rates.TimeoutSec) * time.Second,
	}, nil
}

func (p *HTTPRateProvider) Rate(ctx context.Context, from, to string) (*RateQuote, error) {
	quote := &RateQuote{}

	operation := func() error {
		query := url.Values{"from": {from}, "to": {to}}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s?%s", p.url, query.Encode()), nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := request.Call(req, p.timeout, quote)
		if err != nil {
			if resp != nil && resp.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(errors.Wrap(err, "decoding rate response"))
			}
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("rate provider returned %d", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(apierror.NewAPIError(apierror.ErrRateUnavailable,
				fmt.Sprintf("No rate published for %s/%s", from, to), nil))
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("rate provider returned %d for %s/%s", resp.StatusCode, from, to))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	if !quote.Value.IsPositive() {
		return nil, apierror.NewAPIError(apierror.ErrRateUnavailable,
			fmt.Sprintf("No rate published for %s/%s", from, to), nil)
	}
	return quote, nil
}
