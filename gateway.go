package fincore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/edupay/fincore/config"
	"github.com/edupay/fincore/internal/request"
)

// Gateway statuses. Anything else the gateway reports is treated as pending.
const (
	GatewayStatusSuccessful = "successful"
	GatewayStatusFailed     = "failed"
	GatewayStatusPending    = "pending"
)

// GatewayResult is the gateway's answer for one payment reference. RawPayload
// keeps the unparsed response so disputes can be audited against exactly what
// the gateway said at the time.
type GatewayResult struct {
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
}

// PaymentGateway checks the real status of a payment reference with the
// upstream processor.
type PaymentGateway interface {
	Check(ctx context.Context, reference string) (*GatewayResult, error)
}

// HTTPGateway talks to a JSON payment gateway over HTTP. Transient failures
// (network errors, 5xx) are retried with exponential backoff; anything else
// is returned as-is on the first attempt.
type HTTPGateway struct {
	url           string
	authorization string
	timeout       time.Duration
}

func NewHTTPGateway() (*HTTPGateway, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	if cfg.Gateway.Url == "" {
		return nil, errors.New("gateway url is not configured")
	}
	return &HTTPGateway{
		url:           cfg.Gateway.Url,
		authorization: cfg.Gateway.Authorization,
		timeout:       time.Duration(cfg.Gateway.TimeoutSec) * time.Second,
	}, nil
}

func (g *HTTPGateway) Check(ctx context.Context, reference string) (*GatewayResult, error) {
	var raw json.RawMessage

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/%s", g.url, reference), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if g.authorization != "" {
			req.Header.Set("Authorization", g.authorization)
		}

		resp, err := request.Call(req, g.timeout, &raw)
		if err != nil {
			if resp != nil && resp.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(errors.Wrap(err, "decoding gateway response"))
			}
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("gateway returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("gateway returned %d for reference %s", resp.StatusCode, reference))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, errors.Wrapf(err, "gateway check for '%s' failed", reference)
	}

	result := &GatewayResult{}
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, errors.Wrap(err, "parsing gateway response")
	}
	result.RawPayload = raw
	return result, nil
}
