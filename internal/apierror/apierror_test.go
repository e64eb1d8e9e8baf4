package apierror_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/edupay/fincore/internal/apierror"
	"github.com/stretchr/testify/assert"
)

func TestNewAPIError(t *testing.T) {
	apiErr := apierror.NewAPIError(apierror.ErrInsufficientFunds, "balance too low", nil)

	assert.Equal(t, apierror.ErrInsufficientFunds, apiErr.Code)
	assert.Equal(t, "balance too low", apiErr.Message)
	assert.Equal(t, "INSUFFICIENT_FUNDS: balance too low", apiErr.Error())
}

func TestIs(t *testing.T) {
	err := apierror.NewAPIError(apierror.ErrDuplicateReference, "reference already used", nil)

	assert.True(t, apierror.Is(err, apierror.ErrDuplicateReference))
	assert.False(t, apierror.Is(err, apierror.ErrConflict))
	assert.False(t, apierror.Is(errors.New("plain"), apierror.ErrDuplicateReference))
}

func TestRetryable(t *testing.T) {
	assert.True(t, apierror.Retryable(apierror.NewAPIError(apierror.ErrExternalService, "gateway timeout", nil)))
	assert.False(t, apierror.Retryable(apierror.NewAPIError(apierror.ErrDuplicateReference, "already settled", nil)))
	assert.False(t, apierror.Retryable(errors.New("plain")))
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "NotFound",
			err:      apierror.NewAPIError(apierror.ErrNotFound, "reservation not found", nil),
			expected: http.StatusNotFound,
		},
		{
			name:     "DuplicateReference",
			err:      apierror.NewAPIError(apierror.ErrDuplicateReference, "reference already used", nil),
			expected: http.StatusConflict,
		},
		{
			name:     "SameCurrency",
			err:      apierror.NewAPIError(apierror.ErrSameCurrency, "conversion needs two currencies", nil),
			expected: http.StatusBadRequest,
		},
		{
			name:     "InsufficientFunds",
			err:      apierror.NewAPIError(apierror.ErrInsufficientFunds, "balance too low", nil),
			expected: http.StatusUnprocessableEntity,
		},
		{
			name:     "ResourceExhausted",
			err:      apierror.NewAPIError(apierror.ErrResourceExhausted, "no hours left", nil),
			expected: http.StatusUnprocessableEntity,
		},
		{
			name:     "RateUnavailable",
			err:      apierror.NewAPIError(apierror.ErrRateUnavailable, "no quote for pair", nil),
			expected: http.StatusBadGateway,
		},
		{
			name:     "PrincipalNotFound",
			err:      apierror.NewAPIError(apierror.ErrPrincipalNotFound, "unknown seller", nil),
			expected: http.StatusNotFound,
		},
		{
			name:     "Plain error",
			err:      errors.New("some generic error"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apierror.MapErrorToHTTPStatus(tt.err))
		})
	}
}
