package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrConflict           ErrorCode = "CONFLICT"
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrInsufficientFunds  ErrorCode = "INSUFFICIENT_FUNDS"
	ErrResourceExhausted  ErrorCode = "RESOURCE_EXHAUSTED"
	ErrRateUnavailable    ErrorCode = "RATE_UNAVAILABLE"
	ErrSameCurrency       ErrorCode = "SAME_CURRENCY"
	ErrDuplicateReference ErrorCode = "DUPLICATE_REFERENCE"
	ErrPrincipalNotFound  ErrorCode = "PRINCIPAL_NOT_FOUND"
	ErrExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrInternalServer     ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Is reports whether err carries the given error code.
func Is(err error, code ErrorCode) bool {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// Retryable reports whether the failure came from an external dependency and
// may succeed on a later attempt. Duplicate references are deliberately not
// retryable: they signal that the retried work already happened.
func Retryable(err error) bool {
	return Is(err, ErrExternalService)
}

// MapErrorToHTTPStatus maps an error code to the status an HTTP layer should
// respond with. The transport layer lives outside this core; the mapping is
// kept here so every caller agrees on it.
func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrNotFound, ErrPrincipalNotFound:
			return http.StatusNotFound
		case ErrConflict, ErrDuplicateReference:
			return http.StatusConflict
		case ErrInvalidInput, ErrSameCurrency:
			return http.StatusBadRequest
		case ErrInsufficientFunds, ErrResourceExhausted:
			return http.StatusUnprocessableEntity
		case ErrRateUnavailable, ErrExternalService:
			return http.StatusBadGateway
		case ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
