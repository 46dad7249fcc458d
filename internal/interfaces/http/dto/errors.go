package dto

import "net/http"

// Error codes surfaced by the API. Domain errors carry the same codes, so
// the HTTP layer maps them without translation.
const (
	ErrCodeInternal               = "INTERNAL_ERROR"
	ErrCodeBadRequest             = "BAD_REQUEST"
	ErrCodeInvalidInput           = "INVALID_INPUT"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeAlreadyExists          = "ALREADY_EXISTS"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	ErrCodeOptimisticLock         = "OPTIMISTIC_LOCK_ERROR"
	ErrCodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	ErrCodeBookingNotPayable      = "BOOKING_NOT_PAYABLE"
	ErrCodeAmountDueZero          = "AMOUNT_DUE_ZERO"
	ErrCodeRateLimited            = "RATE_LIMIT_EXCEEDED"
	ErrCodePaymentGateway         = "PAYMENT_GATEWAY_ERROR"
	ErrCodeWebhookSignature       = "WEBHOOK_SIGNATURE_INVALID"
	ErrCodeRequestTooLarge        = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,

	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeWebhookSignature: http.StatusUnauthorized,

	// Lifecycle conflicts surface as 409: the request was well-formed but
	// the booking's current state rejects it.
	ErrCodeConcurrencyConflict:    http.StatusConflict,
	ErrCodeOptimisticLock:         http.StatusConflict,
	ErrCodeInvalidStateTransition: http.StatusConflict,
	ErrCodeBookingNotPayable:      http.StatusConflict,
	ErrCodeAmountDueZero:          http.StatusConflict,

	ErrCodeRateLimited: http.StatusTooManyRequests,
	// Provider failures are reported as this service's own failure: the
	// client's request was valid and retrying against us is the right move.
	ErrCodePaymentGateway:  http.StatusInternalServerError,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
