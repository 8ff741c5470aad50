package stripe

import (
	"errors"
	"fmt"
)

// Machine-readable error codes, used by the HTTP layer to pick the response
// status. Codes describing a rejected delivery or a client mistake map to
// 400, the rest map to 5xx.
const (
	CodeAPICallFailed         = "api_call_failed"
	CodeAmountOutOfRange      = "amount_out_of_range"
	CodeCustomerNotFound      = "customer_not_found"
	CodeInvalidPayload        = "invalid_payload"
	CodeSignatureVerification = "signature_verification"
	CodeUnsupportedEvent      = "unsupported_event"
	CodeMissingPaymentIntent  = "missing_payment_intent"
	CodeMissingPaymentMethod  = "missing_payment_method"
	CodeOrderNotFound         = "order_not_found"
	CodeWebhookNotRegistered  = "webhook_not_registered"
	CodeUpstreamUnavailable   = "upstream_unavailable"
	CodeStorageFailed         = "storage_failed"
)

// GatewayError represents a payment-gateway specific error.
type GatewayError struct {
	Code    string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stripe gateway [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("stripe gateway [%s]: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a new GatewayError with the given code, message and
// underlying error.
func NewGatewayError(code, message string, err error) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the gateway error code of err, or an empty string when
// err is not a GatewayError.
func ErrorCode(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return ""
}

// IsClientError reports whether the error describes a rejected request or
// delivery (HTTP 400 family) rather than a fault of this service or an
// upstream one.
func IsClientError(err error) bool {
	switch ErrorCode(err) {
	case CodeAmountOutOfRange,
		CodeInvalidPayload,
		CodeSignatureVerification,
		CodeUnsupportedEvent,
		CodeMissingPaymentIntent,
		CodeMissingPaymentMethod,
		CodeOrderNotFound,
		CodeWebhookNotRegistered:
		return true
	default:
		return false
	}
}
