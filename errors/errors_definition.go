package errors

import (
	"fmt"
	"net/http"
)

// Error codes in the 40001-49999 range are the client's fault and return an
// HTTP 4xx status. Error codes 50001-59999 are the server's fault and return
// an HTTP 5xx status.
//
// NEVER change any of the current error codes, only append new errors after
// the current last 4XXXX or 5XXXX. If you notice there's a gap, DON'T fill it
// in, that code was used in the past for some error and shouldn't be reused.
var (
	ErrUnauthorized            = Error{Code: 40001, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("user not authorized")}
	ErrEmailMalformed          = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("email malformed")}
	ErrPasswordTooShort        = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("password too short")}
	ErrMalformedBody           = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrAmountOutOfRange        = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("recharge amount out of range")}
	ErrInvalidWebhookPayload   = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid webhook payload")}
	ErrInvalidWebhookSignature = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("webhook signature check failed")}
	ErrUnsupportedWebhookEvent = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unsupported webhook event type")}
	ErrMissingPaymentIntent    = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("checkout session has no payment intent")}
	ErrMissingPaymentMethod    = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("checkout session has no payment method")}
	ErrOrderNotFound           = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("order not found")}
	ErrWebhookNotRegistered    = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("webhook endpoint is not registered")}
	ErrDuplicateConflict       = Error{Code: 40901, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("duplicate conflict")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrStripeError                = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("stripe error")}
	ErrUpstreamUnavailable        = Error{Code: 50004, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("upstream service unavailable")}
)
