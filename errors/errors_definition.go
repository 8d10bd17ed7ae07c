// Package errors provides custom error types and definitions for the application.
//
//nolint:lll
package errors

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the caller's fault,
// and they return HTTP Status 400, 401, 403 or 404, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the
// current last 4XXX or 5XXX. If you notice there's a gap, DON'T fill it in,
// that code was used in the past for some error and shouldn't be reused.
var (
	// Authentication errors (401/403)
	ErrUnauthorized = Error{Code: 40001, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("authentication required"), LogLevel: "info"}
	ErrForbidden    = Error{Code: 40002, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("access denied"), LogLevel: "info"}

	// Validation errors (400)
	ErrMalformedBody            = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid JSON request body")}
	ErrMalformedURLParam        = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid URL parameter")}
	ErrUnknownPriceID           = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown price identifier")}
	ErrRecurringPriceNotAllowed = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("price must be a one-time payment")}

	// Precondition errors (400)
	ErrNoBillingCustomer    = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no billing customer on file")}
	ErrPaymentNotCompleted  = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("payment not completed")}
	ErrBillingNotConfigured = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("billing is not configured"), LogLevel: "warn"}

	// Webhook errors (400)
	ErrInvalidSignature = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("webhook signature verification failed"), LogLevel: "warn"}

	// Not found errors (404)
	ErrUserNotFound = Error{Code: 40011, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("user not found")}

	// Server errors (500) - These should be used sparingly and only for true internal errors
	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: failed to process response"), LogLevel: "error"}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: operation failed"), LogLevel: "error"}
	ErrStripeError                = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: payment processing failed"), LogLevel: "error"}
	ErrStripeWebhookError         = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: stripe webhook failed"), LogLevel: "error"}
	ErrInternalStorageError       = Error{Code: 50005, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: storage operation failed"), LogLevel: "error"}
)
