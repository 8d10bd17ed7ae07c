package stripe

import "fmt"

// Error codes for Stripe operations.
const (
	ErrCodeWebhookValidation = "webhook_validation"
	ErrCodeAPICall           = "api_call_failed"
	ErrCodeInvalidEvent      = "invalid_event"
)

// StripeError wraps errors returned by the payment provider with a stable
// code describing the operation that failed.
type StripeError struct {
	Code    string
	Message string
	Err     error
}

func (e *StripeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stripe %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("stripe %s: %s", e.Code, e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.Err
}

// NewStripeError creates a new StripeError with the given code and message.
func NewStripeError(code, message string, err error) *StripeError {
	return &StripeError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsSignatureError reports whether err is a webhook signature validation
// failure, which callers must reject instead of retrying.
func IsSignatureError(err error) bool {
	if stripeErr, ok := err.(*StripeError); ok {
		return stripeErr.Code == ErrCodeWebhookValidation
	}
	return false
}
