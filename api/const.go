package api

// API endpoints
const (
	// GET /ping liveness check
	pingEndpoint = "/ping"
	// POST /billing/checkout creates a hosted checkout session
	billingCheckoutEndpoint = "/billing/checkout"
	// POST /billing/checkout/{sessionID}/confirm confirms a finished checkout
	billingConfirmEndpoint = "/billing/checkout/{sessionID}/confirm"
	// POST /billing/portal creates a billing portal session
	billingPortalEndpoint = "/billing/portal"
	// POST /billing/webhook receives provider event deliveries
	billingWebhookEndpoint = "/billing/webhook"
)

// maxWebhookBodySize caps the raw webhook payload read before signature
// verification.
const maxWebhookBodySize = 64 * 1024
