package api

import "github.com/avadhworkzone/qna/db"

// UserIdentity is the verified identity extracted from the bearer token.
type UserIdentity struct {
	UID   string
	Email string
}

// CheckoutRequest is the request to create a hosted checkout session.
type CheckoutRequest struct {
	PriceID    string `json:"priceId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// CheckoutResponse carries the URL the user must be redirected to.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// PortalRequest is the request to open the billing portal.
type PortalRequest struct {
	ReturnURL string `json:"returnUrl"`
}

// PortalResponse carries the billing portal URL.
type PortalResponse struct {
	URL string `json:"url"`
}

// ConfirmResponse describes the entitlement granted by a confirmed checkout
// session. Repeated confirmations of the same session yield the same values.
type ConfirmResponse struct {
	Ok           bool        `json:"ok"`
	Plan         db.PlanName `json:"plan"`
	CreditsAdded int64       `json:"creditsAdded"`
	PriceID      string      `json:"priceId"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}
