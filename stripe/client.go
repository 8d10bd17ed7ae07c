package stripe

import (
	"fmt"
	"net/http"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	stripeportalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	stripecheckoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	stripecustomer "github.com/stripe/stripe-go/v82/customer"
	stripeprice "github.com/stripe/stripe-go/v82/price"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/avadhworkzone/qna/internal"
)

// CheckoutSessionParams carries everything needed to open a hosted checkout
// session for a one-time purchase.
type CheckoutSessionParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Client wraps the Stripe API client with additional functionality
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new Stripe client with the given configuration
func NewClient(config *Config) *Client {
	stripeapi.Key = config.APIKey

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ValidateWebhookEvent validates and parses a webhook event. The API version
// mismatch check is relaxed so that dashboard-triggered test events with a
// newer pinned version still verify against the shared secret.
func (c *Client) ValidateWebhookEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error) {
	event, err := stripewebhook.ConstructEventWithOptions(payload, signatureHeader, c.config.WebhookSecret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, NewStripeError(ErrCodeWebhookValidation, "webhook signature validation failed", err)
	}
	return &event, nil
}

// CreateCustomer creates a new customer carrying the user identifier in its
// metadata, so that provider records can always be traced back to a user.
func (*Client) CreateCustomer(email, uid string) (*stripeapi.Customer, error) {
	params := &stripeapi.CustomerParams{
		Email: stripeapi.String(email),
	}
	params.AddMetadata("uid", uid)

	customer, err := stripecustomer.New(params)
	if err != nil {
		return nil, NewStripeError(ErrCodeAPICall, "failed to create customer", err)
	}
	return customer, nil
}

// GetPrice retrieves a price by ID
func (*Client) GetPrice(priceID string) (*stripeapi.Price, error) {
	price, err := stripeprice.Get(priceID, &stripeapi.PriceParams{})
	if err != nil {
		return nil, NewStripeError(ErrCodeAPICall, fmt.Sprintf("failed to get price %s", priceID), err)
	}
	return price, nil
}

// CreateCheckoutSession creates a new hosted checkout session in payment mode.
// The session identifier placeholder is appended to the success URL so the
// client can confirm the purchase after the redirect.
// Overview of stripe checkout mechanics: https://docs.stripe.com/checkout/custom/quickstart
// API description https://docs.stripe.com/api/checkout/sessions
func (*Client) CreateCheckoutSession(params *CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	checkoutParams := &stripeapi.CheckoutSessionParams{
		Mode:     stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		Customer: stripeapi.String(params.CustomerID),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				Price:    stripeapi.String(params.PriceID),
				Quantity: stripeapi.Int64(1),
			},
		},
		SuccessURL: stripeapi.String(internal.AppendQueryParam(params.SuccessURL, "session_id", "{CHECKOUT_SESSION_ID}")),
		CancelURL:  stripeapi.String(params.CancelURL),
	}
	for key, value := range params.Metadata {
		checkoutParams.AddMetadata(key, value)
	}

	session, err := stripecheckoutsession.New(checkoutParams)
	if err != nil {
		return nil, NewStripeError(ErrCodeAPICall, "failed to create checkout session", err)
	}
	return session, nil
}

// GetCheckoutSession retrieves a checkout session by ID
func (*Client) GetCheckoutSession(sessionID string) (*stripeapi.CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.AddExpand("payment_intent")

	session, err := stripecheckoutsession.Get(sessionID, params)
	if err != nil {
		return nil, NewStripeError(ErrCodeAPICall, fmt.Sprintf("failed to get checkout session %s", sessionID), err)
	}
	return session, nil
}

// CreatePortalSession creates a billing portal session for an existing
// customer, returning the URL the user should be redirected to.
func (*Client) CreatePortalSession(customerID, returnURL string) (*stripeapi.BillingPortalSession, error) {
	params := &stripeapi.BillingPortalSessionParams{
		Customer:  stripeapi.String(customerID),
		ReturnURL: stripeapi.String(returnURL),
	}

	session, err := stripeportalsession.New(params)
	if err != nil {
		return nil, NewStripeError(ErrCodeAPICall, "failed to create billing portal session", err)
	}
	return session, nil
}
