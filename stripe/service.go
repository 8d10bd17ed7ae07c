// Package stripe provides integration with the Stripe payment service,
// handling one-time purchases, entitlement crediting and webhook events.
package stripe

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/avadhworkzone/qna/db"
	"github.com/avadhworkzone/qna/errors"
)

// Checkout session metadata keys. The metadata travels with the session
// through the provider and comes back on both the confirmation fetch and the
// webhook event, so crediting never depends on who delivered the session.
const (
	metadataKeyUID      = "uid"
	metadataKeyPriceID  = "priceID"
	metadataKeyPlan     = "plan"
	metadataKeySessions = "sessions"
)

// Payments is the provider surface the service depends on. *Client satisfies
// it against the real Stripe API, tests substitute a stub.
type Payments interface {
	CreateCustomer(email, uid string) (*stripeapi.Customer, error)
	GetPrice(priceID string) (*stripeapi.Price, error)
	CreateCheckoutSession(params *CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
	GetCheckoutSession(sessionID string) (*stripeapi.CheckoutSession, error)
	CreatePortalSession(customerID, returnURL string) (*stripeapi.BillingPortalSession, error)
	ValidateWebhookEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error)
}

// ConfirmResult is the outcome of a confirmed checkout session.
type ConfirmResult struct {
	Plan         db.PlanName
	CreditsAdded int64
	PriceID      string
}

// Service provides the main business logic for billing operations. The
// storage handle is passed in explicitly at construction, all entitlement
// writes go through it.
type Service struct {
	client Payments
	store  *db.MongoStorage
	config *Config
}

// NewService creates a new Stripe service backed by the real API client.
func NewService(config *Config, store *db.MongoStorage) (*Service, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	return &Service{
		client: NewClient(config),
		store:  store,
		config: config,
	}, nil
}

// NewServiceWithClient creates a service with an explicit payments provider.
func NewServiceWithClient(config *Config, store *db.MongoStorage, client Payments) (*Service, error) {
	service, err := NewService(config, store)
	if err != nil {
		return nil, err
	}
	if client != nil {
		service.client = client
	}
	return service, nil
}

// CreateCheckoutSession opens a hosted checkout session for the given price
// and returns the URL the user must be redirected to. Only one-time prices
// from the configured catalog are accepted. The billing customer is created
// lazily on first purchase and persisted before the session references it.
func (s *Service) CreateCheckoutSession(uid, email, priceID, successURL, cancelURL string) (string, error) {
	if priceID == "" || successURL == "" || cancelURL == "" {
		return "", errors.ErrMalformedBody.With("priceId, successUrl and cancelUrl are required")
	}
	tier, ok := s.config.TierByPrice(priceID)
	if !ok {
		return "", errors.ErrUnknownPriceID.Withf("price %s is not in the catalog", priceID)
	}

	price, err := s.client.GetPrice(priceID)
	if err != nil {
		return "", errors.ErrStripeError.WithErr(err)
	}
	if price.Type != stripeapi.PriceTypeOneTime {
		return "", errors.ErrRecurringPriceNotAllowed.Withf("price %s is %s, only one-time prices can be purchased", priceID, price.Type)
	}

	customerID, err := s.ensureCustomer(uid, email)
	if err != nil {
		return "", err
	}

	session, err := s.client.CreateCheckoutSession(&CheckoutSessionParams{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Metadata: map[string]string{
			metadataKeyUID:      uid,
			metadataKeyPriceID:  priceID,
			metadataKeyPlan:     string(tier.Plan),
			metadataKeySessions: fmt.Sprintf("%d", tier.Sessions),
		},
	})
	if err != nil {
		return "", errors.ErrStripeError.WithErr(err)
	}

	log.Info().
		Str("uid", uid).
		Str("priceID", priceID).
		Str("sessionID", session.ID).
		Msg("checkout session created")
	return session.URL, nil
}

// ensureCustomer returns the user's billing customer ID, creating and
// persisting a new customer when the user has none yet. The identifier is
// stored before it is ever referenced by a session, so a crash between the
// two calls leaves at worst an orphan customer record on the provider side.
func (s *Service) ensureCustomer(uid, email string) (string, error) {
	user, err := s.store.User(uid)
	if err != nil && err != db.ErrNotFound {
		return "", errors.ErrInternalStorageError.WithErr(err)
	}
	if user != nil && user.CustomerID != "" {
		return user.CustomerID, nil
	}

	customer, err := s.client.CreateCustomer(email, uid)
	if err != nil {
		return "", errors.ErrStripeError.WithErr(err)
	}
	if err := s.store.SetUser(&db.User{UID: uid, Email: email, CustomerID: customer.ID}); err != nil {
		return "", errors.ErrInternalStorageError.WithErr(err)
	}

	log.Info().Str("uid", uid).Str("customerID", customer.ID).Msg("billing customer created")
	return customer.ID, nil
}

// ConfirmCheckout fetches a checkout session fresh from the provider and
// credits the purchase if the payment completed. Crediting is idempotent: a
// session already recorded, no matter which path recorded it, yields the
// stored receipt without touching the balance again.
func (s *Service) ConfirmCheckout(ctx context.Context, uid, sessionID string) (*ConfirmResult, error) {
	if sessionID == "" {
		return nil, errors.ErrMalformedURLParam.With("sessionID is required")
	}

	session, err := s.client.GetCheckoutSession(sessionID)
	if err != nil {
		return nil, errors.ErrStripeError.WithErr(err)
	}
	if session.Metadata[metadataKeyUID] != uid {
		return nil, errors.ErrForbidden.With("checkout session belongs to another user")
	}
	if session.PaymentStatus != stripeapi.CheckoutSessionPaymentStatusPaid {
		return nil, errors.ErrPaymentNotCompleted.Withf("payment status is %s", session.PaymentStatus)
	}

	receipt, _, err := s.applyCheckoutSession(ctx, session)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, errors.ErrStripeError.With("checkout session carries no user metadata")
	}
	return &ConfirmResult{
		Plan:         receipt.Plan,
		CreditsAdded: receipt.Credits,
		PriceID:      receipt.PriceID,
	}, nil
}

// applyCheckoutSession turns a paid checkout session into a payment receipt
// and credits the purchased sessions. It returns the receipt describing the
// payment and whether this call was the one that applied it. A session
// without user metadata is skipped with a nil receipt.
func (s *Service) applyCheckoutSession(ctx context.Context, session *stripeapi.CheckoutSession) (*db.PaymentReceipt, bool, error) {
	uid := session.Metadata[metadataKeyUID]
	if uid == "" {
		return nil, false, nil
	}
	priceID := session.Metadata[metadataKeyPriceID]
	tier, ok := s.config.TierByPrice(priceID)
	if !ok {
		return nil, false, errors.ErrUnknownPriceID.Withf("price %s is not in the catalog", priceID)
	}

	amount := float64(session.AmountTotal) / 100
	if session.AmountTotal == 0 {
		amount = float64(tier.Amount) / 100
	}
	currency := string(session.Currency)
	if currency == "" {
		currency = "usd"
	}
	receipt := &db.PaymentReceipt{
		SessionID:  session.ID,
		UserID:     uid,
		PriceID:    priceID,
		Plan:       tier.Plan,
		Credits:    tier.Sessions,
		Amount:     amount,
		Currency:   currency,
		Status:     string(session.PaymentStatus),
		CustomerID: customerIDOf(session),
	}
	if session.PaymentIntent != nil {
		receipt.PaymentIntentID = session.PaymentIntent.ID
	}

	applied, err := s.store.ApplyPaymentReceipt(ctx, receipt)
	if err != nil {
		return nil, false, errors.ErrInternalStorageError.WithErr(err)
	}
	if !applied {
		// Another delivery won the race, answer from its receipt.
		existing, err := s.store.Receipt(session.ID)
		if err != nil {
			return nil, false, errors.ErrInternalStorageError.WithErr(err)
		}
		log.Debug().
			Str("sessionID", session.ID).
			Str("uid", uid).
			Msg("payment already recorded, skipping credit")
		return existing, false, nil
	}

	log.Info().
		Str("sessionID", session.ID).
		Str("uid", uid).
		Str("plan", string(tier.Plan)).
		Int64("credits", tier.Sessions).
		Msg("payment applied")
	return receipt, true, nil
}

// CreatePortalSession opens a billing portal session for the user's existing
// customer record and returns its URL.
func (s *Service) CreatePortalSession(uid, returnURL string) (string, error) {
	if returnURL == "" {
		return "", errors.ErrMalformedBody.With("returnUrl is required")
	}

	user, err := s.store.User(uid)
	if err == db.ErrNotFound {
		return "", errors.ErrNoBillingCustomer
	}
	if err != nil {
		return "", errors.ErrInternalStorageError.WithErr(err)
	}
	if user.CustomerID == "" {
		return "", errors.ErrNoBillingCustomer
	}

	portal, err := s.client.CreatePortalSession(user.CustomerID, returnURL)
	if err != nil {
		return "", errors.ErrStripeError.WithErr(err)
	}
	return portal.URL, nil
}

func customerIDOf(session *stripeapi.CheckoutSession) string {
	if session.Customer == nil {
		return ""
	}
	return session.Customer.ID
}
