package stripe

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/avadhworkzone/qna/db"
	"github.com/avadhworkzone/qna/errors"
)

// HandleWebhookEvent verifies a webhook delivery against the shared secret
// and dispatches it by event type. Signature failures reject the delivery,
// event types outside the handled set are acknowledged without any write so
// the provider does not keep retrying them.
func (s *Service) HandleWebhookEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	if s.config.WebhookSecret == "" {
		return errors.ErrBillingNotConfigured.With("webhook secret is not set")
	}

	event, err := s.client.ValidateWebhookEvent(payload, signatureHeader)
	if err != nil {
		if IsSignatureError(err) {
			return errors.ErrInvalidSignature.WithErr(err)
		}
		return errors.ErrStripeWebhookError.WithErr(err)
	}

	switch event.Type {
	case stripeapi.EventTypeCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case stripeapi.EventTypeCustomerSubscriptionCreated,
		stripeapi.EventTypeCustomerSubscriptionUpdated:
		return s.handleSubscriptionChange(event)
	case stripeapi.EventTypeCustomerSubscriptionDeleted:
		return s.handleSubscriptionDeleted(event)
	default:
		log.Debug().
			Str("eventID", event.ID).
			Str("type", string(event.Type)).
			Msg("unhandled webhook event type, acknowledging")
		return nil
	}
}

// handleCheckoutCompleted credits a completed checkout session. Sessions that
// are not paid yet are acknowledged untouched, the confirmation endpoint or a
// later asynchronous delivery will pick them up once payment settles.
func (s *Service) handleCheckoutCompleted(ctx context.Context, event *stripeapi.Event) error {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return errors.ErrStripeWebhookError.WithErr(
			NewStripeError(ErrCodeInvalidEvent, "malformed checkout session payload", err))
	}
	if session.PaymentStatus != stripeapi.CheckoutSessionPaymentStatusPaid {
		log.Debug().
			Str("sessionID", session.ID).
			Str("paymentStatus", string(session.PaymentStatus)).
			Msg("checkout completed without settled payment, skipping")
		return nil
	}

	receipt, _, err := s.applyCheckoutSession(ctx, &session)
	if err != nil {
		// Failures here include a price missing from the catalog after a
		// rotation. Surface them so the provider redelivers the event once
		// the configuration catches up.
		return errors.ErrStripeWebhookError.WithErr(err)
	}
	if receipt == nil {
		log.Warn().Str("sessionID", session.ID).Msg("checkout session carries no user metadata, skipping")
	}
	return nil
}

// handleSubscriptionChange mirrors the current subscription state onto the
// user's plan. The subscription price decides the plan, a price outside the
// catalog records an unknown plan with zero credits.
func (s *Service) handleSubscriptionChange(event *stripeapi.Event) error {
	subscription, uid, err := s.subscriptionUser(event)
	if err != nil || uid == "" {
		return err
	}

	plan, credits := db.PlanUnknown, int64(0)
	priceID := subscriptionPriceID(subscription)
	if tier, ok := s.config.TierByPrice(priceID); ok {
		plan, credits = tier.Plan, tier.Sessions
	}

	if err := s.store.SetUserPlan(uid, plan, credits); err != nil {
		return errors.ErrStripeWebhookError.WithErr(err)
	}
	log.Info().
		Str("uid", uid).
		Str("subscriptionID", subscription.ID).
		Str("plan", string(plan)).
		Msg("subscription state mirrored to plan")
	return nil
}

// handleSubscriptionDeleted marks the user's plan as canceled.
func (s *Service) handleSubscriptionDeleted(event *stripeapi.Event) error {
	subscription, uid, err := s.subscriptionUser(event)
	if err != nil || uid == "" {
		return err
	}

	if err := s.store.SetUserPlan(uid, db.PlanCanceled, 0); err != nil {
		return errors.ErrStripeWebhookError.WithErr(err)
	}
	log.Info().
		Str("uid", uid).
		Str("subscriptionID", subscription.ID).
		Msg("subscription canceled")
	return nil
}

// subscriptionUser parses the subscription out of the event and resolves the
// user it belongs to, preferring the uid metadata and falling back to the
// customer record. An empty uid with a nil error means the event cannot be
// attributed to any user and must be acknowledged untouched.
func (s *Service) subscriptionUser(event *stripeapi.Event) (*stripeapi.Subscription, string, error) {
	var subscription stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return nil, "", errors.ErrStripeWebhookError.WithErr(
			NewStripeError(ErrCodeInvalidEvent, "malformed subscription payload", err))
	}

	if uid := subscription.Metadata[metadataKeyUID]; uid != "" {
		return &subscription, uid, nil
	}
	if subscription.Customer != nil && subscription.Customer.ID != "" {
		user, err := s.store.UserByCustomerID(subscription.Customer.ID)
		if err == nil {
			return &subscription, user.UID, nil
		}
		if err != db.ErrNotFound {
			return nil, "", errors.ErrStripeWebhookError.WithErr(err)
		}
	}

	log.Warn().
		Str("subscriptionID", subscription.ID).
		Msg("subscription event cannot be attributed to a user, skipping")
	return &subscription, "", nil
}

func subscriptionPriceID(subscription *stripeapi.Subscription) string {
	if subscription.Items == nil || len(subscription.Items.Data) == 0 {
		return ""
	}
	item := subscription.Items.Data[0]
	if item.Price == nil {
		return ""
	}
	return item.Price.ID
}
