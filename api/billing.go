package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avadhworkzone/qna/errors"
)

// createCheckoutHandler opens a hosted checkout session for the caller and
// returns the redirect URL.
func (a *API) createCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	req := &CheckoutRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		errors.ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	url, err := a.billing.CreateCheckoutSession(user.UID, user.Email, req.PriceID, req.SuccessURL, req.CancelURL)
	if err != nil {
		httpWriteError(w, err)
		return
	}
	httpWriteJSON(w, &CheckoutResponse{URL: url})
}

// confirmCheckoutHandler confirms a checkout session after the success
// redirect and reports the granted entitlement. Confirming an already
// recorded session returns the same response without crediting again.
func (a *API) confirmCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	result, err := a.billing.ConfirmCheckout(r.Context(), user.UID, sessionID)
	if err != nil {
		httpWriteError(w, err)
		return
	}
	httpWriteJSON(w, &ConfirmResponse{
		Ok:           true,
		Plan:         result.Plan,
		CreditsAdded: result.CreditsAdded,
		PriceID:      result.PriceID,
	})
}

// createPortalHandler opens a billing portal session for the caller.
func (a *API) createPortalHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	req := &PortalRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		errors.ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	url, err := a.billing.CreatePortalSession(user.UID, req.ReturnURL)
	if err != nil {
		httpWriteError(w, err)
		return
	}
	httpWriteJSON(w, &PortalResponse{URL: url})
}

// webhookHandler receives provider event deliveries. The body is read raw and
// size-capped before anything parses it, signature verification runs over the
// exact bytes received.
func (a *API) webhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		errors.ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	signature := r.Header.Get("Stripe-Signature")
	if err := a.billing.HandleWebhookEvent(r.Context(), payload, signature); err != nil {
		httpWriteError(w, err)
		return
	}
	httpWriteJSON(w, &WebhookResponse{Received: true})
}
