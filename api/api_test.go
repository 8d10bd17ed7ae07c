package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/go-chi/jwtauth/v5"
	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/avadhworkzone/qna/db"
	"github.com/avadhworkzone/qna/stripe"
	"github.com/avadhworkzone/qna/test"
)

const (
	testAPISecret     = "super-secret-api"
	testWebhookSecret = "whsec_api_test"
	testPriceGrowth   = "price_growth456"
)

var testDB *db.MongoStorage

func TestMain(m *testing.M) {
	ctx := context.Background()
	dbContainer, err := test.StartMongoContainer(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to start MongoDB container: %v", err))
	}

	mongoURI, err := dbContainer.ConnectionString(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to get MongoDB connection string: %v", err))
	}

	testDB, err = db.New(mongoURI, test.RandomDatabaseName())
	if err != nil {
		panic(fmt.Sprintf("failed to create new MongoDB connection: %v", err))
	}

	code := m.Run()

	testDB.Close()
	if err := dbContainer.Terminate(ctx); err != nil {
		panic(fmt.Sprintf("failed to terminate MongoDB container: %v", err))
	}

	os.Exit(code)
}

// stubProvider implements stripe.Payments with canned responses so handler
// tests never reach the real API.
type stubProvider struct {
	prices   map[string]*stripeapi.Price
	sessions map[string]*stripeapi.CheckoutSession
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		prices:   make(map[string]*stripeapi.Price),
		sessions: make(map[string]*stripeapi.CheckoutSession),
	}
}

func (*stubProvider) CreateCustomer(email, _ string) (*stripeapi.Customer, error) {
	return &stripeapi.Customer{ID: "cus_api_test", Email: email}, nil
}

func (p *stubProvider) GetPrice(priceID string) (*stripeapi.Price, error) {
	price, ok := p.prices[priceID]
	if !ok {
		return nil, stripe.NewStripeError(stripe.ErrCodeAPICall, "price not found", nil)
	}
	return price, nil
}

func (*stubProvider) CreateCheckoutSession(*stripe.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	return &stripeapi.CheckoutSession{ID: "cs_api_new", URL: "https://checkout.stripe.com/c/pay/cs_api_new"}, nil
}

func (p *stubProvider) GetCheckoutSession(sessionID string) (*stripeapi.CheckoutSession, error) {
	session, ok := p.sessions[sessionID]
	if !ok {
		return nil, stripe.NewStripeError(stripe.ErrCodeAPICall, "session not found", nil)
	}
	return session, nil
}

func (*stubProvider) CreatePortalSession(customerID, _ string) (*stripeapi.BillingPortalSession, error) {
	return &stripeapi.BillingPortalSession{URL: "https://billing.stripe.com/session/" + customerID}, nil
}

func (*stubProvider) ValidateWebhookEvent([]byte, string) (*stripeapi.Event, error) {
	return nil, stripe.NewStripeError(stripe.ErrCodeWebhookValidation, "stub does not verify signatures", nil)
}

// setupTestAPI builds the full router over the shared test database, a stub
// provider for the API-touching paths and a real client for webhook
// signature verification.
func setupTestAPI(t *testing.T, stub *stubProvider) *httptest.Server {
	t.Helper()
	billingConf := &stripe.Config{
		APIKey:        "sk_test_xxx",
		WebhookSecret: testWebhookSecret,
		PriceStarter:  "price_starter123",
		PriceGrowth:   testPriceGrowth,
		PricePro:      "price_pro789",
	}
	var billing *stripe.Service
	var err error
	if stub != nil {
		billing, err = stripe.NewServiceWithClient(billingConf, testDB, stub)
	} else {
		billing, err = stripe.NewService(billingConf, testDB)
	}
	if err != nil {
		t.Fatal(err)
	}
	a := New(&Config{Host: "127.0.0.1", Port: 0, Secret: testAPISecret, DB: testDB, Billing: billing})
	server := httptest.NewServer(a.initRouter())
	t.Cleanup(server.Close)
	return server
}

// bearerToken issues a token the way the external identity service does.
func bearerToken(t *testing.T, uid, email string) string {
	t.Helper()
	auth := jwtauth.New("HS256", []byte(testAPISecret), nil)
	claims := map[string]any{"userId": uid, "exp": time.Now().Add(time.Hour).Unix()}
	if email != "" {
		claims["email"] = email
	}
	_, token, err := auth.Encode(claims)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func doRequest(t *testing.T, method, url, token string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, respBody
}

func TestPing(t *testing.T) {
	c := qt.New(t)
	server := setupTestAPI(t, newStubProvider())

	resp, body := doRequest(t, http.MethodGet, server.URL+pingEndpoint, "", nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(string(body), qt.Equals, ".")
}

func TestCheckoutEndpoint(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	stub := newStubProvider()
	stub.prices[testPriceGrowth] = &stripeapi.Price{ID: testPriceGrowth, Type: stripeapi.PriceTypeOneTime}
	server := setupTestAPI(t, stub)

	reqBody, err := json.Marshal(&CheckoutRequest{
		PriceID:    testPriceGrowth,
		SuccessURL: "https://app.example.com/billing/success",
		CancelURL:  "https://app.example.com/billing/cancel",
	})
	c.Assert(err, qt.IsNil)

	// without a token the endpoint is unreachable
	resp, _ := doRequest(t, http.MethodPost, server.URL+billingCheckoutEndpoint, "", reqBody)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)

	token := bearerToken(t, "user-api-1", "api@example.com")
	resp, body := doRequest(t, http.MethodPost, server.URL+billingCheckoutEndpoint, token, reqBody)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK, qt.Commentf("body: %s", body))

	var checkout CheckoutResponse
	c.Assert(json.Unmarshal(body, &checkout), qt.IsNil)
	c.Assert(checkout.URL, qt.Equals, "https://checkout.stripe.com/c/pay/cs_api_new")

	// the customer created for the session is already on the user record
	user, err := testDB.User("user-api-1")
	c.Assert(err, qt.IsNil)
	c.Assert(user.CustomerID, qt.Equals, "cus_api_test")

	// malformed body
	resp, _ = doRequest(t, http.MethodPost, server.URL+billingCheckoutEndpoint, token, []byte("{not json"))
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)

	// unknown price
	reqBody, err = json.Marshal(&CheckoutRequest{
		PriceID:    "price_unknown",
		SuccessURL: "https://app.example.com/ok",
		CancelURL:  "https://app.example.com/ko",
	})
	c.Assert(err, qt.IsNil)
	resp, _ = doRequest(t, http.MethodPost, server.URL+billingCheckoutEndpoint, token, reqBody)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
}

func TestConfirmEndpoint(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	stub := newStubProvider()
	stub.sessions["cs_api_paid"] = &stripeapi.CheckoutSession{
		ID:            "cs_api_paid",
		AmountTotal:   3900,
		Currency:      stripeapi.CurrencyUSD,
		PaymentStatus: stripeapi.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{"uid": "user-api-1", "priceID": testPriceGrowth},
	}
	server := setupTestAPI(t, stub)
	confirmURL := server.URL + "/billing/checkout/cs_api_paid/confirm"
	token := bearerToken(t, "user-api-1", "")

	resp, body := doRequest(t, http.MethodPost, confirmURL, token, nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK, qt.Commentf("body: %s", body))

	var confirm ConfirmResponse
	c.Assert(json.Unmarshal(body, &confirm), qt.IsNil)
	c.Assert(confirm.Ok, qt.IsTrue)
	c.Assert(confirm.Plan, qt.Equals, db.PlanGrowth)
	c.Assert(confirm.CreditsAdded, qt.Equals, int64(5))
	c.Assert(confirm.PriceID, qt.Equals, testPriceGrowth)

	// the same confirmation again yields the same response and no new credit
	resp, body = doRequest(t, http.MethodPost, confirmURL, token, nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(json.Unmarshal(body, &confirm), qt.IsNil)
	c.Assert(confirm.CreditsAdded, qt.Equals, int64(5))

	user, err := testDB.User("user-api-1")
	c.Assert(err, qt.IsNil)
	c.Assert(user.SessionCredits, qt.Equals, int64(5))

	// somebody else's token cannot confirm the session
	resp, _ = doRequest(t, http.MethodPost, confirmURL, bearerToken(t, "user-api-2", ""), nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusForbidden)
}

func TestWebhookEndpoint(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	server := setupTestAPI(t, nil)
	webhookURL := server.URL + billingWebhookEndpoint

	payload := []byte(`{
		"id": "evt_api_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_api_hook",
				"object": "checkout.session",
				"amount_total": 900,
				"currency": "usd",
				"payment_status": "paid",
				"metadata": {"uid": "user-api-hook", "priceID": "price_starter123"}
			}
		}
	}`)

	// unsigned deliveries are rejected
	resp, _ := doRequest(t, http.MethodPost, webhookURL, "", payload)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(payload))
	c.Assert(err, qt.IsNil)
	req.Header.Set("Stripe-Signature", signWebhookPayload(testWebhookSecret, payload))
	signedResp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer func() { _ = signedResp.Body.Close() }()
	body, err := io.ReadAll(signedResp.Body)
	c.Assert(err, qt.IsNil)
	c.Assert(signedResp.StatusCode, qt.Equals, http.StatusOK, qt.Commentf("body: %s", body))

	var ack WebhookResponse
	c.Assert(json.Unmarshal(body, &ack), qt.IsNil)
	c.Assert(ack.Received, qt.IsTrue)

	user, err := testDB.User("user-api-hook")
	c.Assert(err, qt.IsNil)
	c.Assert(user.SessionCredits, qt.Equals, int64(1))
	c.Assert(user.Plan, qt.Equals, db.PlanStarter)
}

func signWebhookPayload(secret string, payload []byte) string {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}
