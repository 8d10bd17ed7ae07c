// Package api provides the HTTP API for the QnA billing service.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/zerolog/log"

	"github.com/avadhworkzone/qna/db"
	"github.com/avadhworkzone/qna/stripe"
)

type Config struct {
	Host string
	Port int
	// Secret is the HS256 key shared with the identity service that issues
	// the bearer tokens.
	Secret  string
	DB      *db.MongoStorage
	Billing *stripe.Service
}

// API type represents the API HTTP server with JWT authentication capabilities.
type API struct {
	db      *db.MongoStorage
	billing *stripe.Service
	auth    *jwtauth.JWTAuth
	host    string
	port    int
	router  *chi.Mux
}

// New creates a new API HTTP server. It does not start the server. Use Start() for that.
func New(conf *Config) *API {
	if conf == nil {
		return nil
	}
	return &API{
		db:      conf.DB,
		billing: conf.Billing,
		auth:    jwtauth.New("HS256", []byte(conf.Secret), nil),
		host:    conf.Host,
		port:    conf.Port,
	}
}

// Start starts the API HTTP server (non blocking).
func (a *API) Start() {
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", a.host, a.port), a.initRouter()); err != nil {
			log.Fatal().Err(err).Msg("failed to start the API server")
		}
	}()
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Throttle(100))
	r.Use(middleware.Timeout(45 * time.Second))

	// protected routes
	r.Group(func(r chi.Router) {
		// seek, verify and validate JWT tokens
		r.Use(jwtauth.Verifier(a.auth))
		// handle valid JWT tokens
		r.Use(a.authenticator)
		// create a checkout session
		log.Info().Str("method", "POST").Str("path", billingCheckoutEndpoint).Msg("new route")
		r.Post(billingCheckoutEndpoint, a.createCheckoutHandler)
		// confirm a finished checkout session
		log.Info().Str("method", "POST").Str("path", billingConfirmEndpoint).Msg("new route")
		r.Post(billingConfirmEndpoint, a.confirmCheckoutHandler)
		// create a billing portal session
		log.Info().Str("method", "POST").Str("path", billingPortalEndpoint).Msg("new route")
		r.Post(billingPortalEndpoint, a.createPortalHandler)
	})

	// public routes
	r.Group(func(r chi.Router) {
		// provider webhook, authenticated by its signature instead of a token
		log.Info().Str("method", "POST").Str("path", billingWebhookEndpoint).Msg("new route")
		r.Post(billingWebhookEndpoint, a.webhookHandler)
		// liveness check
		log.Info().Str("method", "GET").Str("path", pingEndpoint).Msg("new route")
		r.Get(pingEndpoint, a.pingHandler)
	})

	a.router = r
	return r
}

func (*API) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("."))
}
