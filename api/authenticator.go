package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/avadhworkzone/qna/errors"
	"github.com/avadhworkzone/qna/internal"
)

type contextKey int

const userIdentityKey contextKey = iota

// authenticator validates the bearer token already parsed by the jwtauth
// verifier and injects the verified identity into the request context. Tokens
// are issued by the external identity service and must carry a `userId`
// claim, the `email` claim is optional.
func (a *API) authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			errors.ErrUnauthorized.WithErr(err).Write(w)
			return
		}
		if token == nil || jwt.Validate(token, jwt.WithRequiredClaim("userId")) != nil {
			errors.ErrUnauthorized.Withf("userId claim not found in JWT token").Write(w)
			return
		}
		uid, ok := claims["userId"].(string)
		if !ok || uid == "" {
			errors.ErrUnauthorized.Withf("userId claim is not a string").Write(w)
			return
		}
		identity := &UserIdentity{UID: uid}
		// the email claim is optional and only kept when well formed
		if email, ok := claims["email"].(string); ok && internal.ValidEmail(email) {
			identity.Email = email
		}
		ctx := context.WithValue(r.Context(), userIdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFromContext returns the identity the authenticator stored for this
// request.
func userFromContext(ctx context.Context) (*UserIdentity, bool) {
	identity, ok := ctx.Value(userIdentityKey).(*UserIdentity)
	return identity, ok
}
