package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/campusmate/server/internal/api/problem"
	"github.com/campusmate/server/internal/auth"
	"github.com/campusmate/server/internal/metrics"
	"github.com/rs/zerolog"
)

type contextKeyAuth string

const sessionClaimsKey contextKeyAuth = "sessionClaims"

// SessionAuth gates protected routes on a valid session token. The one
// canonical transport is the Authorization header with a Bearer token;
// cookies are not consulted. Missing, malformed, and expired tokens all
// produce the same 401 response so the failure mode is not observable
// from outside, while logs and metrics keep the distinction.
func SessionAuth(manager *auth.TokenManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}

			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				rejectSession(w, r, err, env)
				return
			}

			claims, err := manager.Verify(token)
			if err != nil {
				rejectSession(w, r, err, env)
				return
			}

			ctx := contextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectSession(w http.ResponseWriter, r *http.Request, err error, env string) {
	reason := "invalid"
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		reason = "missing"
	case errors.Is(err, auth.ErrExpiredToken):
		reason = "expired"
	}
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()

	logger := zerolog.Ctx(r.Context())
	logger.Warn().Str("reason", reason).Str("path", r.URL.Path).Msg("session rejected")

	// Uniform body regardless of reason; err is only surfaced to logs
	// inside problem.Write in development.
	problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
}

func contextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, sessionClaimsKey, claims)
}

// SessionClaims returns the verified identity claims attached by
// SessionAuth, or nil when the request was not authenticated.
func SessionClaims(r *http.Request) *auth.Claims {
	if r == nil {
		return nil
	}
	if claims, ok := r.Context().Value(sessionClaimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
