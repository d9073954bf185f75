package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"shiftline-backend/pkg/config"
	"shiftline-backend/pkg/models"
	"shiftline-backend/pkg/utils"
)

// ContextKey is the type for values this package stores in request contexts.
type ContextKey string

const (
	// SessionContextKey holds the validated onboarding token claims.
	SessionContextKey ContextKey = "onboarding_session"
)

// OnboardingAuth validates the bearer onboarding token and stores its claims
// in the request context. Every onboarding route sits behind it except the
// session-start endpoint that issues the token.
func OnboardingAuth(cfg *config.Config) func(http.Handler) http.Handler {
	jwtService := utils.NewJWTService(cfg.JWTSecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.WriteUnauthorizedResponse(w, "Missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				utils.WriteUnauthorizedResponse(w, "Invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				utils.WriteUnauthorizedResponse(w, "Invalid token: "+err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the onboarding claims stored by OnboardingAuth.
func SessionFromContext(ctx context.Context) (*models.OnboardingTokenClaims, bool) {
	claims, ok := ctx.Value(SessionContextKey).(*models.OnboardingTokenClaims)
	return claims, ok
}

// RequireSession is the handler-side helper; it fails when the middleware did
// not run or the claims are missing.
func RequireSession(ctx context.Context) (*models.OnboardingTokenClaims, error) {
	claims, ok := SessionFromContext(ctx)
	if !ok || claims == nil {
		return nil, fmt.Errorf("onboarding session not authenticated")
	}
	return claims, nil
}
