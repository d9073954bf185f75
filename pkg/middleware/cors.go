package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"shiftline-backend/pkg/config"
)

// CORS builds the CORS middleware from configuration. The onboarding client
// is a browser app on a different origin, so this sits in front of everything.
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	corsOptions := cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodPatch,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
			"Cache-Control",
		},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	if cfg.IsDevelopment() {
		corsOptions.AllowedOrigins = []string{"*"}
		// credentials cannot be combined with a wildcard origin
		corsOptions.AllowCredentials = false
	}
	if len(cfg.AllowedOrigins) > 0 && cfg.AllowedOrigins[0] != "*" {
		corsOptions.AllowedOrigins = cfg.AllowedOrigins
		corsOptions.AllowCredentials = true
	}

	return cors.Handler(corsOptions)
}
