package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"shiftline-backend/pkg/config"
)

// Logger returns the request logging middleware. Production gets one JSON
// line per request; development gets the short human format.
func Logger(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			session := "-"
			if claims, ok := SessionFromContext(r.Context()); ok {
				session = claims.SessionID
			}

			if cfg.IsProduction() {
				fmt.Printf(`{"time":"%s","method":"%s","path":"%s","status":%d,"duration":"%s","session":"%s","ip":"%s"}`+"\n",
					time.Now().Format(time.RFC3339),
					r.Method,
					r.URL.Path,
					ww.Status(),
					duration,
					session,
					clientIP(r),
				)
			} else {
				fmt.Printf("%s %s %s %d %s %s\n",
					time.Now().Format("15:04:05"),
					r.Method,
					r.URL.Path,
					ww.Status(),
					duration,
					session,
				)
			}
		})
	}
}

// clientIP resolves the caller address behind proxies.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
