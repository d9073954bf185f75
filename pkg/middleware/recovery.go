package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"shiftline-backend/pkg/config"
	"shiftline-backend/pkg/utils"
)

// Recovery converts handler panics into a 500 envelope. Development responses
// include the stack; production responses do not.
func Recovery(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					stack := debug.Stack()
					fmt.Printf("panic serving %s %s: %v\n%s\n", r.Method, r.URL.Path, err, stack)

					if cfg.IsDevelopment() {
						utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
							"INTERNAL_SERVER_ERROR",
							fmt.Sprintf("Internal server error: %v", err),
							string(stack))
					} else {
						utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
