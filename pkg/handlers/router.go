package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"shiftline-backend/pkg/config"
	"shiftline-backend/pkg/database"
	customMiddleware "shiftline-backend/pkg/middleware"
	"shiftline-backend/pkg/onboarding"
	"shiftline-backend/pkg/payments"
	"shiftline-backend/pkg/utils"
)

// NewRouter wires the full API surface. All onboarding routes except session
// start sit behind the onboarding token; webhooks authenticate by signature.
func NewRouter(cfg *config.Config, db database.DatabaseInterface, gateway payments.Gateway) *chi.Mux {
	flow := onboarding.NewFlowManager(db)
	reconciler := onboarding.NewReconciler(db, gateway, flow, onboarding.ReconcilerOptions{
		PollInterval:    cfg.PollInterval,
		PollMaxDuration: cfg.PollMaxDuration,
		FinalizeTimeout: cfg.FinalizeTimeout,
		AdvanceDelay:    cfg.AdvanceDelay,
	})

	onboardingHandler := NewOnboardingHandler(cfg, db, flow)
	checkoutHandler := NewCheckoutHandler(cfg, db, flow, gateway, reconciler)
	webhookHandler := NewWebhookHandler(cfg, db)

	router := chi.NewRouter()
	setupMiddleware(router, cfg)

	// Health check
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if err := db.HealthCheck(); err != nil {
			status = "degraded"
		}
		utils.WriteSuccessResponse(w, map[string]interface{}{
			"service":   "shiftline-backend",
			"status":    status,
			"ui_locked": flow.Lock().Active(),
		})
	})

	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	router.Route("/api", func(r chi.Router) {
		// Session start is the only unauthenticated onboarding route; it
		// issues the token everything else requires.
		r.Post("/onboarding/session", onboardingHandler.StartSession)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.OnboardingAuth(cfg))
			r.Use(customMiddleware.ContentTypeJSON)
			r.Use(customMiddleware.MaxBodySize(1 << 20))

			r.Route("/onboarding", func(r chi.Router) {
				r.Get("/flow", onboardingHandler.GetFlow)
				r.Post("/step", onboardingHandler.MoveStep)
				r.Put("/owner-name", onboardingHandler.SetOwnerName)
				r.Post("/abandon", onboardingHandler.Abandon)
				r.Post("/finish", onboardingHandler.Finish)
				r.Post("/detach", checkoutHandler.Detach)

				r.Post("/intents", onboardingHandler.CreateIntent)
				r.Post("/intents/{id}/commit", onboardingHandler.CommitIntent)

				r.Post("/settings/batch", onboardingHandler.SaveSettingsBatch)
				r.Put("/staff/drafts", onboardingHandler.SaveStaffDrafts)
				r.Get("/staff/drafts", onboardingHandler.GetStaffDrafts)

				r.Route("/checkout", func(r chi.Router) {
					r.Post("/session", checkoutHandler.CreateSession)
					r.Post("/launched", checkoutHandler.ReportLaunch)
					r.Post("/callback", checkoutHandler.Callback)
					r.Post("/finalize", checkoutHandler.RetryFinalize)
					r.Get("/status", checkoutHandler.Status)
				})
			})

			r.Get("/subscription/status", checkoutHandler.SubscriptionStatus)
			r.Get("/billing/portal", checkoutHandler.BillingPortal)
		})

		// Webhooks carry their own signature check
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookHandler.HandleStripeWebhook)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))
	router.Use(customMiddleware.CORS(cfg))
	router.Use(chiMiddleware.Timeout(60 * time.Second))
	router.Use(chiMiddleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(chiMiddleware.Heartbeat("/ping"))
	}
}
