package handlers

import (
	"net/http"

	"shiftline-backend/pkg/config"
	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/middleware"
	"shiftline-backend/pkg/models"
	"shiftline-backend/pkg/onboarding"
	"shiftline-backend/pkg/payments"
	"shiftline-backend/pkg/utils"
)

// CheckoutHandler serves the activation step: launching checkout, receiving
// the redirect callback, and reporting confirmation status.
type CheckoutHandler struct {
	config     *config.Config
	db         database.DatabaseInterface
	flow       *onboarding.FlowManager
	gateway    payments.Gateway
	reconciler *onboarding.Reconciler
}

func NewCheckoutHandler(cfg *config.Config, db database.DatabaseInterface, flow *onboarding.FlowManager, gateway payments.Gateway, reconciler *onboarding.Reconciler) *CheckoutHandler {
	return &CheckoutHandler{
		config:     cfg,
		db:         db,
		flow:       flow,
		gateway:    gateway,
		reconciler: reconciler,
	}
}

// POST /api/onboarding/checkout/session
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Plan string `json:"plan"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	launch, err := h.reconciler.StartCheckout(r.Context(), claims.SessionID, models.Plan(req.Plan))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, launch)
}

// POST /api/onboarding/checkout/launched
// The client reports how the checkout page opened: a new tab arms the
// background poll, a same-tab navigation waits for the redirect callback.
func (h *CheckoutHandler) ReportLaunch(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Branch string `json:"branch"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	status, err := h.reconciler.ReportLaunch(claims.SessionID, req.Branch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, status)
}

// POST /api/onboarding/checkout/callback
// The redirect landing. outcome=cancel is a quiet terminal state; outcome=
// success without a session id is an error; duplicate deliveries of the same
// tuple are absorbed.
func (h *CheckoutHandler) Callback(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Outcome           string `json:"outcome"`
		CheckoutSessionID string `json:"session_id"`
		IntentID          string `json:"intent_id"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	status, err := h.reconciler.HandleCallback(r.Context(), claims.SessionID,
		req.Outcome, req.CheckoutSessionID, req.IntentID)
	if err != nil {
		// The reconciler has already moved the session to a retryable state;
		// the client re-reads it from the status endpoint.
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, status)
}

// POST /api/onboarding/checkout/finalize
// Manual retry from the still-confirming state. Reuses the stored checkout
// session id.
func (h *CheckoutHandler) RetryFinalize(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	status, err := h.reconciler.RetryFinalize(r.Context(), claims.SessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, status)
}

// GET /api/onboarding/checkout/status
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	utils.WriteSuccessResponse(w, h.reconciler.Status(claims.SessionID))
}

// POST /api/onboarding/detach
// Unmount teardown: stops the poll watcher and pending timers and releases
// the UI lock. The session record itself survives for a later resume.
func (h *CheckoutHandler) Detach(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	h.reconciler.Detach(claims.SessionID)
	h.flow.Detach(claims.SessionID)
	utils.WriteSuccessResponse(w, map[string]string{"status": "detached"})
}

// GET /api/subscription/status
// Live subscription standing for the session's tenant, read from the
// processor, with the stored record as context.
func (h *CheckoutHandler) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	session, err := h.db.GetOnboardingSession(claims.SessionID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Onboarding session not found")
		return
	}
	if session.OrganizationID == "" {
		utils.WriteSuccessResponse(w, models.SubscriptionState{Status: models.SubStatusNone})
		return
	}

	org, err := h.db.GetOrganization(session.OrganizationID)
	if err != nil {
		utils.WriteBadGatewayResponse(w, "Failed to load organization")
		return
	}
	state, err := h.gateway.SubscriptionState(r.Context(), org)
	if err != nil {
		utils.WriteBadGatewayResponse(w, "Failed to read subscription state")
		return
	}

	var record *models.Subscription
	if sub, err := h.db.GetSubscription(org.ID); err == nil {
		record = sub
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"state":  state,
		"record": record,
	})
}

// GET /api/billing/portal
func (h *CheckoutHandler) BillingPortal(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	session, err := h.db.GetOnboardingSession(claims.SessionID)
	if err != nil || session.OrganizationID == "" {
		utils.WriteNotFoundResponse(w, "No tenant for this session")
		return
	}
	org, err := h.db.GetOrganization(session.OrganizationID)
	if err != nil {
		utils.WriteBadGatewayResponse(w, "Failed to load organization")
		return
	}

	url, err := h.gateway.BillingPortalURL(r.Context(), org)
	if err != nil {
		utils.WriteBadGatewayResponse(w, "Failed to create billing portal session")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"url": url})
}
