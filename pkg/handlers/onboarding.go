package handlers

import (
	"fmt"
	"net/http"
	"strings"

	chiRoute "github.com/go-chi/chi/v5"

	"shiftline-backend/pkg/config"
	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/middleware"
	"shiftline-backend/pkg/models"
	"shiftline-backend/pkg/onboarding"
	"shiftline-backend/pkg/utils"
)

// OnboardingHandler serves the onboarding flow: session lifecycle, step
// movement, tenant creation, and the configuration batch.
type OnboardingHandler struct {
	config  *config.Config
	db      database.DatabaseInterface
	flow    *onboarding.FlowManager
	intents *onboarding.IntentService
	batch   *onboarding.ConfigBatch
	jwt     *utils.JWTService
}

func NewOnboardingHandler(cfg *config.Config, db database.DatabaseInterface, flow *onboarding.FlowManager) *OnboardingHandler {
	return &OnboardingHandler{
		config:  cfg,
		db:      db,
		flow:    flow,
		intents: onboarding.NewIntentService(db, flow),
		batch:   onboarding.NewConfigBatch(db),
		jwt:     utils.NewJWTService(cfg.JWTSecret),
	}
}

// POST /api/onboarding/session
// Opens a session and returns the bearer token the rest of the flow uses.
func (h *OnboardingHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	session, err := h.flow.Start(onboarding.ParseRole(req.Role))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, expiresAt, err := h.jwt.GenerateOnboardingToken(session.ID, session.Role)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to issue session token")
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
		"session":    session,
	})
}

// GET /api/onboarding/flow?role=&step=
// Resolves the flow for a mount or reload. Step aliases and out-of-range
// values are normalized; a step that outruns the recorded tenant is demoted.
func (h *OnboardingHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	state, err := h.flow.Resolve(claims.SessionID,
		utils.GetQueryParam(r, "role", ""),
		utils.GetQueryParam(r, "step", ""))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, state)
}

// POST /api/onboarding/step
func (h *OnboardingHandler) MoveStep(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Step      int    `json:"step"`
		Direction string `json:"direction"` // "advance" or "retreat"
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	var state *onboarding.FlowState
	switch req.Direction {
	case "retreat":
		state, err = h.flow.Retreat(claims.SessionID, req.Step)
	default:
		state, err = h.flow.Advance(claims.SessionID, req.Step)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, state)
}

// PUT /api/onboarding/owner-name
func (h *OnboardingHandler) SetOwnerName(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	state, err := h.flow.SetOwnerName(claims.SessionID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, state)
}

// POST /api/onboarding/abandon
func (h *OnboardingHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	if err := h.flow.Abandon(claims.SessionID); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"status": "abandoned"})
}

// POST /api/onboarding/finish
// Direct completion for flows that end without checkout (skip path).
func (h *OnboardingHandler) Finish(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	org, err := h.flow.Finish(claims.SessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"organization": org})
}

// POST /api/onboarding/intents
func (h *OnboardingHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireSession(r.Context()); err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Location string `json:"location"`
		Timezone string `json:"timezone"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	intent, err := h.intents.CreateIntent(req.Name, req.Location, req.Timezone)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"intent": intent})
}

// POST /api/onboarding/intents/{id}/commit
func (h *OnboardingHandler) CommitIntent(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	intentID := chiRoute.URLParam(r, "id")
	if strings.TrimSpace(intentID) == "" {
		utils.WriteBadRequestResponse(w, "intent id required")
		return
	}

	var req struct {
		DeferBillingCheck bool `json:"defer_billing_check"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	org, err := h.intents.CommitIntent(claims.SessionID, intentID, req.DeferBillingCheck)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"organization": org})
}

// POST /api/onboarding/settings/batch
// Persists the configuration step. Partial failures are reported per section;
// the HTTP status stays 200 because the step itself is optional.
func (h *OnboardingHandler) SaveSettingsBatch(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID, ok := h.requireTenant(w, claims.SessionID)
	if !ok {
		return
	}

	var req onboarding.BatchRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	report := h.batch.SaveAll(r.Context(), orgID, &req)
	if report.HadError() {
		fmt.Printf("settings batch for org %s had failures: %v\n", orgID, report.Failed)
	}
	utils.WriteSuccessResponse(w, report)
}

// PUT /api/onboarding/staff/drafts
// Always writes a snapshot, including the empty set.
func (h *OnboardingHandler) SaveStaffDrafts(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID, ok := h.requireTenant(w, claims.SessionID)
	if !ok {
		return
	}

	var req struct {
		Rows []models.StaffDraftRow `json:"rows"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}

	if err := h.batch.PersistDrafts(orgID, req.Rows); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"saved": len(req.Rows)})
}

// GET /api/onboarding/staff/drafts
func (h *OnboardingHandler) GetStaffDrafts(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID, ok := h.requireTenant(w, claims.SessionID)
	if !ok {
		return
	}

	snap, err := h.batch.LoadDrafts(orgID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, snap)
}

// requireTenant resolves the session's committed tenant or fails the request.
func (h *OnboardingHandler) requireTenant(w http.ResponseWriter, sessionID string) (string, bool) {
	session, err := h.db.GetOnboardingSession(sessionID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Onboarding session not found")
		return "", false
	}
	if session.OrganizationID == "" {
		utils.WriteValidationErrorResponse(w, "Create your restaurant before configuring it", "organization")
		return "", false
	}
	return session.OrganizationID, true
}
