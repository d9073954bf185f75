package onboarding

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/models"
)

// FlowState is the resolved view of an onboarding session handed to the
// client on every mount and step change.
type FlowState struct {
	SessionID      string                `json:"session_id"`
	Role           models.OnboardingRole `json:"role"`
	Step           int                   `json:"step"`
	View           string                `json:"view"`
	OrganizationID string                `json:"organization_id,omitempty"`
	RestaurantCode string                `json:"restaurant_code,omitempty"`
	OwnerName      string                `json:"owner_name,omitempty"`
	// Recovered is set when the requested step was demoted because no
	// tenant exists yet.
	Recovered bool `json:"recovered,omitempty"`
	UILocked  bool `json:"ui_locked"`
}

// FlowManager owns onboarding session lifecycle: start, resolve on mount,
// step movement, and the two exits (finish, abandon). All step changes are
// persisted before they are reported back.
type FlowManager struct {
	db   database.DatabaseInterface
	lock *Lock
}

func NewFlowManager(db database.DatabaseInterface) *FlowManager {
	return &FlowManager{db: db, lock: NewLock()}
}

// Lock exposes the UI lock registry for status endpoints and teardown.
func (m *FlowManager) Lock() *Lock {
	return m.lock
}

// Start opens a fresh onboarding session at step 1 and asserts the UI lock.
func (m *FlowManager) Start(role models.OnboardingRole) (*models.OnboardingSession, error) {
	now := time.Now()
	session := &models.OnboardingSession{
		ID:        uuid.New().String(),
		Role:      role,
		Step:      models.StepCreate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.db.SaveOnboardingSession(session); err != nil {
		return nil, &BackendError{Op: "start onboarding", Err: err}
	}
	m.lock.Acquire(session.ID)
	return session, nil
}

// Resolve reconciles the persisted session with the step and role the URL
// requests. A request for step 2 or 3 with no tenant on record is demoted to
// step 1 and the demotion is persisted, so a reload cannot resurrect the
// inconsistent address.
func (m *FlowManager) Resolve(sessionID, rawRole, rawStep string) (*FlowState, error) {
	session, err := m.db.GetOnboardingSession(sessionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, &BackendError{Op: "load onboarding session", Err: err}
	}

	dirty := false
	if role := ParseRole(rawRole); role != models.RoleUnset && role != session.Role {
		session.Role = role
		dirty = true
	}
	if rawStep != "" {
		if step := ParseStep(rawStep); step != session.Step {
			session.Step = step
			dirty = true
		}
	}

	recovered := false
	if session.Corrupt() {
		log.Printf("onboarding session %v requested step %v without a tenant, forcing step 1", session.ID, session.Step)
		session.Step = models.StepCreate
		recovered = true
		dirty = true
	}

	if dirty {
		session.UpdatedAt = time.Now()
		if err := m.db.SaveOnboardingSession(session); err != nil {
			return nil, &BackendError{Op: "save onboarding session", Err: err}
		}
	}

	m.lock.Acquire(session.ID)
	return m.stateFor(session, recovered), nil
}

// Advance moves the session forward to the given step. Steps past the first
// require a committed tenant.
func (m *FlowManager) Advance(sessionID string, to int) (*FlowState, error) {
	return m.move(sessionID, to, true)
}

// Retreat moves the session backward. Going back never requires a tenant.
func (m *FlowManager) Retreat(sessionID string, to int) (*FlowState, error) {
	return m.move(sessionID, to, false)
}

func (m *FlowManager) move(sessionID string, to int, forward bool) (*FlowState, error) {
	if to < models.StepCreate || to > models.StepActivate {
		return nil, &ValidationError{Field: "step", Message: fmt.Sprintf("step %v out of range", to)}
	}

	session, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	if forward && to > models.StepCreate && session.OrganizationID == "" {
		return nil, &ValidationError{Field: "step", Message: "create your restaurant before continuing"}
	}
	if !forward && to > session.Step {
		return nil, &ValidationError{Field: "step", Message: "cannot retreat forward"}
	}

	session.Step = to
	session.UpdatedAt = time.Now()
	// Persist first; the client only sees a step it can safely reload into.
	if err := m.db.SaveOnboardingSession(session); err != nil {
		return nil, &BackendError{Op: "save onboarding session", Err: err}
	}
	return m.stateFor(session, false), nil
}

// SetOwnerName records the typed owner name so step 1 survives reloads.
func (m *FlowManager) SetOwnerName(sessionID, name string) (*FlowState, error) {
	session, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	session.OwnerName = strings.TrimSpace(name)
	session.UpdatedAt = time.Now()
	if err := m.db.SaveOnboardingSession(session); err != nil {
		return nil, &BackendError{Op: "save onboarding session", Err: err}
	}
	return m.stateFor(session, false), nil
}

// RecordTenant binds the committed organization to the session. Called by the
// intent commit before any step advance so a crash in between leaves a
// session that still resolves consistently.
func (m *FlowManager) RecordTenant(sessionID string, org *models.Organization) (*models.OnboardingSession, error) {
	session, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	session.OrganizationID = org.ID
	session.RestaurantCode = org.RestaurantCode
	session.UpdatedAt = time.Now()
	if err := m.db.SaveOnboardingSession(session); err != nil {
		return nil, &BackendError{Op: "save onboarding session", Err: err}
	}
	return session, nil
}

// Finish marks the tenant active, clears the session record, and releases the
// UI lock. The lock release is deferred so it happens even when the backend
// write fails.
func (m *FlowManager) Finish(sessionID string) (*models.Organization, error) {
	defer m.lock.Release(sessionID)

	session, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	if session.OrganizationID == "" {
		return nil, &ValidationError{Field: "session", Message: "no restaurant to activate"}
	}

	org, err := m.db.GetOrganization(session.OrganizationID)
	if err != nil {
		return nil, &BackendError{Op: "load organization", Err: err}
	}
	org.Status = models.OrgStatusActive
	org.UpdatedAt = time.Now()
	if err := m.db.UpdateOrganization(org); err != nil {
		return nil, &BackendError{Op: "activate organization", Err: err}
	}

	if err := m.db.DeleteOnboardingSession(sessionID); err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Printf("failed to clear finished onboarding session %v: %v", sessionID, err)
	}
	return org, nil
}

// Abandon drops the session and releases the UI lock. Safe to call for a
// session that is already gone.
func (m *FlowManager) Abandon(sessionID string) error {
	defer m.lock.Release(sessionID)

	if err := m.db.DeleteOnboardingSession(sessionID); err != nil && !errors.Is(err, database.ErrNotFound) {
		return &BackendError{Op: "abandon onboarding", Err: err}
	}
	return nil
}

// Detach releases the UI lock without touching the session, for a client that
// navigated away and may come back.
func (m *FlowManager) Detach(sessionID string) {
	m.lock.Release(sessionID)
}

func (m *FlowManager) load(sessionID string) (*models.OnboardingSession, error) {
	session, err := m.db.GetOnboardingSession(sessionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, &BackendError{Op: "load onboarding session", Err: err}
	}
	return session, nil
}

func (m *FlowManager) stateFor(session *models.OnboardingSession, recovered bool) *FlowState {
	return &FlowState{
		SessionID:      session.ID,
		Role:           session.Role,
		Step:           session.Step,
		View:           View(session.Role, session.Step),
		OrganizationID: session.OrganizationID,
		RestaurantCode: session.RestaurantCode,
		OwnerName:      session.OwnerName,
		Recovered:      recovered,
		UILocked:       m.lock.Held(session.ID),
	}
}
