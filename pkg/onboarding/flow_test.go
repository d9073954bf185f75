package onboarding

import (
	"testing"
	"time"

	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/models"
)

func newTestFlow(t *testing.T) (*FlowManager, database.DatabaseInterface) {
	t.Helper()
	db := database.NewLocalDatabase(t.TempDir())
	return NewFlowManager(db), db
}

func seedOrg(t *testing.T, db database.DatabaseInterface, id string) *models.Organization {
	t.Helper()
	org := &models.Organization{
		ID:             id,
		Name:           "Testaurant",
		RestaurantCode: "RST-ABC123",
		Status:         models.OrgStatusProvisioning,
	}
	if err := db.CreateOrganization(org); err != nil {
		t.Fatalf("seed org: %v", err)
	}
	return org
}

func TestStartAcquiresLock(t *testing.T) {
	flow, _ := newTestFlow(t)

	session, err := flow.Start(models.RoleManager)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if session.Step != models.StepCreate {
		t.Errorf("new session step = %d, want 1", session.Step)
	}
	if !flow.Lock().Held(session.ID) {
		t.Error("starting the flow should assert the UI lock")
	}
	if !flow.Lock().Active() {
		t.Error("lock should be active")
	}
}

func TestResolveDemotesCorruptSession(t *testing.T) {
	flow, db := newTestFlow(t)

	session, err := flow.Start(models.RoleManager)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// A step past creation with no tenant recorded must be forced back.
	state, err := flow.Resolve(session.ID, "", "3")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if state.Step != models.StepCreate {
		t.Errorf("resolved step = %d, want 1", state.Step)
	}
	if !state.Recovered {
		t.Error("demotion should be reported as recovery")
	}

	// The demotion is persisted so a reload cannot resurrect it.
	stored, err := db.GetOnboardingSession(session.ID)
	if err != nil {
		t.Fatalf("GetOnboardingSession: %v", err)
	}
	if stored.Step != models.StepCreate {
		t.Errorf("persisted step = %d, want 1", stored.Step)
	}
}

func TestResolveStepAliases(t *testing.T) {
	flow, db := newTestFlow(t)
	org := seedOrg(t, db, "org-alias")

	session, _ := flow.Start(models.RoleManager)
	if _, err := flow.RecordTenant(session.ID, org); err != nil {
		t.Fatalf("RecordTenant: %v", err)
	}

	state, err := flow.Resolve(session.ID, "", "staff")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if state.Step != models.StepActivate {
		t.Errorf("alias staff resolved to step %d, want 3", state.Step)
	}
	if state.View != "step-3" {
		t.Errorf("view = %q, want step-3", state.View)
	}
}

func TestAdvanceRequiresTenant(t *testing.T) {
	flow, db := newTestFlow(t)

	session, _ := flow.Start(models.RoleManager)
	if _, err := flow.Advance(session.ID, 2); !IsValidation(err) {
		t.Fatalf("advance without tenant should be a validation error, got %v", err)
	}

	org := seedOrg(t, db, "org-adv")
	if _, err := flow.RecordTenant(session.ID, org); err != nil {
		t.Fatalf("RecordTenant: %v", err)
	}

	state, err := flow.Advance(session.ID, 2)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if state.Step != 2 {
		t.Errorf("step = %d, want 2", state.Step)
	}

	// Movement is persisted before it is reported.
	stored, _ := db.GetOnboardingSession(session.ID)
	if stored.Step != 2 {
		t.Errorf("persisted step = %d, want 2", stored.Step)
	}
}

func TestRetreat(t *testing.T) {
	flow, db := newTestFlow(t)
	org := seedOrg(t, db, "org-ret")

	session, _ := flow.Start(models.RoleManager)
	flow.RecordTenant(session.ID, org)
	flow.Advance(session.ID, 3)

	state, err := flow.Retreat(session.ID, 2)
	if err != nil {
		t.Fatalf("Retreat: %v", err)
	}
	if state.Step != 2 {
		t.Errorf("step = %d, want 2", state.Step)
	}

	if _, err := flow.Retreat(session.ID, 3); !IsValidation(err) {
		t.Errorf("retreating forward should fail, got %v", err)
	}
}

func TestSetOwnerName(t *testing.T) {
	flow, db := newTestFlow(t)

	session, _ := flow.Start(models.RoleManager)
	state, err := flow.SetOwnerName(session.ID, "  Dana Kim  ")
	if err != nil {
		t.Fatalf("SetOwnerName: %v", err)
	}
	if state.OwnerName != "Dana Kim" {
		t.Errorf("owner name = %q", state.OwnerName)
	}

	stored, _ := db.GetOnboardingSession(session.ID)
	if stored.OwnerName != "Dana Kim" {
		t.Errorf("persisted owner name = %q", stored.OwnerName)
	}
}

func TestFinishActivatesAndClears(t *testing.T) {
	flow, db := newTestFlow(t)
	org := seedOrg(t, db, "org-fin")

	session, _ := flow.Start(models.RoleManager)
	flow.RecordTenant(session.ID, org)

	activated, err := flow.Finish(session.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if activated.Status != models.OrgStatusActive {
		t.Errorf("org status = %q, want active", activated.Status)
	}
	if _, err := db.GetOnboardingSession(session.ID); err != database.ErrNotFound {
		t.Errorf("session should be cleared, got %v", err)
	}
	if flow.Lock().Held(session.ID) {
		t.Error("finish should release the UI lock")
	}
}

func TestFinishWithoutTenantFails(t *testing.T) {
	flow, _ := newTestFlow(t)

	session, _ := flow.Start(models.RoleManager)
	if _, err := flow.Finish(session.ID); !IsValidation(err) {
		t.Fatalf("finish without tenant should fail, got %v", err)
	}
	// Lock releases regardless of outcome.
	if flow.Lock().Held(session.ID) {
		t.Error("lock should be released after finish attempt")
	}
}

func TestAbandonReleasesLock(t *testing.T) {
	flow, db := newTestFlow(t)

	session, _ := flow.Start(models.RoleManager)
	if err := flow.Abandon(session.ID); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if flow.Lock().Held(session.ID) {
		t.Error("abandon should release the UI lock")
	}
	if _, err := db.GetOnboardingSession(session.ID); err != database.ErrNotFound {
		t.Errorf("session should be deleted, got %v", err)
	}

	// Abandoning an already-gone session is fine.
	if err := flow.Abandon(session.ID); err != nil {
		t.Errorf("second abandon: %v", err)
	}
}

func TestResolveUnknownSession(t *testing.T) {
	flow, _ := newTestFlow(t)
	if _, err := flow.Resolve("nope", "", ""); err != ErrSessionNotFound {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestResolvePersistsRequestedStep(t *testing.T) {
	flow, db := newTestFlow(t)
	org := seedOrg(t, db, "org-step")

	session, _ := flow.Start(models.RoleManager)
	flow.RecordTenant(session.ID, org)

	if _, err := flow.Resolve(session.ID, "", "2"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	stored, _ := db.GetOnboardingSession(session.ID)
	if stored.Step != 2 {
		t.Errorf("persisted step = %d, want 2", stored.Step)
	}
	if stored.UpdatedAt.After(time.Now()) {
		t.Error("updated_at in the future")
	}
}
