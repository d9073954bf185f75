package database

import (
	"testing"
	"time"

	"shiftline-backend/pkg/models"
)

func newTestDB(t *testing.T) DatabaseInterface {
	t.Helper()
	return NewLocalDatabase(t.TempDir())
}

func TestConsumeIntentSingleUse(t *testing.T) {
	db := newTestDB(t)

	intent := &models.CreationIntent{
		ID:        "intent-1",
		Name:      "Casa Verde",
		Status:    models.IntentPending,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}
	if err := db.CreateIntent(intent); err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	if err := db.ConsumeIntent("intent-1"); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if err := db.ConsumeIntent("intent-1"); err != ErrConsumed {
		t.Fatalf("second consume should return ErrConsumed, got %v", err)
	}
	if err := db.ConsumeIntent("missing"); err != ErrNotFound {
		t.Fatalf("unknown intent should return ErrNotFound, got %v", err)
	}

	stored, err := db.GetIntent("intent-1")
	if err != nil {
		t.Fatalf("GetIntent: %v", err)
	}
	if stored.Status != models.IntentCommitted {
		t.Errorf("status = %q, want committed", stored.Status)
	}
}

func TestMarkCallbackHandledFirstDelivery(t *testing.T) {
	db := newTestDB(t)

	first, err := db.MarkCallbackHandled("sess-1", "success|cs_1|intent-1")
	if err != nil {
		t.Fatalf("MarkCallbackHandled: %v", err)
	}
	if !first {
		t.Error("first delivery should report first=true")
	}

	first, err = db.MarkCallbackHandled("sess-1", "success|cs_1|intent-1")
	if err != nil {
		t.Fatalf("MarkCallbackHandled: %v", err)
	}
	if first {
		t.Error("duplicate delivery should report first=false")
	}

	// A different tuple for the same session is a distinct delivery.
	first, _ = db.MarkCallbackHandled("sess-1", "success|cs_2|intent-1")
	if !first {
		t.Error("different token should be first again")
	}
	// Same tuple for a different session too.
	first, _ = db.MarkCallbackHandled("sess-2", "success|cs_1|intent-1")
	if !first {
		t.Error("different session should be first again")
	}
}

func TestCreateStaffAccountDuplicate(t *testing.T) {
	db := newTestDB(t)

	a := &models.StaffAccount{OrganizationID: "org-1", Name: "Ana", Email: "ana@example.com"}
	if err := db.CreateStaffAccount(a); err != nil {
		t.Fatalf("CreateStaffAccount: %v", err)
	}
	dup := &models.StaffAccount{OrganizationID: "org-1", Name: "Ana Again", Email: "ana@example.com"}
	if err := db.CreateStaffAccount(dup); err != ErrDuplicate {
		t.Fatalf("duplicate email should return ErrDuplicate, got %v", err)
	}
	// The same email in another tenant is fine.
	other := &models.StaffAccount{OrganizationID: "org-2", Name: "Ana", Email: "ana@example.com"}
	if err := db.CreateStaffAccount(other); err != nil {
		t.Fatalf("cross-tenant email should be allowed: %v", err)
	}
}

func TestGetOrganizationByStripeCustomer(t *testing.T) {
	db := newTestDB(t)

	org := &models.Organization{
		ID:               "org-1",
		Name:             "Testaurant",
		RestaurantCode:   "RST-XYZ789",
		Status:           models.OrgStatusProvisioning,
		StripeCustomerID: "cus_42",
	}
	if err := db.CreateOrganization(org); err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}

	found, err := db.GetOrganizationByStripeCustomer("cus_42")
	if err != nil {
		t.Fatalf("GetOrganizationByStripeCustomer: %v", err)
	}
	if found.ID != "org-1" {
		t.Errorf("found org %q, want org-1", found.ID)
	}

	if _, err := db.GetOrganizationByStripeCustomer("cus_unknown"); err != ErrNotFound {
		t.Errorf("unknown customer should return ErrNotFound, got %v", err)
	}
	if _, err := db.GetOrganizationByStripeCustomer(""); err != ErrNotFound {
		t.Errorf("empty customer id should return ErrNotFound, got %v", err)
	}
}

func TestUpsertSubscriptionKeepsCreatedAt(t *testing.T) {
	db := newTestDB(t)

	sub := &models.Subscription{OrganizationID: "org-1", Plan: models.PlanMonthly, Status: models.SubStatusTrialing}
	if err := db.UpsertSubscription(sub); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}
	created := sub.CreatedAt

	update := &models.Subscription{OrganizationID: "org-1", Plan: models.PlanMonthly, Status: models.SubStatusActive}
	if err := db.UpsertSubscription(update); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}

	stored, err := db.GetSubscription("org-1")
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if stored.Status != models.SubStatusActive {
		t.Errorf("status = %q, want active", stored.Status)
	}
	if !stored.CreatedAt.Equal(created) {
		t.Errorf("created_at changed on upsert: %v -> %v", created, stored.CreatedAt)
	}
}

func TestOnboardingSessionRoundTrip(t *testing.T) {
	db := newTestDB(t)

	s := &models.OnboardingSession{ID: "sess-1", Role: models.RoleManager, Step: 2, OrganizationID: "org-1"}
	if err := db.SaveOnboardingSession(s); err != nil {
		t.Fatalf("SaveOnboardingSession: %v", err)
	}

	stored, err := db.GetOnboardingSession("sess-1")
	if err != nil {
		t.Fatalf("GetOnboardingSession: %v", err)
	}
	if stored.Step != 2 || stored.Role != models.RoleManager {
		t.Errorf("stored = %+v", stored)
	}

	if err := db.DeleteOnboardingSession("sess-1"); err != nil {
		t.Fatalf("DeleteOnboardingSession: %v", err)
	}
	if _, err := db.GetOnboardingSession("sess-1"); err != ErrNotFound {
		t.Errorf("deleted session should be gone, got %v", err)
	}
	if err := db.DeleteOnboardingSession("sess-1"); err != ErrNotFound {
		t.Errorf("double delete should return ErrNotFound, got %v", err)
	}
}
