package models

import "testing"

func TestStateFromStatus(t *testing.T) {
	cases := []struct {
		raw    string
		status SubscriptionStatus
		active bool
	}{
		{"active", SubStatusActive, true},
		{"trialing", SubStatusTrialing, true},
		{"none", SubStatusNone, false},
		{"", SubStatusNone, false},
		{"past_due", SubStatusOther, false},
		{"canceled", SubStatusOther, false},
	}
	for _, c := range cases {
		got := StateFromStatus(c.raw)
		if got.Status != c.status || got.Active != c.active {
			t.Errorf("StateFromStatus(%q) = %+v, want {%s %v}", c.raw, got, c.status, c.active)
		}
	}
}

func TestPlanValid(t *testing.T) {
	if !PlanMonthly.Valid() || !PlanAnnual.Valid() {
		t.Error("known plans should be valid")
	}
	if Plan("weekly").Valid() || Plan("").Valid() {
		t.Error("unknown plans should be invalid")
	}
}

func TestSessionCorrupt(t *testing.T) {
	s := &OnboardingSession{Step: StepConfigure}
	if !s.Corrupt() {
		t.Error("step 2 without a tenant is corrupt")
	}
	s.OrganizationID = "org-1"
	if s.Corrupt() {
		t.Error("step 2 with a tenant is fine")
	}
	s = &OnboardingSession{Step: StepCreate}
	if s.Corrupt() {
		t.Error("step 1 is never corrupt")
	}
}
