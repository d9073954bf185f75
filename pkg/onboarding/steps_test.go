package onboarding

import (
	"testing"

	"shiftline-backend/pkg/models"
)

func TestParseStep(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"1", 1},
		{"2", 2},
		{"3", 3},
		{"0", 1},
		{"4", 1},
		{"-1", 1},
		{"abc", 1},
		{"settings", 2},
		{"hours", 2},
		{"core", 2},
		{"staff", 3},
		{"subscription", 3},
		{"billing", 3},
	}
	for _, c := range cases {
		if got := ParseStep(c.raw); got != c.want {
			t.Errorf("ParseStep(%q) = %d, want %d", c.raw, got, c.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if got := ParseRole("manager"); got != models.RoleManager {
		t.Errorf("ParseRole(manager) = %q", got)
	}
	if got := ParseRole("owner"); got != models.RoleUnset {
		t.Errorf("ParseRole(owner) = %q, want unset", got)
	}
	if got := ParseRole(""); got != models.RoleUnset {
		t.Errorf("ParseRole(empty) = %q, want unset", got)
	}
}

func TestView(t *testing.T) {
	if got := View(models.RoleUnset, 3); got != "role-selection" {
		t.Errorf("unset role should render role selection, got %q", got)
	}
	if got := View(models.RoleManager, 1); got != "step-1" {
		t.Errorf("View(manager, 1) = %q", got)
	}
	if got := View(models.RoleManager, 2); got != "step-2" {
		t.Errorf("View(manager, 2) = %q", got)
	}
	if got := View(models.RoleManager, 3); got != "step-3" {
		t.Errorf("View(manager, 3) = %q", got)
	}
}
