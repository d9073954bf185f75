package onboarding

import (
	"strconv"

	"shiftline-backend/pkg/models"
)

// Legacy step aliases kept so bookmarked onboarding URLs from earlier
// releases still land on the right screen.
var stepAliases = map[string]int{
	"settings":     models.StepConfigure,
	"hours":        models.StepConfigure,
	"core":         models.StepConfigure,
	"staff":        models.StepActivate,
	"subscription": models.StepActivate,
	"billing":      models.StepActivate,
}

// ParseStep maps a raw step parameter to a step number. Unknown or missing
// values default to step 1. Kept pure so alias handling is testable on its own.
func ParseStep(raw string) int {
	if raw == "" {
		return models.StepCreate
	}
	if step, ok := stepAliases[raw]; ok {
		return step
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= models.StepCreate && n <= models.StepActivate {
		return n
	}
	return models.StepCreate
}

// ParseRole maps a raw role parameter to a known role; anything else is unset.
func ParseRole(raw string) models.OnboardingRole {
	if raw == string(models.RoleManager) {
		return models.RoleManager
	}
	return models.RoleUnset
}

// View names the single screen rendered for a role/step pair.
func View(role models.OnboardingRole, step int) string {
	if role == models.RoleUnset {
		return "role-selection"
	}
	switch step {
	case models.StepConfigure:
		return "step-2"
	case models.StepActivate:
		return "step-3"
	default:
		return "step-1"
	}
}
