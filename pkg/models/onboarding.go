package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OnboardingRole is the role chosen on the first onboarding screen.
// Only managers provision tenants today; the field is kept for future roles.
type OnboardingRole string

const (
	RoleUnset   OnboardingRole = ""
	RoleManager OnboardingRole = "manager"
)

// Onboarding steps. Step intent is monotonic but the user may navigate back.
const (
	StepCreate    = 1 // tenant creation (intent + commit)
	StepConfigure = 2 // optional configuration batch
	StepActivate  = 3 // checkout + confirmation
)

// OnboardingSession is the durable per-client record of onboarding progress.
// It is created lazily when the flow starts and destroyed on completion or
// explicit skip. OrganizationID and RestaurantCode are set once step 1 commits
// and are immutable within the session afterwards.
type OnboardingSession struct {
	ID             string         `json:"id" db:"id"`
	Role           OnboardingRole `json:"role" db:"role"`
	Step           int            `json:"step" db:"step"`
	OrganizationID string         `json:"organization_id,omitempty" db:"organization_id"`
	RestaurantCode string         `json:"restaurant_code,omitempty" db:"restaurant_code"`
	OwnerName      string         `json:"owner_name,omitempty" db:"owner_name"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// Corrupt reports whether the session needs recovery: a step past tenant
// creation with no tenant recorded.
func (s *OnboardingSession) Corrupt() bool {
	return s.Step > StepCreate && s.OrganizationID == ""
}

// OnboardingTokenClaims are the JWT claims carried by the onboarding session token.
type OnboardingTokenClaims struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role,omitempty"`
	Type      string `json:"type"` // always "onboarding"
	Exp       int64  `json:"exp"`
	Iat       int64  `json:"iat"`
}

// GetExpirationTime implements jwt.Claims.
func (c *OnboardingTokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt implements jwt.Claims.
func (c *OnboardingTokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

// GetNotBefore implements jwt.Claims.
func (c *OnboardingTokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims.
func (c *OnboardingTokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims.
func (c *OnboardingTokenClaims) GetSubject() (string, error) {
	return c.SessionID, nil
}

// GetAudience implements jwt.Claims.
func (c *OnboardingTokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
