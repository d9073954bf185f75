package models

import "time"

// SubscriptionStatus mirrors the payment processor's subscription states.
type SubscriptionStatus string

const (
	SubStatusNone     SubscriptionStatus = "none"
	SubStatusTrialing SubscriptionStatus = "trialing"
	SubStatusActive   SubscriptionStatus = "active"
	SubStatusOther    SubscriptionStatus = "other"
)

// Plan is the billing interval chosen at checkout.
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanAnnual  Plan = "annual"
)

// Valid reports whether the plan is one the checkout launcher accepts.
func (p Plan) Valid() bool {
	return p == PlanMonthly || p == PlanAnnual
}

// Subscription is the stored subscription record for a tenant, fed by checkout
// finalization and by processor webhooks.
type Subscription struct {
	OrganizationID        string             `json:"organization_id" db:"organization_id"`
	Plan                  Plan               `json:"plan,omitempty" db:"plan"`
	Status                SubscriptionStatus `json:"status" db:"status"`
	StripeSubscriptionID  string             `json:"stripe_subscription_id,omitempty" db:"stripe_subscription_id"`
	StripeCheckoutSession string             `json:"stripe_checkout_session,omitempty" db:"stripe_checkout_session"`
	CreatedAt             time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at" db:"updated_at"`
}

// SubscriptionState is the derived view the orchestrator polls. The client
// never writes it directly.
type SubscriptionState struct {
	Status SubscriptionStatus `json:"status"`
	Active bool               `json:"active"`
}

// StateFromStatus derives the polled view from a raw processor status string.
func StateFromStatus(raw string) SubscriptionState {
	switch SubscriptionStatus(raw) {
	case SubStatusActive:
		return SubscriptionState{Status: SubStatusActive, Active: true}
	case SubStatusTrialing:
		return SubscriptionState{Status: SubStatusTrialing, Active: true}
	case SubStatusNone, "":
		return SubscriptionState{Status: SubStatusNone}
	default:
		return SubscriptionState{Status: SubStatusOther}
	}
}
