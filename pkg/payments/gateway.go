package payments

import (
	"context"

	"shiftline-backend/pkg/models"
)

// LaunchSession is the outcome of asking the processor for a checkout page.
type LaunchSession struct {
	// SessionID identifies the hosted checkout session at the processor.
	SessionID string `json:"session_id,omitempty"`
	// URL is the external checkout page the client should open.
	URL string `json:"url,omitempty"`
	// AlreadyBilled signals the tenant has billing state elsewhere; the client
	// is sent to PortalURL instead of a new checkout.
	AlreadyBilled bool   `json:"already_billed,omitempty"`
	PortalURL     string `json:"portal_url,omitempty"`
}

// FinalizeResult reports whether a completed checkout session is paid and
// what subscription it produced.
type FinalizeResult struct {
	Paid           bool
	CustomerID     string
	SubscriptionID string
	Status         string // raw processor subscription status
}

// Gateway is the payment-processor boundary. The confirmation reconciler and
// the checkout handlers depend on this interface, not on Stripe directly.
type Gateway interface {
	// CreateCheckoutSession opens a hosted checkout for the tenant, or reports
	// that billing already exists and hands back a management URL instead.
	CreateCheckoutSession(ctx context.Context, org *models.Organization, plan models.Plan) (*LaunchSession, error)

	// FinalizeCheckout reconciles a returned checkout session with the
	// processor. Safe to call repeatedly for the same session id.
	FinalizeCheckout(ctx context.Context, checkoutSessionID string) (*FinalizeResult, error)

	// SubscriptionState reads the tenant's current subscription standing.
	SubscriptionState(ctx context.Context, org *models.Organization) (models.SubscriptionState, error)

	// BillingPortalURL returns the out-of-band billing management page.
	BillingPortalURL(ctx context.Context, org *models.Organization) (string, error)
}
