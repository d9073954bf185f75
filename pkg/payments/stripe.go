package payments

import (
	"context"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"shiftline-backend/pkg/config"
	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/models"
)

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	conf *config.Config
	db   database.DatabaseInterface
	sc   *client.API
}

// NewStripeGateway builds a gateway using the configured secret key.
func NewStripeGateway(conf *config.Config, db database.DatabaseInterface) *StripeGateway {
	sc := &client.API{}
	sc.Init(conf.StripeSecretKey, nil)
	return &StripeGateway{conf: conf, db: db, sc: sc}
}

// https://stripe.com/docs/api/checkout/sessions/create
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, org *models.Organization, plan models.Plan) (*LaunchSession, error) {
	customerID, err := g.ensureCustomer(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stripe customer: %v", err)
	}

	// If the customer already carries a live subscription, checkout would
	// double-bill; hand back the billing portal instead.
	state, err := g.stateForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if state.Active {
		portalURL, err := g.portalURLForCustomer(ctx, customerID)
		if err != nil {
			return nil, err
		}
		return &LaunchSession{AlreadyBilled: true, PortalURL: portalURL}, nil
	}

	priceID := g.conf.PriceIDForPlan(string(plan))
	if priceID == "" {
		return nil, fmt.Errorf("no price configured for plan %v", plan)
	}

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(org.ID),
		SuccessURL:        stripe.String(g.conf.CheckoutSuccessURL + "?checkout=success&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(g.conf.CheckoutCancelURL),
	}

	session, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("checkout session create: %v", err)
	}

	return &LaunchSession{SessionID: session.ID, URL: session.URL}, nil
}

// https://stripe.com/docs/api/checkout/sessions/retrieve
func (g *StripeGateway) FinalizeCheckout(ctx context.Context, checkoutSessionID string) (*FinalizeResult, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}
	params.AddExpand("subscription")

	session, err := g.sc.CheckoutSessions.Get(checkoutSessionID, params)
	if err != nil {
		return nil, fmt.Errorf("checkout session get %v: %v", checkoutSessionID, err)
	}

	result := &FinalizeResult{
		Paid: session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if session.Customer != nil {
		result.CustomerID = session.Customer.ID
	}
	if session.Subscription != nil {
		result.SubscriptionID = session.Subscription.ID
		result.Status = string(session.Subscription.Status)
	}
	return result, nil
}

func (g *StripeGateway) SubscriptionState(ctx context.Context, org *models.Organization) (models.SubscriptionState, error) {
	if org.StripeCustomerID == "" {
		return models.SubscriptionState{Status: models.SubStatusNone}, nil
	}
	return g.stateForCustomer(ctx, org.StripeCustomerID)
}

func (g *StripeGateway) BillingPortalURL(ctx context.Context, org *models.Organization) (string, error) {
	if org.StripeCustomerID == "" {
		return "", fmt.Errorf("organization %v has no stripe customer", org.ID)
	}
	return g.portalURLForCustomer(ctx, org.StripeCustomerID)
}

// ensureCustomer propagates the tenant to Stripe once and records the id.
func (g *StripeGateway) ensureCustomer(ctx context.Context, org *models.Organization) (string, error) {
	if org.StripeCustomerID != "" {
		return org.StripeCustomerID, nil
	}

	customer, err := g.sc.Customers.New(&stripe.CustomerParams{
		Params:      stripe.Params{Context: ctx},
		Name:        stripe.String(org.Name),
		Description: stripe.String("restaurant " + org.RestaurantCode),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %v", err)
	}

	// push the customer id to the database immediately
	log.Printf("new stripe customer for org %v: %v", org.ID, customer.ID)
	org.StripeCustomerID = customer.ID
	if err := g.db.UpdateOrganization(org); err != nil {
		return customer.ID, fmt.Errorf("failed to persist customer id %v: %v", customer.ID, err)
	}

	return customer.ID, nil
}

// stateForCustomer derives the polled subscription view from the customer's
// subscription list.
func (g *StripeGateway) stateForCustomer(ctx context.Context, customerID string) (models.SubscriptionState, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	}
	params.AddExpand("subscriptions")

	customer, err := g.sc.Customers.Get(customerID, params)
	if err != nil {
		return models.SubscriptionState{}, fmt.Errorf("failed to get customer %v: %v", customerID, err)
	}

	if customer.Subscriptions == nil {
		return models.SubscriptionState{Status: models.SubStatusNone}, nil
	}
	for _, sub := range customer.Subscriptions.Data {
		switch sub.Status {
		case stripe.SubscriptionStatusActive:
			return models.StateFromStatus("active"), nil
		case stripe.SubscriptionStatusTrialing:
			return models.StateFromStatus("trialing"), nil
		}
	}
	if len(customer.Subscriptions.Data) > 0 {
		return models.StateFromStatus(string(customer.Subscriptions.Data[0].Status)), nil
	}
	return models.SubscriptionState{Status: models.SubStatusNone}, nil
}

// https://stripe.com/docs/api/customer_portal/sessions/create
func (g *StripeGateway) portalURLForCustomer(ctx context.Context, customerID string) (string, error) {
	session, err := g.sc.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.conf.BillingReturnURL),
	})
	if err != nil {
		return "", fmt.Errorf("billing portal session create: %v", err)
	}
	return session.URL, nil
}
