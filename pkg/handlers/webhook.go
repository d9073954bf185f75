package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"

	"shiftline-backend/pkg/config"
	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/models"
	"shiftline-backend/pkg/utils"
)

// WebhookHandler ingests Stripe events. Webhooks are the out-of-band
// confirmation channel: they keep the stored subscription record honest even
// when the client never came back from checkout.
type WebhookHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

func NewWebhookHandler(cfg *config.Config, db database.DatabaseInterface) *WebhookHandler {
	return &WebhookHandler{config: cfg, db: db}
}

// POST /api/webhooks/stripe
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteBadRequestResponse(w, "Failed to read request body")
		return
	}

	event, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), h.config.StripeWebhookSecret)
	if err != nil {
		fmt.Printf("stripe webhook signature rejected: %v\n", err)
		utils.WriteUnauthorizedResponse(w, "Invalid webhook signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		err = h.handleCheckoutCompleted(event)
	case "customer.subscription.created", "customer.subscription.updated":
		err = h.handleSubscriptionChanged(event)
	case "customer.subscription.deleted":
		err = h.handleSubscriptionDeleted(event)
	default:
		utils.WriteSuccessResponse(w, map[string]string{"status": "ignored"})
		return
	}

	if err != nil {
		fmt.Printf("stripe webhook %s failed: %v\n", event.Type, err)
		utils.WriteInternalServerErrorResponse(w, "Failed to process webhook")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"status": "processed"})
}

// handleCheckoutCompleted records the subscription produced by a finished
// checkout. client_reference_id carries our organization id.
func (h *WebhookHandler) handleCheckoutCompleted(event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	orgID := session.ClientReferenceID
	if orgID == "" {
		return fmt.Errorf("checkout session %s has no client reference", session.ID)
	}

	sub := &models.Subscription{
		OrganizationID:        orgID,
		Status:                models.SubStatusActive,
		StripeCheckoutSession: session.ID,
		UpdatedAt:             time.Now(),
	}
	if session.Subscription != nil {
		sub.StripeSubscriptionID = session.Subscription.ID
		sub.Status = models.StateFromStatus(string(session.Subscription.Status)).Status
	}
	if existing, err := h.db.GetSubscription(orgID); err == nil {
		sub.Plan = existing.Plan
	}

	if err := h.db.UpsertSubscription(sub); err != nil {
		return err
	}
	fmt.Printf("subscription recorded for org %s from checkout %s\n", orgID, session.ID)
	return nil
}

// handleSubscriptionChanged mirrors processor-side status changes into the
// stored record. The organization is resolved by its Stripe customer id.
func (h *WebhookHandler) handleSubscriptionChanged(event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	org, err := h.orgForSubscription(&subscription)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Tenant not provisioned through this service; nothing to update.
			fmt.Printf("no organization for stripe customer on subscription %s, skipping\n", subscription.ID)
			return nil
		}
		return err
	}

	state := models.StateFromStatus(string(subscription.Status))
	sub := &models.Subscription{
		OrganizationID:       org.ID,
		Status:               state.Status,
		StripeSubscriptionID: subscription.ID,
		UpdatedAt:            time.Now(),
	}
	if existing, err := h.db.GetSubscription(org.ID); err == nil {
		sub.Plan = existing.Plan
		sub.StripeCheckoutSession = existing.StripeCheckoutSession
	}
	return h.db.UpsertSubscription(sub)
}

// handleSubscriptionDeleted downgrades the stored record when the processor
// ends the subscription.
func (h *WebhookHandler) handleSubscriptionDeleted(event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	org, err := h.orgForSubscription(&subscription)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return err
	}

	sub := &models.Subscription{
		OrganizationID:       org.ID,
		Status:               models.SubStatusNone,
		StripeSubscriptionID: subscription.ID,
		UpdatedAt:            time.Now(),
	}
	if existing, err := h.db.GetSubscription(org.ID); err == nil {
		sub.Plan = existing.Plan
		sub.StripeCheckoutSession = existing.StripeCheckoutSession
	}
	return h.db.UpsertSubscription(sub)
}

func (h *WebhookHandler) orgForSubscription(subscription *stripe.Subscription) (*models.Organization, error) {
	if subscription.Customer == nil {
		return nil, database.ErrNotFound
	}
	return h.db.GetOrganizationByStripeCustomer(subscription.Customer.ID)
}
