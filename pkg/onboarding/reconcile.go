package onboarding

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/models"
	"shiftline-backend/pkg/payments"
)

// CheckoutState is the activation step's state machine position.
type CheckoutState string

const (
	StateIdle             CheckoutState = "idle"
	StateAwaitingRedirect CheckoutState = "awaiting-redirect"
	StatePolling          CheckoutState = "polling"
	StateAwaitingCallback CheckoutState = "awaiting-callback"
	StateFinalizing       CheckoutState = "finalizing"
	StateStillConfirming  CheckoutState = "still-confirming"
	StateActivated        CheckoutState = "activated"
	StateCanceled         CheckoutState = "canceled"
	StateError            CheckoutState = "error"
	StateManageBilling    CheckoutState = "manage-billing"
)

// Launch branches reported by the client after opening checkout.
const (
	LaunchNewTab  = "new-tab"
	LaunchSameTab = "same-tab"
)

// CheckoutStatus is the snapshot returned to the client.
type CheckoutStatus struct {
	State             CheckoutState `json:"state"`
	Message           string        `json:"message,omitempty"`
	CheckoutSessionID string        `json:"checkout_session_id,omitempty"`
	PortalURL         string        `json:"portal_url,omitempty"`
	Plan              models.Plan   `json:"plan,omitempty"`
}

// checkoutFlow is the in-memory confirmation state for one onboarding session.
type checkoutFlow struct {
	mu                sync.Mutex
	state             CheckoutState
	message           string
	plan              models.Plan
	orgID             string
	checkoutSessionID string
	portalURL         string

	// settled flips once, on the first confirmation from either channel.
	// Everything after that is a no-op.
	settled bool
	// finalizing guards against concurrent finalize calls for the session.
	finalizing bool

	pollCancel   context.CancelFunc
	pollDone     chan struct{}
	advanceTimer *time.Timer
}

func (f *checkoutFlow) snapshot() *CheckoutStatus {
	return &CheckoutStatus{
		State:             f.state,
		Message:           f.message,
		CheckoutSessionID: f.checkoutSessionID,
		PortalURL:         f.portalURL,
		Plan:              f.plan,
	}
}

// Reconciler drives checkout confirmation over two channels: a background
// subscription poll for the new-tab branch and the redirect callback for the
// same-tab branch. Whichever channel confirms first settles the flow; the
// other is canceled.
type Reconciler struct {
	db   database.DatabaseInterface
	gw   payments.Gateway
	flow *FlowManager

	pollInterval    time.Duration
	pollMax         time.Duration
	finalizeTimeout time.Duration
	advanceDelay    time.Duration

	mu    sync.Mutex
	flows map[string]*checkoutFlow
}

// ReconcilerOptions are the reconciler's timing knobs, taken from config.
type ReconcilerOptions struct {
	PollInterval    time.Duration
	PollMaxDuration time.Duration
	FinalizeTimeout time.Duration
	AdvanceDelay    time.Duration
}

func NewReconciler(db database.DatabaseInterface, gw payments.Gateway, flow *FlowManager, opts ReconcilerOptions) *Reconciler {
	return &Reconciler{
		db:              db,
		gw:              gw,
		flow:            flow,
		pollInterval:    opts.PollInterval,
		pollMax:         opts.PollMaxDuration,
		finalizeTimeout: opts.FinalizeTimeout,
		advanceDelay:    opts.AdvanceDelay,
		flows:           map[string]*checkoutFlow{},
	}
}

func (r *Reconciler) flowFor(sessionID string) *checkoutFlow {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[sessionID]
	if !ok {
		f = &checkoutFlow{state: StateIdle}
		r.flows[sessionID] = f
	}
	return f
}

// StartCheckout opens a hosted checkout for the session's tenant, or detects
// existing billing and routes to the portal instead.
func (r *Reconciler) StartCheckout(ctx context.Context, sessionID string, plan models.Plan) (*payments.LaunchSession, error) {
	if !plan.Valid() {
		return nil, &ValidationError{Field: "plan", Message: "plan must be monthly or annual"}
	}

	session, err := r.flow.load(sessionID)
	if err != nil {
		return nil, err
	}
	if session.OrganizationID == "" {
		return nil, &ValidationError{Field: "session", Message: "create your restaurant before subscribing"}
	}
	org, err := r.db.GetOrganization(session.OrganizationID)
	if err != nil {
		return nil, &BackendError{Op: "load organization", Err: err}
	}

	launch, err := r.gw.CreateCheckoutSession(ctx, org, plan)
	if err != nil {
		return nil, &BackendError{Op: "create checkout session", Err: err}
	}

	f := r.flowFor(sessionID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plan = plan
	f.orgID = org.ID
	if launch.AlreadyBilled {
		f.state = StateManageBilling
		f.portalURL = launch.PortalURL
		f.message = "This restaurant already has an active subscription."
		return launch, nil
	}
	f.state = StateAwaitingRedirect
	f.checkoutSessionID = launch.SessionID
	f.message = ""
	return launch, nil
}

// ReportLaunch records which way the checkout page actually opened. A new tab
// arms the background poll watcher; a same-tab navigation means confirmation
// will arrive through the redirect callback.
func (r *Reconciler) ReportLaunch(sessionID, branch string) (*CheckoutStatus, error) {
	f := r.flowFor(sessionID)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateAwaitingRedirect {
		return nil, &ValidationError{Field: "state", Message: "no checkout awaiting launch"}
	}

	switch branch {
	case LaunchNewTab:
		f.state = StatePolling
		r.startWatcherLocked(f, sessionID)
	case LaunchSameTab:
		f.state = StateAwaitingCallback
	default:
		return nil, &ValidationError{Field: "branch", Message: "branch must be new-tab or same-tab"}
	}
	return f.snapshot(), nil
}

// startWatcherLocked spawns the poll loop. Caller holds f.mu. The first check
// fires immediately; later checks tick at pollInterval; a check already in
// flight suppresses the next tick instead of stacking requests. The whole
// watcher gives up quietly at pollMax.
func (r *Reconciler) startWatcherLocked(f *checkoutFlow, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.pollMax)
	done := make(chan struct{})
	f.pollCancel = cancel
	f.pollDone = done
	orgID := f.orgID

	go func() {
		defer close(done)
		defer cancel()

		var inFlight atomic.Bool
		check := func() {
			if !inFlight.CompareAndSwap(false, true) {
				return
			}
			defer inFlight.Store(false)

			org, err := r.db.GetOrganization(orgID)
			if err != nil {
				log.Printf("subscription watcher %v: %v", sessionID, err)
				return
			}
			state, err := r.gw.SubscriptionState(ctx, org)
			if err != nil {
				log.Printf("subscription watcher %v: %v", sessionID, err)
				return
			}
			if state.Active {
				r.settleFromPoll(sessionID, f, state)
				cancel()
			}
		}

		check()
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.watcherExpired(f)
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// watcherExpired moves an unconfirmed poll onto the manual retry path.
func (r *Reconciler) watcherExpired(f *checkoutFlow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settled || f.state != StatePolling {
		return
	}
	f.state = StateStillConfirming
	f.message = "We haven't seen your payment yet. If you completed checkout, try confirming again."
}

// settleFromPoll is the poll channel winning the race: record the
// subscription, mark settled, and finish setup without waiting for a callback.
func (r *Reconciler) settleFromPoll(sessionID string, f *checkoutFlow, state models.SubscriptionState) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.state = StateActivated
	f.message = ""
	orgID := f.orgID
	plan := f.plan
	checkoutID := f.checkoutSessionID
	f.mu.Unlock()

	if err := r.db.UpsertSubscription(&models.Subscription{
		OrganizationID:        orgID,
		Plan:                  plan,
		Status:                state.Status,
		StripeCheckoutSession: checkoutID,
		UpdatedAt:             time.Now(),
	}); err != nil {
		log.Printf("failed to record subscription for org %v: %v", orgID, err)
	}

	if _, err := r.flow.Finish(sessionID); err != nil {
		log.Printf("failed to finish onboarding %v after poll confirmation: %v", sessionID, err)
	}
}

// HandleCallback processes the redirect landing. Cancel is a quiet terminal
// state, never an error. Success must carry the checkout session id. Each
// distinct (outcome, session id, intent id) tuple finalizes at most once, and
// nothing finalizes after the poll channel has already settled the flow.
func (r *Reconciler) HandleCallback(ctx context.Context, sessionID, outcome, checkoutSessionID, intentID string) (*CheckoutStatus, error) {
	f := r.flowFor(sessionID)

	switch outcome {
	case "cancel":
		f.mu.Lock()
		defer f.mu.Unlock()
		r.stopTimersLocked(f)
		if !f.settled {
			f.state = StateCanceled
			f.message = "Checkout canceled. You can subscribe whenever you're ready."
		}
		return f.snapshot(), nil
	case "success":
	default:
		return nil, &ValidationError{Field: "checkout", Message: "unknown checkout outcome"}
	}

	if checkoutSessionID == "" {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.state = StateError
		f.message = "Checkout returned without a session reference. Please try again."
		return f.snapshot(), &ValidationError{Field: "session_id", Message: "missing checkout session id"}
	}

	token := strings.Join([]string{outcome, checkoutSessionID, intentID}, "|")
	first, err := r.db.MarkCallbackHandled(sessionID, token)
	if err != nil {
		return nil, &BackendError{Op: "record callback", Err: err}
	}
	if !first {
		// Duplicate delivery (reload, double navigation). The first one owns
		// the finalize; just report where things stand.
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.snapshot(), nil
	}

	f.mu.Lock()
	if f.settled {
		snap := f.snapshot()
		f.mu.Unlock()
		return snap, nil
	}
	f.mu.Unlock()

	return r.finalize(ctx, sessionID, f, checkoutSessionID)
}

// RetryFinalize re-runs confirmation for a session stuck in still-confirming.
// It reuses the stored checkout session id and bypasses callback dedupe, which
// only guards deliveries of the redirect itself.
func (r *Reconciler) RetryFinalize(ctx context.Context, sessionID string) (*CheckoutStatus, error) {
	f := r.flowFor(sessionID)
	f.mu.Lock()
	checkoutID := f.checkoutSessionID
	f.mu.Unlock()
	if checkoutID == "" {
		return nil, &ValidationError{Field: "checkout", Message: "no checkout session to confirm"}
	}
	return r.finalize(ctx, sessionID, f, checkoutID)
}

// finalize reconciles one checkout session with the processor under a
// deadline, re-reads the subscription state before claiming success, and on
// success schedules the delayed completion so the client sees the
// confirmation screen first.
func (r *Reconciler) finalize(ctx context.Context, sessionID string, f *checkoutFlow, checkoutSessionID string) (*CheckoutStatus, error) {
	f.mu.Lock()
	if f.settled {
		snap := f.snapshot()
		f.mu.Unlock()
		return snap, nil
	}
	if f.finalizing {
		snap := f.snapshot()
		f.mu.Unlock()
		return snap, nil
	}
	f.finalizing = true
	f.state = StateFinalizing
	f.message = ""
	f.checkoutSessionID = checkoutSessionID
	orgID := f.orgID
	plan := f.plan
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.finalizing = false
		f.mu.Unlock()
	}()

	fctx, cancel := context.WithTimeout(ctx, r.finalizeTimeout)
	defer cancel()

	result, err := r.gw.FinalizeCheckout(fctx, checkoutSessionID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || fctx.Err() != nil {
			return r.stillConfirming(f, "Confirmation is taking longer than expected. Try again in a moment."),
				&TimeoutError{Op: "checkout confirmation"}
		}
		return r.stillConfirming(f, "We couldn't confirm your payment. Please try again."),
			&BackendError{Op: "finalize checkout", Err: err}
	}
	if !result.Paid {
		return r.stillConfirming(f, "Your payment hasn't been confirmed yet. Try again in a moment."), nil
	}

	org, err := r.db.GetOrganization(orgID)
	if err != nil {
		return r.stillConfirming(f, "We couldn't confirm your payment. Please try again."),
			&BackendError{Op: "load organization", Err: err}
	}
	if result.CustomerID != "" && org.StripeCustomerID == "" {
		org.StripeCustomerID = result.CustomerID
		if err := r.db.UpdateOrganization(org); err != nil {
			log.Printf("failed to persist customer id for org %v: %v", orgID, err)
		}
	}

	// Never claim activation on the checkout record alone. The subscription
	// itself must read active before the flow settles.
	state, err := r.gw.SubscriptionState(ctx, org)
	if err != nil {
		return r.stillConfirming(f, "We couldn't confirm your subscription. Please try again."),
			&BackendError{Op: "read subscription state", Err: err}
	}
	if !state.Active {
		return r.stillConfirming(f, "Your subscription isn't active yet. Try again in a moment."), nil
	}

	if err := r.db.UpsertSubscription(&models.Subscription{
		OrganizationID:        orgID,
		Plan:                  plan,
		Status:                state.Status,
		StripeSubscriptionID:  result.SubscriptionID,
		StripeCheckoutSession: checkoutSessionID,
		UpdatedAt:             time.Now(),
	}); err != nil {
		log.Printf("failed to record subscription for org %v: %v", orgID, err)
	}

	f.mu.Lock()
	if f.settled {
		snap := f.snapshot()
		f.mu.Unlock()
		return snap, nil
	}
	f.settled = true
	f.state = StateActivated
	f.message = ""
	if f.pollCancel != nil {
		f.pollCancel()
	}
	f.advanceTimer = time.AfterFunc(r.advanceDelay, func() {
		if _, err := r.flow.Finish(sessionID); err != nil {
			log.Printf("failed to finish onboarding %v after activation: %v", sessionID, err)
		}
	})
	snap := f.snapshot()
	f.mu.Unlock()

	log.Printf("onboarding %v activated via checkout session %v", sessionID, checkoutSessionID)
	return snap, nil
}

func (r *Reconciler) stillConfirming(f *checkoutFlow, message string) *CheckoutStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settled {
		return f.snapshot()
	}
	f.state = StateStillConfirming
	f.message = message
	return f.snapshot()
}

// Status returns the current confirmation snapshot for the session.
func (r *Reconciler) Status(sessionID string) *CheckoutStatus {
	f := r.flowFor(sessionID)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

// Detach tears down all background work for the session: the poll watcher,
// its deadline, and any pending completion timer. Called when the client
// leaves the activation step. Blocks until the watcher goroutine has exited.
func (r *Reconciler) Detach(sessionID string) {
	r.mu.Lock()
	f, ok := r.flows[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}

	f.mu.Lock()
	r.stopTimersLocked(f)
	done := f.pollDone
	f.pollDone = nil
	f.mu.Unlock()

	if done != nil {
		<-done
	}
}

// stopTimersLocked cancels the watcher and the advance timer. Caller holds f.mu.
func (r *Reconciler) stopTimersLocked(f *checkoutFlow) {
	if f.pollCancel != nil {
		f.pollCancel()
		f.pollCancel = nil
	}
	if f.advanceTimer != nil {
		f.advanceTimer.Stop()
		f.advanceTimer = nil
	}
}
