package onboarding

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/models"
	"shiftline-backend/pkg/utils"
)

// intentTTL bounds how long a reserved name stays committable.
const intentTTL = 30 * time.Minute

// IntentService implements two-phase tenant creation: reserve an intent, then
// commit it exactly once into a real organization.
type IntentService struct {
	db   database.DatabaseInterface
	flow *FlowManager
}

func NewIntentService(db database.DatabaseInterface, flow *FlowManager) *IntentService {
	return &IntentService{db: db, flow: flow}
}

// CreateIntent reserves a tenant-creation request. Only the name is required.
func (s *IntentService) CreateIntent(name, location, timezone string) (*models.CreationIntent, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "restaurant name is required"}
	}

	now := time.Now()
	intent := &models.CreationIntent{
		ID:        uuid.New().String(),
		Name:      name,
		Location:  strings.TrimSpace(location),
		Timezone:  strings.TrimSpace(timezone),
		Status:    models.IntentPending,
		CreatedAt: now,
		ExpiresAt: now.Add(intentTTL),
	}
	if err := s.db.CreateIntent(intent); err != nil {
		return nil, &BackendError{Op: "create intent", Err: err}
	}
	return intent, nil
}

// CommitIntent consumes a pending intent and materializes the organization.
// The onboarding session is updated with the new tenant before the caller is
// allowed to advance, so a crash after commit still resolves to a consistent
// flow. deferBillingCheck skips the stored-subscription lookup for the normal
// onboarding path where step 3 owns billing.
func (s *IntentService) CommitIntent(sessionID, intentID string, deferBillingCheck bool) (*models.Organization, error) {
	intent, err := s.db.GetIntent(intentID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, &BackendError{Op: "load intent", Err: err}
	}
	if intent.Expired(time.Now()) {
		return nil, ErrIntentNotFound
	}

	// Consume before creating anything. A second commit of the same intent
	// stops here instead of minting a duplicate tenant.
	if err := s.db.ConsumeIntent(intentID); err != nil {
		if errors.Is(err, database.ErrNotFound) || errors.Is(err, database.ErrConsumed) {
			return nil, ErrIntentNotFound
		}
		return nil, &BackendError{Op: "consume intent", Err: err}
	}

	session, err := s.flow.load(sessionID)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateRestaurantCode()
	if err != nil {
		return nil, &BackendError{Op: "generate restaurant code", Err: err}
	}

	now := time.Now()
	org := &models.Organization{
		ID:             uuid.New().String(),
		Name:           intent.Name,
		Location:       intent.Location,
		Timezone:       intent.Timezone,
		RestaurantCode: code,
		OwnerName:      session.OwnerName,
		Status:         models.OrgStatusProvisioning,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.CreateOrganization(org); err != nil {
		return nil, &BackendError{Op: "create organization", Err: err}
	}
	log.Printf("organization %v created from intent %v (code %v)", org.ID, intentID, org.RestaurantCode)

	if !deferBillingCheck {
		// Re-commit of a tenant that somehow carries billing already: reflect
		// it instead of leaving the org in provisioning forever.
		if sub, err := s.db.GetSubscription(org.ID); err == nil && sub.Status == models.SubStatusActive {
			org.Status = models.OrgStatusActive
			if err := s.db.UpdateOrganization(org); err != nil {
				return nil, &BackendError{Op: "update organization", Err: err}
			}
		}
	}

	if _, err := s.flow.RecordTenant(sessionID, org); err != nil {
		return nil, err
	}
	return org, nil
}
