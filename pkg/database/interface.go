package database

import (
	"errors"
	"fmt"

	"shiftline-backend/pkg/models"
)

// Sentinel errors shared by all implementations. Callers branch on these to
// distinguish recoverable outcomes (duplicate staff email, consumed intent)
// from real failures.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	ErrConsumed  = errors.New("intent already consumed")
)

// DatabaseInterface is the persistence contract for the onboarding service.
type DatabaseInterface interface {
	// Onboarding sessions
	SaveOnboardingSession(s *models.OnboardingSession) error
	GetOnboardingSession(id string) (*models.OnboardingSession, error)
	DeleteOnboardingSession(id string) error

	// Creation intents
	CreateIntent(intent *models.CreationIntent) error
	GetIntent(id string) (*models.CreationIntent, error)
	// ConsumeIntent flips a pending intent to committed. It fails with
	// ErrConsumed when the intent was committed before and ErrNotFound when it
	// never existed, so commit is single-use.
	ConsumeIntent(id string) error

	// Organizations
	CreateOrganization(org *models.Organization) error
	GetOrganization(id string) (*models.Organization, error)
	// GetOrganizationByStripeCustomer resolves webhook events that only carry
	// the processor's customer id.
	GetOrganizationByStripeCustomer(customerID string) (*models.Organization, error)
	UpdateOrganization(org *models.Organization) error

	// Configuration saves (each independent; see the onboarding batch)
	SaveScheduleSettings(s *models.ScheduleSettings) error
	SaveOperatingHours(h *models.OperatingHours) error
	SaveCoreHours(h *models.CoreHours) error

	// Staff
	CreateStaffAccount(a *models.StaffAccount) error // ErrDuplicate on email conflict
	SaveStaffDrafts(snap *models.StaffDraftSnapshot) error
	GetStaffDrafts(orgID string) (*models.StaffDraftSnapshot, error)

	// Checkout confirmation bookkeeping
	// MarkCallbackHandled records a callback token for a session and reports
	// whether this was the first delivery of that token.
	MarkCallbackHandled(sessionID, token string) (first bool, err error)
	UpsertSubscription(sub *models.Subscription) error
	GetSubscription(orgID string) (*models.Subscription, error)

	HealthCheck() error
	Close() error
}

// DatabaseConfig selects and configures an implementation.
type DatabaseConfig struct {
	UseLocalDB  bool
	DataDir     string
	PostgresDSN string
	Debug       bool
}

// NewDatabase picks the implementation for the given config.
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	if config.PostgresDSN != "" && !config.UseLocalDB {
		fmt.Printf("database: using PostgreSQL\n")
		return NewPostgresDatabase(config.PostgresDSN)
	}

	fmt.Printf("database: using local file store at %s\n", config.DataDir)
	return NewLocalDatabase(config.DataDir)
}
