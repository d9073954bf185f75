package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"shiftline-backend/pkg/models"
)

// LocalDatabase is a file-backed implementation for development and tests.
// One JSON file per record family; a single mutex serializes access because
// the confirmation watcher reads while handlers write.
type LocalDatabase struct {
	dataDir string
	mu      sync.Mutex
}

// NewLocalDatabase creates a local database rooted at dataDir.
func NewLocalDatabase(dataDir string) DatabaseInterface {
	if dataDir == "" {
		dataDir = "./data"
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fmt.Printf("Warning: failed to create data directory: %v\n", err)
		dataDir = filepath.Join(os.TempDir(), "shiftline-data")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			fmt.Printf("Warning: failed to create temp data directory: %v\n", err)
			dataDir = "."
		}
	}

	return &LocalDatabase{dataDir: dataDir}
}

// ==== onboarding sessions ====

func (db *LocalDatabase) SaveOnboardingSession(s *models.OnboardingSession) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	sessions, err := loadMap[models.OnboardingSession](db.path("onboarding_sessions.json"))
	if err != nil {
		return err
	}
	sessions[s.ID] = *s
	return saveMap(db.path("onboarding_sessions.json"), sessions)
}

func (db *LocalDatabase) GetOnboardingSession(id string) (*models.OnboardingSession, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	sessions, err := loadMap[models.OnboardingSession](db.path("onboarding_sessions.json"))
	if err != nil {
		return nil, err
	}
	s, ok := sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (db *LocalDatabase) DeleteOnboardingSession(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	sessions, err := loadMap[models.OnboardingSession](db.path("onboarding_sessions.json"))
	if err != nil {
		return err
	}
	if _, ok := sessions[id]; !ok {
		return ErrNotFound
	}
	delete(sessions, id)
	return saveMap(db.path("onboarding_sessions.json"), sessions)
}

// ==== creation intents ====

func (db *LocalDatabase) CreateIntent(intent *models.CreationIntent) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if intent.ID == "" {
		intent.ID = uuid.New().String()
	}
	intent.CreatedAt = time.Now()

	intents, err := loadMap[models.CreationIntent](db.path("intents.json"))
	if err != nil {
		return err
	}
	intents[intent.ID] = *intent
	return saveMap(db.path("intents.json"), intents)
}

func (db *LocalDatabase) GetIntent(id string) (*models.CreationIntent, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	intents, err := loadMap[models.CreationIntent](db.path("intents.json"))
	if err != nil {
		return nil, err
	}
	intent, ok := intents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &intent, nil
}

func (db *LocalDatabase) ConsumeIntent(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	intents, err := loadMap[models.CreationIntent](db.path("intents.json"))
	if err != nil {
		return err
	}
	intent, ok := intents[id]
	if !ok {
		return ErrNotFound
	}
	if intent.Status != models.IntentPending {
		return ErrConsumed
	}
	intent.Status = models.IntentCommitted
	intents[id] = intent
	return saveMap(db.path("intents.json"), intents)
}

// ==== organizations ====

func (db *LocalDatabase) CreateOrganization(org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt

	orgs, err := loadMap[models.Organization](db.path("organizations.json"))
	if err != nil {
		return err
	}
	orgs[org.ID] = *org
	return saveMap(db.path("organizations.json"), orgs)
}

func (db *LocalDatabase) GetOrganization(id string) (*models.Organization, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	orgs, err := loadMap[models.Organization](db.path("organizations.json"))
	if err != nil {
		return nil, err
	}
	org, ok := orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &org, nil
}

func (db *LocalDatabase) GetOrganizationByStripeCustomer(customerID string) (*models.Organization, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if customerID == "" {
		return nil, ErrNotFound
	}
	orgs, err := loadMap[models.Organization](db.path("organizations.json"))
	if err != nil {
		return nil, err
	}
	for _, org := range orgs {
		if org.StripeCustomerID == customerID {
			return &org, nil
		}
	}
	return nil, ErrNotFound
}

func (db *LocalDatabase) UpdateOrganization(org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	orgs, err := loadMap[models.Organization](db.path("organizations.json"))
	if err != nil {
		return err
	}
	if _, ok := orgs[org.ID]; !ok {
		return ErrNotFound
	}
	org.UpdatedAt = time.Now()
	orgs[org.ID] = *org
	return saveMap(db.path("organizations.json"), orgs)
}

// ==== configuration saves ====

func (db *LocalDatabase) SaveScheduleSettings(s *models.ScheduleSettings) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	s.UpdatedAt = time.Now()
	return saveJSON(db.path(fmt.Sprintf("settings_%s.json", s.OrganizationID)), s)
}

func (db *LocalDatabase) SaveOperatingHours(h *models.OperatingHours) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	h.UpdatedAt = time.Now()
	return saveJSON(db.path(fmt.Sprintf("hours_%s.json", h.OrganizationID)), h)
}

func (db *LocalDatabase) SaveCoreHours(h *models.CoreHours) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	h.UpdatedAt = time.Now()
	return saveJSON(db.path(fmt.Sprintf("core_hours_%s.json", h.OrganizationID)), h)
}

// ==== staff ====

func (db *LocalDatabase) CreateStaffAccount(a *models.StaffAccount) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	accounts, err := loadMap[models.StaffAccount](db.path("staff_accounts.json"))
	if err != nil {
		return err
	}
	for _, existing := range accounts {
		if existing.OrganizationID == a.OrganizationID && existing.Email == a.Email {
			return ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()
	accounts[a.ID] = *a
	return saveMap(db.path("staff_accounts.json"), accounts)
}

func (db *LocalDatabase) SaveStaffDrafts(snap *models.StaffDraftSnapshot) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return saveJSON(db.path(fmt.Sprintf("staff_drafts_%s.json", snap.OrganizationID)), snap)
}

func (db *LocalDatabase) GetStaffDrafts(orgID string) (*models.StaffDraftSnapshot, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var snap models.StaffDraftSnapshot
	if err := loadJSON(db.path(fmt.Sprintf("staff_drafts_%s.json", orgID)), &snap); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &snap, nil
}

// ==== checkout confirmation bookkeeping ====

func (db *LocalDatabase) MarkCallbackHandled(sessionID, token string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	handled, err := loadMap[string](db.path("handled_callbacks.json"))
	if err != nil {
		return false, err
	}
	key := sessionID + "|" + token
	if _, ok := handled[key]; ok {
		return false, nil
	}
	handled[key] = time.Now().Format(time.RFC3339)
	if err := saveMap(db.path("handled_callbacks.json"), handled); err != nil {
		return false, err
	}
	return true, nil
}

func (db *LocalDatabase) UpsertSubscription(sub *models.Subscription) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	subs, err := loadMap[models.Subscription](db.path("subscriptions.json"))
	if err != nil {
		return err
	}
	now := time.Now()
	if existing, ok := subs[sub.OrganizationID]; ok {
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	subs[sub.OrganizationID] = *sub
	return saveMap(db.path("subscriptions.json"), subs)
}

func (db *LocalDatabase) GetSubscription(orgID string) (*models.Subscription, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	subs, err := loadMap[models.Subscription](db.path("subscriptions.json"))
	if err != nil {
		return nil, err
	}
	sub, ok := subs[orgID]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

// ==== lifecycle ====

func (db *LocalDatabase) HealthCheck() error {
	if _, err := os.Stat(db.dataDir); os.IsNotExist(err) {
		return fmt.Errorf("data directory does not exist: %s", db.dataDir)
	}
	return nil
}

func (db *LocalDatabase) Close() error {
	return nil
}

// ==== file helpers ====

func (db *LocalDatabase) path(name string) string {
	return filepath.Join(db.dataDir, name)
}

func loadMap[T any](filePath string) (map[string]T, error) {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return map[string]T{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records map[string]T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func saveMap[T any](filePath string, records map[string]T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

func loadJSON(filePath string, v interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func saveJSON(filePath string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
