package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"shiftline-backend/pkg/models"
)

// PostgresDatabase is the production persistence backend.
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase opens a Postgres connection with pool settings sized for
// a small service instance.
func NewPostgresDatabase(dsn string) DatabaseInterface {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open PostgreSQL connection: %v", err))
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		panic(fmt.Sprintf("failed to ping PostgreSQL: %v", err))
	}

	return &PostgresDatabase{db: db}
}

// isUniqueViolation reports whether err is a Postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ==== onboarding sessions ====

func (db *PostgresDatabase) SaveOnboardingSession(s *models.OnboardingSession) error {
	query := `
		INSERT INTO onboarding_sessions (id, role, step, organization_id, restaurant_code, owner_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			step = EXCLUDED.step,
			organization_id = EXCLUDED.organization_id,
			restaurant_code = EXCLUDED.restaurant_code,
			owner_name = EXCLUDED.owner_name,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query, s.ID, s.Role, s.Step, s.OrganizationID, s.RestaurantCode, s.OwnerName).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save onboarding session: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetOnboardingSession(id string) (*models.OnboardingSession, error) {
	query := `
		SELECT id, COALESCE(role,''), step, COALESCE(organization_id,''), COALESCE(restaurant_code,''),
		       COALESCE(owner_name,''), created_at, updated_at
		FROM onboarding_sessions
		WHERE id = $1
	`
	var s models.OnboardingSession
	err := db.db.QueryRow(query, id).Scan(
		&s.ID, &s.Role, &s.Step, &s.OrganizationID, &s.RestaurantCode, &s.OwnerName, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get onboarding session: %w", err)
	}
	return &s, nil
}

func (db *PostgresDatabase) DeleteOnboardingSession(id string) error {
	res, err := db.db.Exec(`DELETE FROM onboarding_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete onboarding session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==== creation intents ====

func (db *PostgresDatabase) CreateIntent(intent *models.CreationIntent) error {
	query := `
		INSERT INTO creation_intents (id, name, location, timezone, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6)
		RETURNING created_at
	`
	err := db.db.QueryRow(query, intent.ID, intent.Name, intent.Location, intent.Timezone, intent.Status, intent.ExpiresAt).
		Scan(&intent.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create intent: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetIntent(id string) (*models.CreationIntent, error) {
	query := `
		SELECT id, name, COALESCE(location,''), COALESCE(timezone,''), status, created_at, expires_at
		FROM creation_intents
		WHERE id = $1
	`
	var intent models.CreationIntent
	err := db.db.QueryRow(query, id).Scan(
		&intent.ID, &intent.Name, &intent.Location, &intent.Timezone, &intent.Status, &intent.CreatedAt, &intent.ExpiresAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get intent: %w", err)
	}
	return &intent, nil
}

func (db *PostgresDatabase) ConsumeIntent(id string) error {
	// Single-use: the status guard makes a second commit a no-op at the SQL level
	res, err := db.db.Exec(
		`UPDATE creation_intents SET status = 'committed' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("failed to consume intent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := db.GetIntent(id); err != nil {
			return ErrNotFound
		}
		return ErrConsumed
	}
	return nil
}

// ==== organizations ====

func (db *PostgresDatabase) CreateOrganization(org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, name, location, timezone, restaurant_code, owner_name, status, stripe_customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query,
		org.ID, org.Name, org.Location, org.Timezone, org.RestaurantCode, org.OwnerName, org.Status, org.StripeCustomerID,
	).Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetOrganization(id string) (*models.Organization, error) {
	query := `
		SELECT id, name, COALESCE(location,''), COALESCE(timezone,''), restaurant_code,
		       COALESCE(owner_name,''), status, COALESCE(stripe_customer_id,''), created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	var org models.Organization
	err := db.db.QueryRow(query, id).Scan(
		&org.ID, &org.Name, &org.Location, &org.Timezone, &org.RestaurantCode,
		&org.OwnerName, &org.Status, &org.StripeCustomerID, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

func (db *PostgresDatabase) GetOrganizationByStripeCustomer(customerID string) (*models.Organization, error) {
	if customerID == "" {
		return nil, ErrNotFound
	}
	query := `
		SELECT id, name, COALESCE(location,''), COALESCE(timezone,''), restaurant_code,
		       COALESCE(owner_name,''), status, COALESCE(stripe_customer_id,''), created_at, updated_at
		FROM organizations
		WHERE stripe_customer_id = $1
	`
	var org models.Organization
	err := db.db.QueryRow(query, customerID).Scan(
		&org.ID, &org.Name, &org.Location, &org.Timezone, &org.RestaurantCode,
		&org.OwnerName, &org.Status, &org.StripeCustomerID, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get organization by customer: %w", err)
	}
	return &org, nil
}

func (db *PostgresDatabase) UpdateOrganization(org *models.Organization) error {
	query := `
		UPDATE organizations
		SET name = $2, location = $3, timezone = $4, owner_name = $5, status = $6, stripe_customer_id = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := db.db.QueryRow(query,
		org.ID, org.Name, org.Location, org.Timezone, org.OwnerName, org.Status, org.StripeCustomerID,
	).Scan(&org.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return nil
}

// ==== configuration saves ====

func (db *PostgresDatabase) SaveScheduleSettings(s *models.ScheduleSettings) error {
	query := `
		INSERT INTO schedule_settings (organization_id, week_start_day, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (organization_id) DO UPDATE SET week_start_day = EXCLUDED.week_start_day, updated_at = NOW()
		RETURNING updated_at
	`
	if err := db.db.QueryRow(query, s.OrganizationID, s.WeekStartDay).Scan(&s.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save schedule settings: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) SaveOperatingHours(h *models.OperatingHours) error {
	return db.saveHours("operating_hours", h.OrganizationID, h.Days, &h.UpdatedAt)
}

func (db *PostgresDatabase) SaveCoreHours(h *models.CoreHours) error {
	return db.saveHours("core_hours", h.OrganizationID, h.Days, &h.UpdatedAt)
}

// saveHours stores a weekly hours table as a JSONB document keyed by tenant.
func (db *PostgresDatabase) saveHours(table, orgID string, days []models.DayHours, updatedAt *time.Time) error {
	payload, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", table, err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (organization_id, days, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (organization_id) DO UPDATE SET days = EXCLUDED.days, updated_at = NOW()
		RETURNING updated_at
	`, table)
	if err := db.db.QueryRow(query, orgID, payload).Scan(updatedAt); err != nil {
		return fmt.Errorf("failed to save %s: %w", table, err)
	}
	return nil
}

// ==== staff ====

func (db *PostgresDatabase) CreateStaffAccount(a *models.StaffAccount) error {
	query := `
		INSERT INTO staff_accounts (id, organization_id, name, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	err := db.db.QueryRow(query, a.ID, a.OrganizationID, a.Name, a.Email, a.Role).Scan(&a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create staff account: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) SaveStaffDrafts(snap *models.StaffDraftSnapshot) error {
	payload, err := json.Marshal(snap.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal staff drafts: %w", err)
	}
	query := `
		INSERT INTO staff_drafts (organization_id, saved_at, rows)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id) DO UPDATE SET saved_at = EXCLUDED.saved_at, rows = EXCLUDED.rows
	`
	if _, err := db.db.Exec(query, snap.OrganizationID, snap.SavedAt, payload); err != nil {
		return fmt.Errorf("failed to save staff drafts: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetStaffDrafts(orgID string) (*models.StaffDraftSnapshot, error) {
	query := `SELECT organization_id, saved_at, rows FROM staff_drafts WHERE organization_id = $1`
	var snap models.StaffDraftSnapshot
	var payload []byte
	err := db.db.QueryRow(query, orgID).Scan(&snap.OrganizationID, &snap.SavedAt, &payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get staff drafts: %w", err)
	}
	if err := json.Unmarshal(payload, &snap.Rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal staff drafts: %w", err)
	}
	return &snap, nil
}

// ==== checkout confirmation bookkeeping ====

func (db *PostgresDatabase) MarkCallbackHandled(sessionID, token string) (bool, error) {
	// The primary key on (session_id, token) makes re-delivery a conflict,
	// which is exactly the at-most-once semantics the reconciler needs.
	query := `
		INSERT INTO handled_callbacks (session_id, token, handled_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_id, token) DO NOTHING
	`
	res, err := db.db.Exec(query, sessionID, token)
	if err != nil {
		return false, fmt.Errorf("failed to mark callback handled: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (db *PostgresDatabase) UpsertSubscription(sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (organization_id, plan, status, stripe_subscription_id, stripe_checkout_session, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (organization_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			stripe_checkout_session = EXCLUDED.stripe_checkout_session,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query,
		sub.OrganizationID, sub.Plan, sub.Status, sub.StripeSubscriptionID, sub.StripeCheckoutSession,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetSubscription(orgID string) (*models.Subscription, error) {
	query := `
		SELECT organization_id, COALESCE(plan,''), status, COALESCE(stripe_subscription_id,''),
		       COALESCE(stripe_checkout_session,''), created_at, updated_at
		FROM subscriptions
		WHERE organization_id = $1
	`
	var sub models.Subscription
	err := db.db.QueryRow(query, orgID).Scan(
		&sub.OrganizationID, &sub.Plan, &sub.Status, &sub.StripeSubscriptionID,
		&sub.StripeCheckoutSession, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// ==== lifecycle ====

func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
