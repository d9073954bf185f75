package models

import "time"

// OrgStatus tracks the lifecycle of a tenant from provisioning to activation.
type OrgStatus string

const (
	OrgStatusProvisioning OrgStatus = "provisioning"
	OrgStatusActive       OrgStatus = "active"
)

// Organization represents a tenant (a single restaurant account).
type Organization struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Location         string    `json:"location,omitempty" db:"location"`
	Timezone         string    `json:"timezone,omitempty" db:"timezone"`
	RestaurantCode   string    `json:"restaurant_code" db:"restaurant_code"`
	OwnerName        string    `json:"owner_name,omitempty" db:"owner_name"`
	Status           OrgStatus `json:"status" db:"status"`
	StripeCustomerID string    `json:"-" db:"stripe_customer_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// CreationIntent is a reserved, not-yet-committed request to create a tenant.
// Intents are consumed exactly once by commit; a lost intent is recreated,
// never guessed at.
type CreationIntent struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Location  string       `json:"location,omitempty" db:"location"`
	Timezone  string       `json:"timezone,omitempty" db:"timezone"`
	Status    IntentStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	ExpiresAt time.Time    `json:"expires_at" db:"expires_at"`
}

type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentCommitted IntentStatus = "committed"
)

// Expired reports whether the intent can no longer be committed.
func (i *CreationIntent) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
