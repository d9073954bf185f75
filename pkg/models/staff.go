package models

import "time"

// StaffAccount is a remotely created staff profile within a tenant.
// Creation tolerates an already-exists conflict: the row is then treated as saved.
type StaffAccount struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	Role           string    `json:"role,omitempty" db:"role"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// StaffDraftRow is a staff row as typed during onboarding. Rows without an
// email never leave draft storage.
type StaffDraftRow struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// StaffDraftSnapshot is the tenant-scoped durable record of staff intentions,
// written every time the user leaves the configuration step.
type StaffDraftSnapshot struct {
	OrganizationID string          `json:"organization_id" db:"organization_id"`
	SavedAt        time.Time       `json:"saved_at" db:"saved_at"`
	Rows           []StaffDraftRow `json:"rows" db:"rows"`
}
