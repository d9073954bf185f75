package models

import "time"

// ScheduleSettings holds the tenant's scheduling preferences saved during onboarding.
type ScheduleSettings struct {
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	WeekStartDay   string    `json:"week_start_day" db:"week_start_day"` // "monday", "sunday", ...
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// DayHours is an open/close pair for one weekday, "HH:MM" 24h clock.
type DayHours struct {
	Day   string `json:"day"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

// OperatingHours are the restaurant's business hours.
type OperatingHours struct {
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	Days           []DayHours `json:"days" db:"days"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// CoreHours are the hours every shift must cover, a subset of operating hours.
type CoreHours struct {
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	Days           []DayHours `json:"days" db:"days"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
