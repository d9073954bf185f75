package onboarding

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/models"
)

// BatchRequest carries the configuration captured on the settings step. All
// sections are optional; absent sections are not saved.
type BatchRequest struct {
	WeekStartDay string                 `json:"week_start_day,omitempty"`
	Hours        []models.DayHours      `json:"hours,omitempty"`
	CoreHours    []models.DayHours      `json:"core_hours,omitempty"`
	Staff        []models.StaffDraftRow `json:"staff,omitempty"`
}

// BatchReport names which sub-saves landed and which did not. A partial
// failure is reported per section rather than collapsing into one error.
type BatchReport struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

// HadError reports whether any section failed.
func (r *BatchReport) HadError() bool {
	return len(r.Failed) > 0
}

// ConfigBatch saves the settings-step payload. Sections run concurrently and
// independently so a failing staff save cannot block the hours save.
type ConfigBatch struct {
	db database.DatabaseInterface
}

func NewConfigBatch(db database.DatabaseInterface) *ConfigBatch {
	return &ConfigBatch{db: db}
}

// SaveAll fans out one goroutine per present section and awaits them all.
func (b *ConfigBatch) SaveAll(ctx context.Context, orgID string, req *BatchRequest) *BatchReport {
	now := time.Now()
	report := &BatchReport{Succeeded: []string{}, Failed: []string{}}

	var mu sync.Mutex
	record := func(section string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			log.Printf("config batch %v section %v: %v", orgID, section, err)
			report.Failed = append(report.Failed, section)
			return
		}
		report.Succeeded = append(report.Succeeded, section)
	}

	var wg sync.WaitGroup
	run := func(section string, save func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record(section, save())
		}()
	}

	if req.WeekStartDay != "" {
		run("week_start", func() error {
			return b.db.SaveScheduleSettings(&models.ScheduleSettings{
				OrganizationID: orgID,
				WeekStartDay:   req.WeekStartDay,
				UpdatedAt:      now,
			})
		})
	}
	if req.Hours != nil {
		run("operating_hours", func() error {
			return b.db.SaveOperatingHours(&models.OperatingHours{
				OrganizationID: orgID,
				Days:           req.Hours,
				UpdatedAt:      now,
			})
		})
	}
	if req.CoreHours != nil {
		run("core_hours", func() error {
			return b.db.SaveCoreHours(&models.CoreHours{
				OrganizationID: orgID,
				Days:           req.CoreHours,
				UpdatedAt:      now,
			})
		})
	}
	if req.Staff != nil {
		run("staff", func() error {
			return b.saveStaff(orgID, req.Staff, now)
		})
	}

	wg.Wait()
	return report
}

// saveStaff creates accounts for rows that carry an email. A duplicate email
// counts as saved; any other failure fails the section.
func (b *ConfigBatch) saveStaff(orgID string, rows []models.StaffDraftRow, now time.Time) error {
	for _, row := range rows {
		if row.Email == "" {
			continue
		}
		account := &models.StaffAccount{
			ID:             uuid.New().String(),
			OrganizationID: orgID,
			Name:           row.Name,
			Email:          row.Email,
			Role:           row.Role,
			CreatedAt:      now,
		}
		if err := b.db.CreateStaffAccount(account); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				log.Printf("staff %v already exists in org %v, treating as saved", row.Email, orgID)
				continue
			}
			return err
		}
	}
	return nil
}

// PersistDrafts snapshots the typed staff rows, including the empty set, so
// leaving the step always records what the user last saw.
func (b *ConfigBatch) PersistDrafts(orgID string, rows []models.StaffDraftRow) error {
	if rows == nil {
		rows = []models.StaffDraftRow{}
	}
	snap := &models.StaffDraftSnapshot{
		OrganizationID: orgID,
		SavedAt:        time.Now(),
		Rows:           rows,
	}
	if err := b.db.SaveStaffDrafts(snap); err != nil {
		return &BackendError{Op: "save staff drafts", Err: err}
	}
	return nil
}

// LoadDrafts returns the last snapshot, or an empty one when none exists.
func (b *ConfigBatch) LoadDrafts(orgID string) (*models.StaffDraftSnapshot, error) {
	snap, err := b.db.GetStaffDrafts(orgID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &models.StaffDraftSnapshot{OrganizationID: orgID, Rows: []models.StaffDraftRow{}}, nil
		}
		return nil, &BackendError{Op: "load staff drafts", Err: err}
	}
	return snap, nil
}
