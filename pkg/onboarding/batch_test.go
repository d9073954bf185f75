package onboarding

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/models"
)

// failingDB injects one failing section into an otherwise working store.
type failingDB struct {
	database.DatabaseInterface
	failHours bool
}

func (db *failingDB) SaveOperatingHours(h *models.OperatingHours) error {
	if db.failHours {
		return errors.New("disk full")
	}
	return db.DatabaseInterface.SaveOperatingHours(h)
}

func fullBatchRequest() *BatchRequest {
	return &BatchRequest{
		WeekStartDay: "monday",
		Hours: []models.DayHours{
			{Day: "monday", Open: "09:00", Close: "22:00"},
		},
		CoreHours: []models.DayHours{
			{Day: "monday", Open: "12:00", Close: "14:00"},
		},
		Staff: []models.StaffDraftRow{
			{Name: "Ana", Email: "ana@example.com", Role: "server"},
			{Name: "No Email Yet"},
		},
	}
}

func TestSaveAllSectionsSucceed(t *testing.T) {
	db := database.NewLocalDatabase(t.TempDir())
	batch := NewConfigBatch(db)

	report := batch.SaveAll(context.Background(), "org-1", fullBatchRequest())
	if report.HadError() {
		t.Fatalf("unexpected failures: %v", report.Failed)
	}

	sort.Strings(report.Succeeded)
	want := []string{"core_hours", "operating_hours", "staff", "week_start"}
	if len(report.Succeeded) != len(want) {
		t.Fatalf("succeeded = %v, want %v", report.Succeeded, want)
	}
	for i, section := range want {
		if report.Succeeded[i] != section {
			t.Errorf("succeeded[%d] = %q, want %q", i, report.Succeeded[i], section)
		}
	}
}

func TestSaveAllSectionsIndependent(t *testing.T) {
	db := &failingDB{DatabaseInterface: database.NewLocalDatabase(t.TempDir()), failHours: true}
	batch := NewConfigBatch(db)

	report := batch.SaveAll(context.Background(), "org-1", fullBatchRequest())
	if !report.HadError() {
		t.Fatal("expected the hours section to fail")
	}
	if len(report.Failed) != 1 || report.Failed[0] != "operating_hours" {
		t.Errorf("failed = %v, want [operating_hours]", report.Failed)
	}
	if len(report.Succeeded) != 3 {
		t.Errorf("succeeded = %v, want the other three sections", report.Succeeded)
	}
}

func TestSaveAllSkipsAbsentSections(t *testing.T) {
	db := database.NewLocalDatabase(t.TempDir())
	batch := NewConfigBatch(db)

	report := batch.SaveAll(context.Background(), "org-1", &BatchRequest{WeekStartDay: "sunday"})
	if report.HadError() {
		t.Fatalf("unexpected failures: %v", report.Failed)
	}
	if len(report.Succeeded) != 1 || report.Succeeded[0] != "week_start" {
		t.Errorf("succeeded = %v, want [week_start]", report.Succeeded)
	}
}

func TestStaffDuplicateTreatedAsSaved(t *testing.T) {
	db := database.NewLocalDatabase(t.TempDir())
	batch := NewConfigBatch(db)

	existing := &models.StaffAccount{
		OrganizationID: "org-1",
		Name:           "Ana",
		Email:          "ana@example.com",
	}
	if err := db.CreateStaffAccount(existing); err != nil {
		t.Fatalf("seed staff: %v", err)
	}

	report := batch.SaveAll(context.Background(), "org-1", &BatchRequest{
		Staff: []models.StaffDraftRow{{Name: "Ana", Email: "ana@example.com"}},
	})
	if report.HadError() {
		t.Fatalf("duplicate staff should count as saved, failures: %v", report.Failed)
	}
}

func TestPersistDraftsAlwaysWrites(t *testing.T) {
	db := database.NewLocalDatabase(t.TempDir())
	batch := NewConfigBatch(db)

	// Even the empty set leaves a timestamped snapshot.
	if err := batch.PersistDrafts("org-1", nil); err != nil {
		t.Fatalf("PersistDrafts: %v", err)
	}
	snap, err := batch.LoadDrafts("org-1")
	if err != nil {
		t.Fatalf("LoadDrafts: %v", err)
	}
	if len(snap.Rows) != 0 {
		t.Errorf("rows = %d, want 0", len(snap.Rows))
	}
	if snap.SavedAt.IsZero() || snap.SavedAt.After(time.Now()) {
		t.Errorf("saved_at = %v", snap.SavedAt)
	}

	rows := []models.StaffDraftRow{{Name: "Ana", Email: "ana@example.com"}}
	if err := batch.PersistDrafts("org-1", rows); err != nil {
		t.Fatalf("PersistDrafts: %v", err)
	}
	snap, _ = batch.LoadDrafts("org-1")
	if len(snap.Rows) != 1 || snap.Rows[0].Email != "ana@example.com" {
		t.Errorf("rows = %v", snap.Rows)
	}
}

func TestLoadDraftsWhenNoneExist(t *testing.T) {
	db := database.NewLocalDatabase(t.TempDir())
	batch := NewConfigBatch(db)

	snap, err := batch.LoadDrafts("org-none")
	if err != nil {
		t.Fatalf("LoadDrafts: %v", err)
	}
	if snap.OrganizationID != "org-none" || len(snap.Rows) != 0 {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
}
