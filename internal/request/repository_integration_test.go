//go:build integration

package request

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
	"github.com/LifeLink-Blood-Care/blood-service/internal/db"
	"github.com/LifeLink-Blood-Care/blood-service/internal/testutil"
)

func seedRequest() *BloodRequest {
	now := time.Now()
	return &BloodRequest{
		ID:             uuid.New().String(),
		RequesterID:    "requester-1",
		RequesterName:  "Dr. Mensah",
		RequesterPhone: "+233201234567",
		PatientAge:     34,
		PatientGender:  "female",
		BloodType:      bloodtype.ONegative,
		ProductType:    ProductWholeBlood,
		Units:          2,
		Urgency:        UrgencyCritical,
		RequiredBy:     now.Add(48 * time.Hour),
		Longitude:      -0.1870,
		Latitude:       5.6037,
		City:           "Accra",
		State:          "Greater Accra",
		Status:         StatusPending,
		ExpiresAt:      now.Add(DefaultExpiry),
		CreatedAt:      now,
	}
}

// TestRepositoryCreateAndGetRequest_Integration tests a round trip through Postgres
func TestRepositoryCreateAndGetRequest_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	record := seedRequest()
	if err := repo.CreateRequest(context.Background(), record); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	got, err := repo.GetRequest(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}

	if got.ID != record.ID {
		t.Errorf("Expected ID %s, got %s", record.ID, got.ID)
	}
	if got.BloodType != bloodtype.ONegative {
		t.Errorf("Expected blood type O-, got %s", got.BloodType)
	}
	if got.Status != StatusPending {
		t.Errorf("Expected status 'pending', got %s", got.Status)
	}
	if got.Units != 2 {
		t.Errorf("Expected 2 units, got %d", got.Units)
	}
}

// TestRepositoryGetRequest_NotFound_Integration tests a missing row
func TestRepositoryGetRequest_NotFound_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	_, err := repo.GetRequest(context.Background(), "nonexistent")
	if err != ErrRequestNotFound {
		t.Errorf("Expected ErrRequestNotFound, got %v", err)
	}
}

// TestRepositoryInsertMatch_Duplicate_Integration tests the unique donor guard
func TestRepositoryInsertMatch_Duplicate_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	record := seedRequest()
	if err := repo.CreateRequest(context.Background(), record); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	match := MatchedDonor{
		RequestID: record.ID,
		DonorID:   "donor-1",
		DonorName: "Kofi Asante",
		Status:    MatchAccepted,
		MatchedAt: time.Now(),
	}

	inserted, err := repo.InsertMatch(context.Background(), match)
	if err != nil {
		t.Fatalf("InsertMatch failed: %v", err)
	}
	if !inserted {
		t.Fatal("Expected first match to insert")
	}

	inserted, err = repo.InsertMatch(context.Background(), match)
	if err != nil {
		t.Fatalf("InsertMatch (duplicate) failed: %v", err)
	}
	if inserted {
		t.Error("Expected duplicate match to be rejected")
	}

	matches, err := repo.ListMatches(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("ListMatches failed: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("Expected 1 match, got %d", len(matches))
	}
}

// TestRepositorySetMatchedStatus_Integration tests the pending -> matched compare-and-set
func TestRepositorySetMatchedStatus_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	record := seedRequest()
	if err := repo.CreateRequest(context.Background(), record); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	advanced, err := repo.SetMatchedStatus(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("SetMatchedStatus failed: %v", err)
	}
	if !advanced {
		t.Fatal("Expected pending request to advance to matched")
	}

	// Second attempt must be a no-op since the row is no longer pending
	advanced, err = repo.SetMatchedStatus(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("SetMatchedStatus (second) failed: %v", err)
	}
	if advanced {
		t.Error("Expected second advance to report no rows affected")
	}

	got, err := repo.GetRequest(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if got.Status != StatusMatched {
		t.Errorf("Expected status 'matched', got %s", got.Status)
	}
}

// TestRepositoryExpirePending_Integration tests the expiry compare-and-set
func TestRepositoryExpirePending_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	record := seedRequest()
	record.ExpiresAt = time.Now().Add(-time.Hour)
	if err := repo.CreateRequest(context.Background(), record); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	due, err := repo.ListExpiryDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ListExpiryDue failed: %v", err)
	}
	found := false
	for _, r := range due {
		if r.ID == record.ID {
			found = true
		}
	}
	if !found {
		t.Error("Expected overdue request in expiry listing")
	}

	expired, err := repo.ExpirePending(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("ExpirePending failed: %v", err)
	}
	if !expired {
		t.Fatal("Expected pending request to expire")
	}

	expired, err = repo.ExpirePending(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("ExpirePending (second) failed: %v", err)
	}
	if expired {
		t.Error("Expected already-expired request to be untouched")
	}
}

// TestRepositoryConfirmAndComplete_Integration tests the confirm and complete writes
func TestRepositoryConfirmAndComplete_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	record := seedRequest()
	if err := repo.CreateRequest(context.Background(), record); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if _, err := repo.SetMatchedStatus(context.Background(), record.ID); err != nil {
		t.Fatalf("SetMatchedStatus failed: %v", err)
	}

	cd := ConfirmedDonor{
		DonorID:          "donor-1",
		DonationDate:     "2026-09-05",
		DonationTime:     "10:00",
		DonationLocation: "Korle Bu Blood Bank",
		ConfirmedAt:      time.Now(),
	}
	applied, err := repo.ConfirmDonor(context.Background(), record.ID, cd)
	if err != nil {
		t.Fatalf("ConfirmDonor failed: %v", err)
	}
	if !applied {
		t.Fatal("Expected confirm to apply to a pending request")
	}

	got, err := repo.GetRequest(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Errorf("Expected status 'confirmed', got %s", got.Status)
	}
	if got.ConfirmedDonor == nil || got.ConfirmedDonor.DonorID != "donor-1" {
		t.Error("Expected confirmed donor to round-trip")
	}

	applied, err = repo.CompleteRequest(context.Background(), record.ID, 2, "all units received", time.Now())
	if err != nil {
		t.Fatalf("CompleteRequest failed: %v", err)
	}
	if !applied {
		t.Fatal("Expected complete to apply to a confirmed request")
	}

	got, err = repo.GetRequest(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetRequest after complete failed: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("Expected status 'completed', got %s", got.Status)
	}
	if got.UnitsReceived != 2 {
		t.Errorf("Expected 2 units received, got %d", got.UnitsReceived)
	}

	// Closed requests refuse further writes.
	applied, err = repo.CancelRequest(context.Background(), record.ID, "too late")
	if err != nil {
		t.Fatalf("CancelRequest failed: %v", err)
	}
	if applied {
		t.Error("Expected cancel of a completed request not to apply")
	}

	notes := "late edit"
	applied, err = repo.UpdateRequest(context.Background(), record.ID, UpdateRequest{Notes: &notes})
	if err != nil {
		t.Fatalf("UpdateRequest failed: %v", err)
	}
	if applied {
		t.Error("Expected update of a completed request not to apply")
	}
}

// TestRepositoryListRequests_Filters_Integration tests filtered pagination
func TestRepositoryListRequests_Filters_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	for i := 0; i < 3; i++ {
		record := seedRequest()
		if i == 0 {
			record.BloodType = bloodtype.APositive
		}
		if err := repo.CreateRequest(context.Background(), record); err != nil {
			t.Fatalf("CreateRequest %d failed: %v", i, err)
		}
	}

	records, total, err := repo.ListRequests(context.Background(), 10, 0, ListFilters{BloodType: "O-"})
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 O- requests, got %d", total)
	}
	for _, r := range records {
		if r.BloodType != bloodtype.ONegative {
			t.Errorf("Expected only O- requests, got %s", r.BloodType)
		}
	}

	// Page size 1 should return one row but report the full count
	records, total, err = repo.ListRequests(context.Background(), 1, 0, ListFilters{})
	if err != nil {
		t.Fatalf("ListRequests (paginated) failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 request on page, got %d", len(records))
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
}
