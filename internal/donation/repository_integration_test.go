//go:build integration

package donation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
	"github.com/LifeLink-Blood-Care/blood-service/internal/db"
	"github.com/LifeLink-Blood-Care/blood-service/internal/testutil"
)

func seedDonation() *Donation {
	return &Donation{
		ID:            uuid.New().String(),
		DonorID:       "donor-1",
		DonorName:     "Kofi Asante",
		DonorPhone:    "+233209876543",
		BloodType:     bloodtype.OPositive,
		ProductType:   ProductWholeBlood,
		Units:         1,
		ScheduledDate: time.Now().Add(24 * time.Hour),
		Status:        StatusScheduled,
		CreatedAt:     time.Now(),
	}
}

// TestRepositoryCreateAndGetDonation_Integration tests a round trip through Postgres
func TestRepositoryCreateAndGetDonation_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	record := seedDonation()
	if err := repo.CreateDonation(context.Background(), record); err != nil {
		t.Fatalf("CreateDonation failed: %v", err)
	}

	got, err := repo.GetDonation(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetDonation failed: %v", err)
	}

	if got.ID != record.ID {
		t.Errorf("Expected ID %s, got %s", record.ID, got.ID)
	}
	if got.Status != StatusScheduled {
		t.Errorf("Expected status 'scheduled', got %s", got.Status)
	}
	if got.HealthCheck != nil {
		t.Error("Expected no health check before the donation starts")
	}
	if got.BloodType != bloodtype.OPositive {
		t.Errorf("Expected blood type O+, got %s", got.BloodType)
	}
}

// TestRepositoryGetDonation_NotFound_Integration tests a missing row
func TestRepositoryGetDonation_NotFound_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	_, err := repo.GetDonation(context.Background(), "nonexistent")
	if err != ErrDonationNotFound {
		t.Errorf("Expected ErrDonationNotFound, got %v", err)
	}
}

// TestRepositoryPipelineTransitions_Integration walks the full happy path,
// verifying each step is a compare-and-set on the previous status
func TestRepositoryPipelineTransitions_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	record := seedDonation()
	if err := repo.CreateDonation(context.Background(), record); err != nil {
		t.Fatalf("CreateDonation failed: %v", err)
	}

	// scheduled -> in_progress
	hc := HealthCheck{HemoglobinLevel: 14.2, IsEligible: true, ExaminerID: "staff-1", CheckedAt: time.Now()}
	col := &Collection{StartTime: time.Now(), Site: "Korle Bu"}
	ok, err := repo.TransitionStart(context.Background(), record.ID, hc, col, StatusInProgress)
	if err != nil {
		t.Fatalf("TransitionStart failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected scheduled donation to start")
	}

	// Starting twice must fail the status guard
	ok, err = repo.TransitionStart(context.Background(), record.ID, hc, col, StatusInProgress)
	if err != nil {
		t.Fatalf("TransitionStart (second) failed: %v", err)
	}
	if ok {
		t.Error("Expected second start to report no rows affected")
	}

	// in_progress -> completed
	end := time.Now()
	full := *col
	full.EndTime = &end
	full.DurationMinutes = 45
	ok, err = repo.TransitionComplete(context.Background(), record.ID, full)
	if err != nil {
		t.Fatalf("TransitionComplete failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected in-progress donation to complete")
	}

	// completed -> tested
	tr := TestResults{
		HIV: ResultNegative, HepatitisB: ResultNegative, HepatitisC: ResultNegative,
		Syphilis: ResultNegative, Malaria: ResultNegative,
		Suitable: true, TestedBy: "staff-1", TestedAt: time.Now(),
	}
	ok, err = repo.TransitionTested(context.Background(), record.ID, tr, StatusTested)
	if err != nil {
		t.Fatalf("TransitionTested failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected completed donation to record test results")
	}

	// tested -> stored
	st := Storage{Location: "Fridge A3", BatchNumber: "BB-0123456789", ExpiryDate: time.Now().Add(35 * 24 * time.Hour), StoredAt: time.Now()}
	ok, err = repo.TransitionStored(context.Background(), record.ID, st)
	if err != nil {
		t.Fatalf("TransitionStored failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected tested donation to store")
	}

	// stored -> distributed
	dist := Distribution{HospitalName: "Ridge Hospital", DistributedBy: "staff-1", DistributedAt: time.Now()}
	ok, err = repo.TransitionDistributed(context.Background(), record.ID, dist)
	if err != nil {
		t.Fatalf("TransitionDistributed failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected stored donation to distribute")
	}

	got, err := repo.GetDonation(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetDonation failed: %v", err)
	}
	if got.Status != StatusDistributed {
		t.Errorf("Expected status 'distributed', got %s", got.Status)
	}
	if got.HealthCheck == nil || !got.HealthCheck.IsEligible {
		t.Error("Expected health check to round-trip")
	}
	if got.Collection == nil || got.Collection.DurationMinutes != 45 {
		t.Error("Expected collection record to round-trip")
	}
	if got.TestResults == nil || !got.TestResults.Suitable {
		t.Error("Expected test results to round-trip")
	}
	if got.Storage == nil || got.Storage.BatchNumber != "BB-0123456789" {
		t.Error("Expected storage record to round-trip")
	}
	if got.Distribution == nil || got.Distribution.HospitalName != "Ridge Hospital" {
		t.Error("Expected distribution record to round-trip")
	}
}

// TestRepositoryCancelDonation_Integration tests the cancel status guard
func TestRepositoryCancelDonation_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	record := seedDonation()
	if err := repo.CreateDonation(context.Background(), record); err != nil {
		t.Fatalf("CreateDonation failed: %v", err)
	}

	ok, err := repo.CancelDonation(context.Background(), record.ID, "donor unavailable")
	if err != nil {
		t.Fatalf("CancelDonation failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected scheduled donation to cancel")
	}

	// Cancelling a cancelled donation must be a no-op
	ok, err = repo.CancelDonation(context.Background(), record.ID, "again")
	if err != nil {
		t.Fatalf("CancelDonation (second) failed: %v", err)
	}
	if ok {
		t.Error("Expected second cancel to report no rows affected")
	}

	got, err := repo.GetDonation(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetDonation failed: %v", err)
	}
	if got.CancelReason != "donor unavailable" {
		t.Errorf("Expected original cancel reason to survive, got %q", got.CancelReason)
	}
}

// TestRepositorySetFeedback_Integration tests the feedback write
func TestRepositorySetFeedback_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	record := seedDonation()
	if err := repo.CreateDonation(context.Background(), record); err != nil {
		t.Fatalf("CreateDonation failed: %v", err)
	}

	fb := Feedback{Rating: 5, Comment: "smooth process", WouldDonateAgain: true, SubmittedAt: time.Now()}
	if err := repo.SetFeedback(context.Background(), record.ID, fb); err != nil {
		t.Fatalf("SetFeedback failed: %v", err)
	}

	got, err := repo.GetDonation(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetDonation failed: %v", err)
	}
	if got.Feedback == nil || got.Feedback.Rating != 5 {
		t.Error("Expected feedback to round-trip")
	}

	// Unknown donation surfaces not-found
	if err := repo.SetFeedback(context.Background(), "nonexistent", fb); err != ErrDonationNotFound {
		t.Errorf("Expected ErrDonationNotFound, got %v", err)
	}
}

// TestRepositoryListDonations_Filters_Integration tests filtered pagination
func TestRepositoryListDonations_Filters_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	for i := 0; i < 3; i++ {
		record := seedDonation()
		if i == 0 {
			record.DonorID = "donor-2"
		}
		if err := repo.CreateDonation(context.Background(), record); err != nil {
			t.Fatalf("CreateDonation %d failed: %v", i, err)
		}
	}

	records, total, err := repo.ListDonations(context.Background(), 10, 0, ListFilters{DonorID: "donor-1"})
	if err != nil {
		t.Fatalf("ListDonations failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 donations for donor-1, got %d", total)
	}
	for _, d := range records {
		if d.DonorID != "donor-1" {
			t.Errorf("Expected only donor-1 donations, got %s", d.DonorID)
		}
	}
}
