//go:build integration

package donor

import (
	"context"
	"testing"
	"time"

	"github.com/LifeLink-Blood-Care/blood-service/internal/db"
	"github.com/LifeLink-Blood-Care/blood-service/internal/testutil"
)

// TestRepositoryGetDonor_Integration tests reading a seeded donor
func TestRepositoryGetDonor_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	testutil.SeedDonor(t, database, "donor-1", "Kofi Asante", "O+")

	got, err := repo.GetDonor(context.Background(), "donor-1")
	if err != nil {
		t.Fatalf("GetDonor failed: %v", err)
	}

	if got.Name != "Kofi Asante" {
		t.Errorf("Expected name 'Kofi Asante', got %s", got.Name)
	}
	if string(got.BloodType) != "O+" {
		t.Errorf("Expected blood type O+, got %s", got.BloodType)
	}
	if !got.Available {
		t.Error("Expected seeded donor to be available")
	}
	if got.Stats.TotalDonations != 0 {
		t.Errorf("Expected fresh donor stats, got %d donations", got.Stats.TotalDonations)
	}
}

// TestRepositoryGetDonor_NotFound_Integration tests a missing donor
func TestRepositoryGetDonor_NotFound_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	_, err := repo.GetDonor(context.Background(), "nonexistent")
	if err != ErrDonorNotFound {
		t.Errorf("Expected ErrDonorNotFound, got %v", err)
	}
}

// TestRepositoryDonorStats_Integration tests the additive stat updates
func TestRepositoryDonorStats_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	testutil.SeedDonor(t, database, "donor-1", "Kofi Asante", "O+")

	completedAt := time.Now()
	if err := repo.RecordDonationCompleted(context.Background(), "donor-1", completedAt); err != nil {
		t.Fatalf("RecordDonationCompleted failed: %v", err)
	}
	if err := repo.RecordDonationCompleted(context.Background(), "donor-1", completedAt.Add(time.Hour)); err != nil {
		t.Fatalf("RecordDonationCompleted (second) failed: %v", err)
	}

	if err := repo.IncrementLivesSaved(context.Background(), "donor-1", 3); err != nil {
		t.Fatalf("IncrementLivesSaved failed: %v", err)
	}

	if err := repo.AddRating(context.Background(), "donor-1", 4); err != nil {
		t.Fatalf("AddRating failed: %v", err)
	}
	if err := repo.AddRating(context.Background(), "donor-1", 5); err != nil {
		t.Fatalf("AddRating (second) failed: %v", err)
	}

	got, err := repo.GetDonor(context.Background(), "donor-1")
	if err != nil {
		t.Fatalf("GetDonor failed: %v", err)
	}

	if got.Stats.TotalDonations != 2 {
		t.Errorf("Expected 2 donations, got %d", got.Stats.TotalDonations)
	}
	if got.Stats.LivesSaved != 3 {
		t.Errorf("Expected 3 lives saved, got %d", got.Stats.LivesSaved)
	}
	if got.Stats.AverageRating != 4.5 {
		t.Errorf("Expected average rating 4.5, got %f", got.Stats.AverageRating)
	}
	if got.LastDonationDate == nil {
		t.Error("Expected last donation date to be set")
	}
}

// TestRepositorySetAvailability_Integration tests the availability toggle
func TestRepositorySetAvailability_Integration(t *testing.T) {
	database := testutil.SetupTestDB(t)
	defer database.Close()
	defer testutil.CleanupTestDB(t, database)

	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo := NewRepository(database)

	testutil.SeedDonor(t, database, "donor-1", "Kofi Asante", "O+")

	if err := repo.SetAvailability(context.Background(), "donor-1", false); err != nil {
		t.Fatalf("SetAvailability failed: %v", err)
	}

	got, err := repo.GetDonor(context.Background(), "donor-1")
	if err != nil {
		t.Fatalf("GetDonor failed: %v", err)
	}
	if got.Available {
		t.Error("Expected donor to be unavailable")
	}

	if err := repo.SetAvailability(context.Background(), "donor-1", true); err != nil {
		t.Fatalf("SetAvailability (restore) failed: %v", err)
	}

	got, err = repo.GetDonor(context.Background(), "donor-1")
	if err != nil {
		t.Fatalf("GetDonor after restore failed: %v", err)
	}
	if !got.Available {
		t.Error("Expected donor to be available again")
	}
}
