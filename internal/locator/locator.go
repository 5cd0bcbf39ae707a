package locator

import (
	"context"

	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
)

// Point is a geographic coordinate pair.
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// DonorSummary is the slice of donor data the matching algorithm needs.
type DonorSummary struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Phone     string              `json:"phone"`
	BloodType bloodtype.BloodType `json:"blood_type"`
	DistanceM float64             `json:"distance_m"`
}

// DonorLocation is the indexed record for one donor.
type DonorLocation struct {
	ID        string
	Name      string
	Phone     string
	BloodType bloodtype.BloodType
	Available bool
	Point     Point
}

// Locator finds available donors near a point whose blood type is in the
// acceptable set, ordered by distance ascending.
type Locator interface {
	FindNearby(ctx context.Context, p Point, radiusMeters float64, acceptable []bloodtype.BloodType) ([]DonorSummary, error)
	UpsertDonor(ctx context.Context, loc DonorLocation) error
	SetAvailability(ctx context.Context, donorID string, available bool) error
	RemoveDonor(ctx context.Context, donorID string) error
}
