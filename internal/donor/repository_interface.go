package donor

import (
	"context"
	"time"
)

// RepositoryInterface defines the contract for donor data access
type RepositoryInterface interface {
	GetDonor(ctx context.Context, id string) (*Donor, error)
	RecordDonationCompleted(ctx context.Context, donorID string, completedAt time.Time) error
	IncrementLivesSaved(ctx context.Context, donorID string, units int) error
	AddRating(ctx context.Context, donorID string, rating int) error
	SetAvailability(ctx context.Context, donorID string, available bool) error
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
