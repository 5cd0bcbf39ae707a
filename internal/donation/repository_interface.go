package donation

import "context"

// RepositoryInterface defines the contract for donation data access.
// Transition methods are conditional on the expected current status and
// report false when the donation was no longer in that status, so two
// concurrent staff actions cannot both apply.
type RepositoryInterface interface {
	CreateDonation(ctx context.Context, d *Donation) error
	GetDonation(ctx context.Context, id string) (*Donation, error)
	ListDonations(ctx context.Context, limit, offset int, filters ListFilters) ([]Donation, int, error)

	TransitionStart(ctx context.Context, id string, hc HealthCheck, col *Collection, newStatus Status) (bool, error)
	TransitionComplete(ctx context.Context, id string, col Collection) (bool, error)
	TransitionTested(ctx context.Context, id string, tr TestResults, newStatus Status) (bool, error)
	TransitionStored(ctx context.Context, id string, st Storage) (bool, error)
	TransitionDistributed(ctx context.Context, id string, dist Distribution) (bool, error)
	CancelDonation(ctx context.Context, id, reason string) (bool, error)

	SetFeedback(ctx context.Context, id string, fb Feedback) error

	// RequestExists reports whether a blood request with the given ID is
	// on record, for validating the optional request link at scheduling.
	RequestExists(ctx context.Context, id string) (bool, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
