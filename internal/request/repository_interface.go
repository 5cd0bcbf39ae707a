package request

import (
	"context"
	"time"
)

// RepositoryInterface defines the contract for blood request data access
type RepositoryInterface interface {
	CreateRequest(ctx context.Context, r *BloodRequest) error
	GetRequest(ctx context.Context, id string) (*BloodRequest, error)
	ListRequests(ctx context.Context, limit, offset int, filters ListFilters) ([]BloodRequest, int, error)

	// InsertMatch appends a match entry atomically. It reports false when
	// an entry for (request, donor) already exists.
	InsertMatch(ctx context.Context, m MatchedDonor) (bool, error)
	UpdateMatchStatus(ctx context.Context, requestID, donorID string, status MatchStatus, notes string) error
	ListMatches(ctx context.Context, requestID string) ([]MatchedDonor, error)

	SetMatchedStatus(ctx context.Context, requestID string) (bool, error)

	// ConfirmDonor, CompleteRequest, CancelRequest and UpdateRequest are
	// compare-and-set writes: each skips requests already in a terminal
	// status and reports whether its write landed.
	ConfirmDonor(ctx context.Context, requestID string, cd ConfirmedDonor) (bool, error)
	CompleteRequest(ctx context.Context, requestID string, unitsReceived int, notes string, completedAt time.Time) (bool, error)
	CancelRequest(ctx context.Context, requestID, reason string) (bool, error)
	UpdateRequest(ctx context.Context, requestID string, upd UpdateRequest) (bool, error)

	// ExpirePending flips a still-pending request to expired; reports
	// whether the flip happened.
	ExpirePending(ctx context.Context, requestID string) (bool, error)
	ListExpiryDue(ctx context.Context, now time.Time) ([]BloodRequest, error)

	IncrementViewCount(ctx context.Context, requestID string) error
	IncrementResponseCount(ctx context.Context, requestID string) error
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
