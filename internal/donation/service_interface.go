package donation

import (
	"context"

	"github.com/LifeLink-Blood-Care/blood-service/internal/auth"
	"github.com/LifeLink-Blood-Care/blood-service/internal/pagination"
)

// ServiceInterface defines the contract for donation pipeline business logic
type ServiceInterface interface {
	Schedule(ctx context.Context, req ScheduleRequest, principal *auth.Principal) (*Donation, []string, error)
	GetDonation(ctx context.Context, id string) (*Donation, error)
	ListDonations(ctx context.Context, params pagination.Params, filters ListFilters) (*PaginatedListResponse, error)
	Start(ctx context.Context, id string, req StartRequest, principal *auth.Principal) (*Donation, error)
	Complete(ctx context.Context, id string, req CompleteRequest, principal *auth.Principal) (*Donation, error)
	RecordTestResults(ctx context.Context, id string, req TestResultsRequest, principal *auth.Principal) (*Donation, error)
	Store(ctx context.Context, id string, req StoreRequest, principal *auth.Principal) (*Donation, error)
	Distribute(ctx context.Context, id string, req DistributeRequest, principal *auth.Principal) (*Donation, error)
	SubmitFeedback(ctx context.Context, id string, req FeedbackRequest, principal *auth.Principal) (*Donation, error)
	Cancel(ctx context.Context, id, reason string, principal *auth.Principal) (*Donation, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
