package request

import (
	"context"

	"github.com/LifeLink-Blood-Care/blood-service/internal/auth"
	"github.com/LifeLink-Blood-Care/blood-service/internal/pagination"
)

// ServiceInterface defines the contract for blood request business logic
type ServiceInterface interface {
	CreateRequest(ctx context.Context, req CreateRequest, principal *auth.Principal) (*BloodRequest, error)
	GetRequest(ctx context.Context, id string) (*BloodRequest, error)
	ListRequests(ctx context.Context, params pagination.Params, filters ListFilters) (*PaginatedListResponse, error)
	Respond(ctx context.Context, requestID, donorID string, req RespondRequest) (*BloodRequest, error)
	ConfirmDonor(ctx context.Context, requestID string, req ConfirmDonorRequest, principal *auth.Principal) (*BloodRequest, error)
	CompleteRequest(ctx context.Context, requestID string, req CompleteRequest, principal *auth.Principal) (*BloodRequest, error)
	CancelRequest(ctx context.Context, requestID, reason string, principal *auth.Principal) (*BloodRequest, error)
	UpdateRequest(ctx context.Context, requestID string, upd UpdateRequest, principal *auth.Principal) (*BloodRequest, error)
	SweepExpired(ctx context.Context) (int, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
