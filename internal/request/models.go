package request

import (
	"time"

	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
	"github.com/LifeLink-Blood-Care/blood-service/internal/pagination"
)

// Status is the lifecycle state of a blood request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusMatched   Status = "matched"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	// StatusFulfilled is the staff-set variant of the satisfied terminal
	// state. It is treated identically to completed everywhere.
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// statusRank orders the monotonic progression. Status updates may never
// move a request to a lower rank.
var statusRank = map[Status]int{
	StatusPending:   1,
	StatusMatched:   2,
	StatusConfirmed: 3,
	StatusFulfilled: 4,
	StatusCompleted: 4,
}

// Terminal reports whether no further transitions are legal from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFulfilled, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Satisfied reports whether the request reached its satisfied terminal
// state via either actor path.
func (s Status) Satisfied() bool {
	return s == StatusCompleted || s == StatusFulfilled
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusMatched, StatusConfirmed, StatusCompleted, StatusFulfilled, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Urgency tiers for a blood request.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// ProductType is the requested blood product category.
type ProductType string

const (
	ProductWholeBlood ProductType = "whole_blood"
	ProductRedCells   ProductType = "red_cells"
	ProductPlatelets  ProductType = "platelets"
	ProductPlasma     ProductType = "plasma"
)

func (p ProductType) Valid() bool {
	switch p {
	case ProductWholeBlood, ProductRedCells, ProductPlatelets, ProductPlasma:
		return true
	}
	return false
}

// MatchStatus is a matched donor's per-request response state.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchAccepted  MatchStatus = "accepted"
	MatchDeclined  MatchStatus = "declined"
	MatchCompleted MatchStatus = "completed"
)

// Unit bounds for a single request.
const (
	MinUnits = 1
	MaxUnits = 10
)

// Matching defaults.
const (
	DefaultMatchRadiusMeters = 50_000
	MaxNotifiedDonors        = 20
	DefaultExpiry            = 7 * 24 * time.Hour
)

// MatchedDonor is one donor's recorded response to a request. Rows live in
// their own table keyed (request_id, donor_id) so the no-duplicate-donor
// invariant is enforced by the store, not by serialization order.
type MatchedDonor struct {
	RequestID  string      `json:"requestId"`
	DonorID    string      `json:"donorId"`
	DonorName  string      `json:"donorName"`
	DonorPhone string      `json:"donorPhone,omitempty"`
	Status     MatchStatus `json:"status"`
	Notes      string      `json:"notes,omitempty"`
	MatchedAt  time.Time   `json:"matchedAt"`
	UpdatedAt  *time.Time  `json:"updatedAt,omitempty"`
}

// ConfirmedDonor is the single matched donor selected to donate.
type ConfirmedDonor struct {
	DonorID          string    `json:"donorId"`
	DonationDate     string    `json:"donationDate"`
	DonationTime     string    `json:"donationTime"`
	DonationLocation string    `json:"donationLocation"`
	ConfirmedAt      time.Time `json:"confirmedAt"`
}

// BloodRequest represents one medical need for blood.
type BloodRequest struct {
	ID string `json:"id"`

	// Requester identity, denormalized at creation time
	RequesterID    string `json:"requesterId"`
	RequesterName  string `json:"requesterName"`
	RequesterPhone string `json:"requesterPhone"`
	RequesterEmail string `json:"requesterEmail,omitempty"`

	// Clinical facts
	PatientAge    int                 `json:"patientAge"`
	PatientGender string              `json:"patientGender"`
	BloodType     bloodtype.BloodType `json:"bloodType"`
	ProductType   ProductType         `json:"productType"`
	Units         int                 `json:"units"`
	Urgency       Urgency             `json:"urgency"`
	Reason        string              `json:"reason,omitempty"`
	RequiredBy    time.Time           `json:"requiredBy"`

	// Geographic facts
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	City      string  `json:"city"`
	State     string  `json:"state"`

	// Matching state
	MatchedDonors  []MatchedDonor  `json:"matchedDonors,omitempty"`
	ConfirmedDonor *ConfirmedDonor `json:"confirmedDonor,omitempty"`

	// Lifecycle state
	Status        Status     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	ViewCount     int        `json:"viewCount"`
	ResponseCount int        `json:"responseCount"`
	UnitsReceived int        `json:"unitsReceived,omitempty"`
	CompletionNotes string   `json:"completionNotes,omitempty"`
	CancelReason  string     `json:"cancelReason,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// CreateRequest is the payload to create a new blood request. Coordinates
// and blood type are genuinely required; records omitting them are
// rejected rather than backfilled with placeholder data.
type CreateRequest struct {
	RequesterName  string  `json:"requesterName"`
	RequesterPhone string  `json:"requesterPhone"`
	RequesterEmail string  `json:"requesterEmail,omitempty"`
	PatientAge     int     `json:"patientAge"`
	PatientGender  string  `json:"patientGender"`
	BloodType      string  `json:"bloodType"`
	ProductType    string  `json:"productType"`
	Units          int     `json:"units"`
	Urgency        string  `json:"urgency"`
	Reason         string  `json:"reason,omitempty"`
	RequiredBy     time.Time `json:"requiredBy"`
	Longitude      *float64 `json:"longitude"`
	Latitude       *float64 `json:"latitude"`
	City           string  `json:"city"`
	State          string  `json:"state"`
}

// RespondRequest is a donor's response to a request.
type RespondRequest struct {
	DonorName  string `json:"donorName"`
	DonorPhone string `json:"donorPhone,omitempty"`
	Response   string `json:"response"` // "accept" or "decline"
	Notes      string `json:"notes,omitempty"`
}

// ConfirmDonorRequest selects one matched donor to donate.
type ConfirmDonorRequest struct {
	DonorID          string `json:"donorId"`
	DonationDate     string `json:"donationDate"`
	DonationTime     string `json:"donationTime"`
	DonationLocation string `json:"donationLocation"`
}

// CompleteRequest closes a request with the units actually received.
type CompleteRequest struct {
	UnitsReceived int    `json:"unitsReceived"`
	Notes         string `json:"notes,omitempty"`
}

// CancelRequestBody carries the caller-supplied cancellation reason.
type CancelRequestBody struct {
	Reason string `json:"reason"`
}

// UpdateRequest mutates non-status fields, plus status for staff callers.
type UpdateRequest struct {
	Urgency    *string    `json:"urgency,omitempty"`
	RequiredBy *time.Time `json:"requiredBy,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	Status     *string    `json:"status,omitempty"`
}

// ListFilters narrow a paginated listing.
type ListFilters struct {
	Status    string
	Urgency   string
	BloodType string
	City      string
}

// PaginatedListResponse is a page of blood requests.
type PaginatedListResponse struct {
	Success    bool            `json:"success"`
	Requests   []BloodRequest  `json:"requests"`
	Pagination pagination.Meta `json:"pagination"`
}
