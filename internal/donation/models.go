package donation

import (
	"time"

	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
	"github.com/LifeLink-Blood-Care/blood-service/internal/pagination"
)

// Status is the pipeline state of a single donation.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusTested      Status = "tested"
	StatusStored      Status = "stored"
	StatusDiscarded   Status = "discarded"
	StatusDistributed Status = "distributed"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether no further pipeline transitions are legal.
func (s Status) Terminal() bool {
	switch s {
	case StatusDiscarded, StatusDistributed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusTested,
		StatusStored, StatusDiscarded, StatusDistributed, StatusCancelled:
		return true
	}
	return false
}

// ProductType is the donated blood product category.
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

// Unit bounds for a single collection.
const (
	MinUnits = 1
	MaxUnits = 2
)

// TestResult is a single pathogen screening outcome.
type TestResult string

const (
	ResultNegative TestResult = "negative"
	ResultPositive TestResult = "positive"
	ResultPending  TestResult = "pending"
)

func (r TestResult) Valid() bool {
	switch r {
	case ResultNegative, ResultPositive, ResultPending:
		return true
	}
	return false
}

// HealthCheck is the pre-donation screening recorded at start time.
type HealthCheck struct {
	HemoglobinLevel float64   `json:"hemoglobinLevel,omitempty"`
	BloodPressure   string    `json:"bloodPressure,omitempty"`
	PulseRate       int       `json:"pulseRate,omitempty"`
	Temperature     float64   `json:"temperature,omitempty"`
	Weight          float64   `json:"weight,omitempty"`
	IsEligible      bool      `json:"isEligible"`
	ExaminerID      string    `json:"examinerId"`
	Notes           string    `json:"notes,omitempty"`
	CheckedAt       time.Time `json:"checkedAt"`
}

// Collection covers the physical draw plus post-donation care.
type Collection struct {
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty"`
	Phlebotomist    string     `json:"phlebotomist,omitempty"`
	Site            string     `json:"site,omitempty"`
	Complications   string     `json:"complications,omitempty"`
	AftercareNotes  string     `json:"aftercareNotes,omitempty"`
}

// TestResults holds the laboratory panel. Suitable is derived: true only
// when every pathogen result is exactly negative.
type TestResults struct {
	HIV        TestResult `json:"hiv"`
	HepatitisB TestResult `json:"hepatitisB"`
	HepatitisC TestResult `json:"hepatitisC"`
	Syphilis   TestResult `json:"syphilis"`
	Malaria    TestResult `json:"malaria"`
	Suitable   bool       `json:"suitable"`
	TestedBy   string     `json:"testedBy"`
	TestedAt   time.Time  `json:"testedAt"`
}

// AllNegative reports whether every pathogen result is negative. A
// pending result is not negative.
func (t TestResults) AllNegative() bool {
	for _, r := range []TestResult{t.HIV, t.HepatitisB, t.HepatitisC, t.Syphilis, t.Malaria} {
		if r != ResultNegative {
			return false
		}
	}
	return true
}

// Storage records where a suitable donation is banked.
type Storage struct {
	Location    string    `json:"location"`
	BatchNumber string    `json:"batchNumber"`
	ExpiryDate  time.Time `json:"expiryDate"`
	StoredAt    time.Time `json:"storedAt"`
}

// Distribution records the transfusion destination.
type Distribution struct {
	HospitalName    string    `json:"hospitalName"`
	HospitalAddress string    `json:"hospitalAddress,omitempty"`
	PatientRef      string    `json:"patientRef,omitempty"`
	DistributedBy   string    `json:"distributedBy"`
	DistributedAt   time.Time `json:"distributedAt"`
}

// Feedback is the donor's post-donation rating. It never affects
// pipeline state.
type Feedback struct {
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment,omitempty"`
	WouldDonateAgain bool      `json:"wouldDonateAgain"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// Donation represents one donation moving through the pipeline. Process
// sub-records are populated only once their phase begins.
type Donation struct {
	ID string `json:"id"`

	// Donor snapshot, denormalized at scheduling time
	DonorID    string              `json:"donorId"`
	DonorName  string              `json:"donorName"`
	DonorPhone string              `json:"donorPhone"`
	DonorEmail string              `json:"donorEmail,omitempty"`
	BloodType  bloodtype.BloodType `json:"bloodType"`

	// Optional link to the request this donation satisfies
	RequestID string `json:"requestId,omitempty"`

	ProductType   ProductType `json:"productType"`
	Units         int         `json:"units"`
	ScheduledDate time.Time   `json:"scheduledDate"`
	Status        Status      `json:"status"`

	HealthCheck  *HealthCheck  `json:"healthCheck,omitempty"`
	Collection   *Collection   `json:"collection,omitempty"`
	TestResults  *TestResults  `json:"testResults,omitempty"`
	Storage      *Storage      `json:"storage,omitempty"`
	Distribution *Distribution `json:"distribution,omitempty"`
	Feedback     *Feedback     `json:"feedback,omitempty"`

	Notes        string     `json:"notes,omitempty"`
	CancelReason string     `json:"cancelReason,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// ScheduleRequest is the payload to book a donation slot.
type ScheduleRequest struct {
	DonorID       string    `json:"donorId"`
	RequestID     string    `json:"requestId,omitempty"`
	ProductType   string    `json:"productType"`
	Units         int       `json:"units"`
	ScheduledDate time.Time `json:"scheduledDate"`
	Notes         string    `json:"notes,omitempty"`
}

// StartRequest carries the health check performed before collection.
type StartRequest struct {
	HemoglobinLevel float64 `json:"hemoglobinLevel,omitempty"`
	BloodPressure   string  `json:"bloodPressure,omitempty"`
	PulseRate       int     `json:"pulseRate,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
	Weight          float64 `json:"weight,omitempty"`
	IsEligible      bool    `json:"isEligible"`
	Notes           string  `json:"notes,omitempty"`
	Phlebotomist    string  `json:"phlebotomist,omitempty"`
	Site            string  `json:"site,omitempty"`
}

// CompleteRequest closes the collection phase.
type CompleteRequest struct {
	EndTime        *time.Time `json:"endTime,omitempty"`
	Complications  string     `json:"complications,omitempty"`
	AftercareNotes string     `json:"aftercareNotes,omitempty"`
}

// TestResultsRequest is the laboratory panel submission.
type TestResultsRequest struct {
	HIV        string `json:"hiv"`
	HepatitisB string `json:"hepatitisB"`
	HepatitisC string `json:"hepatitisC"`
	Syphilis   string `json:"syphilis"`
	Malaria    string `json:"malaria"`
}

// StoreRequest banks a tested donation.
type StoreRequest struct {
	Location   string    `json:"location"`
	ExpiryDate time.Time `json:"expiryDate"`
}

// DistributeRequest sends a stored donation to a hospital.
type DistributeRequest struct {
	HospitalName    string `json:"hospitalName"`
	HospitalAddress string `json:"hospitalAddress,omitempty"`
	PatientRef      string `json:"patientRef,omitempty"`
}

// FeedbackRequest is the donor's rating payload.
type FeedbackRequest struct {
	Rating           int    `json:"rating"`
	Comment          string `json:"comment,omitempty"`
	WouldDonateAgain bool   `json:"wouldDonateAgain"`
}

// CancelBody carries the staff-supplied abort reason.
type CancelBody struct {
	Reason string `json:"reason"`
}

// ListFilters narrow a paginated listing.
type ListFilters struct {
	Status    string
	DonorID   string
	RequestID string
}

// PaginatedListResponse is a page of donations.
type PaginatedListResponse struct {
	Success    bool            `json:"success"`
	Donations  []Donation      `json:"donations"`
	Pagination pagination.Meta `json:"pagination"`
}
