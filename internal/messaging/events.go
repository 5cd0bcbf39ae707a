package messaging

import (
	"fmt"
	"time"
)

// Event routing keys as constants
const (
	// Blood request events
	EventRequestCreated   = "request.created"
	EventRequestMatched   = "request.matched"
	EventRequestConfirmed = "request.confirmed"
	EventRequestCompleted = "request.completed"
	EventRequestCancelled = "request.cancelled"
	EventRequestExpired   = "request.expired"

	// Donation events
	EventDonationScheduled   = "donation.scheduled"
	EventDonationStarted     = "donation.started"
	EventDonationCompleted   = "donation.completed"
	EventDonationTested      = "donation.tested"
	EventDonationDiscarded   = "donation.discarded"
	EventDonationStored      = "donation.stored"
	EventDonationDistributed = "donation.distributed"
	EventDonationCancelled   = "donation.cancelled"

	// Collaborator facts
	EventNotificationDonor     = "notification.donor"
	EventNotificationRequester = "notification.requester"
	EventNotificationStaff     = "notification.staff"
	EventAuditRecorded         = "audit.recorded"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// RequestCreatedEvent is emitted once a blood request is durably stored,
// before donor matching begins.
type RequestCreatedEvent struct {
	BaseEvent
	Data RequestCreatedData `json:"data"`
}

type RequestCreatedData struct {
	RequestID   string    `json:"request_id"`
	RequesterID string    `json:"requester_id"`
	BloodType   string    `json:"blood_type"`
	ProductType string    `json:"product_type"`
	Units       int       `json:"units"`
	Urgency     string    `json:"urgency"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	RequiredBy  time.Time `json:"required_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// RequestMatchedEvent is emitted when a donor responds to a request.
type RequestMatchedEvent struct {
	BaseEvent
	Data RequestMatchedData `json:"data"`
}

type RequestMatchedData struct {
	RequestID string    `json:"request_id"`
	DonorID   string    `json:"donor_id"`
	Response  string    `json:"response"` // accepted or declined
	MatchedAt time.Time `json:"matched_at"`
}

// RequestConfirmedEvent is emitted when a matched donor is confirmed.
type RequestConfirmedEvent struct {
	BaseEvent
	Data RequestConfirmedData `json:"data"`
}

type RequestConfirmedData struct {
	RequestID        string    `json:"request_id"`
	DonorID          string    `json:"donor_id"`
	DonationDate     string    `json:"donation_date"`
	DonationTime     string    `json:"donation_time"`
	DonationLocation string    `json:"donation_location"`
	ConfirmedAt      time.Time `json:"confirmed_at"`
}

// RequestClosedEvent is emitted for completion, cancellation and expiry.
type RequestClosedEvent struct {
	BaseEvent
	Data RequestClosedData `json:"data"`
}

type RequestClosedData struct {
	RequestID     string    `json:"request_id"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	Reason        string    `json:"reason,omitempty"`
	UnitsReceived int       `json:"units_received,omitempty"`
	ClosedAt      time.Time `json:"closed_at"`
}

// DonationStatusChangedEvent is emitted for every donation pipeline
// transition. Stage-specific facts ride in the optional fields so each
// transition carries exactly what is relevant to it.
type DonationStatusChangedEvent struct {
	BaseEvent
	Data DonationStatusChangedData `json:"data"`
}

type DonationStatusChangedData struct {
	DonationID  string    `json:"donation_id"`
	DonorID     string    `json:"donor_id"`
	RequestID   string    `json:"request_id,omitempty"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	BatchNumber string    `json:"batch_number,omitempty"`
	Suitable    *bool     `json:"suitable,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     fmt.Sprintf("%d", time.Now().UnixNano()),
		Timestamp:   time.Now().UTC(), // Explicitly set to UTC
		ServiceName: "blood-service",
	}
}
