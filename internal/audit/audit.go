package audit

import (
	"context"
	"log"
	"time"

	"github.com/LifeLink-Blood-Care/blood-service/internal/messaging"
)

// Action names for every state-changing operation.
const (
	ActionRequestCreate   = "request.create"
	ActionRequestRespond  = "request.respond"
	ActionRequestConfirm  = "request.confirm_donor"
	ActionRequestComplete = "request.complete"
	ActionRequestUpdate   = "request.update"
	ActionRequestCancel   = "request.cancel"
	ActionRequestExpire   = "request.expire"

	ActionDonationSchedule   = "donation.schedule"
	ActionDonationStart      = "donation.start"
	ActionDonationComplete   = "donation.complete"
	ActionDonationTest       = "donation.test"
	ActionDonationDiscard    = "donation.discard"
	ActionDonationStore      = "donation.store"
	ActionDonationDistribute = "donation.distribute"
	ActionDonationFeedback   = "donation.feedback"
	ActionDonationCancel     = "donation.cancel"
)

// Risk tiers attached to audit facts.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// riskTiers is the fixed action→tier table. Destructive or irreversible
// actions (cancellation, discard-by-test-failure) are high; ordinary
// status progress is low or medium.
var riskTiers = map[string]string{
	ActionRequestCreate:   RiskLow,
	ActionRequestRespond:  RiskLow,
	ActionRequestConfirm:  RiskMedium,
	ActionRequestComplete: RiskMedium,
	ActionRequestUpdate:   RiskMedium,
	ActionRequestCancel:   RiskHigh,
	ActionRequestExpire:   RiskMedium,

	ActionDonationSchedule:   RiskLow,
	ActionDonationStart:      RiskMedium,
	ActionDonationComplete:   RiskMedium,
	ActionDonationTest:       RiskMedium,
	ActionDonationDiscard:    RiskHigh,
	ActionDonationStore:      RiskMedium,
	ActionDonationDistribute: RiskHigh,
	ActionDonationFeedback:   RiskLow,
	ActionDonationCancel:     RiskHigh,
}

// RiskTier returns the tier for an action, defaulting to medium for
// unknown actions so nothing is silently under-classified.
func RiskTier(action string) string {
	if tier, ok := riskTiers[action]; ok {
		return tier
	}
	return RiskMedium
}

// Fact is one audit entry emitted for a state-changing call.
type Fact struct {
	messaging.BaseEvent
	ActorID      string    `json:"actor_id"`
	ActorRole    string    `json:"actor_role"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	BeforeStatus string    `json:"before_status"`
	AfterStatus  string    `json:"after_status"`
	RiskTier     string    `json:"risk_tier"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Recorder publishes audit facts to the event exchange.
type Recorder struct {
	publisher messaging.PublisherInterface
}

func NewRecorder(publisher messaging.PublisherInterface) *Recorder {
	return &Recorder{publisher: publisher}
}

// Record emits one audit fact. Emission failures are logged and swallowed:
// the primary operation must stand even when the audit trail is unreachable.
func (r *Recorder) Record(ctx context.Context, actorID, actorRole, action, resourceType, resourceID, before, after string) {
	fact := Fact{
		BaseEvent:    messaging.NewBaseEvent(messaging.EventAuditRecorded),
		ActorID:      actorID,
		ActorRole:    actorRole,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		BeforeStatus: before,
		AfterStatus:  after,
		RiskTier:     RiskTier(action),
		RecordedAt:   time.Now().UTC(),
	}

	if err := r.publisher.Publish(ctx, messaging.EventAuditRecorded, fact); err != nil {
		log.Printf("Warning: failed to emit audit fact for %s on %s/%s: %v", action, resourceType, resourceID, err)
	}
}
