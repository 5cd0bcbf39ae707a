package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/LifeLink-Blood-Care/blood-service/internal/messaging"
)

// Recipient kinds for notification facts.
const (
	RecipientDonor     = "donor"
	RecipientRequester = "requester"
	RecipientStaff     = "staff"
)

// Notification is one fact describing a user-visible change. Delivery
// channels (email, SMS, push) are downstream consumers' concern.
type Notification struct {
	messaging.BaseEvent
	RecipientID   string            `json:"recipient_id"`
	RecipientKind string            `json:"recipient_kind"`
	Title         string            `json:"title"`
	Message       string            `json:"message"`
	ResourceType  string            `json:"resource_type"`
	ResourceID    string            `json:"resource_id"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	SentAt        time.Time         `json:"sent_at"`
}

// Dispatcher publishes notification facts to the event exchange.
type Dispatcher struct {
	publisher messaging.PublisherInterface
}

func NewDispatcher(publisher messaging.PublisherInterface) *Dispatcher {
	return &Dispatcher{publisher: publisher}
}

func routingKeyFor(kind string) string {
	switch kind {
	case RecipientRequester:
		return messaging.EventNotificationRequester
	case RecipientStaff:
		return messaging.EventNotificationStaff
	default:
		return messaging.EventNotificationDonor
	}
}

// Send emits one notification fact. Errors are returned so callers can
// decide whether the failure matters; most call sites only log it.
func (d *Dispatcher) Send(ctx context.Context, n Notification) error {
	key := routingKeyFor(n.RecipientKind)
	n.BaseEvent = messaging.NewBaseEvent(key)
	n.SentAt = time.Now().UTC()
	return d.publisher.Publish(ctx, key, n)
}

// FanOut dispatches a batch of notifications concurrently. One recipient
// failing must not block the others, so failures are logged and counted
// rather than returned.
func (d *Dispatcher) FanOut(ctx context.Context, notifications []Notification) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for _, n := range notifications {
		wg.Add(1)
		go func(n Notification) {
			defer wg.Done()
			if err := d.Send(ctx, n); err != nil {
				log.Printf("Warning: failed to notify %s %s: %v", n.RecipientKind, n.RecipientID, err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(n)
	}

	wg.Wait()
	if failed > 0 {
		log.Printf("Notification fan-out finished with %d/%d failures", failed, len(notifications))
	}
	return len(notifications) - failed
}
