package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/LifeLink-Blood-Care/blood-service/internal/messaging"
	"github.com/LifeLink-Blood-Care/blood-service/internal/testutil"
)

// TestSend_RoutesByRecipientKind tests routing key selection per recipient.
func TestSend_RoutesByRecipientKind(t *testing.T) {
	mockPublisher := testutil.NewMockPublisher()
	dispatcher := NewDispatcher(mockPublisher)

	cases := []struct {
		kind string
		key  string
	}{
		{RecipientDonor, messaging.EventNotificationDonor},
		{RecipientRequester, messaging.EventNotificationRequester},
		{RecipientStaff, messaging.EventNotificationStaff},
	}

	for _, tc := range cases {
		err := dispatcher.Send(context.Background(), Notification{
			RecipientID:   "user-1",
			RecipientKind: tc.kind,
			Title:         "test",
		})
		if err != nil {
			t.Fatalf("Unexpected error for %s: %v", tc.kind, err)
		}
		mockPublisher.AssertEventPublished(t, tc.key)
	}
}

// TestFanOut_PartialFailure tests that one failing recipient does not block
// delivery to the others.
func TestFanOut_PartialFailure(t *testing.T) {
	pub := &selectivePublisher{failFor: "donor-2"}
	dispatcher := NewDispatcher(pub)

	notifications := []Notification{
		{RecipientID: "donor-1", RecipientKind: RecipientDonor},
		{RecipientID: "donor-2", RecipientKind: RecipientDonor},
		{RecipientID: "donor-3", RecipientKind: RecipientDonor},
	}

	sent := dispatcher.FanOut(context.Background(), notifications)

	if sent != 2 {
		t.Errorf("Expected 2 successful notifications, got %d", sent)
	}
	if pub.attempts() != 3 {
		t.Errorf("Expected 3 delivery attempts, got %d", pub.attempts())
	}
}

// TestFanOut_Empty tests fan-out over an empty batch.
func TestFanOut_Empty(t *testing.T) {
	dispatcher := NewDispatcher(testutil.NewMockPublisher())
	if sent := dispatcher.FanOut(context.Background(), nil); sent != 0 {
		t.Errorf("Expected 0 sent, got %d", sent)
	}
}

// selectivePublisher fails delivery for a single recipient id.
type selectivePublisher struct {
	mu      sync.Mutex
	failFor string
	count   int
}

func (p *selectivePublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	p.mu.Lock()
	p.count++
	p.mu.Unlock()

	n, ok := eventData.(Notification)
	if ok && n.RecipientID == p.failFor {
		return errors.New("delivery failed")
	}
	return nil
}

func (p *selectivePublisher) Close() error { return nil }

func (p *selectivePublisher) attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
