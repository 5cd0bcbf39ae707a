package request

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/LifeLink-Blood-Care/blood-service/internal/audit"
	"github.com/LifeLink-Blood-Care/blood-service/internal/auth"
	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
	"github.com/LifeLink-Blood-Care/blood-service/internal/locator"
	"github.com/LifeLink-Blood-Care/blood-service/internal/messaging"
	"github.com/LifeLink-Blood-Care/blood-service/internal/notify"
	"github.com/LifeLink-Blood-Care/blood-service/internal/pagination"
)

type Service struct {
	repo      RepositoryInterface
	locator   locator.Locator
	publisher messaging.PublisherInterface
	notifier  *notify.Dispatcher
	auditor   *audit.Recorder
}

func NewService(repo RepositoryInterface, loc locator.Locator, publisher messaging.PublisherInterface) *Service {
	return &Service{
		repo:      repo,
		locator:   loc,
		publisher: publisher,
		notifier:  notify.NewDispatcher(publisher),
		auditor:   audit.NewRecorder(publisher),
	}
}

// CreateRequest validates, durably stores, and then matches a new blood
// request. The request is saved before matching begins: a locator or
// notification failure degrades to "created but not yet matched" rather
// than losing the request.
func (s *Service) CreateRequest(ctx context.Context, req CreateRequest, principal *auth.Principal) (*BloodRequest, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := time.Now()
	record := &BloodRequest{
		ID:             uuid.New().String(),
		RequesterID:    principal.UserID,
		RequesterName:  req.RequesterName,
		RequesterPhone: req.RequesterPhone,
		RequesterEmail: req.RequesterEmail,
		PatientAge:     req.PatientAge,
		PatientGender:  req.PatientGender,
		BloodType:      bloodtype.BloodType(req.BloodType),
		ProductType:    ProductType(req.ProductType),
		Units:          req.Units,
		Urgency:        Urgency(req.Urgency),
		Reason:         req.Reason,
		RequiredBy:     req.RequiredBy,
		Longitude:      *req.Longitude,
		Latitude:       *req.Latitude,
		City:           req.City,
		State:          req.State,
		Status:         StatusPending,
		ExpiresAt:      now.Add(DefaultExpiry),
		CreatedAt:      now,
	}

	if err := s.repo.CreateRequest(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create blood request: %w", err)
	}

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionRequestCreate,
		"request", record.ID, "", string(record.Status))

	event := messaging.RequestCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventRequestCreated),
		Data: messaging.RequestCreatedData{
			RequestID:   record.ID,
			RequesterID: record.RequesterID,
			BloodType:   string(record.BloodType),
			ProductType: string(record.ProductType),
			Units:       record.Units,
			Urgency:     string(record.Urgency),
			City:        record.City,
			State:       record.State,
			RequiredBy:  record.RequiredBy,
			CreatedAt:   record.CreatedAt,
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventRequestCreated, event); err != nil {
		log.Printf("Warning: failed to publish request.created for %s: %v", record.ID, err)
	}

	// Matching fan-out. Failures here never roll the creation back.
	if err := s.matchDonors(ctx, record); err != nil {
		log.Printf("Warning: donor matching failed for request %s, created unmatched: %v", record.ID, err)
	}

	return record, nil
}

// matchDonors selects compatible available donors near the request and
// notifies them. Matching never mutates request state by itself; only an
// explicit donor response does.
func (s *Service) matchDonors(ctx context.Context, record *BloodRequest) error {
	acceptable, err := bloodtype.CompatibleDonors(record.BloodType)
	if err != nil {
		return err
	}

	candidates, err := s.locator.FindNearby(ctx, locator.Point{
		Longitude: record.Longitude,
		Latitude:  record.Latitude,
	}, DefaultMatchRadiusMeters, acceptable)
	if err != nil {
		return fmt.Errorf("locator query failed: %w", err)
	}

	if len(candidates) > MaxNotifiedDonors {
		candidates = candidates[:MaxNotifiedDonors]
	}

	notifications := make([]notify.Notification, 0, len(candidates))
	for _, donor := range candidates {
		notifications = append(notifications, notify.Notification{
			RecipientID:   donor.ID,
			RecipientKind: notify.RecipientDonor,
			Title:         "Blood donation needed near you",
			Message: fmt.Sprintf("A patient in %s urgently needs %d unit(s) of %s blood (urgency: %s).",
				record.City, record.Units, record.BloodType, record.Urgency),
			ResourceType: "request",
			ResourceID:   record.ID,
			Metadata: map[string]string{
				"blood_type": string(record.BloodType),
				"urgency":    string(record.Urgency),
			},
		})
	}

	sent := s.notifier.FanOut(ctx, notifications)
	log.Printf("Notified %d/%d candidate donors for request %s", sent, len(candidates), record.ID)

	// Separate broadcast batch for staff accounts.
	staffNote := notify.Notification{
		RecipientID:   "staff",
		RecipientKind: notify.RecipientStaff,
		Title:         "New blood request created",
		Message: fmt.Sprintf("Request %s: %d unit(s) of %s, urgency %s, %d candidate donors notified.",
			record.ID, record.Units, record.BloodType, record.Urgency, len(candidates)),
		ResourceType: "request",
		ResourceID:   record.ID,
	}
	if err := s.notifier.Send(ctx, staffNote); err != nil {
		log.Printf("Warning: failed to notify staff about request %s: %v", record.ID, err)
	}

	return nil
}

// GetRequest loads a request, applying the passive expiry check so a
// stale pending request is never observed as pending.
func (s *Service) GetRequest(ctx context.Context, id string) (*BloodRequest, error) {
	record, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	record, err = s.freshenExpiry(ctx, record)
	if err != nil {
		return nil, err
	}

	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		log.Printf("Warning: failed to increment view count for %s: %v", id, err)
	}

	return record, nil
}

// ListRequests retrieves requests with pagination and filters.
func (s *Service) ListRequests(ctx context.Context, params pagination.Params, filters ListFilters) (*PaginatedListResponse, error) {
	params.Validate()

	requests, totalCount, err := s.repo.ListRequests(ctx, params.Limit, params.CalculateOffset(), filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list blood requests: %w", err)
	}

	return &PaginatedListResponse{
		Success:    true,
		Requests:   requests,
		Pagination: params.CalculateMeta(totalCount),
	}, nil
}

// Respond records a donor's accept or decline. A donor gets exactly one
// response per request; a second call reports already-responded.
func (s *Service) Respond(ctx context.Context, requestID, donorID string, req RespondRequest) (*BloodRequest, error) {
	var matchStatus MatchStatus
	switch req.Response {
	case "accept":
		matchStatus = MatchAccepted
	case "decline":
		matchStatus = MatchDeclined
	default:
		return nil, ErrInvalidResponse
	}

	record, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	record, err = s.freshenExpiry(ctx, record)
	if err != nil {
		return nil, err
	}

	if record.Status.Terminal() {
		return nil, newIllegalTransition(record.Status, "respond")
	}

	inserted, err := s.repo.InsertMatch(ctx, MatchedDonor{
		RequestID:  requestID,
		DonorID:    donorID,
		DonorName:  req.DonorName,
		DonorPhone: req.DonorPhone,
		Status:     matchStatus,
		Notes:      req.Notes,
		MatchedAt:  time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrAlreadyResponded
	}

	if err := s.repo.IncrementResponseCount(ctx, requestID); err != nil {
		log.Printf("Warning: failed to increment response count for %s: %v", requestID, err)
	}

	before := record.Status
	if matchStatus == MatchAccepted && record.Status == StatusPending {
		advanced, err := s.repo.SetMatchedStatus(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if advanced {
			record.Status = StatusMatched
		}
	}

	s.auditor.Record(ctx, donorID, "DONOR", audit.ActionRequestRespond,
		"request", requestID, string(before), string(record.Status))

	event := messaging.RequestMatchedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventRequestMatched),
		Data: messaging.RequestMatchedData{
			RequestID: requestID,
			DonorID:   donorID,
			Response:  string(matchStatus),
			MatchedAt: time.Now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventRequestMatched, event); err != nil {
		log.Printf("Warning: failed to publish request.matched for %s: %v", requestID, err)
	}

	verb := "declined"
	if matchStatus == MatchAccepted {
		verb = "accepted"
	}
	note := notify.Notification{
		RecipientID:   record.RequesterID,
		RecipientKind: notify.RecipientRequester,
		Title:         "A donor responded to your request",
		Message:       fmt.Sprintf("Donor %s has %s your blood request.", req.DonorName, verb),
		ResourceType:  "request",
		ResourceID:    requestID,
	}
	if err := s.notifier.Send(ctx, note); err != nil {
		log.Printf("Warning: failed to notify requester for %s: %v", requestID, err)
	}

	return s.repo.GetRequest(ctx, requestID)
}

// ConfirmDonor selects one matched donor to donate. Only the requester or
// staff may confirm, and only a donor already present in the match list.
func (s *Service) ConfirmDonor(ctx context.Context, requestID string, req ConfirmDonorRequest, principal *auth.Principal) (*BloodRequest, error) {
	record, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !principal.HasAnyRole("STAFF", "ADMIN") && record.RequesterID != principal.UserID {
		return nil, ErrForbidden
	}

	record, err = s.freshenExpiry(ctx, record)
	if err != nil {
		return nil, err
	}

	if record.Status.Terminal() {
		return nil, newIllegalTransition(record.Status, "confirm_donor")
	}

	found := false
	for _, m := range record.MatchedDonors {
		if m.DonorID == req.DonorID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrDonorNotMatched
	}

	confirmedAt := time.Now()
	if err := s.repo.UpdateMatchStatus(ctx, requestID, req.DonorID, MatchAccepted, ""); err != nil {
		return nil, err
	}
	applied, err := s.repo.ConfirmDonor(ctx, requestID, ConfirmedDonor{
		DonorID:          req.DonorID,
		DonationDate:     req.DonationDate,
		DonationTime:     req.DonationTime,
		DonationLocation: req.DonationLocation,
		ConfirmedAt:      confirmedAt,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.staleTransition(ctx, requestID, "confirm_donor")
	}

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionRequestConfirm,
		"request", requestID, string(record.Status), string(StatusConfirmed))

	event := messaging.RequestConfirmedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventRequestConfirmed),
		Data: messaging.RequestConfirmedData{
			RequestID:        requestID,
			DonorID:          req.DonorID,
			DonationDate:     req.DonationDate,
			DonationTime:     req.DonationTime,
			DonationLocation: req.DonationLocation,
			ConfirmedAt:      confirmedAt,
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventRequestConfirmed, event); err != nil {
		log.Printf("Warning: failed to publish request.confirmed for %s: %v", requestID, err)
	}

	note := notify.Notification{
		RecipientID:   req.DonorID,
		RecipientKind: notify.RecipientDonor,
		Title:         "You are confirmed to donate",
		Message: fmt.Sprintf("Please donate on %s at %s, %s.",
			req.DonationDate, req.DonationTime, req.DonationLocation),
		ResourceType: "request",
		ResourceID:   requestID,
	}
	if err := s.notifier.Send(ctx, note); err != nil {
		log.Printf("Warning: failed to notify confirmed donor for %s: %v", requestID, err)
	}

	return s.repo.GetRequest(ctx, requestID)
}

// CompleteRequest closes a request from any non-terminal status.
func (s *Service) CompleteRequest(ctx context.Context, requestID string, req CompleteRequest, principal *auth.Principal) (*BloodRequest, error) {
	record, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !principal.HasAnyRole("STAFF", "ADMIN") && record.RequesterID != principal.UserID {
		return nil, ErrForbidden
	}

	record, err = s.freshenExpiry(ctx, record)
	if err != nil {
		return nil, err
	}

	if record.Status.Terminal() {
		return nil, newIllegalTransition(record.Status, "complete")
	}

	completedAt := time.Now()
	applied, err := s.repo.CompleteRequest(ctx, requestID, req.UnitsReceived, req.Notes, completedAt)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.staleTransition(ctx, requestID, "complete")
	}

	if record.ConfirmedDonor != nil {
		if err := s.repo.UpdateMatchStatus(ctx, requestID, record.ConfirmedDonor.DonorID, MatchCompleted, ""); err != nil {
			log.Printf("Warning: failed to mark confirmed donor completed for %s: %v", requestID, err)
		}
	}

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionRequestComplete,
		"request", requestID, string(record.Status), string(StatusCompleted))

	s.publishClosed(ctx, messaging.EventRequestCompleted, requestID, record.Status, StatusCompleted, "", req.UnitsReceived)

	note := notify.Notification{
		RecipientID:   record.RequesterID,
		RecipientKind: notify.RecipientRequester,
		Title:         "Blood request completed",
		Message:       fmt.Sprintf("Your request was completed with %d unit(s) received.", req.UnitsReceived),
		ResourceType:  "request",
		ResourceID:    requestID,
	}
	if err := s.notifier.Send(ctx, note); err != nil {
		log.Printf("Warning: failed to notify requester for %s: %v", requestID, err)
	}

	return s.repo.GetRequest(ctx, requestID)
}

// CancelRequest cancels with a mandatory reason and notifies every
// matched donor.
func (s *Service) CancelRequest(ctx context.Context, requestID, reason string, principal *auth.Principal) (*BloodRequest, error) {
	if reason == "" {
		return nil, ErrMissingCancelReason
	}

	record, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !principal.HasAnyRole("STAFF", "ADMIN") && record.RequesterID != principal.UserID {
		return nil, ErrForbidden
	}

	record, err = s.freshenExpiry(ctx, record)
	if err != nil {
		return nil, err
	}

	if record.Status.Terminal() {
		return nil, newIllegalTransition(record.Status, "cancel")
	}

	applied, err := s.repo.CancelRequest(ctx, requestID, reason)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.staleTransition(ctx, requestID, "cancel")
	}

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionRequestCancel,
		"request", requestID, string(record.Status), string(StatusCancelled))

	s.publishClosed(ctx, messaging.EventRequestCancelled, requestID, record.Status, StatusCancelled, reason, 0)

	notifications := make([]notify.Notification, 0, len(record.MatchedDonors))
	for _, m := range record.MatchedDonors {
		notifications = append(notifications, notify.Notification{
			RecipientID:   m.DonorID,
			RecipientKind: notify.RecipientDonor,
			Title:         "Blood request cancelled",
			Message:       fmt.Sprintf("The blood request you responded to was cancelled: %s", reason),
			ResourceType:  "request",
			ResourceID:    requestID,
		})
	}
	s.notifier.FanOut(ctx, notifications)

	return s.repo.GetRequest(ctx, requestID)
}

// UpdateRequest mutates urgency, deadline and notes for the requester or
// staff. Status changes are staff-only and must respect the monotonic
// progression.
func (s *Service) UpdateRequest(ctx context.Context, requestID string, upd UpdateRequest, principal *auth.Principal) (*BloodRequest, error) {
	record, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	isStaff := principal.HasAnyRole("STAFF", "ADMIN")
	if !isStaff && record.RequesterID != principal.UserID {
		return nil, ErrForbidden
	}

	record, err = s.freshenExpiry(ctx, record)
	if err != nil {
		return nil, err
	}

	if record.Status.Terminal() {
		return nil, newIllegalTransition(record.Status, "update")
	}

	if upd.Urgency != nil && !Urgency(*upd.Urgency).Valid() {
		return nil, ErrInvalidUrgency
	}
	if upd.RequiredBy != nil && !upd.RequiredBy.After(time.Now()) {
		return nil, ErrRequiredByNotFuture
	}

	if upd.Status != nil {
		if !isStaff {
			return nil, ErrForbidden
		}
		target := Status(*upd.Status)
		switch target {
		case StatusPending, StatusMatched, StatusConfirmed, StatusFulfilled, StatusCompleted, StatusCancelled:
		default:
			return nil, ErrInvalidStatus
		}
		if target != StatusCancelled {
			if statusRank[target] < statusRank[record.Status] {
				return nil, ErrBackwardStatus
			}
		}
	}

	applied, err := s.repo.UpdateRequest(ctx, requestID, upd)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.staleTransition(ctx, requestID, "update")
	}

	after := record.Status
	if upd.Status != nil {
		after = Status(*upd.Status)
	}
	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionRequestUpdate,
		"request", requestID, string(record.Status), string(after))

	return s.repo.GetRequest(ctx, requestID)
}

// SweepExpired expires every overdue pending request. Used by the sweeper
// job; the same rule runs on-read via freshenExpiry.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	due, err := s.repo.ListExpiryDue(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		if _, err := s.freshenExpiry(ctx, &due[i]); err != nil {
			log.Printf("Failed to expire request %s: %v", due[i].ID, err)
			continue
		}
		expired++
	}

	return expired, nil
}

// staleTransition reloads after a lost compare-and-set so the error
// reports the status that actually won.
func (s *Service) staleTransition(ctx context.Context, requestID, attempted string) (*BloodRequest, error) {
	current, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return nil, newIllegalTransition(current.Status, attempted)
}

// freshenExpiry applies the passive time-driven expiry rule: a pending
// request past its expiry timestamp or required-by date is forced to
// expired before anyone observes it.
func (s *Service) freshenExpiry(ctx context.Context, record *BloodRequest) (*BloodRequest, error) {
	if record.Status != StatusPending {
		return record, nil
	}
	now := time.Now()
	if now.Before(record.ExpiresAt) && now.Before(record.RequiredBy) {
		return record, nil
	}

	flipped, err := s.repo.ExpirePending(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	if !flipped {
		// Lost the race to a concurrent transition; reload for truth.
		return s.repo.GetRequest(ctx, record.ID)
	}

	before := record.Status
	record.Status = StatusExpired

	s.auditor.Record(ctx, "system", "SYSTEM", audit.ActionRequestExpire,
		"request", record.ID, string(before), string(StatusExpired))
	s.publishClosed(ctx, messaging.EventRequestExpired, record.ID, before, StatusExpired, "deadline passed", 0)

	note := notify.Notification{
		RecipientID:   record.RequesterID,
		RecipientKind: notify.RecipientRequester,
		Title:         "Blood request expired",
		Message:       "Your blood request expired before a donor was confirmed.",
		ResourceType:  "request",
		ResourceID:    record.ID,
	}
	if err := s.notifier.Send(ctx, note); err != nil {
		log.Printf("Warning: failed to send expiry notification for %s: %v", record.ID, err)
	}

	return record, nil
}

func (s *Service) publishClosed(ctx context.Context, routingKey, requestID string, before, after Status, reason string, units int) {
	event := messaging.RequestClosedEvent{
		BaseEvent: messaging.NewBaseEvent(routingKey),
		Data: messaging.RequestClosedData{
			RequestID:     requestID,
			OldStatus:     string(before),
			NewStatus:     string(after),
			Reason:        reason,
			UnitsReceived: units,
			ClosedAt:      time.Now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("Warning: failed to publish %s for %s: %v", routingKey, requestID, err)
	}
}

func validateCreate(req CreateRequest) error {
	if req.RequesterName == "" || req.RequesterPhone == "" {
		return ErrMissingRequester
	}
	if !bloodtype.BloodType(req.BloodType).Valid() {
		return ErrInvalidBloodType
	}
	if !ProductType(req.ProductType).Valid() {
		return ErrInvalidProductType
	}
	if req.Units < MinUnits || req.Units > MaxUnits {
		return ErrInvalidUnits
	}
	if !Urgency(req.Urgency).Valid() {
		return ErrInvalidUrgency
	}
	if !req.RequiredBy.After(time.Now()) {
		return ErrRequiredByNotFuture
	}
	if req.Longitude == nil || req.Latitude == nil {
		return ErrMissingLocation
	}
	return nil
}
