package donation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/LifeLink-Blood-Care/blood-service/internal/audit"
	"github.com/LifeLink-Blood-Care/blood-service/internal/auth"
	"github.com/LifeLink-Blood-Care/blood-service/internal/donor"
	"github.com/LifeLink-Blood-Care/blood-service/internal/messaging"
	"github.com/LifeLink-Blood-Care/blood-service/internal/notify"
	"github.com/LifeLink-Blood-Care/blood-service/internal/pagination"
)

// Batch numbers are human-readable bank labels, not secrets. The
// crockford-style alphabet avoids lookalike characters on printed bags.
const batchAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// AvailabilityMarker flips a donor's availability flag in one backing
// store. The donor repository and the spatial locator index both
// implement it.
type AvailabilityMarker interface {
	SetAvailability(ctx context.Context, donorID string, available bool) error
}

type Service struct {
	repo      RepositoryInterface
	donors    donor.RepositoryInterface
	publisher messaging.PublisherInterface
	notifier  *notify.Dispatcher
	auditor   *audit.Recorder
	markers   []AvailabilityMarker
}

func NewService(repo RepositoryInterface, donors donor.RepositoryInterface, publisher messaging.PublisherInterface, markers ...AvailabilityMarker) *Service {
	return &Service{
		repo:      repo,
		donors:    donors,
		publisher: publisher,
		notifier:  notify.NewDispatcher(publisher),
		auditor:   audit.NewRecorder(publisher),
		markers:   markers,
	}
}

// markAvailability updates every registered availability store. A donor
// is marked unavailable while their donation is being collected and
// restored once the collection ends or is aborted. Failures are logged;
// a stale flag must not fail the pipeline transition that caused it.
func (s *Service) markAvailability(ctx context.Context, donorID string, available bool) {
	for _, m := range s.markers {
		if err := m.SetAvailability(ctx, donorID, available); err != nil {
			log.Printf("Warning: failed to set availability for donor %s: %v", donorID, err)
		}
	}
}

// Schedule books a donation slot. Donors book for themselves; staff may
// book on any donor's behalf. Missing phone or blood type on the donor
// record blocks scheduling outright; eligibility concerns (recent
// donation, medical flags) only produce warnings, because full
// eligibility is re-verified by staff at health-check time.
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest, principal *auth.Principal) (*Donation, []string, error) {
	isStaff := principal.HasAnyRole("STAFF", "ADMIN")
	if req.DonorID == "" {
		if isStaff {
			return nil, nil, ErrMissingDonor
		}
		req.DonorID = principal.UserID
	}
	if !isStaff && req.DonorID != principal.UserID {
		return nil, nil, ErrForbidden
	}
	if !ProductType(req.ProductType).Valid() {
		return nil, nil, ErrInvalidProduct
	}
	if req.Units < MinUnits || req.Units > MaxUnits {
		return nil, nil, ErrInvalidUnits
	}
	if !req.ScheduledDate.After(time.Now()) {
		return nil, nil, ErrScheduleNotFuture
	}
	if req.RequestID != "" {
		exists, err := s.repo.RequestExists(ctx, req.RequestID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to validate linked request: %w", err)
		}
		if !exists {
			return nil, nil, ErrRequestNotFound
		}
	}

	d, err := s.donors.GetDonor(ctx, req.DonorID)
	if err != nil {
		return nil, nil, err
	}
	if d.PhoneNumber == "" {
		return nil, nil, donor.ErrMissingPhone
	}
	if d.BloodType == "" {
		return nil, nil, donor.ErrMissingBloodType
	}

	warnings := d.EligibilityWarnings(time.Now())
	for _, w := range warnings {
		log.Printf("Eligibility warning for donor %s: %s", d.ID, w)
	}

	record := &Donation{
		ID:            uuid.New().String(),
		DonorID:       d.ID,
		DonorName:     d.Name,
		DonorPhone:    d.PhoneNumber,
		DonorEmail:    d.Email,
		BloodType:     d.BloodType,
		RequestID:     req.RequestID,
		ProductType:   ProductType(req.ProductType),
		Units:         req.Units,
		ScheduledDate: req.ScheduledDate,
		Status:        StatusScheduled,
		Notes:         req.Notes,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.CreateDonation(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("failed to create donation: %w", err)
	}

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionDonationSchedule,
		"donation", record.ID, "", string(StatusScheduled))
	s.publishStatusChange(ctx, messaging.EventDonationScheduled, record, "", StatusScheduled, nil, "")

	note := notify.Notification{
		RecipientID:   record.DonorID,
		RecipientKind: notify.RecipientDonor,
		Title:         "Donation appointment scheduled",
		Message: fmt.Sprintf("Your %s donation is scheduled for %s.",
			record.ProductType, record.ScheduledDate.Format("Mon, 02 Jan 2006 15:04")),
		ResourceType: "donation",
		ResourceID:   record.ID,
	}
	if err := s.notifier.Send(ctx, note); err != nil {
		log.Printf("Warning: failed to notify donor about donation %s: %v", record.ID, err)
	}

	return record, warnings, nil
}

func (s *Service) GetDonation(ctx context.Context, id string) (*Donation, error) {
	return s.repo.GetDonation(ctx, id)
}

func (s *Service) ListDonations(ctx context.Context, params pagination.Params, filters ListFilters) (*PaginatedListResponse, error) {
	params.Validate()

	donations, totalCount, err := s.repo.ListDonations(ctx, params.Limit, params.CalculateOffset(), filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}

	return &PaginatedListResponse{
		Success:    true,
		Donations:  donations,
		Pagination: params.CalculateMeta(totalCount),
	}, nil
}

// Start records the pre-donation health check. A failed screen cancels
// the donation outright, skipping in_progress.
func (s *Service) Start(ctx context.Context, id string, req StartRequest, principal *auth.Principal) (*Donation, error) {
	record, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusScheduled {
		return nil, newIllegalTransition(record.Status, "start")
	}

	now := time.Now()
	hc := HealthCheck{
		HemoglobinLevel: req.HemoglobinLevel,
		BloodPressure:   req.BloodPressure,
		PulseRate:       req.PulseRate,
		Temperature:     req.Temperature,
		Weight:          req.Weight,
		IsEligible:      req.IsEligible,
		ExaminerID:      principal.UserID,
		Notes:           req.Notes,
		CheckedAt:       now,
	}

	if !req.IsEligible {
		applied, err := s.repo.TransitionStart(ctx, id, hc, nil, StatusCancelled)
		if err != nil {
			return nil, err
		}
		if !applied {
			return s.staleTransition(ctx, id, "start")
		}

		s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionDonationStart,
			"donation", id, string(StatusScheduled), string(StatusCancelled))
		s.publishStatusChange(ctx, messaging.EventDonationCancelled, record, StatusScheduled, StatusCancelled, nil, "failed pre-donation health screening")

		note := notify.Notification{
			RecipientID:   record.DonorID,
			RecipientKind: notify.RecipientDonor,
			Title:         "Donation cancelled after health check",
			Message:       "Today's health screening found you ineligible to donate. Thank you for coming in; please consult the staff about when you can try again.",
			ResourceType:  "donation",
			ResourceID:    id,
		}
		if err := s.notifier.Send(ctx, note); err != nil {
			log.Printf("Warning: failed to notify donor about donation %s: %v", id, err)
		}

		return s.repo.GetDonation(ctx, id)
	}

	col := &Collection{
		StartTime:    now,
		Phlebotomist: req.Phlebotomist,
		Site:         req.Site,
	}
	applied, err := s.repo.TransitionStart(ctx, id, hc, col, StatusInProgress)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.staleTransition(ctx, id, "start")
	}

	s.markAvailability(ctx, record.DonorID, false)

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionDonationStart,
		"donation", id, string(StatusScheduled), string(StatusInProgress))
	s.publishStatusChange(ctx, messaging.EventDonationStarted, record, StatusScheduled, StatusInProgress, nil, "")

	return s.repo.GetDonation(ctx, id)
}

// Complete closes the collection phase and credits the donor's running
// donation count.
func (s *Service) Complete(ctx context.Context, id string, req CompleteRequest, principal *auth.Principal) (*Donation, error) {
	record, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusInProgress {
		return nil, newIllegalTransition(record.Status, "complete")
	}

	end := time.Now()
	if req.EndTime != nil {
		end = *req.EndTime
	}

	col := Collection{}
	if record.Collection != nil {
		col = *record.Collection
	}
	col.EndTime = &end
	col.DurationMinutes = int(end.Sub(col.StartTime).Minutes())
	col.Complications = req.Complications
	col.AftercareNotes = req.AftercareNotes

	applied, err := s.repo.TransitionComplete(ctx, id, col)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.staleTransition(ctx, id, "complete")
	}

	if err := s.donors.RecordDonationCompleted(ctx, record.DonorID, end); err != nil {
		log.Printf("Warning: failed to update donor stats for %s: %v", record.DonorID, err)
	}
	s.markAvailability(ctx, record.DonorID, true)

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionDonationComplete,
		"donation", id, string(StatusInProgress), string(StatusCompleted))
	s.publishStatusChange(ctx, messaging.EventDonationCompleted, record, StatusInProgress, StatusCompleted, nil, "")

	note := notify.Notification{
		RecipientID:   record.DonorID,
		RecipientKind: notify.RecipientDonor,
		Title:         "Thank you for donating",
		Message:       fmt.Sprintf("Your donation of %d unit(s) is complete. Your blood now goes to laboratory testing.", record.Units),
		ResourceType:  "donation",
		ResourceID:    id,
	}
	if err := s.notifier.Send(ctx, note); err != nil {
		log.Printf("Warning: failed to notify donor about donation %s: %v", id, err)
	}

	return s.repo.GetDonation(ctx, id)
}

// RecordTestResults stores the laboratory panel. Any non-negative result
// makes the donation unsuitable and diverts it to the terminal discarded
// state.
func (s *Service) RecordTestResults(ctx context.Context, id string, req TestResultsRequest, principal *auth.Principal) (*Donation, error) {
	results := TestResults{
		HIV:        TestResult(req.HIV),
		HepatitisB: TestResult(req.HepatitisB),
		HepatitisC: TestResult(req.HepatitisC),
		Syphilis:   TestResult(req.Syphilis),
		Malaria:    TestResult(req.Malaria),
		TestedBy:   principal.UserID,
		TestedAt:   time.Now(),
	}
	for _, r := range []TestResult{results.HIV, results.HepatitisB, results.HepatitisC, results.Syphilis, results.Malaria} {
		if !r.Valid() {
			return nil, ErrInvalidTestResult
		}
	}

	record, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusCompleted {
		return nil, newIllegalTransition(record.Status, "record_test_results")
	}

	results.Suitable = results.AllNegative()
	newStatus := StatusTested
	if !results.Suitable {
		newStatus = StatusDiscarded
	}

	applied, err := s.repo.TransitionTested(ctx, id, results, newStatus)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.staleTransition(ctx, id, "record_test_results")
	}

	if results.Suitable {
		s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionDonationTest,
			"donation", id, string(StatusCompleted), string(StatusTested))
		s.publishStatusChange(ctx, messaging.EventDonationTested, record, StatusCompleted, StatusTested, &results.Suitable, "")
	} else {
		s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionDonationDiscard,
			"donation", id, string(StatusCompleted), string(StatusDiscarded))
		s.publishStatusChange(ctx, messaging.EventDonationDiscarded, record, StatusCompleted, StatusDiscarded, &results.Suitable, "positive or pending pathogen test result")

		note := notify.Notification{
			RecipientID:   record.DonorID,
			RecipientKind: notify.RecipientDonor,
			Title:         "Follow-up needed on your donation",
			Message:       "Laboratory screening of your recent donation needs a follow-up. Our medical staff will contact you confidentially.",
			ResourceType:  "donation",
			ResourceID:    id,
		}
		if err := s.notifier.Send(ctx, note); err != nil {
			log.Printf("Warning: failed to notify donor about donation %s: %v", id, err)
		}
	}

	return s.repo.GetDonation(ctx, id)
}

// Store banks a suitable tested donation under a generated batch number.
func (s *Service) Store(ctx context.Context, id string, req StoreRequest, principal *auth.Principal) (*Donation, error) {
	if req.Location == "" {
		return nil, ErrMissingLocation
	}
	if !req.ExpiryDate.After(time.Now()) {
		return nil, ErrExpiryNotFuture
	}

	record, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusTested {
		return nil, newIllegalTransition(record.Status, "store")
	}
	if record.TestResults == nil || !record.TestResults.Suitable {
		return nil, newIllegalTransition(record.Status, "store")
	}

	st := Storage{
		Location:    req.Location,
		BatchNumber: "BB-" + gonanoid.MustGenerate(batchAlphabet, 10),
		ExpiryDate:  req.ExpiryDate,
		StoredAt:    time.Now(),
	}

	applied, err := s.repo.TransitionStored(ctx, id, st)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.staleTransition(ctx, id, "store")
	}

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionDonationStore,
		"donation", id, string(StatusTested), string(StatusStored))
	s.publishBatchChange(ctx, messaging.EventDonationStored, record, StatusTested, StatusStored, st.BatchNumber)

	return s.repo.GetDonation(ctx, id)
}

// Distribute releases a stored donation to a hospital, provided it has
// not passed its expiry date, and credits the donor's lives-saved count.
func (s *Service) Distribute(ctx context.Context, id string, req DistributeRequest, principal *auth.Principal) (*Donation, error) {
	if req.HospitalName == "" {
		return nil, ErrMissingHospital
	}

	record, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusStored {
		return nil, newIllegalTransition(record.Status, "distribute")
	}
	if record.Storage != nil && !time.Now().Before(record.Storage.ExpiryDate) {
		return nil, newIllegalTransition(record.Status, "distribute_expired")
	}

	dist := Distribution{
		HospitalName:    req.HospitalName,
		HospitalAddress: req.HospitalAddress,
		PatientRef:      req.PatientRef,
		DistributedBy:   principal.UserID,
		DistributedAt:   time.Now(),
	}

	applied, err := s.repo.TransitionDistributed(ctx, id, dist)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.staleTransition(ctx, id, "distribute")
	}

	if err := s.donors.IncrementLivesSaved(ctx, record.DonorID, record.Units); err != nil {
		log.Printf("Warning: failed to update donor stats for %s: %v", record.DonorID, err)
	}

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionDonationDistribute,
		"donation", id, string(StatusStored), string(StatusDistributed))
	batch := ""
	if record.Storage != nil {
		batch = record.Storage.BatchNumber
	}
	s.publishBatchChange(ctx, messaging.EventDonationDistributed, record, StatusStored, StatusDistributed, batch)

	note := notify.Notification{
		RecipientID:   record.DonorID,
		RecipientKind: notify.RecipientDonor,
		Title:         "Your blood reached a patient",
		Message:       fmt.Sprintf("Your donation was sent to %s. Thank you for saving lives.", req.HospitalName),
		ResourceType:  "donation",
		ResourceID:    id,
	}
	if err := s.notifier.Send(ctx, note); err != nil {
		log.Printf("Warning: failed to notify donor about donation %s: %v", id, err)
	}

	return s.repo.GetDonation(ctx, id)
}

// SubmitFeedback attaches the donor's rating. Only the donation's own
// donor may submit, and the pipeline status is never touched.
func (s *Service) SubmitFeedback(ctx context.Context, id string, req FeedbackRequest, principal *auth.Principal) (*Donation, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	record, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.DonorID != principal.UserID {
		return nil, ErrForbidden
	}

	fb := Feedback{
		Rating:           req.Rating,
		Comment:          req.Comment,
		WouldDonateAgain: req.WouldDonateAgain,
		SubmittedAt:      time.Now(),
	}
	if err := s.repo.SetFeedback(ctx, id, fb); err != nil {
		return nil, err
	}

	if err := s.donors.AddRating(ctx, record.DonorID, req.Rating); err != nil {
		log.Printf("Warning: failed to update donor rating for %s: %v", record.DonorID, err)
	}

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionDonationFeedback,
		"donation", id, string(record.Status), string(record.Status))

	return s.repo.GetDonation(ctx, id)
}

// Cancel is the staff abort path, legal from any non-terminal stage.
func (s *Service) Cancel(ctx context.Context, id, reason string, principal *auth.Principal) (*Donation, error) {
	if reason == "" {
		return nil, ErrMissingReason
	}

	record, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status.Terminal() {
		return nil, newIllegalTransition(record.Status, "cancel")
	}

	applied, err := s.repo.CancelDonation(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.staleTransition(ctx, id, "cancel")
	}

	s.markAvailability(ctx, record.DonorID, true)

	s.auditor.Record(ctx, principal.UserID, principal.PrimaryRole(), audit.ActionDonationCancel,
		"donation", id, string(record.Status), string(StatusCancelled))
	s.publishStatusChange(ctx, messaging.EventDonationCancelled, record, record.Status, StatusCancelled, nil, reason)

	note := notify.Notification{
		RecipientID:   record.DonorID,
		RecipientKind: notify.RecipientDonor,
		Title:         "Donation appointment cancelled",
		Message:       fmt.Sprintf("Your donation appointment was cancelled: %s", reason),
		ResourceType:  "donation",
		ResourceID:    id,
	}
	if err := s.notifier.Send(ctx, note); err != nil {
		log.Printf("Warning: failed to notify donor about donation %s: %v", id, err)
	}

	return s.repo.GetDonation(ctx, id)
}

// staleTransition reloads after a lost compare-and-set so the error
// reports the status that actually won.
func (s *Service) staleTransition(ctx context.Context, id, attempted string) (*Donation, error) {
	current, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, newIllegalTransition(current.Status, attempted)
}

func (s *Service) publishStatusChange(ctx context.Context, routingKey string, record *Donation, before, after Status, suitable *bool, reason string) {
	event := messaging.DonationStatusChangedEvent{
		BaseEvent: messaging.NewBaseEvent(routingKey),
		Data: messaging.DonationStatusChangedData{
			DonationID: record.ID,
			DonorID:    record.DonorID,
			RequestID:  record.RequestID,
			OldStatus:  string(before),
			NewStatus:  string(after),
			Suitable:   suitable,
			Reason:     reason,
			ChangedAt:  time.Now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("Warning: failed to publish %s for %s: %v", routingKey, record.ID, err)
	}
}

func (s *Service) publishBatchChange(ctx context.Context, routingKey string, record *Donation, before, after Status, batch string) {
	event := messaging.DonationStatusChangedEvent{
		BaseEvent: messaging.NewBaseEvent(routingKey),
		Data: messaging.DonationStatusChangedData{
			DonationID:  record.ID,
			DonorID:     record.DonorID,
			RequestID:   record.RequestID,
			OldStatus:   string(before),
			NewStatus:   string(after),
			BatchNumber: batch,
			ChangedAt:   time.Now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("Warning: failed to publish %s for %s: %v", routingKey, record.ID, err)
	}
}
