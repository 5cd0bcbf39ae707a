package donation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/LifeLink-Blood-Care/blood-service/internal/auth"
	"github.com/LifeLink-Blood-Care/blood-service/internal/donor"
	"github.com/LifeLink-Blood-Care/blood-service/internal/pagination"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Donation *Donation `json:"donation,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

func (h *Handler) ScheduleDonation(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	record, warnings, err := h.service.Schedule(r.Context(), req, principal)
	if err != nil {
		switch err {
		case ErrMissingDonor, ErrInvalidProduct, ErrInvalidUnits, ErrScheduleNotFuture,
			donor.ErrMissingPhone, donor.ErrMissingBloodType:
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		case donor.ErrDonorNotFound:
			respondError(w, http.StatusNotFound, "donor_not_found", err.Error())
		case ErrRequestNotFound:
			respondError(w, http.StatusNotFound, "request_not_found", err.Error())
		case ErrForbidden:
			respondError(w, http.StatusForbidden, "forbidden", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "schedule_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:  true,
		Message:  "Donation scheduled successfully",
		Donation: record,
		Warnings: warnings,
	})
}

func (h *Handler) GetDonation(w http.ResponseWriter, r *http.Request) {
	_, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Donation ID is required")
		return
	}

	record, err := h.service.GetDonation(r.Context(), id)
	if err != nil {
		switch err {
		case ErrDonationNotFound:
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:  true,
		Message:  "Donation retrieved successfully",
		Donation: record,
	})
}

func (h *Handler) ListDonations(w http.ResponseWriter, r *http.Request) {
	_, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	params := pagination.ParseParams(r)
	filters := ListFilters{
		Status:    r.URL.Query().Get("status"),
		DonorID:   r.URL.Query().Get("donorId"),
		RequestID: r.URL.Query().Get("requestId"),
	}

	resp, err := h.service.ListDonations(r.Context(), params, filters)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) StartDonation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Donation started", func(r *http.Request, id string, principal *auth.Principal) (*Donation, error) {
		var req StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errBadPayload(err)
		}
		return h.service.Start(r.Context(), id, req, principal)
	})
}

func (h *Handler) CompleteDonation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Donation completed", func(r *http.Request, id string, principal *auth.Principal) (*Donation, error) {
		var req CompleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errBadPayload(err)
		}
		return h.service.Complete(r.Context(), id, req, principal)
	})
}

func (h *Handler) RecordTestResults(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Test results recorded", func(r *http.Request, id string, principal *auth.Principal) (*Donation, error) {
		var req TestResultsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errBadPayload(err)
		}
		return h.service.RecordTestResults(r.Context(), id, req, principal)
	})
}

func (h *Handler) StoreBlood(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Blood stored", func(r *http.Request, id string, principal *auth.Principal) (*Donation, error) {
		var req StoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errBadPayload(err)
		}
		return h.service.Store(r.Context(), id, req, principal)
	})
}

func (h *Handler) DistributeBlood(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Blood distributed", func(r *http.Request, id string, principal *auth.Principal) (*Donation, error) {
		var req DistributeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errBadPayload(err)
		}
		return h.service.Distribute(r.Context(), id, req, principal)
	})
}

func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Feedback recorded", func(r *http.Request, id string, principal *auth.Principal) (*Donation, error) {
		var req FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errBadPayload(err)
		}
		return h.service.SubmitFeedback(r.Context(), id, req, principal)
	})
}

func (h *Handler) CancelDonation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Donation cancelled", func(r *http.Request, id string, principal *auth.Principal) (*Donation, error) {
		var body CancelBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, errBadPayload(err)
		}
		return h.service.Cancel(r.Context(), id, body.Reason, principal)
	})
}

// badPayloadError marks JSON decode failures so transition can map them
// to 400 instead of 500.
type badPayloadError struct{ err error }

func (e *badPayloadError) Error() string { return "Invalid JSON payload: " + e.err.Error() }

func errBadPayload(err error) error { return &badPayloadError{err: err} }

// transition wraps the shared plumbing of every pipeline step: auth, ID
// extraction, service call, and error-to-status mapping.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, message string,
	call func(r *http.Request, id string, principal *auth.Principal) (*Donation, error)) {

	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Donation ID is required")
		return
	}

	record, err := call(r, id, principal)
	if err != nil {
		var bad *badPayloadError
		if errors.As(err, &bad) {
			respondError(w, http.StatusBadRequest, "invalid_request", bad.Error())
			return
		}
		if IsIllegalTransition(err) {
			respondError(w, http.StatusConflict, "illegal_transition", err.Error())
			return
		}
		switch err {
		case ErrDonationNotFound:
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		case ErrForbidden:
			respondError(w, http.StatusForbidden, "forbidden", "You don't have permission to perform this action")
		case ErrInvalidTestResult, ErrMissingLocation, ErrExpiryNotFuture,
			ErrInvalidRating, ErrMissingHospital, ErrMissingReason:
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "transition_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:  true,
		Message:  message,
		Donation: record,
	})
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}
