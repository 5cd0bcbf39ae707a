package request

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/LifeLink-Blood-Care/blood-service/internal/auth"
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
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Request *BloodRequest `json:"request,omitempty"`
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	record, err := h.service.CreateRequest(r.Context(), req, principal)
	if err != nil {
		switch err {
		case ErrMissingRequester, ErrInvalidBloodType, ErrInvalidProductType, ErrInvalidUnits,
			ErrInvalidUrgency, ErrRequiredByNotFuture, ErrMissingLocation:
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "creation_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: "Blood request created successfully",
		Request: record,
	})
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	_, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Request ID is required")
		return
	}

	record, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		switch err {
		case ErrRequestNotFound:
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: "Blood request retrieved successfully",
		Request: record,
	})
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	_, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	params := pagination.ParseParams(r)
	filters := ListFilters{
		Status:    r.URL.Query().Get("status"),
		Urgency:   r.URL.Query().Get("urgency"),
		BloodType: r.URL.Query().Get("bloodType"),
		City:      r.URL.Query().Get("city"),
	}

	resp, err := h.service.ListRequests(r.Context(), params, filters)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Request ID is required")
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}
	if req.DonorName == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Donor name is required")
		return
	}

	record, err := h.service.Respond(r.Context(), id, principal.UserID, req)
	if err != nil {
		if IsIllegalTransition(err) {
			respondError(w, http.StatusConflict, "illegal_transition", err.Error())
			return
		}
		switch err {
		case ErrRequestNotFound:
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		case ErrAlreadyResponded:
			respondError(w, http.StatusConflict, "already_responded", err.Error())
		case ErrInvalidResponse:
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "respond_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: "Response recorded successfully",
		Request: record,
	})
}

func (h *Handler) ConfirmDonor(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Request ID is required")
		return
	}

	var req ConfirmDonorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}
	if req.DonorID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Donor ID is required")
		return
	}

	record, err := h.service.ConfirmDonor(r.Context(), id, req, principal)
	if err != nil {
		if IsIllegalTransition(err) {
			respondError(w, http.StatusConflict, "illegal_transition", err.Error())
			return
		}
		switch err {
		case ErrRequestNotFound:
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		case ErrDonorNotMatched:
			respondError(w, http.StatusBadRequest, "donor_not_matched", err.Error())
		case ErrForbidden:
			respondError(w, http.StatusForbidden, "forbidden", "You don't have permission to confirm a donor for this request")
		default:
			respondError(w, http.StatusInternalServerError, "confirm_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: "Donor confirmed successfully",
		Request: record,
	})
}

func (h *Handler) CompleteRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Request ID is required")
		return
	}

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	record, err := h.service.CompleteRequest(r.Context(), id, req, principal)
	if err != nil {
		if IsIllegalTransition(err) {
			respondError(w, http.StatusConflict, "illegal_transition", err.Error())
			return
		}
		switch err {
		case ErrRequestNotFound:
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		case ErrForbidden:
			respondError(w, http.StatusForbidden, "forbidden", "You don't have permission to complete this request")
		default:
			respondError(w, http.StatusInternalServerError, "complete_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: "Blood request completed successfully",
		Request: record,
	})
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Request ID is required")
		return
	}

	var body CancelRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	record, err := h.service.CancelRequest(r.Context(), id, body.Reason, principal)
	if err != nil {
		if IsIllegalTransition(err) {
			respondError(w, http.StatusConflict, "illegal_transition", err.Error())
			return
		}
		switch err {
		case ErrRequestNotFound:
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		case ErrMissingCancelReason:
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		case ErrForbidden:
			respondError(w, http.StatusForbidden, "forbidden", "You don't have permission to cancel this request")
		default:
			respondError(w, http.StatusInternalServerError, "cancel_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: "Blood request cancelled",
		Request: record,
	})
}

func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Request ID is required")
		return
	}

	var upd UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	record, err := h.service.UpdateRequest(r.Context(), id, upd, principal)
	if err != nil {
		if IsIllegalTransition(err) {
			respondError(w, http.StatusConflict, "illegal_transition", err.Error())
			return
		}
		switch err {
		case ErrRequestNotFound:
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		case ErrForbidden:
			respondError(w, http.StatusForbidden, "forbidden", "You don't have permission to update this request")
		case ErrInvalidUrgency, ErrRequiredByNotFuture, ErrInvalidStatus:
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		case ErrBackwardStatus:
			respondError(w, http.StatusConflict, "backward_status", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "update_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: "Blood request updated successfully",
		Request: record,
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
