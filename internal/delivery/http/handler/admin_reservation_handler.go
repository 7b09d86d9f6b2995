package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/delivery/http/middleware"
	"hospital-booking/internal/usecase"
	"hospital-booking/pkg/response"
	"hospital-booking/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AdminReservationHandler struct {
	reservationUsecase usecase.AdminReservationUsecase
	validator          *validator.CustomValidator
}

func NewAdminReservationHandler(reservationUsecase usecase.AdminReservationUsecase, validator *validator.CustomValidator) *AdminReservationHandler {
	return &AdminReservationHandler{
		reservationUsecase: reservationUsecase,
		validator:          validator,
	}
}

func (h *AdminReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reservations, err := h.reservationUsecase.ListReservations(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeUsecaseError(w, err, "Failed to list reservations")
		return
	}

	response.Success(w, http.StatusOK, "Reservations retrieved successfully", reservations)
}

func (h *AdminReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}

	reservation, err := h.reservationUsecase.GetReservation(r.Context(), id)
	if err != nil {
		writeUsecaseError(w, err, "Failed to get reservation")
		return
	}

	response.Success(w, http.StatusOK, "Reservation retrieved successfully", reservation)
}

func (h *AdminReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminCreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	reservation, err := h.reservationUsecase.CreateReservation(r.Context(), &req, middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeUsecaseError(w, err, "Failed to create reservation")
		return
	}

	response.Success(w, http.StatusCreated, "Reservation confirmed", reservation)
}

func (h *AdminReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}

	// The body is optional; an empty one cancels without a reason
	var req dto.CancelReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	reservation, err := h.reservationUsecase.CancelReservation(r.Context(), id, req.Reason, middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeUsecaseError(w, err, "Failed to cancel reservation")
		return
	}

	response.Success(w, http.StatusOK, "Reservation cancelled successfully", reservation)
}

func (h *AdminReservationHandler) GetReservationAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}

	logs, err := h.reservationUsecase.GetReservationAudit(r.Context(), id)
	if err != nil {
		writeUsecaseError(w, err, "Failed to get audit trail")
		return
	}

	response.Success(w, http.StatusOK, "Audit trail retrieved successfully", logs)
}

func reservationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid reservation ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
