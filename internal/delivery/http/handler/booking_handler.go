package handler

import (
	"encoding/json"
	"net/http"

	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/usecase"
	"hospital-booking/pkg/response"

	"github.com/gorilla/mux"
)

type BookingHandler struct {
	bookingUsecase usecase.BookingUsecase
}

func NewBookingHandler(bookingUsecase usecase.BookingUsecase) *BookingHandler {
	return &BookingHandler{
		bookingUsecase: bookingUsecase,
	}
}

func (h *BookingHandler) GetDaySlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.bookingUsecase.GetDaySlots(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeUsecaseError(w, err, "Failed to get slots")
		return
	}

	response.Success(w, http.StatusOK, "Slots retrieved successfully", slots)
}

func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	availability, err := h.bookingUsecase.CheckAvailability(r.Context(), q.Get("date"), q.Get("time"))
	if err != nil {
		writeUsecaseError(w, err, "Failed to check availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability checked", availability)
}

func (h *BookingHandler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	booking, err := h.bookingUsecase.SubmitBooking(r.Context(), &req)
	if err != nil {
		writeUsecaseError(w, err, "Failed to create booking")
		return
	}

	response.Success(w, http.StatusCreated, "Booking confirmed", booking)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookingUsecase.GetBookingByReference(r.Context(), mux.Vars(r)["reference"])
	if err != nil {
		writeUsecaseError(w, err, "Failed to get booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking retrieved successfully", booking)
}
