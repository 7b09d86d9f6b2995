package handler

import (
	"errors"
	"net/http"

	"hospital-booking/internal/service"
	"hospital-booking/internal/usecase"
	"hospital-booking/pkg/response"
)

// writeUsecaseError maps booking outcomes onto the response envelope.
func writeUsecaseError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.ValidationError(w, validationErr.Fields)
	case errors.Is(err, usecase.ErrSlotTaken):
		response.Fail(w, http.StatusConflict, response.CodeSlotTaken, usecase.ErrSlotTaken.Error(), nil)
	case errors.Is(err, usecase.ErrSlotExpired):
		response.Fail(w, http.StatusUnprocessableEntity, response.CodeSlotExpired, usecase.ErrSlotExpired.Error(), nil)
	case errors.Is(err, usecase.ErrReservationNotFound):
		response.NotFound(w, "Reservation not found")
	case errors.Is(err, usecase.ErrAlreadyCancelled):
		response.Fail(w, http.StatusConflict, response.CodeAlreadyCancelled, usecase.ErrAlreadyCancelled.Error(), nil)
	case errors.Is(err, usecase.ErrStoreUnavailable):
		w.Header().Set("Retry-After", "1")
		response.Fail(w, http.StatusServiceUnavailable, response.CodeStoreUnavailable, usecase.ErrStoreUnavailable.Error(), nil)
	default:
		response.InternalServerError(w, fallback)
	}
}
