package converter

import (
	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/domain/entity"
)

// displayTime renders the stored 24-hour slot time in display form,
// falling back to the raw column if it cannot be parsed.
func displayTime(res *entity.Reservation) string {
	slot, err := res.Slot()
	if err != nil {
		return res.SlotTime
	}
	return slot.Time()
}

// ReservationToResponse converts a Reservation entity to ReservationResponse DTO
func ReservationToResponse(res *entity.Reservation) *dto.ReservationResponse {
	if res == nil {
		return nil
	}

	return &dto.ReservationResponse{
		ID:               res.ID,
		BookingReference: res.BookingReference,
		Date:             res.SlotDate,
		Time:             displayTime(res),
		Time24:           res.SlotTime,
		Status:           string(res.Status),
		Channel:          string(res.Channel),
		Patient: dto.PatientResponse{
			Name:   res.Patient.Name,
			Phone:  res.Patient.Phone,
			Email:  res.Patient.Email,
			Reason: res.Patient.Reason,
		},
		CancelReason: res.CancelReason,
		CancelledAt:  res.CancelledAt,
		CreatedAt:    res.CreatedAt,
		UpdatedAt:    res.UpdatedAt,
	}
}

// ReservationsToResponses converts a slice of Reservation entities to slice of ReservationResponse DTOs
func ReservationsToResponses(reservations []entity.Reservation) []dto.ReservationResponse {
	responses := make([]dto.ReservationResponse, len(reservations))
	for i := range reservations {
		responses[i] = *ReservationToResponse(&reservations[i])
	}
	return responses
}

// ReservationToBookingResponse is the public view of a reservation, looked
// up by booking reference
func ReservationToBookingResponse(res *entity.Reservation) *dto.BookingResponse {
	if res == nil {
		return nil
	}

	return &dto.BookingResponse{
		BookingReference: res.BookingReference,
		Date:             res.SlotDate,
		Time:             displayTime(res),
		Status:           string(res.Status),
		PatientName:      res.Patient.Name,
		CreatedAt:        res.CreatedAt,
		CancelledAt:      res.CancelledAt,
	}
}

// ReservationToSubmitResponse is returned to the visitor after a successful claim
func ReservationToSubmitResponse(res *entity.Reservation) *dto.SubmitBookingResponse {
	return &dto.SubmitBookingResponse{
		BookingReference: res.BookingReference,
		Date:             res.SlotDate,
		Time:             displayTime(res),
		Status:           string(res.Status),
	}
}

// PatientRequestToPayload maps the request body onto the persisted payload
func PatientRequestToPayload(req dto.PatientRequest) entity.PatientPayload {
	return entity.PatientPayload{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Reason: req.Reason,
	}
}
