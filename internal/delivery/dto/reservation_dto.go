package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type AdminCreateReservationRequest struct {
	Date    string         `json:"date"`
	Time    string         `json:"time"`
	Patient PatientRequest `json:"patient"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Response DTOs

type PatientResponse struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type ReservationResponse struct {
	ID               uuid.UUID       `json:"id"`
	BookingReference string          `json:"booking_reference"`
	Date             string          `json:"date"`
	Time             string          `json:"time"`
	Time24           string          `json:"time_24h"`
	Status           string          `json:"status"`
	Channel          string          `json:"channel"`
	Patient          PatientResponse `json:"patient"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type ReservationListResponse struct {
	From         string                `json:"from"`
	To           string                `json:"to"`
	Reservations []ReservationResponse `json:"reservations"`
	Total        int                   `json:"total"`
}
