package dto

import (
	"time"
)

// Request DTOs

type PatientRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// SubmitBookingRequest is validated by the booking validation gate rather
// than struct tags so every bad field is reported in one response.
type SubmitBookingRequest struct {
	Date    string         `json:"date"`
	Time    string         `json:"time"`
	Patient PatientRequest `json:"patient"`
}

// Response DTOs

type SubmitBookingResponse struct {
	BookingReference string `json:"booking_reference"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Status           string `json:"status"`
}

type BookingResponse struct {
	BookingReference string     `json:"booking_reference"`
	Date             string     `json:"date"`
	Time             string     `json:"time"`
	Status           string     `json:"status"`
	PatientName      string     `json:"patient_name"`
	CreatedAt        time.Time  `json:"created_at"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

type AvailabilityResponse struct {
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	Available        bool      `json:"available"`
	Expired          bool      `json:"expired"`
	CheckedAt        time.Time `json:"checked_at"`
	PollAfterSeconds int       `json:"poll_after_seconds"`
}

type SlotAvailability struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Expired   bool   `json:"expired"`
}

type DaySlotsResponse struct {
	Date  string             `json:"date"`
	Slots []SlotAvailability `json:"slots"`
}
