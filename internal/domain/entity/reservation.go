package entity

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus represents the state of a claim on a slot
type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// BookingChannel names the entry point a reservation was created through
type BookingChannel string

const (
	BookingChannelPublic BookingChannel = "public"
	BookingChannelAdmin  BookingChannel = "admin"
)

// PatientPayload is carried through the engine and persisted, never interpreted
type PatientPayload struct {
	Name   string `gorm:"column:patient_name;type:varchar(100);not null" json:"name"`
	Phone  string `gorm:"column:patient_phone;type:varchar(20);not null" json:"phone"`
	Email  string `gorm:"column:patient_email;type:varchar(254)" json:"email,omitempty"`
	Reason string `gorm:"column:patient_reason;type:text" json:"reason,omitempty"`
}

// Reservation is a claim on one SlotKey. At most one confirmed reservation
// exists per slot; the partial unique index uq_reservations_confirmed_slot
// enforces this in the database.
type Reservation struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	SlotDate         string            `gorm:"type:varchar(10);not null" json:"slot_date"`
	SlotTime         string            `gorm:"type:varchar(5);not null" json:"slot_time"`
	Status           ReservationStatus `gorm:"type:varchar(16);not null" json:"status"`
	BookingReference string            `gorm:"type:varchar(32);not null" json:"booking_reference"`
	Patient          PatientPayload    `gorm:"embedded" json:"patient"`
	Channel          BookingChannel    `gorm:"type:varchar(16);not null" json:"channel"`
	CancelReason     string            `gorm:"type:text" json:"cancel_reason,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// NewReservation builds a confirmed reservation for slot. The booking
// reference is assigned by the caller before the reservation is persisted.
func NewReservation(slot SlotKey, patient PatientPayload, channel BookingChannel, createdAt time.Time) *Reservation {
	return &Reservation{
		ID:        uuid.New(),
		SlotDate:  slot.Date(),
		SlotTime:  slot.Clock24(),
		Status:    ReservationStatusConfirmed,
		Patient:   patient,
		Channel:   channel,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// Slot rebuilds the SlotKey from the stored columns
func (r *Reservation) Slot() (SlotKey, error) {
	return ParseSlotKey(r.SlotDate, r.SlotTime)
}

// IsConfirmed checks if reservation still holds its slot
func (r *Reservation) IsConfirmed() bool {
	return r.Status == ReservationStatusConfirmed
}

// IsCancelled checks if reservation has been cancelled
func (r *Reservation) IsCancelled() bool {
	return r.Status == ReservationStatusCancelled
}
