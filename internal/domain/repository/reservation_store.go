package repository

import (
	"context"
	"errors"

	"hospital-booking/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrSlotConflict means a confirmed reservation already holds the slot.
	ErrSlotConflict = errors.New("slot already has a confirmed reservation")
	// ErrReferenceConflict means the booking reference is already in use.
	ErrReferenceConflict       = errors.New("booking reference already in use")
	ErrReservationNotFound     = errors.New("reservation not found")
	ErrReservationNotConfirmed = errors.New("reservation is not confirmed")
)

// ReservationStore is the only writer of reservation status. Claim and Cancel
// each run in a single database transaction together with their audit row.
type ReservationStore interface {
	// Claim persists res as the confirmed reservation of its slot. It returns
	// ErrSlotConflict when another confirmed reservation holds the slot and
	// ErrReferenceConflict when res.BookingReference is taken. Any other error
	// leaves no row behind.
	Claim(ctx context.Context, res *entity.Reservation, actor string) error
	// Cancel moves a confirmed reservation to cancelled and returns the
	// updated row.
	Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (*entity.Reservation, error)
	IsAvailable(ctx context.Context, slot entity.SlotKey) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	FindByReference(ctx context.Context, reference string) (*entity.Reservation, error)
	FindByDateRange(ctx context.Context, from, to string) ([]entity.Reservation, error)
	FindConfirmedByDate(ctx context.Context, date string) ([]entity.Reservation, error)
}
