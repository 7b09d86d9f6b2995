package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hospital-booking/internal/domain/entity"
	"hospital-booking/internal/domain/repository"
	"hospital-booking/internal/service"
	"hospital-booking/pkg/clock"
	"hospital-booking/pkg/errs"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrSlotTaken           = errors.New("this slot was just booked by someone else, please choose another time")
	ErrSlotExpired         = errors.New("this slot starts too soon to be booked, please choose a later time")
	ErrStoreUnavailable    = errors.New("booking is temporarily unavailable, please try again")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadyCancelled    = errors.New("reservation is already cancelled")
)

// maxReferenceAttempts bounds retries after a booking reference collision.
const maxReferenceAttempts = 3

// ClaimRequest asks for a validated slot on behalf of a patient.
type ClaimRequest struct {
	Slot    entity.SlotKey
	Patient entity.PatientPayload
	Channel entity.BookingChannel
	Actor   string
}

// ReservationManager is the sole authority on whether a slot gets booked.
type ReservationManager interface {
	// TryClaim converts a free slot into a confirmed reservation. It fails
	// with ErrSlotTaken, ErrSlotExpired or ErrStoreUnavailable; in every
	// failure case nothing was persisted.
	TryClaim(ctx context.Context, req ClaimRequest) (*entity.Reservation, error)
	// Cancel releases a confirmed reservation's slot.
	Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (*entity.Reservation, error)
}

type reservationManager struct {
	store        repository.ReservationStore
	cache        repository.AvailabilityCache
	gate         *service.ValidationGate
	refs         *service.BookingReferenceGenerator
	clock        clock.Clock
	log          *logrus.Logger
	claimTimeout time.Duration
}

func NewReservationManager(
	store repository.ReservationStore,
	cache repository.AvailabilityCache,
	gate *service.ValidationGate,
	refs *service.BookingReferenceGenerator,
	clk clock.Clock,
	log *logrus.Logger,
	claimTimeout time.Duration,
) ReservationManager {
	return &reservationManager{
		store:        store,
		cache:        cache,
		gate:         gate,
		refs:         refs,
		clock:        clk,
		log:          log,
		claimTimeout: claimTimeout,
	}
}

func (m *reservationManager) TryClaim(ctx context.Context, req ClaimRequest) (*entity.Reservation, error) {
	if m.claimTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.claimTimeout)
		defer cancel()
	}

	now := m.clock.Now()
	if m.gate.IsExpired(req.Slot, now) {
		m.log.Infof("Claim rejected, slot %s is inside the lead time", req.Slot)
		return nil, ErrSlotExpired
	}

	for attempt := 1; ; attempt++ {
		res := entity.NewReservation(req.Slot, req.Patient, req.Channel, now)
		res.BookingReference = m.refs.Generate(now, res.ID)

		err := m.store.Claim(ctx, res, req.Actor)
		switch {
		case err == nil:
			m.invalidate(ctx, req.Slot)
			m.log.WithFields(logrus.Fields{
				"reservation_id": res.ID,
				"reference":      res.BookingReference,
				"slot":           req.Slot.String(),
				"channel":        req.Channel,
			}).Info("Slot claimed")
			return res, nil

		case errors.Is(err, repository.ErrSlotConflict):
			m.log.Infof("Claim lost, slot %s already confirmed", req.Slot)
			return nil, ErrSlotTaken

		case errors.Is(err, repository.ErrReferenceConflict) && attempt < maxReferenceAttempts:
			m.log.Warnf("Booking reference %s collided, regenerating (attempt %d)", res.BookingReference, attempt)
			continue

		default:
			m.log.WithFields(logrus.Fields{
				"slot":  req.Slot.String(),
				"stack": errs.ExtractStackLines(err, 8),
			}).Errorf("Claim failed: %v", err)
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}
}

func (m *reservationManager) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (*entity.Reservation, error) {
	if m.claimTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.claimTimeout)
		defer cancel()
	}

	res, err := m.store.Cancel(ctx, id, actor, reason)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			return nil, ErrReservationNotFound
		case errors.Is(err, repository.ErrReservationNotConfirmed):
			return nil, ErrAlreadyCancelled
		default:
			m.log.WithFields(logrus.Fields{
				"reservation_id": id,
				"stack":          errs.ExtractStackLines(err, 8),
			}).Errorf("Cancel failed: %v", err)
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}

	if slot, err := res.Slot(); err == nil {
		m.invalidate(ctx, slot)
	}
	m.log.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"reference":      res.BookingReference,
		"actor":          actor,
	}).Info("Reservation cancelled")
	return res, nil
}

// invalidate drops the cached availability of slot after a committed change.
// The transaction is already durable, so a failure is only logged.
func (m *reservationManager) invalidate(ctx context.Context, slot entity.SlotKey) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := m.cache.Invalidate(ctx, slot); err != nil {
		m.log.Warnf("Failed to invalidate availability cache for %s: %v", slot, err)
	}
}
