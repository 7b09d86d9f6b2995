package usecase

import (
	"context"
	"time"

	"hospital-booking/internal/converter"
	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/domain/entity"
	"hospital-booking/internal/domain/repository"
	"hospital-booking/internal/service"
	"hospital-booking/pkg/clock"

	"github.com/sirupsen/logrus"
)

// ActorPublic is recorded in the audit trail for visitor bookings
const ActorPublic = "public"

// notifyTimeout bounds the post-commit notification.
const notifyTimeout = 5 * time.Second

// BookingUsecase is the public booking flow: pick a slot, poll it, submit.
type BookingUsecase interface {
	GetDaySlots(ctx context.Context, rawDate string) (*dto.DaySlotsResponse, error)
	CheckAvailability(ctx context.Context, rawDate, rawTime string) (*dto.AvailabilityResponse, error)
	SubmitBooking(ctx context.Context, req *dto.SubmitBookingRequest) (*dto.SubmitBookingResponse, error)
	GetBookingByReference(ctx context.Context, reference string) (*dto.BookingResponse, error)
}

type bookingUsecase struct {
	log       *logrus.Logger
	clock     clock.Clock
	store     repository.ReservationStore
	gate      *service.ValidationGate
	manager   ReservationManager
	staleness StalenessNotifier
	notifier  service.BookingNotifier
}

func NewBookingUsecase(
	log *logrus.Logger,
	clk clock.Clock,
	store repository.ReservationStore,
	gate *service.ValidationGate,
	manager ReservationManager,
	staleness StalenessNotifier,
	notifier service.BookingNotifier,
) BookingUsecase {
	return &bookingUsecase{
		log:       log,
		clock:     clk,
		store:     store,
		gate:      gate,
		manager:   manager,
		staleness: staleness,
		notifier:  notifier,
	}
}

// GetDaySlots lists the slot grid of one day with availability for the slot
// picker. Like a poll, the answer is advisory.
func (u *bookingUsecase) GetDaySlots(ctx context.Context, rawDate string) (*dto.DaySlotsResponse, error) {
	date, err := entity.ParseSlotDate(rawDate)
	if err != nil {
		return nil, &service.ValidationError{Fields: map[string]string{"date": err.Error()}}
	}

	day := date.Format(entity.SlotDateLayout)
	confirmed, err := u.store.FindConfirmedByDate(ctx, day)
	if err != nil {
		u.log.Errorf("Failed to load confirmed reservations for %s: %+v", day, err)
		return nil, wrapUnavailable(err)
	}

	taken := make(map[string]struct{}, len(confirmed))
	for _, res := range confirmed {
		taken[res.SlotTime] = struct{}{}
	}

	now := u.clock.Now()
	grid := u.gate.DaySlots(date)
	slots := make([]dto.SlotAvailability, 0, len(grid))
	for _, slot := range grid {
		expired := u.gate.IsExpired(slot, now)
		_, isTaken := taken[slot.Clock24()]
		slots = append(slots, dto.SlotAvailability{
			Time:      slot.Time(),
			Available: !expired && !isTaken,
			Expired:   expired,
		})
	}

	return &dto.DaySlotsResponse{Date: day, Slots: slots}, nil
}

func (u *bookingUsecase) CheckAvailability(ctx context.Context, rawDate, rawTime string) (*dto.AvailabilityResponse, error) {
	slot, err := u.gate.ValidateSlot(rawDate, rawTime)
	if err != nil {
		return nil, err
	}

	report, err := u.staleness.Check(ctx, slot)
	if err != nil {
		return nil, err
	}

	return &dto.AvailabilityResponse{
		Date:             slot.Date(),
		Time:             slot.Time(),
		Available:        report.Available,
		Expired:          report.Expired,
		CheckedAt:        report.CheckedAt,
		PollAfterSeconds: int(report.PollAfter / time.Second),
	}, nil
}

// SubmitBooking validates the request, claims the slot and, after commit,
// hands the confirmation to the notifier.
func (u *bookingUsecase) SubmitBooking(ctx context.Context, req *dto.SubmitBookingRequest) (*dto.SubmitBookingResponse, error) {
	slot, patient, err := u.gate.ValidateBooking(service.BookingInput{
		Date:    req.Date,
		Time:    req.Time,
		Patient: converter.PatientRequestToPayload(req.Patient),
	})
	if err != nil {
		return nil, err
	}

	res, err := u.manager.TryClaim(ctx, ClaimRequest{
		Slot:    slot,
		Patient: patient,
		Channel: entity.BookingChannelPublic,
		Actor:   ActorPublic,
	})
	if err != nil {
		return nil, err
	}

	notifyConfirmed(ctx, u.log, u.notifier, res)
	return converter.ReservationToSubmitResponse(res), nil
}

func (u *bookingUsecase) GetBookingByReference(ctx context.Context, reference string) (*dto.BookingResponse, error) {
	reference = service.NormalizeBookingReference(reference)
	if !service.IsBookingReference(reference) {
		return nil, ErrReservationNotFound
	}

	res, err := u.store.FindByReference(ctx, reference)
	if err != nil {
		u.log.Warnf("Failed to find booking %s: %+v", reference, err)
		return nil, wrapUnavailable(err)
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	return converter.ReservationToBookingResponse(res), nil
}

func notifyConfirmed(ctx context.Context, log *logrus.Logger, notifier service.BookingNotifier, res *entity.Reservation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := notifier.NotifyConfirmed(ctx, res); err != nil {
		log.Errorf("Booking %s confirmed but notification failed: %v", res.BookingReference, err)
	}
}

func notifyCancelled(ctx context.Context, log *logrus.Logger, notifier service.BookingNotifier, res *entity.Reservation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := notifier.NotifyCancelled(ctx, res); err != nil {
		log.Errorf("Booking %s cancelled but notification failed: %v", res.BookingReference, err)
	}
}
