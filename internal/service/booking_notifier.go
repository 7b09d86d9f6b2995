package service

import (
	"context"
	"time"

	"hospital-booking/internal/domain/entity"
	"hospital-booking/pkg/clock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Routing keys of outbound booking events
const (
	RoutingKeyBookingConfirmed = "booking.confirmed"
	RoutingKeyBookingCancelled = "booking.cancelled"
)

// BookingEvent is the message published after a reservation changes state
type BookingEvent struct {
	Event            string                `json:"event"`
	ReservationID    uuid.UUID             `json:"reservation_id"`
	BookingReference string                `json:"booking_reference"`
	SlotDate         string                `json:"slot_date"`
	SlotTime         string                `json:"slot_time"`
	Patient          entity.PatientPayload `json:"patient"`
	Channel          string                `json:"channel"`
	Reason           string                `json:"reason,omitempty"`
	OccurredAt       time.Time             `json:"occurred_at"`
}

// NewBookingEvent builds the event for res. The slot time is rendered in
// display form.
func NewBookingEvent(event string, res *entity.Reservation, at time.Time) BookingEvent {
	slotTime := res.SlotTime
	if slot, err := res.Slot(); err == nil {
		slotTime = slot.Time()
	}
	return BookingEvent{
		Event:            event,
		ReservationID:    res.ID,
		BookingReference: res.BookingReference,
		SlotDate:         res.SlotDate,
		SlotTime:         slotTime,
		Patient:          res.Patient,
		Channel:          string(res.Channel),
		Reason:           res.CancelReason,
		OccurredAt:       at,
	}
}

// BookingNotifier hands committed booking changes to downstream consumers
// such as the confirmation mailer. Failures never undo the reservation.
type BookingNotifier interface {
	NotifyConfirmed(ctx context.Context, res *entity.Reservation) error
	NotifyCancelled(ctx context.Context, res *entity.Reservation) error
}

// EventPublisher is satisfied by *mq.Publisher
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type mqBookingNotifier struct {
	publisher EventPublisher
	clock     clock.Clock
	log       *logrus.Logger
}

func NewMQBookingNotifier(publisher EventPublisher, clk clock.Clock, log *logrus.Logger) BookingNotifier {
	return &mqBookingNotifier{publisher: publisher, clock: clk, log: log}
}

func (n *mqBookingNotifier) NotifyConfirmed(ctx context.Context, res *entity.Reservation) error {
	return n.publish(ctx, RoutingKeyBookingConfirmed, res)
}

func (n *mqBookingNotifier) NotifyCancelled(ctx context.Context, res *entity.Reservation) error {
	return n.publish(ctx, RoutingKeyBookingCancelled, res)
}

func (n *mqBookingNotifier) publish(ctx context.Context, key string, res *entity.Reservation) error {
	event := NewBookingEvent(key, res, n.clock.Now().UTC())
	if err := n.publisher.PublishJSON(ctx, key, event); err != nil {
		return err
	}
	n.log.WithFields(logrus.Fields{
		"routing_key": key,
		"reference":   res.BookingReference,
	}).Debug("Booking event published")
	return nil
}

type logBookingNotifier struct {
	log *logrus.Logger
}

// NewLogBookingNotifier is used when no message broker is configured.
func NewLogBookingNotifier(log *logrus.Logger) BookingNotifier {
	return &logBookingNotifier{log: log}
}

func (n *logBookingNotifier) NotifyConfirmed(_ context.Context, res *entity.Reservation) error {
	n.logEvent(RoutingKeyBookingConfirmed, res)
	return nil
}

func (n *logBookingNotifier) NotifyCancelled(_ context.Context, res *entity.Reservation) error {
	n.logEvent(RoutingKeyBookingCancelled, res)
	return nil
}

func (n *logBookingNotifier) logEvent(event string, res *entity.Reservation) {
	n.log.WithFields(logrus.Fields{
		"event":          event,
		"reservation_id": res.ID,
		"reference":      res.BookingReference,
		"slot_date":      res.SlotDate,
		"slot_time":      res.SlotTime,
	}).Info("Booking event (no broker configured)")
}
