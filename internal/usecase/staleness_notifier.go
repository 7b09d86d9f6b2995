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

	"github.com/sirupsen/logrus"
)

// AvailabilityReport answers one poll from a client holding a slot in an
// unsubmitted form. It is advisory: TryClaim may still return ErrSlotTaken.
type AvailabilityReport struct {
	Slot      entity.SlotKey
	Available bool
	Expired   bool
	CheckedAt time.Time
	PollAfter time.Duration
}

type StalenessNotifier interface {
	Check(ctx context.Context, slot entity.SlotKey) (*AvailabilityReport, error)
}

type stalenessNotifier struct {
	store        repository.ReservationStore
	cache        repository.AvailabilityCache
	gate         *service.ValidationGate
	clock        clock.Clock
	log          *logrus.Logger
	pollInterval time.Duration
}

func NewStalenessNotifier(
	store repository.ReservationStore,
	cache repository.AvailabilityCache,
	gate *service.ValidationGate,
	clk clock.Clock,
	log *logrus.Logger,
	pollInterval time.Duration,
) StalenessNotifier {
	return &stalenessNotifier{
		store:        store,
		cache:        cache,
		gate:         gate,
		clock:        clk,
		log:          log,
		pollInterval: pollInterval,
	}
}

func (n *stalenessNotifier) Check(ctx context.Context, slot entity.SlotKey) (*AvailabilityReport, error) {
	now := n.clock.Now()
	report := &AvailabilityReport{
		Slot:      slot,
		CheckedAt: now,
		PollAfter: n.pollInterval,
	}

	if n.gate.IsExpired(slot, now) {
		report.Expired = true
		return report, nil
	}

	available, err := n.cache.Get(ctx, slot)
	if err == nil {
		report.Available = available
		return report, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		n.log.Warnf("Availability cache read failed for %s, falling back to store: %v", slot, err)
	}

	available, err = n.store.IsAvailable(ctx, slot)
	if err != nil {
		n.log.Errorf("Availability check failed for %s: %v", slot, err)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	// Only "taken" is cached: a claim may commit and invalidate between the
	// read above and this write.
	if !available {
		if err := n.cache.Set(ctx, slot, false); err != nil {
			n.log.Warnf("Availability cache write failed for %s: %v", slot, err)
		}
	}

	report.Available = available
	return report, nil
}
