package repository

import (
	"context"
	"errors"

	"hospital-booking/internal/domain/entity"
)

// ErrCacheMiss is returned by AvailabilityCache.Get when no entry exists.
var ErrCacheMiss = errors.New("availability cache miss")

// AvailabilityCache holds short-lived availability answers for slots. It is
// advisory only and never consulted by the claim path.
type AvailabilityCache interface {
	Get(ctx context.Context, slot entity.SlotKey) (bool, error)
	Set(ctx context.Context, slot entity.SlotKey, available bool) error
	Invalidate(ctx context.Context, slot entity.SlotKey) error
}
