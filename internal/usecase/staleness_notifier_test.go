package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStalenessNotifier_CachesOnlyTakenSlots(t *testing.T) {
	f := newBookingFixture(t, morningOfBooking)
	slot := mustSlot(t, "2025-03-10", "10:00 AM")

	report, err := f.staleness.Check(context.Background(), slot)
	require.NoError(t, err)
	assert.True(t, report.Available)
	assert.Equal(t, morningOfBooking, report.CheckedAt)
	assert.Equal(t, 10*time.Second, report.PollAfter)
	assert.Empty(t, f.cache.entries)

	_, err = f.staleness.Check(context.Background(), slot)
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.isAvailCall)

	_, err = f.manager.TryClaim(context.Background(), claimRequest(slot, "Ana"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		report, err = f.staleness.Check(context.Background(), slot)
		require.NoError(t, err)
		assert.False(t, report.Available)
	}
	assert.Equal(t, 3, f.store.isAvailCall)
	assert.Equal(t, map[string]bool{slot.String(): false}, f.cache.entries)
}

// A claim that commits and invalidates while a poll is between its store
// read and its cache write must not leave the slot cached as free.
func TestStalenessNotifier_ClaimBetweenReadAndCacheWrite(t *testing.T) {
	f := newBookingFixture(t, morningOfBooking)
	slot := mustSlot(t, "2025-03-10", "10:00 AM")

	f.store.afterIsAvailable = func() {
		_, err := f.manager.TryClaim(context.Background(), claimRequest(slot, "Ana"))
		require.NoError(t, err)
	}

	report, err := f.staleness.Check(context.Background(), slot)
	require.NoError(t, err)
	assert.True(t, report.Available)
	assert.Equal(t, 1, f.store.confirmedCount(slot))

	report, err = f.staleness.Check(context.Background(), slot)
	require.NoError(t, err)
	assert.False(t, report.Available)

	poll, err := f.booking.CheckAvailability(context.Background(), "2025-03-10", "10:00 AM")
	require.NoError(t, err)
	assert.False(t, poll.Available)
}

func TestStalenessNotifier_SeesClaimAfterInvalidation(t *testing.T) {
	f := newBookingFixture(t, morningOfBooking)
	slot := mustSlot(t, "2025-03-10", "10:00 AM")

	report, err := f.staleness.Check(context.Background(), slot)
	require.NoError(t, err)
	require.True(t, report.Available)

	_, err = f.manager.TryClaim(context.Background(), claimRequest(slot, "Ana"))
	require.NoError(t, err)

	report, err = f.staleness.Check(context.Background(), slot)
	require.NoError(t, err)
	assert.False(t, report.Available)
	assert.False(t, report.Expired)
}

func TestStalenessNotifier_CacheErrorFallsBackToStore(t *testing.T) {
	f := newBookingFixture(t, morningOfBooking)
	slot := mustSlot(t, "2025-03-10", "10:00 AM")
	f.cache.err = errors.New("redis: i/o timeout")

	report, err := f.staleness.Check(context.Background(), slot)
	require.NoError(t, err)
	assert.True(t, report.Available)
	assert.Equal(t, 1, f.store.isAvailCall)
	assert.NotEmpty(t, f.hook.AllEntries())
}

func TestStalenessNotifier_ExpiredSlotSkipsStore(t *testing.T) {
	f := newBookingFixture(t, time.Date(2025, 3, 10, 9, 57, 0, 0, time.UTC))
	slot := mustSlot(t, "2025-03-10", "10:00 AM")

	report, err := f.staleness.Check(context.Background(), slot)
	require.NoError(t, err)
	assert.True(t, report.Expired)
	assert.False(t, report.Available)
	assert.Zero(t, f.store.isAvailCall)
}

func TestStalenessNotifier_StoreUnavailable(t *testing.T) {
	f := newBookingFixture(t, morningOfBooking)
	slot := mustSlot(t, "2025-03-10", "10:00 AM")
	f.store.storeErr = errors.New("connection refused")

	report, err := f.staleness.Check(context.Background(), slot)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
