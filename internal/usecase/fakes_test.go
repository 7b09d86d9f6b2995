package usecase

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"hospital-booking/config"
	"hospital-booking/internal/domain/entity"
	"hospital-booking/internal/domain/repository"
	"hospital-booking/internal/service"
	"hospital-booking/pkg/clock"
	"hospital-booking/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
)

// fakeStore keeps reservations in memory and enforces the same two unique
// constraints as the reservations table.
type fakeStore struct {
	mu    sync.Mutex
	rows  []*entity.Reservation
	audit []entity.AuditLog

	// claimHook runs before a claim is applied; a non-nil error aborts it.
	claimHook   func(res *entity.Reservation) error
	storeErr    error
	claimCalls  int
	isAvailCall int

	// afterIsAvailable runs once the answer is computed and the lock is
	// released, before it is returned to the caller.
	afterIsAvailable func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) Claim(_ context.Context, res *entity.Reservation, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimCalls++

	if s.claimHook != nil {
		if err := s.claimHook(res); err != nil {
			return err
		}
	}
	for _, row := range s.rows {
		if row.IsConfirmed() && row.SlotDate == res.SlotDate && row.SlotTime == res.SlotTime {
			return repository.ErrSlotConflict
		}
		if row.BookingReference == res.BookingReference {
			return repository.ErrReferenceConflict
		}
	}

	stored := *res
	s.rows = append(s.rows, &stored)
	s.audit = append(s.audit, *entity.NewReservationAudit(entity.AuditActionReservationCreate, actor, &stored, res.CreatedAt))
	return nil
}

func (s *fakeStore) Cancel(_ context.Context, id uuid.UUID, actor, reason string) (*entity.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return nil, s.storeErr
	}

	for _, row := range s.rows {
		if row.ID != id {
			continue
		}
		if !row.IsConfirmed() {
			return nil, repository.ErrReservationNotConfirmed
		}
		now := row.CreatedAt.Add(time.Minute)
		row.Status = entity.ReservationStatusCancelled
		row.CancelReason = reason
		row.CancelledAt = &now
		s.audit = append(s.audit, *entity.NewReservationAudit(entity.AuditActionReservationCancel, actor, row, now))
		out := *row
		return &out, nil
	}
	return nil, repository.ErrReservationNotFound
}

func (s *fakeStore) IsAvailable(_ context.Context, slot entity.SlotKey) (bool, error) {
	available, err := s.isAvailable(slot)
	if hook := s.afterIsAvailable; hook != nil {
		s.afterIsAvailable = nil
		hook()
	}
	return available, err
}

func (s *fakeStore) isAvailable(slot entity.SlotKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isAvailCall++
	if s.storeErr != nil {
		return false, s.storeErr
	}
	for _, row := range s.rows {
		if row.IsConfirmed() && row.SlotDate == slot.Date() && row.SlotTime == slot.Clock24() {
			return false, nil
		}
	}
	return true, nil
}

func (s *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return nil, s.storeErr
	}
	for _, row := range s.rows {
		if row.ID == id {
			out := *row
			return &out, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByReference(_ context.Context, reference string) (*entity.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return nil, s.storeErr
	}
	for _, row := range s.rows {
		if row.BookingReference == reference {
			out := *row
			return &out, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByDateRange(_ context.Context, from, to string) ([]entity.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return nil, s.storeErr
	}
	var out []entity.Reservation
	for _, row := range s.rows {
		if row.SlotDate >= from && row.SlotDate <= to {
			out = append(out, *row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SlotDate != out[j].SlotDate {
			return out[i].SlotDate < out[j].SlotDate
		}
		return out[i].SlotTime < out[j].SlotTime
	})
	return out, nil
}

func (s *fakeStore) FindConfirmedByDate(_ context.Context, date string) ([]entity.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return nil, s.storeErr
	}
	var out []entity.Reservation
	for _, row := range s.rows {
		if row.IsConfirmed() && row.SlotDate == date {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *fakeStore) confirmedCount(slot entity.SlotKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.rows {
		if row.IsConfirmed() && row.SlotDate == slot.Date() && row.SlotTime == slot.Clock24() {
			n++
		}
	}
	return n
}

func (s *fakeStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]bool
	err         error
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]bool)}
}

func (c *fakeCache) Get(_ context.Context, slot entity.SlotKey) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	v, ok := c.entries[slot.String()]
	if !ok {
		return false, repository.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, slot entity.SlotKey, available bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[slot.String()] = available
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, slot entity.SlotKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, slot.String())
	if c.err != nil {
		return c.err
	}
	delete(c.entries, slot.String())
	return nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyConfirmed(ctx context.Context, res *entity.Reservation) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *mockNotifier) NotifyCancelled(ctx context.Context, res *entity.Reservation) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func testBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		Location: time.UTC,
		LeadTime: 4 * time.Minute,
		Windows: []config.ServiceWindow{
			{Start: 9 * 60, End: 12 * 60},
			{Start: 17 * 60, End: 20 * 60},
		},
		SlotInterval:   30 * time.Minute,
		MaxAdvanceDays: 90,
		PollInterval:   10 * time.Second,
	}
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

// bookingFixture wires the booking engine over in-memory collaborators.
type bookingFixture struct {
	clock     *clock.MockClock
	store     *fakeStore
	cache     *fakeCache
	notifier  *mockNotifier
	gate      *service.ValidationGate
	manager   ReservationManager
	staleness StalenessNotifier
	booking   BookingUsecase
	log       *logrus.Logger
	hook      *test.Hook
}

func newBookingFixture(t *testing.T, now time.Time) *bookingFixture {
	t.Helper()

	cfg := testBookingConfig()
	clk := clock.NewMockClock(now)
	log, hook := newTestLogger()
	store := newFakeStore()
	cache := newFakeCache()
	notifier := new(mockNotifier)

	gate := service.NewValidationGate(cfg, clk, validator.NewValidator())
	refs := service.NewBookingReferenceGenerator(cfg.Location)
	manager := NewReservationManager(store, cache, gate, refs, clk, log, time.Second)
	staleness := NewStalenessNotifier(store, cache, gate, clk, log, cfg.PollInterval)
	booking := NewBookingUsecase(log, clk, store, gate, manager, staleness, notifier)

	return &bookingFixture{
		clock:     clk,
		store:     store,
		cache:     cache,
		notifier:  notifier,
		gate:      gate,
		manager:   manager,
		staleness: staleness,
		booking:   booking,
		log:       log,
		hook:      hook,
	}
}

func mustSlot(t *testing.T, date, tm string) entity.SlotKey {
	t.Helper()
	slot, err := entity.ParseSlotKey(date, tm)
	if err != nil {
		t.Fatalf("parse slot %s %s: %v", date, tm, err)
	}
	return slot
}

func testPatient() entity.PatientPayload {
	return entity.PatientPayload{Name: "Ana Souza", Phone: "08123456789"}
}
