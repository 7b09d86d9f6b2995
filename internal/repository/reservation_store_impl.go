package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"hospital-booking/internal/domain/entity"
	domainRepo "hospital-booking/internal/domain/repository"
	"hospital-booking/pkg/clock"
	"hospital-booking/pkg/errs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgErrCodeUniqueViolation      = "23505"
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
	pgErrCodeLockNotAvailable     = "55P03"

	constraintConfirmedSlot    = "uq_reservations_confirmed_slot"
	constraintBookingReference = "uq_reservations_booking_reference"
)

// ClaimStrategy selects how a claim serializes against competing claims.
type ClaimStrategy string

const (
	// ClaimStrategyOptimistic inserts directly and lets the partial unique
	// index reject the loser.
	ClaimStrategyOptimistic ClaimStrategy = "optimistic"
	// ClaimStrategyPessimistic takes a transaction-scoped advisory lock on the
	// slot and re-checks with SELECT ... FOR UPDATE before inserting.
	ClaimStrategyPessimistic ClaimStrategy = "pessimistic"
)

func ParseClaimStrategy(s string) (ClaimStrategy, error) {
	switch ClaimStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ClaimStrategyOptimistic:
		return ClaimStrategyOptimistic, nil
	case ClaimStrategyPessimistic:
		return ClaimStrategyPessimistic, nil
	default:
		return "", fmt.Errorf("unknown claim strategy %q", s)
	}
}

type ReservationStoreConfig struct {
	Strategy    ClaimStrategy
	LockTimeout time.Duration
	MaxRetries  int
	RetryBase   time.Duration
}

type reservationStore struct {
	db        *gorm.DB
	log       *logrus.Logger
	clock     clock.Clock
	auditRepo domainRepo.AuditLogRepository
	cfg       ReservationStoreConfig
}

func NewReservationStore(
	db *gorm.DB,
	log *logrus.Logger,
	clk clock.Clock,
	auditRepo domainRepo.AuditLogRepository,
	cfg ReservationStoreConfig,
) domainRepo.ReservationStore {
	if cfg.Strategy == "" {
		cfg.Strategy = ClaimStrategyOptimistic
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 50 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &reservationStore{
		db:        db,
		log:       log,
		clock:     clk,
		auditRepo: auditRepo,
		cfg:       cfg,
	}
}

func (s *reservationStore) Claim(ctx context.Context, res *entity.Reservation, actor string) error {
	err := s.withRetry(ctx, "claim", func(tx *gorm.DB) error {
		if s.cfg.Strategy == ClaimStrategyPessimistic {
			if err := s.setLockTimeout(tx); err != nil {
				return err
			}
			if err := lockSlot(tx, res.SlotDate, res.SlotTime); err != nil {
				return err
			}

			var holder entity.Reservation
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("slot_date = ? AND slot_time = ? AND status = ?", res.SlotDate, res.SlotTime, entity.ReservationStatusConfirmed).
				Take(&holder).Error
			if err == nil {
				return domainRepo.ErrSlotConflict
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if err := tx.Create(res).Error; err != nil {
			return err
		}

		audit := entity.NewReservationAudit(entity.AuditActionReservationCreate, actor, res, res.CreatedAt)
		return s.auditRepo.Create(tx, audit)
	})
	if err != nil {
		return classifyError(err, "claim reservation")
	}
	return nil
}

// Cancel locks in the same order as a pessimistic claim (slot lock, then row
// lock) so the two never deadlock each other.
func (s *reservationStore) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (*entity.Reservation, error) {
	var cancelled entity.Reservation

	err := s.withRetry(ctx, "cancel", func(tx *gorm.DB) error {
		if s.cfg.Strategy == ClaimStrategyPessimistic {
			if err := s.setLockTimeout(tx); err != nil {
				return err
			}
			var current entity.Reservation
			if err := tx.Where("id = ?", id).Take(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domainRepo.ErrReservationNotFound
				}
				return err
			}
			if err := lockSlot(tx, current.SlotDate, current.SlotTime); err != nil {
				return err
			}
		}

		var res entity.Reservation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&res).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainRepo.ErrReservationNotFound
			}
			return err
		}
		if !res.IsConfirmed() {
			return domainRepo.ErrReservationNotConfirmed
		}

		now := s.clock.Now()
		result := tx.Model(&entity.Reservation{}).
			Where("id = ? AND status = ?", id, entity.ReservationStatusConfirmed).
			Updates(map[string]interface{}{
				"status":        entity.ReservationStatusCancelled,
				"cancel_reason": reason,
				"cancelled_at":  now,
				"updated_at":    now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainRepo.ErrReservationNotConfirmed
		}

		res.Status = entity.ReservationStatusCancelled
		res.CancelReason = reason
		res.CancelledAt = &now
		res.UpdatedAt = now

		audit := entity.NewReservationAudit(entity.AuditActionReservationCancel, actor, &res, now)
		if reason != "" {
			audit.Metadata["reason"] = reason
		}
		if err := s.auditRepo.Create(tx, audit); err != nil {
			return err
		}

		cancelled = res
		return nil
	})
	if err != nil {
		return nil, classifyError(err, "cancel reservation")
	}
	return &cancelled, nil
}

func (s *reservationStore) IsAvailable(ctx context.Context, slot entity.SlotKey) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entity.Reservation{}).
		Where("slot_date = ? AND slot_time = ? AND status = ?", slot.Date(), slot.Clock24(), entity.ReservationStatusConfirmed).
		Count(&count).Error
	if err != nil {
		return false, errs.Wrap(err, "count confirmed reservations")
	}
	return count == 0, nil
}

func (s *reservationStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	var res entity.Reservation
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "find reservation by id")
	}
	return &res, nil
}

func (s *reservationStore) FindByReference(ctx context.Context, reference string) (*entity.Reservation, error) {
	var res entity.Reservation
	err := s.db.WithContext(ctx).Where("booking_reference = ?", reference).Take(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "find reservation by reference")
	}
	return &res, nil
}

// FindByDateRange returns every reservation, confirmed or cancelled, whose
// slot date lies in [from, to]. Dates are canonical YYYY-MM-DD strings and
// compare lexically.
func (s *reservationStore) FindByDateRange(ctx context.Context, from, to string) ([]entity.Reservation, error) {
	var reservations []entity.Reservation
	err := s.db.WithContext(ctx).
		Where("slot_date BETWEEN ? AND ?", from, to).
		Order("slot_date ASC, slot_time ASC, created_at ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, errs.Wrap(err, "find reservations by date range")
	}
	return reservations, nil
}

func (s *reservationStore) FindConfirmedByDate(ctx context.Context, date string) ([]entity.Reservation, error) {
	var reservations []entity.Reservation
	err := s.db.WithContext(ctx).
		Where("slot_date = ? AND status = ?", date, entity.ReservationStatusConfirmed).
		Order("slot_time ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, errs.Wrap(err, "find confirmed reservations by date")
	}
	return reservations, nil
}

// withRetry runs fn in a transaction, retrying on serialization failures and
// deadlocks with exponential backoff plus jitter.
func (s *reservationStore) withRetry(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	for attempt := 0; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !isRetryableError(err) || attempt >= s.cfg.MaxRetries {
			return err
		}

		wait := calculateBackoff(attempt, s.cfg.RetryBase)
		s.log.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"wait_ms": wait.Milliseconds(),
		}).Warnf("Retrying transaction due to retryable error: %v", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (s *reservationStore) setLockTimeout(tx *gorm.DB) error {
	if s.cfg.LockTimeout <= 0 {
		return nil
	}
	// SET does not accept bind parameters.
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.cfg.LockTimeout.Milliseconds())).Error
}

// lockSlot takes a transaction-scoped advisory lock keyed on the slot. It
// serializes claims on a slot that has no row to lock yet.
func lockSlot(tx *gorm.DB, slotDate, slotTime string) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", slotLockKey(slotDate, slotTime)).Error
}

func slotLockKey(slotDate, slotTime string) string {
	return "reservation-slot:" + slotDate + " " + slotTime
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	wait := time.Duration(1<<attempt) * base
	if jitter := int64(wait / 5); jitter > 0 {
		wait += time.Duration(rand.Int64N(jitter))
	}
	return wait
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected:
		return true
	default:
		return false
	}
}

// classifyError maps unique violations to domain conflicts, passes domain
// sentinels through and wraps everything else with a stack.
func classifyError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgErrCodeUniqueViolation && pgErr.ConstraintName == constraintConfirmedSlot:
			return domainRepo.ErrSlotConflict
		case pgErr.Code == pgErrCodeUniqueViolation && pgErr.ConstraintName == constraintBookingReference:
			return domainRepo.ErrReferenceConflict
		case pgErr.Code == pgErrCodeLockNotAvailable:
			return errs.Wrap(err, msg+": lock timeout")
		}
	}

	switch {
	case errors.Is(err, domainRepo.ErrSlotConflict),
		errors.Is(err, domainRepo.ErrReferenceConflict),
		errors.Is(err, domainRepo.ErrReservationNotFound),
		errors.Is(err, domainRepo.ErrReservationNotConfirmed):
		return err
	}
	return errs.Wrap(err, msg)
}
