package usecase

import (
	"context"
	"fmt"

	"hospital-booking/internal/converter"
	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/domain/entity"
	"hospital-booking/internal/domain/repository"
	"hospital-booking/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxCalendarRangeDays caps one calendar projection request.
const maxCalendarRangeDays = 366

// AdminReservationUsecase backs the admin calendar and administrative
// cancellation.
type AdminReservationUsecase interface {
	ListReservations(ctx context.Context, from, to string) (*dto.ReservationListResponse, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*dto.ReservationResponse, error)
	CreateReservation(ctx context.Context, req *dto.AdminCreateReservationRequest, actor string) (*dto.ReservationResponse, error)
	CancelReservation(ctx context.Context, id uuid.UUID, reason, actor string) (*dto.ReservationResponse, error)
	GetReservationAudit(ctx context.Context, id uuid.UUID) (*dto.AuditLogListResponse, error)
}

type adminReservationUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	store        repository.ReservationStore
	auditLogRepo repository.AuditLogRepository
	gate         *service.ValidationGate
	manager      ReservationManager
	notifier     service.BookingNotifier
}

func NewAdminReservationUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	store repository.ReservationStore,
	auditLogRepo repository.AuditLogRepository,
	gate *service.ValidationGate,
	manager ReservationManager,
	notifier service.BookingNotifier,
) AdminReservationUsecase {
	return &adminReservationUsecase{
		db:           db,
		log:          log,
		store:        store,
		auditLogRepo: auditLogRepo,
		gate:         gate,
		manager:      manager,
		notifier:     notifier,
	}
}

// ListReservations returns confirmed and cancelled reservations with slot
// dates in [from, to], ordered by slot.
func (u *adminReservationUsecase) ListReservations(ctx context.Context, from, to string) (*dto.ReservationListResponse, error) {
	fields := make(map[string]string)
	fromDate, err := entity.ParseSlotDate(from)
	if err != nil {
		fields["from"] = err.Error()
	}
	toDate, err := entity.ParseSlotDate(to)
	if err != nil {
		fields["to"] = err.Error()
	}
	if len(fields) == 0 {
		switch {
		case toDate.Before(fromDate):
			fields["to"] = "to must not be before from"
		case toDate.Sub(fromDate).Hours()/24 > maxCalendarRangeDays:
			fields["to"] = fmt.Sprintf("range must not exceed %d days", maxCalendarRangeDays)
		}
	}
	if len(fields) > 0 {
		return nil, &service.ValidationError{Fields: fields}
	}

	fromStr := fromDate.Format(entity.SlotDateLayout)
	toStr := toDate.Format(entity.SlotDateLayout)
	reservations, err := u.store.FindByDateRange(ctx, fromStr, toStr)
	if err != nil {
		u.log.Errorf("Failed to list reservations %s..%s: %+v", fromStr, toStr, err)
		return nil, wrapUnavailable(err)
	}

	return &dto.ReservationListResponse{
		From:         fromStr,
		To:           toStr,
		Reservations: converter.ReservationsToResponses(reservations),
		Total:        len(reservations),
	}, nil
}

func (u *adminReservationUsecase) GetReservation(ctx context.Context, id uuid.UUID) (*dto.ReservationResponse, error) {
	res, err := u.store.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find reservation %s: %+v", id, err)
		return nil, wrapUnavailable(err)
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	return converter.ReservationToResponse(res), nil
}

// CreateReservation books on behalf of a caller through the same claim path
// as the public flow.
func (u *adminReservationUsecase) CreateReservation(ctx context.Context, req *dto.AdminCreateReservationRequest, actor string) (*dto.ReservationResponse, error) {
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
		Channel: entity.BookingChannelAdmin,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}

	notifyConfirmed(ctx, u.log, u.notifier, res)
	return converter.ReservationToResponse(res), nil
}

func (u *adminReservationUsecase) CancelReservation(ctx context.Context, id uuid.UUID, reason, actor string) (*dto.ReservationResponse, error) {
	res, err := u.manager.Cancel(ctx, id, actor, reason)
	if err != nil {
		return nil, err
	}

	notifyCancelled(ctx, u.log, u.notifier, res)
	return converter.ReservationToResponse(res), nil
}

func (u *adminReservationUsecase) GetReservationAudit(ctx context.Context, id uuid.UUID) (*dto.AuditLogListResponse, error) {
	res, err := u.store.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find reservation %s: %+v", id, err)
		return nil, wrapUnavailable(err)
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	logs, err := u.auditLogRepo.FindByEntity(u.db.WithContext(ctx), entity.AuditEntityReservation, id.String())
	if err != nil {
		u.log.Warnf("Failed to find audit logs for reservation %s: %+v", id, err)
		return nil, wrapUnavailable(err)
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: len(logs),
	}, nil
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
