package handler

import (
	"context"

	"hospital-booking/internal/delivery/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockBookingUsecase struct {
	mock.Mock
}

func (m *mockBookingUsecase) GetDaySlots(ctx context.Context, rawDate string) (*dto.DaySlotsResponse, error) {
	args := m.Called(ctx, rawDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DaySlotsResponse), args.Error(1)
}

func (m *mockBookingUsecase) CheckAvailability(ctx context.Context, rawDate, rawTime string) (*dto.AvailabilityResponse, error) {
	args := m.Called(ctx, rawDate, rawTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AvailabilityResponse), args.Error(1)
}

func (m *mockBookingUsecase) SubmitBooking(ctx context.Context, req *dto.SubmitBookingRequest) (*dto.SubmitBookingResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SubmitBookingResponse), args.Error(1)
}

func (m *mockBookingUsecase) GetBookingByReference(ctx context.Context, reference string) (*dto.BookingResponse, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BookingResponse), args.Error(1)
}

type mockAdminReservationUsecase struct {
	mock.Mock
}

func (m *mockAdminReservationUsecase) ListReservations(ctx context.Context, from, to string) (*dto.ReservationListResponse, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReservationListResponse), args.Error(1)
}

func (m *mockAdminReservationUsecase) GetReservation(ctx context.Context, id uuid.UUID) (*dto.ReservationResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReservationResponse), args.Error(1)
}

func (m *mockAdminReservationUsecase) CreateReservation(ctx context.Context, req *dto.AdminCreateReservationRequest, actor string) (*dto.ReservationResponse, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReservationResponse), args.Error(1)
}

func (m *mockAdminReservationUsecase) CancelReservation(ctx context.Context, id uuid.UUID, reason, actor string) (*dto.ReservationResponse, error) {
	args := m.Called(ctx, id, reason, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReservationResponse), args.Error(1)
}

func (m *mockAdminReservationUsecase) GetReservationAudit(ctx context.Context, id uuid.UUID) (*dto.AuditLogListResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AuditLogListResponse), args.Error(1)
}
