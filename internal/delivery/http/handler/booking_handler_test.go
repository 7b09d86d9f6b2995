package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/service"
	"hospital-booking/internal/usecase"
	"hospital-booking/pkg/response"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Error     json.RawMessage `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestBookingHandler_SubmitBooking(t *testing.T) {
	uc := new(mockBookingUsecase)
	h := NewBookingHandler(uc)

	uc.On("SubmitBooking", mock.Anything, &dto.SubmitBookingRequest{
		Date:    "2025-03-10",
		Time:    "10:00 AM",
		Patient: dto.PatientRequest{Name: "Ana", Phone: "08123456789"},
	}).Return(&dto.SubmitBookingResponse{
		BookingReference: "BK-250301-0A1B2C3D",
		Date:             "2025-03-10",
		Time:             "10:00 AM",
		Status:           "confirmed",
	}, nil).Once()

	body := `{"date":"2025-03-10","time":"10:00 AM","patient":{"name":"Ana","phone":"08123456789"}}`
	rec := httptest.NewRecorder()
	h.SubmitBooking(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var got dto.SubmitBookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "BK-250301-0A1B2C3D", got.BookingReference)
	uc.AssertExpectations(t)
}

func TestBookingHandler_SubmitBooking_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter string
	}{
		{
			name:   "validation",
			err:    &service.ValidationError{Fields: map[string]string{"time": "bad", "phone": "bad"}},
			status: http.StatusBadRequest,
			code:   response.CodeValidationFailed,
		},
		{name: "taken", err: usecase.ErrSlotTaken, status: http.StatusConflict, code: response.CodeSlotTaken},
		{name: "expired", err: usecase.ErrSlotExpired, status: http.StatusUnprocessableEntity, code: response.CodeSlotExpired},
		{
			name:       "unavailable",
			err:        fmt.Errorf("%w: %w", usecase.ErrStoreUnavailable, fmt.Errorf("dial tcp: refused")),
			status:     http.StatusServiceUnavailable,
			code:       response.CodeStoreUnavailable,
			retryAfter: "1",
		},
		{name: "unexpected", err: fmt.Errorf("boom"), status: http.StatusInternalServerError, code: response.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(mockBookingUsecase)
			h := NewBookingHandler(uc)
			uc.On("SubmitBooking", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			rec := httptest.NewRecorder()
			h.SubmitBooking(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`)))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.ErrorCode)
		})
	}
}

func TestBookingHandler_SubmitBooking_ValidationFieldsInBody(t *testing.T) {
	uc := new(mockBookingUsecase)
	h := NewBookingHandler(uc)
	uc.On("SubmitBooking", mock.Anything, mock.Anything).
		Return(nil, &service.ValidationError{Fields: map[string]string{"date": "bad date", "name": "required"}}).Once()

	rec := httptest.NewRecorder()
	h.SubmitBooking(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`)))

	env := decodeEnvelope(t, rec)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Error, &fields))
	assert.Equal(t, map[string]string{"date": "bad date", "name": "required"}, fields)
}

func TestBookingHandler_SubmitBooking_MalformedBody(t *testing.T) {
	uc := new(mockBookingUsecase)
	h := NewBookingHandler(uc)

	rec := httptest.NewRecorder()
	h.SubmitBooking(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"date":`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeBadRequest, decodeEnvelope(t, rec).ErrorCode)
	uc.AssertNotCalled(t, "SubmitBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_CheckAvailability(t *testing.T) {
	uc := new(mockBookingUsecase)
	h := NewBookingHandler(uc)
	uc.On("CheckAvailability", mock.Anything, "2025-03-10", "10:00 AM").
		Return(&dto.AvailabilityResponse{Date: "2025-03-10", Time: "10:00 AM", Available: true, PollAfterSeconds: 10}, nil).Once()

	rec := httptest.NewRecorder()
	h.CheckAvailability(rec, httptest.NewRequest(http.MethodGet, "/api/v1/slots/availability?date=2025-03-10&time=10:00+AM", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got dto.AvailabilityResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.True(t, got.Available)
	assert.Equal(t, 10, got.PollAfterSeconds)
	uc.AssertExpectations(t)
}

func TestBookingHandler_GetBooking(t *testing.T) {
	uc := new(mockBookingUsecase)
	h := NewBookingHandler(uc)
	uc.On("GetBookingByReference", mock.Anything, "BK-250301-0A1B2C3D").
		Return(&dto.BookingResponse{BookingReference: "BK-250301-0A1B2C3D", Status: "confirmed"}, nil).Once()
	uc.On("GetBookingByReference", mock.Anything, "BK-250301-ZZZZZZZZ").
		Return(nil, usecase.ErrReservationNotFound).Once()

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/BK-250301-0A1B2C3D", nil),
		map[string]string{"reference": "BK-250301-0A1B2C3D"})
	rec := httptest.NewRecorder()
	h.GetBooking(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/BK-250301-ZZZZZZZZ", nil),
		map[string]string{"reference": "BK-250301-ZZZZZZZZ"})
	rec = httptest.NewRecorder()
	h.GetBooking(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, response.CodeNotFound, decodeEnvelope(t, rec).ErrorCode)
	uc.AssertExpectations(t)
}

func TestBookingHandler_GetDaySlots(t *testing.T) {
	uc := new(mockBookingUsecase)
	h := NewBookingHandler(uc)
	uc.On("GetDaySlots", mock.Anything, "2025-03-10").Return(&dto.DaySlotsResponse{
		Date:  "2025-03-10",
		Slots: []dto.SlotAvailability{{Time: "09:00 AM", Available: true}},
	}, nil).Once()

	rec := httptest.NewRecorder()
	h.GetDaySlots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/slots?date=2025-03-10", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got dto.DaySlotsResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	require.Len(t, got.Slots, 1)
	assert.Equal(t, "09:00 AM", got.Slots[0].Time)
}
