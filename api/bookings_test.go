package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, id int64, reason string) (*domain.Booking, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, reason string) (*domain.Booking, error) {
	args := m.Called(ctx, id, status, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func sampleBooking(status domain.BookingStatus) *domain.Booking {
	vehicleID := int64(3)
	return &domain.Booking{
		ID:            1,
		BookingNumber: "TB-2026-00001",
		CustomerEmail: "test@example.com",
		VehicleID:     &vehicleID,
		Mode:          domain.BookingModeVehicle,
		TourDate:      time.Date(2026, time.November, 3, 0, 0, 0, 0, time.UTC),
		StartTime:     domain.NewClockTime(10, 0),
		EndTime:       domain.NewClockTime(16, 0),
		DurationHours: 6,
		PartySize:     10,
		Price:         domain.Quote{Subtotal: 165000, Taxes: 13200, Total: 178200, Deposit: 44550},
		Status:        status,
	}
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body := `{"customer":{"email":"test@example.com","name":"Sam Doe"},
		"tour_date":"2026-11-03","start_time":"10:00","duration_hours":6,"party_size":10}`
	c.Request = httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewReader([]byte(body)))
	c.Request.Header.Set("Content-Type", "application/json")

	expected := booking.CreateBookingInput{
		Customer: booking.CustomerInput{Email: "test@example.com", Name: "Sam Doe"},
		Tour: booking.TourDetails{
			Date:          time.Date(2026, time.November, 3, 0, 0, 0, 0, time.UTC),
			StartTime:     domain.NewClockTime(10, 0),
			DurationHours: 6,
			PartySize:     10,
		},
	}
	mockService.On("CreateBooking", c.Request.Context(), expected).Return(sampleBooking(domain.BookingStatusPending), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "TB-2026-00001", response.BookingNumber)
	assert.Equal(t, string(domain.BookingStatusPending), response.Status)
	assert.Equal(t, "10:00", response.StartTime)
	assert.Equal(t, "16:00", response.EndTime)
	assert.Equal(t, int64(178200), response.Total)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_createRejectsBadTime(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body := `{"tour_date":"2026-11-03","start_time":"ten","duration_hours":6,"party_size":10}`
	c.Request = httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewReader([]byte(body)))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "start_time")
	mockService.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_createErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, resp errorResponse)
	}{
		{
			name:   "validation",
			err:    domain.NewValidationError("party_size", "failed %q check", "min"),
			status: http.StatusBadRequest,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "party_size", resp.Field)
			},
		},
		{
			name:   "conflict",
			err:    domain.NewConflictError("no vehicle available on 2026-11-03 10:00-16:00", "Van A (capacity 12) is reserved: HOLD 10:00-16:30"),
			status: http.StatusConflict,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, []string{"Van A (capacity 12) is reserved: HOLD 10:00-16:30"}, resp.Reasons)
			},
		},
		{
			name:   "internal",
			err:    errors.New("connection reset"),
			status: http.StatusInternalServerError,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "internal error", resp.Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockBookingUseCase{}
			handler := NewBookingHandler(mockService)

			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			body := `{"customer":{"email":"test@example.com","name":"Sam"},"tour_date":"2026-11-03","start_time":"10:00","duration_hours":6,"party_size":10}`
			c.Request = httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewReader([]byte(body)))
			c.Request.Header.Set("Content-Type", "application/json")

			mockService.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, tt.err)

			handler.create(c)

			assert.Equal(t, tt.status, w.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			tt.check(t, resp)
		})
	}
}

func TestBookingHandler_get(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Request = httptest.NewRequest("GET", "/api/v1/bookings/42", nil)

	mockService.On("GetBooking", c.Request.Context(), int64(42)).Return(nil, domain.NewNotFoundError("booking", int64(42)))

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_getInvalidID(t *testing.T) {
	handler := NewBookingHandler(&MockBookingUseCase{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Request = httptest.NewRequest("GET", "/api/v1/bookings/abc", nil)

	handler.get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("POST", "/api/v1/bookings/1/cancel", bytes.NewReader([]byte(`{"reason":"weather"}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	cancelled := sampleBooking(domain.BookingStatusCancelled)
	cancelled.CancellationReason = "weather"
	mockService.On("CancelBooking", c.Request.Context(), int64(1), "weather").Return(cancelled, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, string(domain.BookingStatusCancelled), response.Status)
	assert.Equal(t, "weather", response.CancellationReason)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancelPastDeadline(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("POST", "/api/v1/bookings/1/cancel", nil)

	mockService.On("CancelBooking", c.Request.Context(), int64(1), "").
		Return(nil, domain.NewConflictError("cancellation deadline has passed"))

	handler.cancel(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_updateStatus(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("PATCH", "/api/v1/bookings/1/status", bytes.NewReader([]byte(`{"status":"confirmed"}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("UpdateStatus", c.Request.Context(), int64(1), domain.BookingStatusConfirmed, "").
		Return(sampleBooking(domain.BookingStatusConfirmed), nil)

	handler.updateStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, string(domain.BookingStatusConfirmed), response.Status)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_updateStatusRequiresStatus(t *testing.T) {
	handler := NewBookingHandler(&MockBookingUseCase{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("PATCH", "/api/v1/bookings/1/status", bytes.NewReader([]byte(`{}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.updateStatus(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
