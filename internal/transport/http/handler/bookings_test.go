package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/parkspot-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBookingService struct{ mock.Mock }

func (m *mockBookingService) RequestOTP(ctx context.Context, req domain.SendOTPRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockBookingService) VerifyOTPAndBook(ctx context.Context, req domain.VerifyOTPRequest) (*domain.Booking, error) {
	args := m.Called(ctx, req)
	if b, _ := args.Get(0).(*domain.Booking); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockBookingService) Create(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error) {
	args := m.Called(ctx, req)
	if b, _ := args.Get(0).(*domain.Booking); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockBookingService) Cancel(ctx context.Context, bookingID string) error {
	return m.Called(ctx, bookingID).Error(0)
}
func (m *mockBookingService) GetActive(ctx context.Context, userID string) (*domain.Booking, error) {
	args := m.Called(ctx, userID)
	if b, _ := args.Get(0).(*domain.Booking); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockBookingService) GetHistory(ctx context.Context, userID string) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	if bs, _ := args.Get(0).([]domain.Booking); bs != nil {
		return bs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockBookingService) Receipt(ctx context.Context, bookingID string) (io.ReadCloser, error) {
	args := m.Called(ctx, bookingID)
	if rc, _ := args.Get(0).(io.ReadCloser); rc != nil {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func bookingRouter(svc *mockBookingService) http.Handler {
	h := NewBookingHandler(svc)
	r := chi.NewRouter()
	r.Route("/api/bookings", func(r chi.Router) {
		r.Post("/send-otp", h.SendOTP)
		r.Post("/verify-otp", h.VerifyOTP)
		r.Post("/", h.Create)
		r.Get("/active/{userId}", h.Active)
		r.Post("/{bookingId}/cancel", h.Cancel)
		r.Get("/history/{userId}", h.History)
		r.Get("/{bookingId}/receipt", h.Receipt)
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSendOTP_InvalidBody(t *testing.T) {
	svc := &mockBookingService{}
	rec := doJSON(t, bookingRouter(svc), http.MethodPost, "/api/bookings/send-otp", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "RequestOTP", mock.Anything, mock.Anything)
}

func TestSendOTP_MissingEmail(t *testing.T) {
	svc := &mockBookingService{}
	body := `{"bookingDetails":{"spotId":"A-12","registrationNumber":"KA01AB1234","startTime":"10:00","endTime":"12:00"}}`
	rec := doJSON(t, bookingRouter(svc), http.MethodPost, "/api/bookings/send-otp", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "RequestOTP", mock.Anything, mock.Anything)
}

func TestSendOTP_HappyPath(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("RequestOTP", mock.Anything, mock.MatchedBy(func(req domain.SendOTPRequest) bool {
		return req.Email == "a@b.com" && req.BookingDetails.SpotID == "A-12"
	})).Return(nil)

	body := `{"email":"a@b.com","bookingDetails":{"spotId":"A-12","registrationNumber":"KA01AB1234","startTime":"10:00","endTime":"12:00"}}`
	rec := doJSON(t, bookingRouter(svc), http.MethodPost, "/api/bookings/send-otp", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "OTP sent", env.Message)
	svc.AssertExpectations(t)
}

func TestVerifyOTP_WrongLengthOTPRejectedBeforeService(t *testing.T) {
	svc := &mockBookingService{}
	rec := doJSON(t, bookingRouter(svc), http.MethodPost, "/api/bookings/verify-otp",
		`{"email":"a@b.com","otp":"123"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "VerifyOTPAndBook", mock.Anything, mock.Anything)
}

func TestVerifyOTP_MissingEntryIsBadRequest(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("VerifyOTPAndBook", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("no OTP pending for this email: %w", domain.ErrNotFound))

	rec := doJSON(t, bookingRouter(svc), http.MethodPost, "/api/bookings/verify-otp",
		`{"email":"a@b.com","otp":"123456"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no OTP pending")
}

func TestVerifyOTP_HappyPath(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("VerifyOTPAndBook", mock.Anything, domain.VerifyOTPRequest{Email: "a@b.com", OTP: "123456"}).
		Return(&domain.Booking{
			BookingID: "b1",
			SpotID:    "A-12",
			TotalCost: 20,
			Status:    domain.BookingStatusConfirmed,
			StartTime: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}, nil)

	rec := doJSON(t, bookingRouter(svc), http.MethodPost, "/api/bookings/verify-otp",
		`{"email":"a@b.com","otp":"123456"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env BookingEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	require.NotNil(t, env.Booking)
	assert.Equal(t, "b1", env.Booking.BookingID)
	assert.Equal(t, 20.0, env.Booking.TotalCost)
}

func TestCreate_ConflictMapsTo400(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("Create", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("user already has an active booking: %w", domain.ErrConflict))

	body := `{"userId":"u1","spotId":"A-12","vehicleNumber":"KA01AB1234","startTime":"2026-03-01T10:00:00Z","endTime":"2026-03-01T12:00:00Z","totalCost":20}`
	rec := doJSON(t, bookingRouter(svc), http.MethodPost, "/api/bookings/", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "active booking")
}

func TestCreate_HappyPathReturns201(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("Create", mock.Anything, mock.Anything).Return(&domain.Booking{
		BookingID: "b1", Status: domain.BookingStatusConfirmed, TotalCost: 20,
	}, nil)

	body := `{"userId":"u1","spotId":"A-12","vehicleNumber":"KA01AB1234","startTime":"2026-03-01T10:00:00Z","endTime":"2026-03-01T12:00:00Z","totalCost":20}`
	rec := doJSON(t, bookingRouter(svc), http.MethodPost, "/api/bookings/", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCancel_UnknownBookingIs404(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("Cancel", mock.Anything, "b1").
		Return(fmt.Errorf("booking not found: %w", domain.ErrNotFound))

	rec := doJSON(t, bookingRouter(svc), http.MethodPost, "/api/bookings/b1/cancel", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancel_HappyPath(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("Cancel", mock.Anything, "b1").Return(nil)

	rec := doJSON(t, bookingRouter(svc), http.MethodPost, "/api/bookings/b1/cancel", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking cancelled")
}

func TestActive_NoneStillReturns200(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("GetActive", mock.Anything, "u1").Return(nil, nil)

	rec := doJSON(t, bookingRouter(svc), http.MethodGet, "/api/bookings/active/u1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var env BookingEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Booking)
	assert.Equal(t, "no active booking", env.Message)
}

func TestHistory_EmptyListNotNull(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("GetHistory", mock.Anything, "u1").Return(nil, nil)

	rec := doJSON(t, bookingRouter(svc), http.MethodGet, "/api/bookings/history/u1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bookings":[]`)
}

func TestReceipt_StreamsPlainText(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("Receipt", mock.Anything, "b1").
		Return(io.NopCloser(strings.NewReader("ParkSpot receipt\nbooking: b1\n")), nil)

	rec := doJSON(t, bookingRouter(svc), http.MethodGet, "/api/bookings/b1/receipt", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "booking: b1")
}
