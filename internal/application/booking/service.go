package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/parkspot-api/internal/domain"
	"github.com/parkspot-api/internal/infrastructure/otpcache"
	"github.com/parkspot-api/internal/pkg/id"
	"github.com/parkspot-api/internal/pkg/secret"
)

// otpDuration bounds how long a booking draft stays redeemable.
const otpDuration = 10 * time.Minute

const fieldStatus = "status"

type Service interface {
	RequestOTP(ctx context.Context, req domain.SendOTPRequest) error
	VerifyOTPAndBook(ctx context.Context, req domain.VerifyOTPRequest) (*domain.Booking, error)
	Create(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID string) error
	GetActive(ctx context.Context, userID string) (*domain.Booking, error)
	GetHistory(ctx context.Context, userID string) ([]domain.Booking, error)
	Receipt(ctx context.Context, bookingID string) (io.ReadCloser, error)
}

type bookingStore interface {
	Put(ctx context.Context, b *domain.Booking) error
	Get(ctx context.Context, bookingID string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	Update(ctx context.Context, bookingID string, updates map[string]interface{}) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type otpCache interface {
	Put(email, code string, expiresAt time.Time, draft domain.BookingDraft)
	Redeem(email, code string) (otpcache.Entry, error)
}

type mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type receiptStore interface {
	Put(ctx context.Context, bookingID, body string) error
	Get(ctx context.Context, bookingID string) (io.ReadCloser, error)
	Delete(ctx context.Context, bookingID string) error
}

type service struct {
	repo       bookingStore
	users      userStore
	otps       otpCache
	mailer     mailer
	sms        smsSender    // optional
	receipts   receiptStore // optional
	hourlyRate float64
}

type ServiceDeps struct {
	BookingRepo bookingStore
	UserRepo    userStore
	OTPCache    otpCache
	Mailer      mailer
	SMSSender   smsSender
	Receipts    receiptStore
	HourlyRate  float64
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:       deps.BookingRepo,
		users:      deps.UserRepo,
		otps:       deps.OTPCache,
		mailer:     deps.Mailer,
		sms:        deps.SMSSender,
		receipts:   deps.Receipts,
		hourlyRate: deps.HourlyRate,
	}
}

// RequestOTP stores the draft in the OTP cache and sends the code. A second
// request for the same email replaces the first entry outright, so only the
// most recent code is redeemable.
func (s *service) RequestOTP(ctx context.Context, req domain.SendOTPRequest) error {
	start, end, err := draftWindow(req.BookingDetails, time.Now())
	if err != nil {
		return err
	}
	code, err := secret.NewOTP()
	if err != nil {
		return err
	}
	s.otps.Put(req.Email, code, time.Now().Add(otpDuration), req.BookingDetails)

	body := fmt.Sprintf(
		`<p>Your parking confirmation code is <b>%s</b> (valid for 10 minutes).</p>
<p>Spot %s, vehicle %s, %s&ndash;%s (estimated cost %.0f).</p>`,
		code, req.BookingDetails.SpotID, req.BookingDetails.VehicleNumber,
		req.BookingDetails.StartTime, req.BookingDetails.EndTime,
		s.quote(start, end),
	)
	if err := s.mailer.SendEmail(req.Email, "Your parking confirmation code", body); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	if s.sms != nil && req.BookingDetails.Phone != nil {
		msg := fmt.Sprintf("ParkSpot code %s for spot %s (valid 10 min)", code, req.BookingDetails.SpotID)
		if err := s.sms.SendSMS(ctx, *req.BookingDetails.Phone, msg); err != nil {
			slog.Warn("otp sms failed", "email", req.Email, "err", err)
		}
	}
	return nil
}

// VerifyOTPAndBook redeems the code, then finalises the draft into a durable
// confirmed booking owned by the account registered under the email.
func (s *service) VerifyOTPAndBook(ctx context.Context, req domain.VerifyOTPRequest) (*domain.Booking, error) {
	entry, err := s.otps.Redeem(req.Email, req.OTP)
	switch {
	case err == nil:
	case errors.Is(err, otpcache.ErrNotFound):
		return nil, fmt.Errorf("no OTP pending for this email: %w", domain.ErrNotFound)
	case errors.Is(err, otpcache.ErrExpired):
		return nil, fmt.Errorf("OTP expired, request a new one: %w", domain.ErrExpired)
	default:
		return nil, fmt.Errorf("invalid OTP: %w", domain.ErrBadRequest)
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("no account for this email: %w", domain.ErrNotFound)
	}
	if err := s.checkNoActive(ctx, u.UserID); err != nil {
		return nil, err
	}
	start, end, err := draftWindow(entry.Draft, time.Now())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &domain.Booking{
		BookingID:     id.New(),
		UserID:        u.UserID,
		SpotID:        entry.Draft.SpotID,
		VehicleNumber: entry.Draft.VehicleNumber,
		StartTime:     start,
		EndTime:       end,
		TotalCost:     s.quote(start, end),
		Status:        domain.BookingStatusConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Put(ctx, b); err != nil {
		return nil, err
	}
	s.archiveReceipt(ctx, b)
	return b, nil
}

// Create persists a confirmed booking directly, bypassing the OTP flow.
func (s *service) Create(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error) {
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("startTime must be RFC 3339: %w", domain.ErrBadRequest)
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("endTime must be RFC 3339: %w", domain.ErrBadRequest)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("endTime must be after startTime: %w", domain.ErrBadRequest)
	}

	if err := s.checkNoActive(ctx, req.UserID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &domain.Booking{
		BookingID:     id.New(),
		UserID:        req.UserID,
		SpotID:        req.SpotID,
		VehicleNumber: req.VehicleNumber,
		StartTime:     start,
		EndTime:       end,
		TotalCost:     req.TotalCost,
		Status:        domain.BookingStatusConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Put(ctx, b); err != nil {
		return nil, err
	}
	s.archiveReceipt(ctx, b)
	return b, nil
}

// Cancel marks the booking cancelled. Re-cancelling an already cancelled
// booking is a no-op, not an error.
func (s *service) Cancel(ctx context.Context, bookingID string) error {
	b, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status == domain.BookingStatusCancelled {
		return nil
	}
	err = s.repo.Update(ctx, bookingID, map[string]interface{}{
		fieldStatus: domain.BookingStatusCancelled,
	})
	if err != nil {
		return err
	}
	if s.receipts != nil {
		if err := s.receipts.Delete(ctx, bookingID); err != nil {
			slog.Warn("receipt delete failed", "booking_id", bookingID, "err", err)
		}
	}
	return nil
}

// GetActive returns the user's confirmed booking with a future end time, or
// nil when there is none. Absence is a valid answer, not an error.
func (s *service) GetActive(ctx context.Context, userID string) (*domain.Booking, error) {
	bookings, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range bookings {
		if bookings[i].Active(now) {
			return &bookings[i], nil
		}
	}
	return nil, nil
}

// GetHistory returns all bookings for the user, newest start first.
func (s *service) GetHistory(ctx context.Context, userID string) ([]domain.Booking, error) {
	if !id.Valid(userID) {
		return nil, fmt.Errorf("invalid user id: %w", domain.ErrBadRequest)
	}
	bookings, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].StartTime.After(bookings[j].StartTime)
	})
	return bookings, nil
}

// Receipt streams the archived receipt for bookingID.
func (s *service) Receipt(ctx context.Context, bookingID string) (io.ReadCloser, error) {
	if s.receipts == nil {
		return nil, fmt.Errorf("receipt archive not configured: %w", domain.ErrNotFound)
	}
	if _, err := s.repo.Get(ctx, bookingID); err != nil {
		return nil, err
	}
	rc, err := s.receipts.Get(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("receipt not found: %w", domain.ErrNotFound)
	}
	return rc, nil
}

// checkNoActive enforces one active booking per user across both creation
// paths. Cancelled and past bookings do not count.
func (s *service) checkNoActive(ctx context.Context, userID string) error {
	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	now := time.Now()
	for i := range existing {
		if existing[i].Active(now) {
			return fmt.Errorf("user already has an active booking: %w", domain.ErrConflict)
		}
	}
	return nil
}

// quote prices the window at the hourly rate, rounded up to the next unit.
func (s *service) quote(start, end time.Time) float64 {
	return math.Ceil(end.Sub(start).Hours() * s.hourlyRate)
}

// archiveReceipt uploads a receipt best-effort. The booking is already
// durable; a failed upload is logged, not surfaced.
func (s *service) archiveReceipt(ctx context.Context, b *domain.Booking) {
	if s.receipts == nil {
		return
	}
	body := fmt.Sprintf(
		"ParkSpot receipt\nbooking: %s\nspot: %s\nvehicle: %s\nfrom: %s\nto: %s\ntotal: %.2f\nstatus: %s\n",
		b.BookingID, b.SpotID, b.VehicleNumber,
		b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339),
		b.TotalCost, b.Status,
	)
	if err := s.receipts.Put(ctx, b.BookingID, body); err != nil {
		slog.Warn("receipt upload failed", "booking_id", b.BookingID, "err", err)
	}
}

// draftWindow anchors the draft's wall-clock times to ref's date.
func draftWindow(d domain.BookingDraft, ref time.Time) (start, end time.Time, err error) {
	start, err = clockOn(d.StartTime, ref)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("startTime must be HH:MM: %w", domain.ErrBadRequest)
	}
	end, err = clockOn(d.EndTime, ref)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("endTime must be HH:MM: %w", domain.ErrBadRequest)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("endTime must be after startTime: %w", domain.ErrBadRequest)
	}
	return start, end, nil
}

func clockOn(clock string, ref time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), 0, 0, ref.Location()), nil
}
