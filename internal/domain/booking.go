package domain

import "time"

// Booking status constants. A booking is only ever mutated to transition
// confirmed -> cancelled; it is never deleted.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

type Booking struct {
	BookingID     string    `json:"id" dynamodbav:"booking_id"`
	UserID        string    `json:"userId" dynamodbav:"user_id"`
	SpotID        string    `json:"spotId" dynamodbav:"spot_id"`
	VehicleNumber string    `json:"vehicleNumber" dynamodbav:"vehicle_number"`
	StartTime     time.Time `json:"startTime" dynamodbav:"start_time"`
	EndTime       time.Time `json:"endTime" dynamodbav:"end_time"`
	TotalCost     float64   `json:"totalCost" dynamodbav:"total_cost"`
	Status        string    `json:"status" dynamodbav:"status"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Active reports whether the booking is confirmed and still running at t.
func (b *Booking) Active(t time.Time) bool {
	return b.Status == BookingStatusConfirmed && b.EndTime.After(t)
}

// BookingDraft is an unconfirmed reservation request. It lives only in the
// OTP cache until the requester proves control of the email address.
// Start/end are wall-clock times ("15:04") on the current date.
type BookingDraft struct {
	SpotID        string  `json:"spotId" validate:"required"`
	VehicleNumber string  `json:"registrationNumber" validate:"required"`
	StartTime     string  `json:"startTime" validate:"required"`
	EndTime       string  `json:"endTime" validate:"required"`
	Phone         *string `json:"phone"`
}

type SendOTPRequest struct {
	Email          string       `json:"email" validate:"required,email"`
	BookingDetails BookingDraft `json:"bookingDetails" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6"`
}

type CreateBookingRequest struct {
	UserID        string  `json:"userId" validate:"required"`
	SpotID        string  `json:"spotId" validate:"required"`
	VehicleNumber string  `json:"vehicleNumber" validate:"required"`
	StartTime     string  `json:"startTime" validate:"required"` // RFC 3339
	EndTime       string  `json:"endTime" validate:"required"`   // RFC 3339
	TotalCost     float64 `json:"totalCost" validate:"required"`
}
