package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/parkspot-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper. Every response carries a
// success flag and a human-readable message; failures also carry the
// underlying error description.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SafeUser is the subset of the account returned to clients. The password
// hash and pending secrets never leave the service layer.
type SafeUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Token   string    `json:"token,omitempty"`
	User    *SafeUser `json:"user,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// BookingEnvelope wraps single-booking responses. Booking is a pointer so the
// active-booking lookup can answer "none" with a null, not an error.
type BookingEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Booking *domain.Booking `json:"booking,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// BookingListEnvelope wraps booking-history responses.
type BookingListEnvelope struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Bookings []domain.Booking `json:"bookings"`
	Error    string           `json:"error,omitempty"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{ID: u.UserID, Email: u.Email, Verified: u.Verified}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Success: false, Message: msg, Error: msg})
}

// httpError maps domain sentinel errors to HTTP status codes.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
