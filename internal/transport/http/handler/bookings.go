package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parkspot-api/internal/application/booking"
	"github.com/parkspot-api/internal/domain"
	"github.com/parkspot-api/internal/pkg/validate"
)

// BookingHandler handles the OTP-gated booking flow and booking queries.
type BookingHandler struct {
	svc booking.Service
}

func NewBookingHandler(svc booking.Service) *BookingHandler { return &BookingHandler{svc: svc} }

func (h *BookingHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.RequestOTP(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "OTP sent"})
}

func (h *BookingHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.svc.VerifyOTPAndBook(r.Context(), req)
	if err != nil {
		// This route reports a missing OTP entry as a plain bad request,
		// not a 404: the resource named by the URL is the verification
		// action, not the entry.
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BookingEnvelope{Success: true, Message: "booking confirmed", Booking: b})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, BookingEnvelope{Success: true, Message: "booking created", Booking: b})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(r.Context(), chi.URLParam(r, "bookingId")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "booking cancelled"})
}

func (h *BookingHandler) Active(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetActive(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		httpError(w, err)
		return
	}
	if b == nil {
		writeJSON(w, http.StatusOK, BookingEnvelope{Success: true, Message: "no active booking"})
		return
	}
	writeJSON(w, http.StatusOK, BookingEnvelope{Success: true, Booking: b})
}

func (h *BookingHandler) History(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.GetHistory(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		httpError(w, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, BookingListEnvelope{Success: true, Bookings: bookings})
}

func (h *BookingHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	rc, err := h.svc.Receipt(r.Context(), chi.URLParam(r, "bookingId"))
	if err != nil {
		httpError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
