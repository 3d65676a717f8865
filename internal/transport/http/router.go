package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/parkspot-api/internal/application/auth"
	"github.com/parkspot-api/internal/application/booking"
	"github.com/parkspot-api/internal/config"
	"github.com/parkspot-api/internal/transport/http/handler"
	appmiddleware "github.com/parkspot-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	authDeps := auth.ServiceDeps{
		UserRepo: deps.UserRepo,
		Mailer:   deps.Mailer,
		BaseURL:  cfg.AppBaseURL,
	}
	if deps.JWTProvider != nil {
		authDeps.JWTProvider = deps.JWTProvider
	}
	authSvc := auth.NewService(authDeps)
	bookingDeps := booking.ServiceDeps{
		BookingRepo: deps.BookingRepo,
		UserRepo:    deps.UserRepo,
		OTPCache:    deps.OTPCache,
		Mailer:      deps.Mailer,
		SMSSender:   deps.SMSSender,
		HourlyRate:  cfg.HourlyRate,
	}
	if deps.Receipts != nil {
		bookingDeps.Receipts = deps.Receipts
	}
	bookingSvc := booking.NewService(bookingDeps)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	bookingH := handler.NewBookingHandler(bookingSvc)

	r.Get("/health", healthH.Ping)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(sensitiveRL.Limit).Post("/register", authH.Register)
			r.Get("/verify/{token}", authH.VerifyEmail)
			r.With(sensitiveRL.Limit).Post("/resend-verification", authH.ResendVerification)
			r.With(sensitiveRL.Limit).Post("/login", authH.Login)
			r.With(sensitiveRL.Limit).Post("/forgot-password", authH.ForgotPassword)
			r.Post("/reset-password/{token}", authH.ResetPassword)
			r.With(authMw).Get("/me", authH.Me)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.With(sensitiveRL.Limit).Post("/send-otp", bookingH.SendOTP)
			r.With(sensitiveRL.Limit).Post("/verify-otp", bookingH.VerifyOTP)
			r.Post("/", bookingH.Create)
			r.Get("/active/{userId}", bookingH.Active)
			r.Post("/{bookingId}/cancel", bookingH.Cancel)
			r.Get("/history/{userId}", bookingH.History)
			r.Get("/{bookingId}/receipt", bookingH.Receipt)
		})
	})

	return r
}
