package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/booking"
	"github.com/Protyush1995/Docto-friend/config"
	"github.com/Protyush1995/Docto-friend/middleware"
	"github.com/Protyush1995/Docto-friend/registry"
	"github.com/Protyush1995/Docto-friend/seeding"
	"github.com/Protyush1995/Docto-friend/store"
	"github.com/Protyush1995/Docto-friend/utils"
)

// Services is everything the HTTP layer is wired to.
type Services struct {
	Config   *config.Config
	Store    store.RecordStore
	Registry *registry.Service
	Seeding  *seeding.Service
	Bookings *booking.Service
	IDs      *utils.IDGenerator
	Tokens   *utils.JwtTokenGenerator
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck
	Logger   *zap.Logger
}

func SetupRoutes(app *fiber.App, s Services) {
	authMiddleware := middleware.NewAuthMiddleware(s.Logger, s.Tokens, !s.Config.IsDevelopment())

	doctorAuthHandler := NewDoctorAuthHandler(s.Config, s.Registry, s.Tokens, s.Logger)
	doctorHandler := NewDoctorHandler(s.Config, s.Store, s.Registry, s.Seeding, s.IDs, s.Logger)
	clinicHandler := NewClinicHandler(s.Store, s.Registry, s.Bookings, s.Logger)
	bookingHandler := NewBookingHandler(s.Config, s.Seeding, s.Bookings, s.Logger)
	healthHandler := NewHealthHandler(s.Checks, s.Logger)

	app.Get("/healthz", healthHandler.Live)
	app.Get("/readyz", healthHandler.Ready)
	if s.Gatherer != nil {
		app.Get("/metrics", MetricsHandler(s.Gatherer))
	}

	// Doctor auth routes - no middleware for auth endpoints
	doctorAuth := app.Group("/auth/doctor")
	doctorAuth.Post("/register", doctorAuthHandler.Register)
	doctorAuth.Post("/login", doctorAuthHandler.Login)
	doctorAuth.Post("/logout", doctorAuthHandler.Logout)

	api := app.Group("/api", authMiddleware.Handler())
	api.Get("/doctor/dashboard", doctorHandler.Dashboard)
	api.Post("/doctor/seed", doctorHandler.Seed)
	api.Post("/identifiers", doctorHandler.GenerateIdentifier)
	api.Get("/unique", doctorHandler.CheckUnique)
	api.Post("/clinics", clinicHandler.RegisterClinic)
	api.Get("/clinics/mine", clinicHandler.Mine)
	api.Get("/clinics/:id/bookings.csv", clinicHandler.Bookings)

	// Patient booking flow, reached from a clinic QR code
	app.Get("/clinic-booking", bookingHandler.ClinicBooking)
	app.Get("/qr/:filename", bookingHandler.QRImage)
	app.Post("/send-otp", bookingHandler.SendOTP)
	app.Post("/verify-otp", bookingHandler.VerifyOTP)
	app.Post("/submit-booking", bookingHandler.SubmitBooking)
}
