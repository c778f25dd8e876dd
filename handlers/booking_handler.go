package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/booking"
	"github.com/Protyush1995/Docto-friend/config"
	"github.com/Protyush1995/Docto-friend/seeding"
)

const BookingCookie = "booking_session"

// BookingHandler serves the patient pages behind a clinic QR code.
type BookingHandler struct {
	config   *config.Config
	seeding  *seeding.Service
	bookings *booking.Service
	logger   *zap.Logger
}

func NewBookingHandler(cfg *config.Config, seeder *seeding.Service, bookings *booking.Service, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		config:   cfg,
		seeding:  seeder,
		bookings: bookings,
		logger:   logger,
	}
}

// ClinicBooking returns what the booking page shows for a QR code.
func (h *BookingHandler) ClinicBooking(c *fiber.Ctx) error {
	link, err := h.seeding.Lookup(c.Context(), c.Query("qr"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"qr":                    link.QRFilename,
		"qr_url":                link.QRObjectURL,
		"doctor_name":           link.DoctorName(),
		"doctor_qualifications": link.Qualifications,
		"clinic_id":             link.ClinicID,
		"clinic_name":           link.ClinicName,
		"clinic_address":        link.ClinicAddress,
		"clinic_contact":        link.ClinicContact,
		"clinic_fees":           link.Fees,
		"visit_days":            link.VisitDays,
	})
}

func (h *BookingHandler) QRImage(c *fiber.Ctx) error {
	data, err := h.seeding.Image(c.Context(), c.Params("filename"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(data)
}

func (h *BookingHandler) SendOTP(c *fiber.Ctx) error {
	fields, err := formFields(c)
	if err != nil {
		return err
	}

	session := c.Cookies(BookingCookie)
	if _, err := uuid.Parse(session); err != nil {
		session = uuid.New().String()
	}

	otp, err := h.bookings.SendOTP(c.Context(), session, fields["mobile"])
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     BookingCookie,
		Value:    session,
		Expires:  time.Now().Add(h.config.OTPTTL),
		HTTPOnly: true,
		Secure:   !h.config.IsDevelopment(),
		SameSite: "Lax",
		Path:     "/",
	})

	resp := fiber.Map{"success": true, "message": "OTP sent"}
	if otp != "" {
		resp["otp"] = otp
	}
	return c.JSON(resp)
}

func (h *BookingHandler) VerifyOTP(c *fiber.Ctx) error {
	fields, err := formFields(c)
	if err != nil {
		return err
	}

	session := c.Cookies(BookingCookie)
	if session == "" {
		return apperr.OTPRequired("otp_not_sent")
	}
	if err := h.bookings.VerifyOTP(c.Context(), session, fields["otp"]); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *BookingHandler) SubmitBooking(c *fiber.Ctx) error {
	fields, err := formFields(c)
	if err != nil {
		return err
	}

	session := c.Cookies(BookingCookie)
	if session == "" {
		return apperr.OTPRequired("otp_not_verified")
	}
	visitDay := fields["doctor_visit_day"]
	if visitDay == "" {
		visitDay = fields["visit_day"]
	}

	b, err := h.bookings.Submit(c.Context(), session, fields["qr"], fields["patient_name"], visitDay)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     BookingCookie,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		Secure:   !h.config.IsDevelopment(),
		SameSite: "Lax",
		Path:     "/",
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"booking": b,
	})
}
