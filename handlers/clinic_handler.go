package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/booking"
	"github.com/Protyush1995/Docto-friend/middleware"
	"github.com/Protyush1995/Docto-friend/models"
	"github.com/Protyush1995/Docto-friend/registry"
)

type ClinicReader interface {
	FindClinicByDoctorID(ctx context.Context, doctorID string) (*models.Clinic, error)
	ListLinksByDoctor(ctx context.Context, doctorID string) ([]models.DoctorClinicLink, error)
}

type ClinicHandler struct {
	clinics  ClinicReader
	registry *registry.Service
	bookings *booking.Service
	logger   *zap.Logger
}

func NewClinicHandler(clinics ClinicReader, reg *registry.Service, bookings *booking.Service, logger *zap.Logger) *ClinicHandler {
	return &ClinicHandler{
		clinics:  clinics,
		registry: reg,
		bookings: bookings,
		logger:   logger,
	}
}

func (h *ClinicHandler) RegisterClinic(c *fiber.Ctx) error {
	fields, err := formFields(c)
	if err != nil {
		return err
	}

	clinic, err := h.registry.RegisterClinic(c.Context(), middleware.DoctorID(c), fields)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"clinic":  clinic,
	})
}

func (h *ClinicHandler) Mine(c *fiber.Ctx) error {
	clinic, err := h.clinics.FindClinicByDoctorID(c.Context(), middleware.DoctorID(c))
	if err != nil {
		return err
	}
	return c.JSON(clinic)
}

// Bookings exports a clinic's booking ledger as CSV. Only the clinic's owner
// or the doctor who seeded it may read it.
func (h *ClinicHandler) Bookings(c *fiber.Ctx) error {
	clinicID := c.Params("id")
	owns, err := h.owns(c.Context(), middleware.DoctorID(c), clinicID)
	if err != nil {
		return err
	}
	if !owns {
		return apperr.NotFound("clinic")
	}

	filename, data, err := h.bookings.Ledger(c.Context(), clinicID, c.Query("date"))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}

func (h *ClinicHandler) owns(ctx context.Context, doctorID, clinicID string) (bool, error) {
	clinic, err := h.clinics.FindClinicByDoctorID(ctx, doctorID)
	switch {
	case err == nil && clinic.ClinicID == clinicID:
		return true, nil
	case err != nil && apperr.KindOf(err) != apperr.KindNotFound:
		return false, err
	}

	links, err := h.clinics.ListLinksByDoctor(ctx, doctorID)
	if err != nil {
		return false, err
	}
	for _, l := range links {
		if l.ClinicID == clinicID {
			return true, nil
		}
	}
	return false, nil
}
