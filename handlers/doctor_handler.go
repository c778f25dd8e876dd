// doctor handler
package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/config"
	"github.com/Protyush1995/Docto-friend/middleware"
	"github.com/Protyush1995/Docto-friend/models"
	"github.com/Protyush1995/Docto-friend/registry"
	"github.com/Protyush1995/Docto-friend/seeding"
	"github.com/Protyush1995/Docto-friend/utils"
)

// DoctorReader is the lookup the dashboard needs.
type DoctorReader interface {
	FindDoctorByID(ctx context.Context, doctorID string) (*models.Doctor, error)
	FindClinicByDoctorID(ctx context.Context, doctorID string) (*models.Clinic, error)
}

type DoctorHandler struct {
	config   *config.Config
	doctors  DoctorReader
	registry *registry.Service
	seeding  *seeding.Service
	ids      *utils.IDGenerator
	logger   *zap.Logger
}

func NewDoctorHandler(cfg *config.Config, doctors DoctorReader, reg *registry.Service, seeder *seeding.Service, ids *utils.IDGenerator, logger *zap.Logger) *DoctorHandler {
	return &DoctorHandler{
		config:   cfg,
		doctors:  doctors,
		registry: reg,
		seeding:  seeder,
		ids:      ids,
		logger:   logger,
	}
}

// Dashboard returns the logged-in doctor, their clinic if registered and the
// doctors they have seeded.
func (h *DoctorHandler) Dashboard(c *fiber.Ctx) error {
	doctorID := middleware.DoctorID(c)

	doctor, err := h.doctors.FindDoctorByID(c.Context(), doctorID)
	if err != nil {
		return err
	}

	var clinic *models.Clinic
	clinic, err = h.doctors.FindClinicByDoctorID(c.Context(), doctorID)
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return err
	}

	links, err := h.seeding.Links(c.Context(), doctorID)
	if err != nil {
		return err
	}
	if links == nil {
		links = []models.DoctorClinicLink{}
	}

	return c.JSON(fiber.Map{
		"doctor": doctor.Sanitized(),
		"clinic": clinic,
		"links":  links,
	})
}

func (h *DoctorHandler) Seed(c *fiber.Ctx) error {
	fields, err := formFields(c)
	if err != nil {
		return err
	}

	link, err := h.seeding.Seed(c.Context(), middleware.DoctorID(c), fields)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Doctor seeded",
		"link":    link,
	})
}

// GenerateIdentifier issues one identifier. The scheme defaults to the one
// registration uses for the kind; every other field is passed as seed.
func (h *DoctorHandler) GenerateIdentifier(c *fiber.Ctx) error {
	fields, err := formFields(c)
	if err != nil {
		return err
	}

	kind := models.EntityKind(strings.TrimSpace(fields["kind"]))
	if !kind.Valid() {
		return apperr.InvalidSeed("kind", "kind must be one of doctor, clinic, doctor-clinic-link, patient")
	}

	scheme := h.defaultScheme(kind)
	if raw := fields["scheme"]; raw != "" {
		if scheme, err = utils.ParseScheme(raw); err != nil {
			return apperr.InvalidSeed("scheme", err.Error())
		}
	}
	delete(fields, "kind")
	delete(fields, "scheme")

	id, err := h.ids.Generate(c.Context(), kind, scheme, fields)
	if err != nil {
		return err
	}

	h.logger.Info("identifier issued",
		zap.String("kind", string(id.Kind)),
		zap.String("scheme", string(scheme)),
		zap.String("requested_by", middleware.DoctorID(c)))

	return c.Status(fiber.StatusCreated).JSON(id)
}

func (h *DoctorHandler) defaultScheme(kind models.EntityKind) utils.Scheme {
	switch kind {
	case models.KindDoctor:
		return utils.Scheme(h.config.DoctorIDScheme)
	case models.KindClinic:
		return utils.Scheme(h.config.ClinicIDScheme)
	case models.KindDoctorLink:
		return utils.SchemeComposite
	default:
		return utils.SchemeTimestamp
	}
}

// CheckUnique answers whether an email or license is still free.
func (h *DoctorHandler) CheckUnique(c *fiber.Ctx) error {
	field := registry.Field(strings.ToLower(c.Query("field")))
	if field != registry.FieldEmail && field != registry.FieldLicense {
		return apperr.Validation("field", "field must be email or license")
	}
	value := c.Query("value")
	if strings.TrimSpace(value) == "" {
		return apperr.Validation("value", "value is required")
	}
	kind := models.EntityKind(c.Query("kind", string(models.KindDoctor)))
	if kind != models.KindDoctor && kind != models.KindClinic {
		return apperr.Validation("kind", "kind must be doctor or clinic")
	}

	unique, err := h.registry.Registry().CheckUnique(c.Context(), kind, field, value)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"field":  field,
		"kind":   kind,
		"unique": unique,
	})
}
