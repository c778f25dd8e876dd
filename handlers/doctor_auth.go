// handlers/doctor_auth.go
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/config"
	"github.com/Protyush1995/Docto-friend/middleware"
	"github.com/Protyush1995/Docto-friend/registry"
	"github.com/Protyush1995/Docto-friend/utils"
)

type DoctorAuthHandler struct {
	config   *config.Config
	registry *registry.Service
	tokens   *utils.JwtTokenGenerator
	logger   *zap.Logger
}

func NewDoctorAuthHandler(cfg *config.Config, reg *registry.Service, tokens *utils.JwtTokenGenerator, logger *zap.Logger) *DoctorAuthHandler {
	return &DoctorAuthHandler{
		config:   cfg,
		registry: reg,
		tokens:   tokens,
		logger:   logger,
	}
}

func (h *DoctorAuthHandler) Register(c *fiber.Ctx) error {
	fields, err := formFields(c)
	if err != nil {
		return err
	}

	doctor, err := h.registry.Register(c.Context(), fields)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful",
		"doctor":  doctor,
	})
}

func (h *DoctorAuthHandler) Login(c *fiber.Ctx) error {
	fields, err := formFields(c)
	if err != nil {
		return err
	}

	doctor, err := h.registry.Authenticate(c.Context(), fields["email"], fields["password"])
	if err != nil {
		return err
	}

	token, err := h.tokens.GenerateJWT(c.Context(), doctor.DoctorID, doctor.Email)
	if err != nil {
		h.logger.Error("failed to issue session token",
			zap.String("doctor_id", doctor.DoctorID),
			zap.Error(err))
		return apperr.Unavailable("issue session", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.DoctorCookie,
		Value:    token,
		Expires:  time.Now().Add(h.tokens.TTL()),
		HTTPOnly: true,
		Secure:   !h.config.IsDevelopment(),
		SameSite: "Lax",
		Domain:   h.config.CookieDomain,
		Path:     "/",
	})

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_in": int(h.tokens.TTL().Seconds()),
		"doctor":     doctor,
	})
}

func (h *DoctorAuthHandler) Logout(c *fiber.Ctx) error {
	if token := middleware.TokenFromRequest(c, middleware.DoctorCookie); token != "" {
		if claims, err := h.tokens.VerifyJWT(c.Context(), token); err == nil {
			if err := h.tokens.InvalidateToken(c.Context(), claims.ID); err != nil {
				h.logger.Warn("failed to revoke session token", zap.Error(err))
			}
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.DoctorCookie,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		Secure:   !h.config.IsDevelopment(),
		SameSite: "Lax",
		Domain:   h.config.CookieDomain,
		Path:     "/",
	})

	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}
