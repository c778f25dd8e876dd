package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/utils"
)

// Locals set on authenticated requests.
const (
	LocalDoctorID = "doctorID"
	LocalEmail    = "email"
	LocalTokenID  = "jti"
)

const DoctorCookie = "doctor_session"

// TokenVerifier is satisfied by *utils.JwtTokenGenerator.
type TokenVerifier interface {
	VerifyJWT(ctx context.Context, tokenString string) (*utils.DoctorClaims, error)
}

type AuthMiddleware struct {
	logger     *zap.Logger
	tokens     TokenVerifier
	cookieName string
	secure     bool
}

func NewAuthMiddleware(logger *zap.Logger, tokens TokenVerifier, secureCookies bool) *AuthMiddleware {
	return &AuthMiddleware{
		logger:     logger,
		tokens:     tokens,
		cookieName: DoctorCookie,
		secure:     secureCookies,
	}
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func TokenFromRequest(c *fiber.Ctx, cookieName string) string {
	auth := c.Get("Authorization")
	if auth != "" && strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.Cookies(cookieName)
}

func (m *AuthMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := TokenFromRequest(c, m.cookieName)
		if token == "" {
			m.logger.Debug("no authentication found",
				zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "NO_SESSION",
				"message": "Authentication required",
			})
		}

		claims, err := m.tokens.VerifyJWT(c.Context(), token)
		if err != nil {
			m.logger.Debug("invalid session",
				zap.String("path", c.Path()),
				zap.Error(err))

			// Clear invalid cookie
			c.Cookie(&fiber.Cookie{
				Name:     m.cookieName,
				Value:    "",
				Expires:  time.Now().Add(-1 * time.Hour),
				HTTPOnly: true,
				Secure:   m.secure,
				SameSite: "Lax",
				Path:     "/",
			})

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "SESSION_INVALID",
				"message": "Invalid or expired session",
			})
		}

		c.Locals(LocalDoctorID, claims.Subject)
		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalTokenID, claims.ID)

		return c.Next()
	}
}

// DoctorID returns the authenticated doctor id, or "" outside AuthMiddleware.
func DoctorID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalDoctorID).(string)
	return id
}
