package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
)

// Structured Error Responses
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func NewErrorResponse(code string, message string, details ...any) ErrorResponse {
	var detail any
	if len(details) == 1 {
		detail = details[0]
	} else if len(details) > 1 {
		detail = details
	}
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: detail,
	}
}

// ErrorHandler renders every error returned by a handler. Typed errors keep
// their kind as the code; anything else is an opaque internal error.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := errorResponse(err)

		fields := []zap.Field{
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.Int("status", status),
		}
		if status >= fiber.StatusInternalServerError {
			logger.Error("request error", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
		return c.Status(status).JSON(body)
	}
}

func errorResponse(err error) (int, ErrorResponse) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fe.Code), " ", "_"))
		return fe.Code, NewErrorResponse(code, fe.Message)
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return fiber.StatusInternalServerError, NewErrorResponse("INTERNAL_SERVER_ERROR", "An internal server error occurred")
	}
	resp := NewErrorResponse(string(ae.Kind), ae.Reason)
	if ae.Field != "" {
		resp.Details = fiber.Map{"field": ae.Field}
	}
	return apperr.HTTPStatus(err), resp
}
