package server

import (
	"errors"
	"log/slog"

	"teamsemu/internal/middleware"
	"teamsemu/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respondStoreError writes the error response for a failed store call.
func respondStoreError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeValidation:
			status = fiber.StatusBadRequest
		case models.CodeNotFound:
			status = fiber.StatusNotFound
		}
	}
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "store operation failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

// parseBody decodes the JSON request body into out. On failure it writes a
// 400 response and returns false.
func parseBody(c *fiber.Ctx, out any) bool {
	if err := c.BodyParser(out); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return false
	}
	return true
}

// requireKeys reports the first nil field as a 400 "<name> is required".
func requireKeys(c *fiber.Ctx, fields ...field) bool {
	for _, f := range fields {
		if f.value == nil {
			_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(f.name+" is required"))
			return false
		}
	}
	return true
}

type field struct {
	name  string
	value *string
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

