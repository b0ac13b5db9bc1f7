package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/topicrally/backend/internal/apperrors"
	"github.com/topicrally/backend/internal/http/dto"
)

// writeError maps an error's kind to an HTTP status. Classified errors expose
// their reason string; plain errors are hidden behind a generic 500.
func writeError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	status := fiber.StatusInternalServerError
	switch appErr.Kind {
	case apperrors.KindValidation:
		status = fiber.StatusBadRequest
	case apperrors.KindAuthentication:
		status = fiber.StatusUnauthorized
	case apperrors.KindNotFound:
		status = fiber.StatusNotFound
	case apperrors.KindConflict:
		status = fiber.StatusConflict
	case apperrors.KindExternal:
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error:  appErr.Kind.String(),
		Reason: appErr.Msg,
	})
}
