package rest

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/server/services"
	"github.com/kwarc/cheatsheets/internal/window"
)

func success(c *fiber.Ctx, code int, message string, data any) error {
	return c.Status(code).JSON(fiber.Map{
		"code":    code,
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

func failure(c *fiber.Ctx, code int, message string, details fiber.Map) error {
	body := fiber.Map{
		"code":    code,
		"status":  "error",
		"message": message,
	}
	for k, v := range details {
		body[k] = v
	}
	return c.Status(code).JSON(body)
}

// errorHandler maps service errors to status codes and the JSON envelope.
func (s *RESTServer) errorHandler(c *fiber.Ctx, err error) error {
	var (
		fe  *fiber.Error
		rej *window.RejectionError
		inc *services.IncompleteError
		mf  *services.MissingFieldsError
		ie  *services.IntegrityError
	)

	switch {
	case errors.As(err, &fe):
		return failure(c, fe.Code, fe.Message, nil)
	case errors.As(err, &rej):
		return failure(c, fiber.StatusForbidden, rej.Error(), fiber.Map{"window": rej.Policy.Describe()})
	case errors.As(err, &inc):
		return failure(c, fiber.StatusUnprocessableEntity, "missing required fields", fiber.Map{
			"diagnostics": inc.Diagnostics,
			"missing":     inc.Missing,
			"fields":      inc.Fields,
		})
	case errors.As(err, &mf):
		return failure(c, fiber.StatusUnprocessableEntity, mf.Error(), fiber.Map{"missing": mf.Fields})
	case errors.As(err, &ie):
		s.logger.Error(c.UserContext(), "storage integrity violation", "file", ie.FileName, "error", ie.Err)
		return failure(c, fiber.StatusInternalServerError, "storage integrity violation", nil)
	case errors.Is(err, common.ErrorStorageNotConfigured):
		s.logger.Error(c.UserContext(), "upload refused", "error", err)
		return failure(c, fiber.StatusInternalServerError, err.Error(), nil)
	case errors.Is(err, common.ErrorUnreadableDocument),
		errors.Is(err, common.ErrorDocumentTooLarge),
		errors.Is(err, common.ErrorExtractionTimeout):
		return failure(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, common.ErrorNotFound):
		return failure(c, fiber.StatusNotFound, "not found", nil)
	case errors.Is(err, common.ErrorForbidden):
		return failure(c, fiber.StatusForbidden, "forbidden", nil)
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return failure(c, fiber.StatusUnauthorized, err.Error(), nil)
	}

	s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)
	return failure(c, fiber.StatusInternalServerError, "internal server error", nil)
}
