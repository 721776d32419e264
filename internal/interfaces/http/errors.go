package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Caja-api/internal/application/dto"
	"github.com/jhoicas/Caja-api/internal/domain"
)

// errorStatus traduce un error de dominio a status HTTP y código estable para el cliente.
func errorStatus(err error) (int, string) {
	var open *domain.AlreadyOpenError
	switch {
	case errors.As(err, &open), errors.Is(err, domain.ErrAlreadyOpen):
		return fiber.StatusConflict, "ALREADY_OPEN"
	case errors.Is(err, domain.ErrNotOpen):
		return fiber.StatusConflict, "NOT_OPEN"
	case errors.Is(err, domain.ErrHasHistory):
		return fiber.StatusConflict, "HAS_HISTORY"
	case errors.Is(err, domain.ErrDuplicateMovement):
		return fiber.StatusConflict, "DUPLICATE_MOVEMENT"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrInvalidAmount):
		return fiber.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrScopeViolation):
		return fiber.StatusForbidden, "SCOPE_VIOLATION"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

// respondError escribe el ErrorResponse. Los 500 no exponen el detalle interno.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	switch status {
	case fiber.StatusServiceUnavailable:
		c.Set(fiber.HeaderRetryAfter, "1")
		log.Warn().Err(err).Str("path", c.Path()).Msg("almacenamiento no disponible")
	case fiber.StatusInternalServerError:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
		msg = "error interno del servidor"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
