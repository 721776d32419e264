package http

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Caja-api/internal/domain"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&domain.AlreadyOpenError{RegisterID: "c1", By: "u1"}, fiber.StatusConflict, "ALREADY_OPEN"},
		{fmt.Errorf("cerrar: %w", domain.ErrNotOpen), fiber.StatusConflict, "NOT_OPEN"},
		{domain.ErrInvalidAmount, fiber.StatusBadRequest, "INVALID_AMOUNT"},
		{domain.ErrScopeViolation, fiber.StatusForbidden, "SCOPE_VIOLATION"},
		{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
		{domain.Unavailable("pg", errors.New("dial tcp")), fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{context.DeadlineExceeded, fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{errors.New("otra cosa"), fiber.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		status, code := errorStatus(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}
