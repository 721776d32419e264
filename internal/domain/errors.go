package domain

import (
	"errors"
	"fmt"
	"time"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Motor de caja.
	ErrAlreadyOpen        = errors.New("la caja ya está abierta")
	ErrNotOpen            = errors.New("la caja no está abierta")
	ErrInvalidAmount      = errors.New("monto inválido")
	ErrScopeViolation     = errors.New("la caja no pertenece a la organización o sucursal del usuario")
	ErrDuplicateMovement  = errors.New("ya existe un movimiento con esa referencia en la caja")
	ErrHasHistory         = errors.New("la caja tiene sesiones registradas y no puede eliminarse")
	ErrStorageUnavailable = errors.New("almacenamiento no disponible, reintente más tarde")
)

// AlreadyOpenError detalla quién y desde cuándo tiene abierta la caja.
// errors.Is(err, ErrAlreadyOpen) sigue funcionando.
type AlreadyOpenError struct {
	RegisterID string
	SessionID  string
	Since      time.Time
	By         string
}

func (e *AlreadyOpenError) Error() string {
	return fmt.Sprintf("la caja ya está abierta desde %s por %s",
		e.Since.Format("2006-01-02 15:04:05"), e.By)
}

func (e *AlreadyOpenError) Unwrap() error { return ErrAlreadyOpen }

// Unavailable envuelve un error de infraestructura transitorio como ErrStorageUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}
