package repository

import (
	"context"

	"github.com/jhoicas/Caja-api/internal/domain/entity"
)

// CashMovementRepository es el libro de caja: solo agrega, nunca modifica ni borra.
type CashMovementRepository interface {
	// Append falla con domain.ErrDuplicateMovement si la referencia ya existe en la caja.
	Append(ctx context.Context, movement *entity.CashMovement) error
	// ListBySession devuelve los movimientos en orden de inserción (secuencia).
	ListBySession(ctx context.Context, sessionID string) ([]*entity.CashMovement, error)
	ExistsReference(ctx context.Context, registerID, referenceID string) (bool, error)
}
