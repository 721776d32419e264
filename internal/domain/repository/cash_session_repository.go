package repository

import (
	"context"

	"github.com/jhoicas/Caja-api/internal/domain/entity"
)

// CashSessionRepository define el puerto para las sesiones de caja.
type CashSessionRepository interface {
	// Create falla con domain.ErrAlreadyOpen si la caja ya tiene una sesión abierta.
	Create(ctx context.Context, session *entity.CashSession) error
	GetByID(ctx context.Context, id string) (*entity.CashSession, error)
	// Seal escribe el cierre de una sesión abierta; una sesión sellada no se modifica.
	Seal(ctx context.Context, session *entity.CashSession) error
	ListByRegister(ctx context.Context, registerID string, limit, offset int) ([]*entity.CashSession, error)
	CountByRegister(ctx context.Context, registerID string) (int, error)
}
