package repository

import (
	"context"

	"github.com/jhoicas/Caja-api/internal/domain/entity"
)

// CashRegisterRepository define el puerto de persistencia del estado de cada caja.
// GetByID y GetForUpdate devuelven (nil, nil) si la caja no existe.
type CashRegisterRepository interface {
	Create(ctx context.Context, register *entity.CashRegister) error
	GetByID(ctx context.Context, id string) (*entity.CashRegister, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.CashRegister, error)
	// Update persiste el estado si la versión coincide e incrementa register.Version.
	Update(ctx context.Context, register *entity.CashRegister) error
	ListByCompany(ctx context.Context, companyID, branchID string, limit, offset int) ([]*entity.CashRegister, error)
	// ListOpen pagina las cajas abiertas por id: devuelve hasta limit cajas con id > afterID.
	ListOpen(ctx context.Context, afterID string, limit int) ([]*entity.CashRegister, error)
	Delete(ctx context.Context, id string) error
}
