// Package cashdrawer implementa los casos de uso del ciclo de vida de caja:
// apertura, movimientos, cierre con arqueo, conciliación del libro y auditoría periódica.
package cashdrawer

import (
	"context"

	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con repositorios de caja atados a ella.
// Si fn devuelve error se hace Rollback; el runner puede reintentar fn ante conflictos de serialización,
// por lo que fn no debe tener efectos fuera de los repositorios.
type TxRunner interface {
	RunCash(ctx context.Context, fn func(
		registerRepo repository.CashRegisterRepository,
		sessionRepo repository.CashSessionRepository,
		movementRepo repository.CashMovementRepository,
	) error) error
}

// BalanceCache guarda el último estado conocido de cada caja para la consulta de saldo.
// Get devuelve (nil, nil) si no hay entrada. Set ignora escrituras con versión menor o igual a la guardada.
type BalanceCache interface {
	Get(ctx context.Context, registerID string) (*entity.CashRegister, error)
	Set(ctx context.Context, register *entity.CashRegister) error
	Delete(ctx context.Context, registerID string) error
}

// Scope es la organización/sucursal resuelta aguas arriba (claims del JWT).
// BranchID vacío significa que el usuario opera sobre toda la organización.
type Scope struct {
	OrganizationID string
	BranchID       string
}
