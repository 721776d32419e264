package cashdrawer

import (
	"context"
	"fmt"

	"github.com/jhoicas/Caja-api/internal/domain"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
)

// ScopeGuard verifica que una caja pertenezca a la organización (y sucursal) del usuario.
type ScopeGuard struct {
	registerRepo repository.CashRegisterRepository
}

// NewScopeGuard construye el guard.
func NewScopeGuard(registerRepo repository.CashRegisterRepository) *ScopeGuard {
	return &ScopeGuard{registerRepo: registerRepo}
}

// AssertInScope carga la caja y valida el alcance. ErrNotFound si no existe, ErrScopeViolation si es de otro tenant.
func (g *ScopeGuard) AssertInScope(ctx context.Context, registerID string, scope Scope) (*entity.CashRegister, error) {
	if registerID == "" {
		return nil, domain.ErrInvalidInput
	}
	reg, err := g.registerRepo.GetByID(ctx, registerID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, domain.ErrNotFound
	}
	if err := checkScope(reg, scope); err != nil {
		return nil, err
	}
	return reg, nil
}

// checkScope aplica las reglas de alcance sobre una caja ya cargada (también dentro de transacciones).
// Sin organización en el scope se niega el acceso.
func checkScope(reg *entity.CashRegister, scope Scope) error {
	if scope.OrganizationID == "" || reg.CompanyID != scope.OrganizationID {
		return fmt.Errorf("caja %s: %w", reg.ID, domain.ErrScopeViolation)
	}
	// caja de toda la organización o usuario sin sucursal: visible
	if reg.BranchID == "" || scope.BranchID == "" {
		return nil
	}
	if reg.BranchID != scope.BranchID {
		return fmt.Errorf("caja %s de la sucursal %s: %w", reg.ID, reg.BranchID, domain.ErrScopeViolation)
	}
	return nil
}

// loadLocked bloquea la caja dentro de la transacción y valida alcance.
func loadLocked(ctx context.Context, registerRepo repository.CashRegisterRepository, registerID string, scope Scope) (*entity.CashRegister, error) {
	reg, err := registerRepo.GetForUpdate(ctx, registerID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, domain.ErrNotFound
	}
	if err := checkScope(reg, scope); err != nil {
		return nil, err
	}
	return reg, nil
}
