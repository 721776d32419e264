package cashdrawer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Caja-api/internal/domain"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/money"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
)

// RegisterUseCase administra las cajas (alta, consulta, historial y baja).
type RegisterUseCase struct {
	txRunner        TxRunner
	guard           *ScopeGuard
	registerRepo    repository.CashRegisterRepository
	sessionRepo     repository.CashSessionRepository
	cache           BalanceCache
	defaultCurrency string
	log             zerolog.Logger
}

// NewRegisterUseCase construye el caso de uso. defaultCurrency se usa cuando el alta no indica moneda.
func NewRegisterUseCase(
	txRunner TxRunner,
	guard *ScopeGuard,
	registerRepo repository.CashRegisterRepository,
	sessionRepo repository.CashSessionRepository,
	cache BalanceCache,
	defaultCurrency string,
	log zerolog.Logger,
) *RegisterUseCase {
	return &RegisterUseCase{
		txRunner:        txRunner,
		guard:           guard,
		registerRepo:    registerRepo,
		sessionRepo:     sessionRepo,
		cache:           cache,
		defaultCurrency: defaultCurrency,
		log:             log,
	}
}

// CreateRegisterInput datos del alta de una caja.
type CreateRegisterInput struct {
	Name     string
	BranchID string // vacío = la sucursal del usuario, o toda la organización si no tiene
	Currency string
}

// Create da de alta una caja cerrada con saldos en cero.
func (uc *RegisterUseCase) Create(ctx context.Context, scope Scope, in CreateRegisterInput) (*entity.CashRegister, error) {
	if scope.OrganizationID == "" {
		return nil, domain.ErrScopeViolation
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	branchID := strings.TrimSpace(in.BranchID)
	if branchID == "" {
		branchID = scope.BranchID
	}
	if scope.BranchID != "" && branchID != scope.BranchID {
		return nil, domain.ErrScopeViolation
	}
	cur := in.Currency
	if cur == "" {
		cur = uc.defaultCurrency
	}
	code, err := money.NormalizeCurrency(cur)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	reg := &entity.CashRegister{
		ID:             uuid.New().String(),
		CompanyID:      scope.OrganizationID,
		BranchID:       branchID,
		Name:           name,
		Currency:       code,
		Status:         entity.RegisterStatusClosed,
		OpeningBalance: money.Zero(code),
		CurrentBalance: money.Zero(code),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.registerRepo.Create(ctx, reg); err != nil {
		return nil, err
	}
	uc.log.Info().Str("register_id", reg.ID).Str("company_id", reg.CompanyID).Str("branch_id", reg.BranchID).Msg("caja creada")
	return reg, nil
}

// Get devuelve el estado y saldo de la caja; lee primero de la caché de saldo.
func (uc *RegisterUseCase) Get(ctx context.Context, scope Scope, registerID string) (*entity.CashRegister, error) {
	if uc.cache != nil && registerID != "" {
		reg, err := uc.cache.Get(ctx, registerID)
		if err != nil {
			uc.log.Debug().Err(err).Str("register_id", registerID).Msg("caché de saldo no disponible")
		}
		if reg != nil {
			if err := checkScope(reg, scope); err != nil {
				return nil, err
			}
			return reg, nil
		}
	}
	reg, err := uc.guard.AssertInScope(ctx, registerID, scope)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, reg); err != nil {
			uc.log.Debug().Err(err).Str("register_id", reg.ID).Msg("no se pudo poblar la caché de saldo")
		}
	}
	return reg, nil
}

// List devuelve las cajas de la organización. Un usuario con sucursal solo ve las de su sucursal
// y las de toda la organización; branchID filtra cuando el usuario no tiene sucursal.
func (uc *RegisterUseCase) List(ctx context.Context, scope Scope, branchID string, limit, offset int) ([]*entity.CashRegister, error) {
	if scope.OrganizationID == "" {
		return nil, domain.ErrScopeViolation
	}
	if scope.BranchID != "" {
		if branchID != "" && branchID != scope.BranchID {
			return nil, domain.ErrScopeViolation
		}
		branchID = scope.BranchID
	}
	return uc.registerRepo.ListByCompany(ctx, scope.OrganizationID, branchID, normLimit(limit), max(offset, 0))
}

// ListSessions devuelve el historial de sesiones de la caja (más reciente primero) y el total.
func (uc *RegisterUseCase) ListSessions(ctx context.Context, scope Scope, registerID string, limit, offset int) ([]*entity.CashSession, int, error) {
	reg, err := uc.guard.AssertInScope(ctx, registerID, scope)
	if err != nil {
		return nil, 0, err
	}
	sessions, err := uc.sessionRepo.ListByRegister(ctx, reg.ID, normLimit(limit), max(offset, 0))
	if err != nil {
		return nil, 0, err
	}
	total, err := uc.sessionRepo.CountByRegister(ctx, reg.ID)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// GetSession devuelve una sesión (con su cierre si está sellada).
func (uc *RegisterUseCase) GetSession(ctx context.Context, scope Scope, registerID, sessionID string) (*entity.CashSession, error) {
	reg, err := uc.guard.AssertInScope(ctx, registerID, scope)
	if err != nil {
		return nil, err
	}
	s, err := uc.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.RegisterID != reg.ID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

// Delete borra una caja que nunca tuvo sesiones. Con historial devuelve ErrHasHistory:
// las sesiones y el libro se conservan para auditoría.
func (uc *RegisterUseCase) Delete(ctx context.Context, scope Scope, registerID string) error {
	err := uc.txRunner.RunCash(ctx, func(
		registerRepo repository.CashRegisterRepository,
		sessionRepo repository.CashSessionRepository,
		_ repository.CashMovementRepository,
	) error {
		reg, err := loadLocked(ctx, registerRepo, registerID, scope)
		if err != nil {
			return err
		}
		n, err := sessionRepo.CountByRegister(ctx, reg.ID)
		if err != nil {
			return err
		}
		if n > 0 || reg.CurrentSessionID != "" {
			return domain.ErrHasHistory
		}
		return registerRepo.Delete(ctx, reg.ID)
	})
	if err != nil {
		return err
	}
	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, registerID); err != nil {
			uc.log.Warn().Err(err).Str("register_id", registerID).Msg("no se pudo invalidar la caché de saldo")
		}
	}
	uc.log.Info().Str("register_id", registerID).Msg("caja eliminada")
	return nil
}

func normLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
