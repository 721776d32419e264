package cashdrawer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Caja-api/internal/domain"
	"github.com/jhoicas/Caja-api/internal/domain/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/money"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
)

// Reconciliation compara el saldo guardado de una sesión con el plegado de su libro.
// Discrepancy = Cached - Computed. CacheStale indica que la caché de saldo servía un estado
// anterior al guardado; la entrada ya quedó invalidada.
type Reconciliation struct {
	RegisterID    string
	SessionID     string
	Computed      money.Money
	Cached        money.Money
	Discrepancy   money.Money
	Consistent    bool
	CacheStale    bool
	MovementCount int
	Anomalies     []string
}

// RepairResult es una conciliación más lo que hizo la reparación.
type RepairResult struct {
	Reconciliation
	Repaired bool
	Movement *entity.CashMovement // ajuste de auditoría, solo si la caja estaba abierta
}

// ReconciliationUseCase verifica el libro contra el saldo mostrado y lo repara cuando divergen.
type ReconciliationUseCase struct {
	txRunner     TxRunner
	guard        *ScopeGuard
	sessionRepo  repository.CashSessionRepository
	movementRepo repository.CashMovementRepository
	cache        BalanceCache
	log          zerolog.Logger
	now          func() time.Time
}

// NewReconciliationUseCase construye el caso de uso.
func NewReconciliationUseCase(
	txRunner TxRunner,
	guard *ScopeGuard,
	sessionRepo repository.CashSessionRepository,
	movementRepo repository.CashMovementRepository,
	cache BalanceCache,
	log zerolog.Logger,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txRunner:     txRunner,
		guard:        guard,
		sessionRepo:  sessionRepo,
		movementRepo: movementRepo,
		cache:        cache,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile pliega el libro de la sesión (la actual si sessionID está vacío) con la caja bloqueada,
// así la foto es consistente aunque haya escritores concurrentes. No escribe nada.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, scope Scope, registerID, sessionID string) (*Reconciliation, error) {
	if registerID == "" {
		return nil, domain.ErrInvalidInput
	}
	var (
		out *Reconciliation
		reg *entity.CashRegister
	)
	err := uc.txRunner.RunCash(ctx, func(
		registerRepo repository.CashRegisterRepository,
		sessionRepo repository.CashSessionRepository,
		movementRepo repository.CashMovementRepository,
	) error {
		r, err := loadLocked(ctx, registerRepo, registerID, scope)
		if err != nil {
			return err
		}
		rec, err := reconcileLocked(ctx, sessionRepo, movementRepo, r, sessionID)
		if err != nil {
			return err
		}
		out, reg = rec, r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if checkCachedBalance(ctx, uc.cache, uc.log, reg) {
		out.markCacheStale()
	}
	if !out.Consistent {
		uc.log.Warn().
			Str("register_id", out.RegisterID).
			Str("session_id", out.SessionID).
			Str("computed", out.Computed.String()).
			Str("cached", out.Cached.String()).
			Strs("anomalies", out.Anomalies).
			Msg("conciliación con diferencias")
	}
	return out, nil
}

// Repair hace que el libro mande: sobreescribe el saldo guardado con el plegado de la sesión actual.
// Con la caja abierta deja un MANUAL_ADJUSTMENT de monto cero como rastro; con la caja cerrada la
// sesión está sellada y solo se corrige la caja. Una caché de saldo desactualizada se invalida.
func (uc *ReconciliationUseCase) Repair(ctx context.Context, scope Scope, registerID, actorID string) (*RepairResult, error) {
	if registerID == "" || actorID == "" {
		return nil, domain.ErrInvalidInput
	}
	var (
		out *RepairResult
		reg *entity.CashRegister
	)
	err := uc.txRunner.RunCash(ctx, func(
		registerRepo repository.CashRegisterRepository,
		sessionRepo repository.CashSessionRepository,
		movementRepo repository.CashMovementRepository,
	) error {
		r, err := loadLocked(ctx, registerRepo, registerID, scope)
		if err != nil {
			return err
		}
		rec, err := reconcileLocked(ctx, sessionRepo, movementRepo, r, "")
		if err != nil {
			return err
		}
		res := &RepairResult{Reconciliation: *rec}
		if r.CurrentBalance.Equal(rec.Computed) {
			out, reg = res, r
			return nil
		}

		now := uc.now()
		if r.IsOpen() {
			adj, err := repairBalance(ctx, uc.log, movementRepo, r, r.CurrentSessionID, rec.Computed, actorID, now)
			if err != nil {
				return err
			}
			res.Movement = adj
		} else {
			uc.log.Warn().
				Str("register_id", r.ID).
				Str("session_id", r.CurrentSessionID).
				Str("cached", r.CurrentBalance.String()).
				Str("computed", rec.Computed.String()).
				Str("actor_id", actorID).
				Msg("reparación de saldo sobre sesión sellada, solo se corrige la caja")
			r.CurrentBalance = rec.Computed
		}
		r.UpdatedAt = now
		if err := registerRepo.Update(ctx, r); err != nil {
			return err
		}
		res.Repaired = true
		out, reg = res, r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Repaired {
		publishBalance(ctx, uc.cache, uc.log, reg)
	} else if checkCachedBalance(ctx, uc.cache, uc.log, reg) {
		out.markCacheStale()
		out.Repaired = true
	}
	return out, nil
}

func (r *Reconciliation) markCacheStale() {
	r.CacheStale = true
	r.Consistent = false
	r.Anomalies = append(r.Anomalies, "caché de saldo desactualizada respecto del saldo guardado")
}

// ListMovements devuelve el libro de una sesión en orden de secuencia.
func (uc *ReconciliationUseCase) ListMovements(ctx context.Context, scope Scope, registerID, sessionID string) ([]*entity.CashMovement, error) {
	reg, err := uc.guard.AssertInScope(ctx, registerID, scope)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = reg.CurrentSessionID
	}
	s, err := uc.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.RegisterID != reg.ID {
		return nil, domain.ErrNotFound
	}
	return uc.movementRepo.ListBySession(ctx, s.ID)
}

// reconcileLocked pliega la sesión pedida de una caja ya bloqueada. El saldo guardado es el de la caja
// para la sesión actual y el final_balance sellado para sesiones históricas.
func reconcileLocked(
	ctx context.Context,
	sessionRepo repository.CashSessionRepository,
	movementRepo repository.CashMovementRepository,
	reg *entity.CashRegister,
	sessionID string,
) (*Reconciliation, error) {
	if sessionID == "" {
		sessionID = reg.CurrentSessionID
	}
	if sessionID == "" {
		// nunca abierta: no hay libro que conciliar
		return nil, fmt.Errorf("caja %s sin sesiones: %w", reg.ID, domain.ErrNotFound)
	}
	s, err := sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.RegisterID != reg.ID {
		return nil, domain.ErrNotFound
	}
	movements, err := movementRepo.ListBySession(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	fold := cashdrawer.FoldSession(s, movements)

	cached := reg.CurrentBalance
	if s.ID != reg.CurrentSessionID {
		cached = money.Zero(s.Currency)
		if s.FinalBalance != nil {
			cached = *s.FinalBalance
		}
	}
	diff := cached.Sub(fold.Computed)
	return &Reconciliation{
		RegisterID:    reg.ID,
		SessionID:     s.ID,
		Computed:      fold.Computed,
		Cached:        cached,
		Discrepancy:   diff,
		Consistent:    diff.IsZero() && len(fold.Anomalies) == 0,
		MovementCount: fold.Count,
		Anomalies:     fold.Anomalies,
	}, nil
}

// repairBalance iguala el saldo de la caja al del libro y agrega un MANUAL_ADJUSTMENT de monto cero
// con la nota de auditoría. Devuelve nil si no había diferencia.
func repairBalance(
	ctx context.Context,
	log zerolog.Logger,
	movementRepo repository.CashMovementRepository,
	reg *entity.CashRegister,
	sessionID string,
	computed money.Money,
	actorID string,
	now time.Time,
) (*entity.CashMovement, error) {
	if reg.CurrentBalance.Equal(computed) {
		return nil, nil
	}
	cached := reg.CurrentBalance
	log.Warn().
		Str("register_id", reg.ID).
		Str("cached", cached.String()).
		Str("computed", computed.String()).
		Msg("saldo de caja divergente del libro, se repara")
	reg.CurrentBalance = computed
	note := fmt.Sprintf("reparación de saldo: caché %s, libro %s", cached, computed)
	return appendMovement(ctx, movementRepo, reg, sessionID, entity.CashMovementManualAdjustment, money.Zero(reg.Currency), actorID, "", note, now)
}
