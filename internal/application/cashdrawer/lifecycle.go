package cashdrawer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Caja-api/internal/domain"
	"github.com/jhoicas/Caja-api/internal/domain/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/money"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
)

// LifecycleUseCase abre, cierra y registra movimientos en las cajas. Cada operación corre en una
// transacción que empieza bloqueando la fila de la caja (SELECT FOR UPDATE), así dos escritores
// sobre la misma caja se serializan y cajas distintas no compiten entre sí.
type LifecycleUseCase struct {
	txRunner TxRunner
	cache    BalanceCache
	log      zerolog.Logger
	now      func() time.Time
}

// NewLifecycleUseCase construye el caso de uso.
func NewLifecycleUseCase(txRunner TxRunner, cache BalanceCache, log zerolog.Logger) *LifecycleUseCase {
	return &LifecycleUseCase{
		txRunner: txRunner,
		cache:    cache,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CloseInput datos opcionales del cierre.
type CloseInput struct {
	DeclaredBalance *decimal.Decimal // conteo físico
	Withdrawal      *decimal.Decimal // efectivo retirado al cerrar (> 0)
	Notes           string
}

// PostMovementInput entrada para registrar una venta, gasto o ajuste.
// Amount es con signo: SALE > 0, EXPENSE < 0, MANUAL_ADJUSTMENT cualquier signo distinto de cero.
type PostMovementInput struct {
	RegisterID  string
	ActorID     string
	Kind        string
	Amount      decimal.Decimal
	ReferenceID string
	Note        string
}

// ClosingReport es el resultado del arqueo de cierre. Discrepancy siempre está presente.
type ClosingReport struct {
	RegisterID      string
	SessionID       string
	OpeningBalance  money.Money
	ComputedBalance money.Money // saldo del libro antes del retiro
	DeclaredBalance *money.Money
	Discrepancy     money.Money // declarado - calculado
	DiscrepancyPct  *decimal.Decimal
	Classification  string
	Withdrawal      *money.Money
	FinalBalance    money.Money
	CacheRepaired   bool
	Anomalies       []string
	ClosedBy        string
	ClosedAt        time.Time
}

// Open abre la caja con un fondo inicial: crea la sesión y el movimiento OPENING_DEPOSIT.
func (uc *LifecycleUseCase) Open(ctx context.Context, scope Scope, registerID, actorID string, openingBalance decimal.Decimal) (*entity.CashSession, error) {
	if registerID == "" || actorID == "" {
		return nil, domain.ErrInvalidInput
	}

	var (
		session *entity.CashSession
		reg     *entity.CashRegister
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
		if r.IsOpen() {
			return alreadyOpen(r)
		}
		amount, err := toMoney(openingBalance, r.Currency)
		if err != nil {
			return err
		}
		if amount.IsNegative() {
			return fmt.Errorf("fondo inicial %s: %w", amount, domain.ErrInvalidAmount)
		}

		now := uc.now()
		s := &entity.CashSession{
			ID:             uuid.New().String(),
			RegisterID:     r.ID,
			Status:         entity.SessionStatusOpen,
			Currency:       r.Currency,
			OpeningBalance: amount,
			OpenedBy:       actorID,
			OpenedAt:       now,
		}
		if err := sessionRepo.Create(ctx, s); err != nil {
			return err
		}

		r.CurrentSessionID = s.ID
		r.OpeningBalance = amount
		r.CurrentBalance = money.Zero(r.Currency)
		if _, err := appendMovement(ctx, movementRepo, r, s.ID, entity.CashMovementOpeningDeposit, amount, actorID, "", "fondo inicial", now); err != nil {
			return err
		}
		r.Status = entity.RegisterStatusOpen
		r.LastOpenedAt = &now
		r.LastOpenedBy = actorID
		r.UpdatedAt = now
		if err := registerRepo.Update(ctx, r); err != nil {
			return err
		}
		session, reg = s, r
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("register_id", reg.ID).
		Str("session_id", session.ID).
		Str("actor_id", actorID).
		Str("opening_balance", session.OpeningBalance.String()).
		Msg("caja abierta")
	uc.refreshCache(ctx, reg)
	return session, nil
}

// Close arquea la sesión contra el libro, registra el retiro opcional y sella la sesión.
// Un desvío entre lo declarado y lo calculado se informa, nunca se rechaza.
func (uc *LifecycleUseCase) Close(ctx context.Context, scope Scope, registerID, actorID string, in CloseInput) (*ClosingReport, error) {
	if registerID == "" || actorID == "" {
		return nil, domain.ErrInvalidInput
	}

	var (
		report *ClosingReport
		reg    *entity.CashRegister
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
		if !r.IsOpen() {
			return domain.ErrNotOpen
		}

		var declared, withdrawal *money.Money
		if in.DeclaredBalance != nil {
			d, err := toMoney(*in.DeclaredBalance, r.Currency)
			if err != nil {
				return err
			}
			if d.IsNegative() {
				return fmt.Errorf("saldo declarado %s: %w", d, domain.ErrInvalidAmount)
			}
			declared = &d
		}
		if in.Withdrawal != nil && !in.Withdrawal.IsZero() {
			w, err := toMoney(*in.Withdrawal, r.Currency)
			if err != nil {
				return err
			}
			if w.IsNegative() {
				return fmt.Errorf("retiro %s: %w", w, domain.ErrInvalidAmount)
			}
			withdrawal = &w
		}

		s, err := sessionRepo.GetByID(ctx, r.CurrentSessionID)
		if err != nil {
			return err
		}
		if s == nil || !s.IsOpen() {
			return fmt.Errorf("caja %s abierta sin sesión activa: %w", r.ID, domain.ErrConflict)
		}
		movements, err := movementRepo.ListBySession(ctx, s.ID)
		if err != nil {
			return err
		}

		now := uc.now()
		fold := cashdrawer.FoldSession(s, movements)
		adj, err := repairBalance(ctx, uc.log, movementRepo, r, s.ID, fold.Computed, actorID, now)
		if err != nil {
			return err
		}

		computed := fold.Computed
		discrepancy := money.Zero(r.Currency)
		if declared != nil {
			if discrepancy, err = declared.SubChecked(computed); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
			}
		}
		pct, class := cashdrawer.Classify(discrepancy, computed)

		if withdrawal != nil {
			if _, err := appendMovement(ctx, movementRepo, r, s.ID, entity.CashMovementClosingWithdrawal, withdrawal.Neg(), actorID, "", "retiro de cierre", now); err != nil {
				return err
			}
		}
		final := r.CurrentBalance

		s.Status = entity.SessionStatusClosed
		s.ClosedBy = actorID
		s.ClosedAt = &now
		s.ComputedBalance = &computed
		s.DeclaredBalance = declared
		s.Discrepancy = &discrepancy
		s.DiscrepancyPct = pct
		s.Classification = class
		s.Withdrawal = withdrawal
		s.FinalBalance = &final
		s.Notes = in.Notes
		if err := sessionRepo.Seal(ctx, s); err != nil {
			return err
		}

		r.Status = entity.RegisterStatusClosed
		r.LastClosedAt = &now
		r.UpdatedAt = now
		if err := registerRepo.Update(ctx, r); err != nil {
			return err
		}

		report = &ClosingReport{
			RegisterID:      r.ID,
			SessionID:       s.ID,
			OpeningBalance:  s.OpeningBalance,
			ComputedBalance: computed,
			DeclaredBalance: declared,
			Discrepancy:     discrepancy,
			DiscrepancyPct:  pct,
			Classification:  class,
			Withdrawal:      withdrawal,
			FinalBalance:    final,
			CacheRepaired:   adj != nil,
			Anomalies:       fold.Anomalies,
			ClosedBy:        actorID,
			ClosedAt:        now,
		}
		reg = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := uc.log.Info()
	if report.Classification != entity.DiscrepancyNormal {
		ev = uc.log.Warn()
	}
	ev.Str("register_id", report.RegisterID).
		Str("session_id", report.SessionID).
		Str("computed", report.ComputedBalance.String()).
		Str("discrepancy", report.Discrepancy.String()).
		Str("classification", report.Classification).
		Str("final", report.FinalBalance.String()).
		Msg("caja cerrada")
	if len(report.Anomalies) > 0 {
		uc.log.Warn().Str("register_id", report.RegisterID).Strs("anomalies", report.Anomalies).Msg("libro de caja con inconsistencias")
	}
	if report.FinalBalance.IsNegative() {
		uc.log.Warn().Str("register_id", report.RegisterID).Str("final", report.FinalBalance.String()).Msg("saldo final negativo")
	}
	uc.refreshCache(ctx, reg)
	return report, nil
}

// PostMovement registra una venta, un gasto o un ajuste manual sobre una caja abierta
// y actualiza el saldo en la misma transacción.
func (uc *LifecycleUseCase) PostMovement(ctx context.Context, scope Scope, in PostMovementInput) (*entity.CashMovement, error) {
	if in.RegisterID == "" || in.ActorID == "" {
		return nil, domain.ErrInvalidInput
	}
	switch in.Kind {
	case entity.CashMovementSale, entity.CashMovementExpense, entity.CashMovementManualAdjustment:
	default:
		// OPENING_DEPOSIT y CLOSING_WITHDRAWAL solo los genera el ciclo de vida
		return nil, fmt.Errorf("tipo de movimiento %q: %w", in.Kind, domain.ErrInvalidInput)
	}
	if in.Amount.IsZero() {
		return nil, fmt.Errorf("monto cero: %w", domain.ErrInvalidAmount)
	}
	if in.Kind == entity.CashMovementSale && in.Amount.IsNegative() {
		return nil, fmt.Errorf("una venta debe ser positiva: %w", domain.ErrInvalidAmount)
	}
	if in.Kind == entity.CashMovementExpense && in.Amount.IsPositive() {
		return nil, fmt.Errorf("un gasto debe ser negativo: %w", domain.ErrInvalidAmount)
	}

	var (
		movement *entity.CashMovement
		reg      *entity.CashRegister
	)
	err := uc.txRunner.RunCash(ctx, func(
		registerRepo repository.CashRegisterRepository,
		sessionRepo repository.CashSessionRepository,
		movementRepo repository.CashMovementRepository,
	) error {
		r, err := loadLocked(ctx, registerRepo, in.RegisterID, scope)
		if err != nil {
			return err
		}
		if !r.IsOpen() {
			return domain.ErrNotOpen
		}
		amount, err := toMoney(in.Amount, r.Currency)
		if err != nil {
			return err
		}
		if in.ReferenceID != "" {
			exists, err := movementRepo.ExistsReference(ctx, r.ID, in.ReferenceID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("referencia %s: %w", in.ReferenceID, domain.ErrDuplicateMovement)
			}
		}
		m, err := appendMovement(ctx, movementRepo, r, r.CurrentSessionID, in.Kind, amount, in.ActorID, in.ReferenceID, in.Note, uc.now())
		if err != nil {
			return err
		}
		r.UpdatedAt = m.CreatedAt
		if err := registerRepo.Update(ctx, r); err != nil {
			return err
		}
		movement, reg = m, r
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Debug().
		Str("register_id", reg.ID).
		Str("kind", movement.Kind).
		Str("amount", movement.Amount.String()).
		Str("balance", reg.CurrentBalance.String()).
		Int64("sequence", movement.Sequence).
		Msg("movimiento de caja")
	if reg.CurrentBalance.IsNegative() {
		uc.log.Warn().Str("register_id", reg.ID).Str("balance", reg.CurrentBalance.String()).Msg("saldo de caja negativo")
	}
	uc.refreshCache(ctx, reg)
	return movement, nil
}

// refreshCache publica el estado confirmado; un fallo de caché no revierte la operación.
func (uc *LifecycleUseCase) refreshCache(ctx context.Context, reg *entity.CashRegister) {
	publishBalance(ctx, uc.cache, uc.log, reg)
}

// appendMovement asigna la siguiente secuencia de la caja, aplica el monto al saldo y agrega el asiento.
func appendMovement(
	ctx context.Context,
	movementRepo repository.CashMovementRepository,
	reg *entity.CashRegister,
	sessionID, kind string,
	amount money.Money,
	actorID, referenceID, note string,
	at time.Time,
) (*entity.CashMovement, error) {
	balance, err := reg.CurrentBalance.AddChecked(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}
	reg.LastSequence++
	reg.CurrentBalance = balance
	m := &entity.CashMovement{
		ID:           uuid.New().String(),
		RegisterID:   reg.ID,
		SessionID:    sessionID,
		Sequence:     reg.LastSequence,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: reg.CurrentBalance,
		ActorID:      actorID,
		ReferenceID:  referenceID,
		Note:         note,
		CreatedAt:    at,
	}
	if err := movementRepo.Append(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func toMoney(d decimal.Decimal, currency string) (money.Money, error) {
	m, err := money.FromDecimal(d, currency)
	if err != nil {
		return money.Money{}, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}
	return m, nil
}

func alreadyOpen(reg *entity.CashRegister) error {
	e := &domain.AlreadyOpenError{
		RegisterID: reg.ID,
		SessionID:  reg.CurrentSessionID,
		By:         reg.LastOpenedBy,
	}
	if reg.LastOpenedAt != nil {
		e.Since = *reg.LastOpenedAt
	}
	return e
}
