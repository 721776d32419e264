package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Caja-api/internal/application/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
)

// Ensure TxRunner implements cashdrawer.TxRunner.
var _ cashdrawer.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool       *pgxpool.Pool
	maxRetries int
	backoff    time.Duration
	log        zerolog.Logger
}

// NewTxRunner construye el runner con el pool. maxRetries son los reintentos ante 40001/40P01.
func NewTxRunner(pool *pgxpool.Pool, maxRetries int, backoff time.Duration, log zerolog.Logger) *TxRunner {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 20 * time.Millisecond
	}
	return &TxRunner{pool: pool, maxRetries: maxRetries, backoff: backoff, log: log}
}

// RunCash inicia una transacción, ejecuta fn con repos de caja atados a la tx y hace Commit o Rollback.
// Conflictos de serialización y deadlocks se reintentan con espera exponencial.
func (r *TxRunner) RunCash(ctx context.Context, fn func(
	registerRepo repository.CashRegisterRepository,
	sessionRepo repository.CashSessionRepository,
	movementRepo repository.CashMovementRepository,
) error) error {
	wait := r.backoff
	for attempt := 0; ; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) || attempt >= r.maxRetries {
			return err
		}
		r.log.Debug().Err(err).Int("attempt", attempt+1).Msg("transacción de caja en conflicto, reintentando")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(
	registerRepo repository.CashRegisterRepository,
	sessionRepo repository.CashSessionRepository,
	movementRepo repository.CashMovementRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrap("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	registerRepo := NewCashRegisterRepository(tx)
	sessionRepo := NewCashSessionRepository(tx)
	movementRepo := NewCashMovementRepository(tx)

	if err := fn(registerRepo, sessionRepo, movementRepo); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return wrap("commit transaction", err)
	}
	return nil
}
