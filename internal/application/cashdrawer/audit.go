package cashdrawer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
)

// AuditActor es el actor con el que el auditor firma las reparaciones automáticas.
const AuditActor = "system:audit"

// AuditConfig parámetros del auditor periódico.
type AuditConfig struct {
	Interval    time.Duration
	Concurrency int
	BatchSize   int
	AutoRepair  bool
}

// AuditSummary resume una pasada del auditor.
type AuditSummary struct {
	Checked   int
	Divergent int
	Repaired  int
	Failed    int
}

// AuditWorker concilia periódicamente todas las cajas abiertas con concurrencia acotada.
type AuditWorker struct {
	registerRepo repository.CashRegisterRepository
	recon        *ReconciliationUseCase
	cfg          AuditConfig
	log          zerolog.Logger
}

// NewAuditWorker construye el auditor.
func NewAuditWorker(registerRepo repository.CashRegisterRepository, recon *ReconciliationUseCase, cfg AuditConfig, log zerolog.Logger) *AuditWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &AuditWorker{registerRepo: registerRepo, recon: recon, cfg: cfg, log: log}
}

// Start corre el auditor en una goroutine hasta que ctx se cancele.
func (w *AuditWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()

		w.log.Info().Dur("interval", w.cfg.Interval).Bool("auto_repair", w.cfg.AutoRepair).Msg("auditor de cajas iniciado")
		for {
			select {
			case <-ctx.Done():
				w.log.Info().Msg("auditor de cajas detenido")
				return
			case <-ticker.C:
				if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
					w.log.Error().Err(err).Msg("auditoría de cajas fallida")
				}
			}
		}
	}()
}

// RunOnce concilia todas las cajas abiertas una vez, recorriéndolas en lotes de BatchSize por id.
// Un error en una caja no detiene a las demás; solo se devuelve error si no se pudo listar.
func (w *AuditWorker) RunOnce(ctx context.Context) (AuditSummary, error) {
	var checked, divergent, repaired, failed atomic.Int64
	var werr error
	afterID := ""
	for {
		registers, err := w.registerRepo.ListOpen(ctx, afterID, w.cfg.BatchSize)
		if err != nil {
			werr = err
			break
		}
		if len(registers) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.cfg.Concurrency)
		for _, reg := range registers {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				ok, fixed, err := w.auditOne(gctx, reg)
				checked.Add(1)
				switch {
				case err != nil:
					failed.Add(1)
					w.log.Error().Err(err).Str("register_id", reg.ID).Msg("no se pudo conciliar la caja")
				case !ok:
					divergent.Add(1)
					if fixed {
						repaired.Add(1)
					}
				}
				return nil
			})
		}
		if werr = g.Wait(); werr != nil {
			break
		}
		if len(registers) < w.cfg.BatchSize {
			break
		}
		afterID = registers[len(registers)-1].ID
	}

	sum := AuditSummary{
		Checked:   int(checked.Load()),
		Divergent: int(divergent.Load()),
		Repaired:  int(repaired.Load()),
		Failed:    int(failed.Load()),
	}
	ev := w.log.Debug()
	if sum.Divergent > 0 || sum.Failed > 0 {
		ev = w.log.Warn()
	}
	ev.Int("checked", sum.Checked).Int("divergent", sum.Divergent).Int("repaired", sum.Repaired).Int("failed", sum.Failed).Msg("auditoría de cajas")
	return sum, werr
}

// auditOne devuelve si la caja está consistente y si se reparó.
func (w *AuditWorker) auditOne(ctx context.Context, reg *entity.CashRegister) (consistent, repaired bool, err error) {
	scope := Scope{OrganizationID: reg.CompanyID}
	rec, err := w.recon.Reconcile(ctx, scope, reg.ID, "")
	if err != nil {
		return false, false, err
	}
	if rec.Consistent {
		return true, false, nil
	}
	if !w.cfg.AutoRepair || rec.Discrepancy.IsZero() {
		// con diferencias solo en la cadena del libro no hay saldo que reparar
		return false, false, nil
	}
	res, err := w.recon.Repair(ctx, scope, reg.ID, AuditActor)
	if err != nil {
		return false, false, err
	}
	return false, res.Repaired, nil
}
