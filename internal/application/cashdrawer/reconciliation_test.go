package cashdrawer_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Caja-api/internal/application/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/domain"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/money"
)

// corrupt pisa el saldo guardado sin pasar por el libro.
func (f *fixture) corrupt(t *testing.T, registerID string, balance money.Money) {
	t.Helper()
	ctx := context.Background()
	reg, err := f.store.Registers().GetByID(ctx, registerID)
	require.NoError(t, err)
	reg.CurrentBalance = balance
	require.NoError(t, f.store.Registers().Update(ctx, reg))
	require.NoError(t, f.cache.Delete(ctx, registerID))
}

func TestReconcile_DetectaSaldoDivergente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.newRegister(t)
	_, err := f.lifecycle.Open(ctx, f.scope, reg.ID, cajero, dec("100.00"))
	require.NoError(t, err)
	f.post(t, reg.ID, entity.CashMovementSale, "20.00", "")

	f.corrupt(t, reg.ID, usd("150.00"))

	rec, err := f.recon.Reconcile(ctx, f.scope, reg.ID, "")
	require.NoError(t, err)
	assert.False(t, rec.Consistent)
	assert.True(t, rec.Computed.Equal(usd("120.00")))
	assert.True(t, rec.Cached.Equal(usd("150.00")))
	assert.True(t, rec.Discrepancy.Equal(usd("30.00")), "cached - computed")
}

func TestRepair_CajaAbiertaDejaAjusteCero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.newRegister(t)
	_, err := f.lifecycle.Open(ctx, f.scope, reg.ID, cajero, dec("100.00"))
	require.NoError(t, err)
	f.corrupt(t, reg.ID, usd("90.00"))

	res, err := f.recon.Repair(ctx, f.scope, reg.ID, "admin-1")
	require.NoError(t, err)
	assert.True(t, res.Repaired)
	require.NotNil(t, res.Movement)
	assert.Equal(t, entity.CashMovementManualAdjustment, res.Movement.Kind)
	assert.True(t, res.Movement.Amount.IsZero())
	assert.Contains(t, res.Movement.Note, "90.00")

	rec, err := f.recon.Reconcile(ctx, f.scope, reg.ID, "")
	require.NoError(t, err)
	assert.True(t, rec.Consistent, "anomalías: %v", rec.Anomalies)

	got, err := f.registers.Get(ctx, f.scope, reg.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(usd("100.00")))
}

func TestRepair_CajaCerradaSoloCorrigeLaCaja(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.newRegister(t)
	_, err := f.lifecycle.Open(ctx, f.scope, reg.ID, cajero, dec("100.00"))
	require.NoError(t, err)
	report, err := f.lifecycle.Close(ctx, f.scope, reg.ID, cajero, cashdrawer.CloseInput{})
	require.NoError(t, err)
	f.corrupt(t, reg.ID, usd("1.00"))

	res, err := f.recon.Repair(ctx, f.scope, reg.ID, "admin-1")
	require.NoError(t, err)
	assert.True(t, res.Repaired)
	assert.Nil(t, res.Movement, "una sesión sellada no recibe movimientos")

	movs, err := f.recon.ListMovements(ctx, f.scope, reg.ID, report.SessionID)
	require.NoError(t, err)
	assert.Len(t, movs, 1)

	got, err := f.store.Registers().GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(usd("100.00")))
}

func TestRepair_SinDiferenciaNoHaceNada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.newRegister(t)
	_, err := f.lifecycle.Open(ctx, f.scope, reg.ID, cajero, dec("5.00"))
	require.NoError(t, err)

	res, err := f.recon.Repair(ctx, f.scope, reg.ID, "admin-1")
	require.NoError(t, err)
	assert.False(t, res.Repaired)
	assert.True(t, res.Consistent)
}

func TestClose_ReparaSaldoDivergenteAntesDeSellar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.newRegister(t)
	_, err := f.lifecycle.Open(ctx, f.scope, reg.ID, cajero, dec("100.00"))
	require.NoError(t, err)
	f.post(t, reg.ID, entity.CashMovementSale, "10.00", "")
	f.corrupt(t, reg.ID, usd("500.00"))

	report, err := f.lifecycle.Close(ctx, f.scope, reg.ID, cajero, cashdrawer.CloseInput{})
	require.NoError(t, err)
	assert.True(t, report.CacheRepaired)
	assert.True(t, report.ComputedBalance.Equal(usd("110.00")), "el libro manda")
	assert.True(t, report.FinalBalance.Equal(usd("110.00")))

	rec, err := f.recon.Reconcile(ctx, f.scope, reg.ID, report.SessionID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestReconcile_SesionDeOtraCaja(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newRegister(t)
	b := f.newRegister(t)
	sb, err := f.lifecycle.Open(ctx, f.scope, b.ID, cajero, dec("1.00"))
	require.NoError(t, err)

	_, err = f.recon.Reconcile(ctx, f.scope, a.ID, sb.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.recon.Reconcile(ctx, f.scope, a.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound, "caja sin sesiones")
}

// ──── Auditor ────

func TestAuditWorker_DetectaYRepara(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sana := f.newRegister(t)
	rota := f.newRegister(t)
	f.newRegister(t) // cerrada
	for _, r := range []*entity.CashRegister{sana, rota} {
		_, err := f.lifecycle.Open(ctx, f.scope, r.ID, cajero, dec("50.00"))
		require.NoError(t, err)
	}
	f.corrupt(t, rota.ID, usd("49.99"))

	worker := cashdrawer.NewAuditWorker(f.store.Registers(), f.recon, cashdrawer.AuditConfig{Concurrency: 2, AutoRepair: true}, zerolog.Nop())
	sum, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Checked, "solo audita cajas abiertas")
	assert.Equal(t, 1, sum.Divergent)
	assert.Equal(t, 1, sum.Repaired)
	assert.Zero(t, sum.Failed)

	got, err := f.store.Registers().GetByID(ctx, rota.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(usd("50.00")))

	sum, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.Divergent)
}

func TestAuditWorker_SinReparacionSoloInforma(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.newRegister(t)
	_, err := f.lifecycle.Open(ctx, f.scope, reg.ID, cajero, dec("50.00"))
	require.NoError(t, err)
	f.corrupt(t, reg.ID, usd("0.00"))

	worker := cashdrawer.NewAuditWorker(f.store.Registers(), f.recon, cashdrawer.AuditConfig{}, zerolog.Nop())
	sum, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Divergent)
	assert.Zero(t, sum.Repaired)

	got, err := f.store.Registers().GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.IsZero())
}

func TestAuditWorker_RecorreTodosLosLotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var rotas []*entity.CashRegister
	for range 3 {
		r := f.newRegister(t)
		_, err := f.lifecycle.Open(ctx, f.scope, r.ID, cajero, dec("10.00"))
		require.NoError(t, err)
		f.corrupt(t, r.ID, usd("1.00"))
		rotas = append(rotas, r)
	}

	worker := cashdrawer.NewAuditWorker(f.store.Registers(), f.recon, cashdrawer.AuditConfig{BatchSize: 1, AutoRepair: true}, zerolog.Nop())
	sum, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Checked, "lotes de 1 sobre 3 cajas abiertas")
	assert.Equal(t, 3, sum.Repaired)

	for _, r := range rotas {
		rec, err := f.recon.Reconcile(ctx, f.scope, r.ID, "")
		require.NoError(t, err)
		assert.True(t, rec.Consistent, "caja %s", r.ID)
	}
}
