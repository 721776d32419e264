package cashdrawer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Caja-api/internal/domain/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/money"
)

func usd(s string) money.Money { return money.MustParse(s, "USD") }

// buildLedger arma un libro consistente a partir de montos con signo; el primero es el fondo inicial.
func buildLedger(session *entity.CashSession, amounts ...string) []*entity.CashMovement {
	running := money.Zero("USD")
	out := make([]*entity.CashMovement, 0, len(amounts))
	for i, a := range amounts {
		kind := entity.CashMovementSale
		if i == 0 {
			kind = entity.CashMovementOpeningDeposit
		}
		amt := usd(a)
		running = running.Add(amt)
		out = append(out, &entity.CashMovement{
			ID:           "m" + a,
			SessionID:    session.ID,
			Sequence:     int64(i + 1),
			Kind:         kind,
			Amount:       amt,
			BalanceAfter: running,
		})
	}
	return out
}

func TestFoldSession_EscenarioApertura500(t *testing.T) {
	session := &entity.CashSession{ID: "s1", Currency: "USD", OpeningBalance: usd("500.00")}
	ledger := buildLedger(session, "500.00", "250.50", "-40.00")

	f := cashdrawer.FoldSession(session, ledger)

	assert.Equal(t, "710.50 USD", f.Computed.String(), "500 + 250.50 - 40 = 710.50")
	assert.Equal(t, 3, f.Count)
	assert.Equal(t, int64(3), f.LastSequence)
	assert.Empty(t, f.Anomalies)
}

func TestFoldSession_DetectaCadenaRota(t *testing.T) {
	session := &entity.CashSession{ID: "s1", Currency: "USD", OpeningBalance: usd("100.00")}
	ledger := buildLedger(session, "100.00", "10.00")
	ledger[1].BalanceAfter = usd("999.00")

	f := cashdrawer.FoldSession(session, ledger)

	assert.Equal(t, "110.00 USD", f.Computed.String(), "el libro manda aunque balance_after esté mal")
	require.Len(t, f.Anomalies, 1)
	assert.Contains(t, f.Anomalies[0], "balance_after")
}

func TestFoldSession_FondoInicialDistinto(t *testing.T) {
	session := &entity.CashSession{ID: "s1", Currency: "USD", OpeningBalance: usd("100.00")}
	ledger := buildLedger(session, "90.00")

	f := cashdrawer.FoldSession(session, ledger)
	require.Len(t, f.Anomalies, 1)
	assert.Contains(t, f.Anomalies[0], "fondo inicial")
}

func TestFoldSession_IgnoraMovimientosDeOtraSesion(t *testing.T) {
	session := &entity.CashSession{ID: "s1", Currency: "USD", OpeningBalance: usd("10.00")}
	ledger := buildLedger(session, "10.00", "5.00")
	ledger[1].SessionID = "otra"

	f := cashdrawer.FoldSession(session, ledger)
	assert.Equal(t, "10.00 USD", f.Computed.String())
	assert.Equal(t, 1, f.Count)
	assert.Len(t, f.Anomalies, 1)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name        string
		discrepancy string
		computed    string
		wantPct     string
		wantClass   string
	}{
		{"sin desvío", "0.00", "710.50", "0.00", entity.DiscrepancyNormal},
		{"faltante 15.50 sobre 710.50", "-15.50", "710.50", "-2.18", entity.DiscrepancyWarning},
		{"uno por ciento exacto", "1.00", "100.00", "1.00", entity.DiscrepancyNormal},
		{"sobrante crítico", "60.00", "1000.00", "6.00", entity.DiscrepancyCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pct, class := cashdrawer.Classify(usd(tc.discrepancy), usd(tc.computed))
			require.NotNil(t, pct)
			assert.Equal(t, tc.wantPct, pct.StringFixed(2))
			assert.Equal(t, tc.wantClass, class)
		})
	}
}

func TestClassify_SaldoCalculadoCero(t *testing.T) {
	pct, class := cashdrawer.Classify(usd("0.00"), usd("0.00"))
	assert.Nil(t, pct)
	assert.Equal(t, entity.DiscrepancyNormal, class)

	pct, class = cashdrawer.Classify(usd("5.00"), usd("0.00"))
	assert.Nil(t, pct)
	assert.Equal(t, entity.DiscrepancyCritical, class)
}
