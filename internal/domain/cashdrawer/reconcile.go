// Package cashdrawer contiene los servicios de dominio puros del arqueo de caja
// (sin efectos secundarios ni acceso a persistencia).
package cashdrawer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/money"
)

// Umbrales de clasificación del desvío (porcentaje absoluto sobre el saldo calculado).
var (
	warningThreshold  = decimal.NewFromInt(1)
	criticalThreshold = decimal.NewFromInt(5)
)

// Fold es el resultado de plegar el libro de una sesión.
type Fold struct {
	Computed     money.Money
	Count        int
	LastSequence int64
	Anomalies    []string // inconsistencias internas del libro (no afectan Computed)
}

// FoldSession suma los montos con signo de la sesión en orden de secuencia partiendo de cero:
// el OPENING_DEPOSIT aporta el fondo inicial, así el saldo de apertura no se cuenta dos veces.
// También verifica la cadena balance_after y que la secuencia sea estrictamente creciente.
func FoldSession(session *entity.CashSession, movements []*entity.CashMovement) Fold {
	f := Fold{Computed: money.Zero(session.Currency)}
	for i, m := range movements {
		if m.SessionID != session.ID {
			f.Anomalies = append(f.Anomalies, fmt.Sprintf("movimiento %s pertenece a otra sesión", m.ID))
			continue
		}
		if m.Amount.Currency != session.Currency {
			f.Anomalies = append(f.Anomalies, fmt.Sprintf("movimiento %s en moneda %s", m.ID, m.Amount.Currency))
			continue
		}
		if i > 0 && m.Sequence <= f.LastSequence {
			f.Anomalies = append(f.Anomalies, fmt.Sprintf("secuencia no creciente en movimiento %s (%d)", m.ID, m.Sequence))
		}
		if i == 0 {
			if m.Kind != entity.CashMovementOpeningDeposit {
				f.Anomalies = append(f.Anomalies, "la sesión no inicia con OPENING_DEPOSIT")
			} else if !m.Amount.Equal(session.OpeningBalance) {
				f.Anomalies = append(f.Anomalies, fmt.Sprintf("fondo inicial %s distinto al de la sesión %s", m.Amount, session.OpeningBalance))
			}
		}
		f.Computed = f.Computed.Add(m.Amount)
		if !m.BalanceAfter.Equal(f.Computed) {
			f.Anomalies = append(f.Anomalies, fmt.Sprintf("balance_after %s del movimiento %d no coincide con %s", m.BalanceAfter, m.Sequence, f.Computed))
		}
		f.LastSequence = m.Sequence
		f.Count++
	}
	return f
}

// Classify devuelve el porcentaje (nil si el saldo calculado es cero) y la clasificación del desvío.
func Classify(discrepancy, computed money.Money) (*decimal.Decimal, string) {
	pct, ok := discrepancy.Percent(computed)
	if !ok {
		if discrepancy.IsZero() {
			return nil, entity.DiscrepancyNormal
		}
		return nil, entity.DiscrepancyCritical
	}
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(warningThreshold):
		return &pct, entity.DiscrepancyNormal
	case abs.LessThanOrEqual(criticalThreshold):
		return &pct, entity.DiscrepancyWarning
	default:
		return &pct, entity.DiscrepancyCritical
	}
}
