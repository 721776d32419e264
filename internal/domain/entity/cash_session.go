package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Caja-api/internal/domain/money"
)

// Estados de una sesión (un ciclo apertura → cierre).
const (
	SessionStatusOpen   = "OPEN"
	SessionStatusClosed = "CLOSED"
)

// Clasificación del desvío de arqueo.
const (
	DiscrepancyNormal   = "NORMAL"   // |desvío| <= 1%
	DiscrepancyWarning  = "WARNING"  // |desvío| <= 5%
	DiscrepancyCritical = "CRITICAL" // > 5% o desvío contra saldo cero
)

// CashSession es una sesión de caja. Los campos de cierre se escriben una sola vez
// (sellado); después de eso la fila no vuelve a modificarse.
type CashSession struct {
	ID             string
	RegisterID     string
	Status         string
	Currency       string
	OpeningBalance money.Money
	OpenedBy       string
	OpenedAt       time.Time

	ClosedBy        string
	ClosedAt        *time.Time
	ComputedBalance *money.Money // saldo del libro al cierre, antes del retiro
	DeclaredBalance *money.Money // conteo físico informado por el cajero
	Discrepancy     *money.Money // declarado - calculado
	DiscrepancyPct  *decimal.Decimal
	Classification  string
	Withdrawal      *money.Money
	FinalBalance    *money.Money // calculado - retiro
	Notes           string
}

// IsOpen indica si la sesión sigue activa.
func (s *CashSession) IsOpen() bool { return s.Status == SessionStatusOpen }
