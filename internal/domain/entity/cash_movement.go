package entity

import (
	"time"

	"github.com/jhoicas/Caja-api/internal/domain/money"
)

// Tipos de movimiento de caja.
const (
	CashMovementOpeningDeposit    = "OPENING_DEPOSIT"    // fondo inicial
	CashMovementSale              = "SALE"               // venta, siempre positivo
	CashMovementExpense           = "EXPENSE"            // gasto, siempre negativo
	CashMovementManualAdjustment  = "MANUAL_ADJUSTMENT"  // ajuste con cualquier signo
	CashMovementClosingWithdrawal = "CLOSING_WITHDRAWAL" // retiro de efectivo al cierre
)

// CashMovement es un asiento inmutable del libro de caja.
// Amount es con signo: positivo aumenta el saldo, negativo lo disminuye.
type CashMovement struct {
	ID           string
	RegisterID   string
	SessionID    string
	Sequence     int64
	Kind         string
	Amount       money.Money
	BalanceAfter money.Money
	ActorID      string
	ReferenceID  string // vacío si no proviene de una venta/gasto externo
	Note         string
	CreatedAt    time.Time
}

// IsLifecycleKind indica los tipos que solo genera el ciclo de vida (apertura/cierre).
func IsLifecycleKind(kind string) bool {
	return kind == CashMovementOpeningDeposit || kind == CashMovementClosingWithdrawal
}
