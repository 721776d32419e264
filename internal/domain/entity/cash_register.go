package entity

import (
	"time"

	"github.com/jhoicas/Caja-api/internal/domain/money"
)

// Estados de una caja registradora.
const (
	RegisterStatusClosed = "CLOSED"
	RegisterStatusOpen   = "OPEN"
)

// CashRegister representa una caja física de una sucursal (o de toda la organización si BranchID está vacío).
// CurrentBalance es un valor derivado: siempre debe coincidir con el plegado del libro de la sesión actual.
type CashRegister struct {
	ID               string
	CompanyID        string
	BranchID         string // vacío = caja de toda la organización
	Name             string
	Currency         string
	Status           string
	OpeningBalance   money.Money
	CurrentBalance   money.Money
	CurrentSessionID string // sesión abierta o última sesión cerrada
	LastSequence     int64  // contador monótono de movimientos de la caja
	Version          int64  // se incrementa en cada cambio de estado
	LastOpenedAt     *time.Time
	LastOpenedBy     string
	LastClosedAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsOpen indica si la caja tiene una sesión activa.
func (r *CashRegister) IsOpen() bool { return r.Status == RegisterStatusOpen }
