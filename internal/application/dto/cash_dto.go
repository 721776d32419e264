package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Los montos de salida viajan como texto con la escala fija de la moneda ("710.50").

// CreateCashRegisterRequest body para POST /api/cash-registers.
type CreateCashRegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	BranchID string `json:"branch_id" validate:"omitempty,max=64"`
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

// OpenCashRegisterRequest body para POST /api/cash-registers/:id/open.
type OpenCashRegisterRequest struct {
	OpeningBalance *decimal.Decimal `json:"opening_balance" validate:"required"`
}

// CloseCashRegisterRequest body para POST /api/cash-registers/:id/close.
// DeclaredBalance es el conteo físico; Withdrawal el efectivo que se retira al cerrar.
type CloseCashRegisterRequest struct {
	DeclaredBalance *decimal.Decimal `json:"declared_balance,omitempty"`
	Withdrawal      *decimal.Decimal `json:"withdrawal,omitempty"`
	Notes           string           `json:"notes" validate:"max=500"`
}

// PostCashMovementRequest body para POST /api/cash-registers/:id/movements.
type PostCashMovementRequest struct {
	Kind        string           `json:"kind" validate:"required,oneof=SALE EXPENSE MANUAL_ADJUSTMENT"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	ReferenceID string           `json:"reference_id" validate:"max=128"`
	Note        string           `json:"note" validate:"max=500"`
}

// CashRegisterResponse estado y saldo de una caja (superficie de consulta de saldo).
type CashRegisterResponse struct {
	ID               string     `json:"id"`
	CompanyID        string     `json:"company_id"`
	BranchID         string     `json:"branch_id,omitempty"`
	Name             string     `json:"name"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	OpeningBalance   string     `json:"opening_balance"`
	CurrentBalance   string     `json:"current_balance"`
	CurrentSessionID string     `json:"current_session_id,omitempty"`
	LastOpenedAt     *time.Time `json:"last_opened_at,omitempty"`
	LastOpenedBy     string     `json:"last_opened_by,omitempty"`
	LastClosedAt     *time.Time `json:"last_closed_at,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CashRegisterListResponse lista paginada de cajas.
type CashRegisterListResponse struct {
	Items []CashRegisterResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}

// CashSessionResponse una sesión de caja; los campos de cierre solo existen si está sellada.
type CashSessionResponse struct {
	ID              string     `json:"id"`
	RegisterID      string     `json:"register_id"`
	Status          string     `json:"status"`
	Currency        string     `json:"currency"`
	OpeningBalance  string     `json:"opening_balance"`
	OpenedBy        string     `json:"opened_by"`
	OpenedAt        time.Time  `json:"opened_at"`
	ClosedBy        string     `json:"closed_by,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	ComputedBalance *string    `json:"computed_balance,omitempty"`
	DeclaredBalance *string    `json:"declared_balance,omitempty"`
	Discrepancy     *string    `json:"discrepancy,omitempty"`
	DiscrepancyPct  *string    `json:"discrepancy_pct,omitempty"`
	Classification  string     `json:"classification,omitempty"`
	Withdrawal      *string    `json:"withdrawal,omitempty"`
	FinalBalance    *string    `json:"final_balance,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// CashSessionListResponse historial de sesiones de una caja.
type CashSessionListResponse struct {
	Items []CashSessionResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// CashMovementResponse un asiento del libro de caja.
type CashMovementResponse struct {
	ID           string    `json:"id"`
	RegisterID   string    `json:"register_id"`
	SessionID    string    `json:"session_id"`
	Sequence     int64     `json:"sequence"`
	Kind         string    `json:"kind"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	Currency     string    `json:"currency"`
	ActorID      string    `json:"actor_id"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CashMovementListResponse movimientos de una sesión en orden de inserción.
type CashMovementListResponse struct {
	RegisterID string                 `json:"register_id"`
	SessionID  string                 `json:"session_id"`
	Items      []CashMovementResponse `json:"items"`
	Count      int                    `json:"count"`
}

// ClosingReportResponse resultado del cierre. Discrepancy siempre está presente, aunque sea cero.
type ClosingReportResponse struct {
	RegisterID      string    `json:"register_id"`
	SessionID       string    `json:"session_id"`
	Currency        string    `json:"currency"`
	OpeningBalance  string    `json:"opening_balance"`
	ComputedBalance string    `json:"computed_balance"`
	DeclaredBalance *string   `json:"declared_balance,omitempty"`
	Discrepancy     string    `json:"discrepancy"`
	DiscrepancyPct  *string   `json:"discrepancy_pct,omitempty"`
	Classification  string    `json:"classification"`
	Withdrawal      *string   `json:"withdrawal,omitempty"`
	FinalBalance    string    `json:"final_balance"`
	CacheRepaired   bool      `json:"cache_repaired"`
	ClosedBy        string    `json:"closed_by"`
	ClosedAt        time.Time `json:"closed_at"`
}

// ReconciliationResponse comparación entre el saldo del libro y el saldo en caché.
// Discrepancy = cached - computed.
type ReconciliationResponse struct {
	RegisterID      string   `json:"register_id"`
	SessionID       string   `json:"session_id"`
	Currency        string   `json:"currency"`
	ComputedBalance string   `json:"computed_balance"`
	CachedBalance   string   `json:"cached_balance"`
	Discrepancy     string   `json:"discrepancy"`
	Consistent      bool     `json:"consistent"`
	CacheStale      bool     `json:"cache_stale,omitempty"`
	MovementCount   int      `json:"movement_count"`
	Anomalies       []string `json:"anomalies,omitempty"`
}

// CashRepairResponse resultado de reparar la caché de saldo desde el libro.
type CashRepairResponse struct {
	ReconciliationResponse
	Repaired   bool   `json:"repaired"`
	MovementID string `json:"movement_id,omitempty"`
}
