package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Caja-api/internal/domain"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
)

var _ repository.CashRegisterRepository = (*CashRegisterRepo)(nil)

// CashRegisterRepo implementación de CashRegisterRepository sobre PostgreSQL (usable con pool o tx).
type CashRegisterRepo struct {
	q Querier
}

// NewCashRegisterRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCashRegisterRepository(q Querier) *CashRegisterRepo {
	return &CashRegisterRepo{q: q}
}

const registerColumns = `
	id, company_id, branch_id, name, currency, status, opening_balance, current_balance,
	COALESCE(current_session_id::text, ''), last_sequence, version, last_opened_at, last_opened_by,
	last_closed_at, created_at, updated_at`

func (r *CashRegisterRepo) Create(ctx context.Context, reg *entity.CashRegister) error {
	query := `
		INSERT INTO cash_registers (id, company_id, branch_id, name, currency, status,
			opening_balance, current_balance, last_sequence, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		reg.ID, reg.CompanyID, reg.BranchID, reg.Name, reg.Currency, reg.Status,
		reg.OpeningBalance.Decimal(), reg.CurrentBalance.Decimal(), reg.LastSequence, reg.Version,
		reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("caja %s: %w", reg.ID, domain.ErrConflict)
		}
		return wrap("create cash register", err)
	}
	return nil
}

func (r *CashRegisterRepo) GetByID(ctx context.Context, id string) (*entity.CashRegister, error) {
	query := `SELECT ` + registerColumns + ` FROM cash_registers WHERE id = $1`
	reg, err := scanRegister(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get cash register", err)
	}
	return reg, nil
}

// GetForUpdate obtiene la caja y bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
func (r *CashRegisterRepo) GetForUpdate(ctx context.Context, id string) (*entity.CashRegister, error) {
	query := `SELECT ` + registerColumns + ` FROM cash_registers WHERE id = $1 FOR UPDATE`
	reg, err := scanRegister(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get cash register for update", err)
	}
	return reg, nil
}

// Update persiste el estado solo si la versión no cambió desde la lectura.
func (r *CashRegisterRepo) Update(ctx context.Context, reg *entity.CashRegister) error {
	query := `
		UPDATE cash_registers SET
			status = $2, opening_balance = $3, current_balance = $4, current_session_id = $5,
			last_sequence = $6, last_opened_at = $7, last_opened_by = $8, last_closed_at = $9,
			updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $11`
	var sessionID *string
	if reg.CurrentSessionID != "" {
		sessionID = &reg.CurrentSessionID
	}
	tag, err := r.q.Exec(ctx, query,
		reg.ID, reg.Status, reg.OpeningBalance.Decimal(), reg.CurrentBalance.Decimal(), sessionID,
		reg.LastSequence, reg.LastOpenedAt, reg.LastOpenedBy, reg.LastClosedAt,
		reg.UpdatedAt, reg.Version,
	)
	if err != nil {
		return wrap("update cash register", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("caja %s versión %d: %w", reg.ID, reg.Version, domain.ErrConflict)
	}
	reg.Version++
	return nil
}

// ListByCompany lista las cajas de la organización. Con branchID devuelve las de esa sucursal
// más las de toda la organización.
func (r *CashRegisterRepo) ListByCompany(ctx context.Context, companyID, branchID string, limit, offset int) ([]*entity.CashRegister, error) {
	query := `
		SELECT ` + registerColumns + `
		FROM cash_registers
		WHERE company_id = $1 AND ($2 = '' OR branch_id = $2 OR branch_id = '')
		ORDER BY created_at, id
		LIMIT $3 OFFSET $4`
	return r.list(ctx, "list cash registers", query, companyID, branchID, limit, offset)
}

// ListOpen lista cajas abiertas de todas las organizaciones (auditoría), paginando por id.
func (r *CashRegisterRepo) ListOpen(ctx context.Context, afterID string, limit int) ([]*entity.CashRegister, error) {
	query := `SELECT ` + registerColumns + ` FROM cash_registers
		WHERE status = 'OPEN' AND id > $1
		ORDER BY id
		LIMIT $2`
	return r.list(ctx, "list open cash registers", query, afterID, limit)
}

func (r *CashRegisterRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM cash_registers WHERE id = $1`, id)
	if err != nil {
		return wrap("delete cash register", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CashRegisterRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.CashRegister, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	out := make([]*entity.CashRegister, 0)
	for rows.Next() {
		reg, err := scanRegister(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

func scanRegister(row pgxScanner) (*entity.CashRegister, error) {
	var (
		reg              entity.CashRegister
		opening, current decimal.Decimal
	)
	err := row.Scan(
		&reg.ID, &reg.CompanyID, &reg.BranchID, &reg.Name, &reg.Currency, &reg.Status,
		&opening, &current, &reg.CurrentSessionID, &reg.LastSequence, &reg.Version,
		&reg.LastOpenedAt, &reg.LastOpenedBy, &reg.LastClosedAt, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reg.OpeningBalance, err = toMoney(opening, reg.Currency); err != nil {
		return nil, err
	}
	if reg.CurrentBalance, err = toMoney(current, reg.Currency); err != nil {
		return nil, err
	}
	return &reg, nil
}
