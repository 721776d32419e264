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

var _ repository.CashSessionRepository = (*CashSessionRepo)(nil)

// CashSessionRepo implementación de CashSessionRepository sobre PostgreSQL.
type CashSessionRepo struct {
	q Querier
}

// NewCashSessionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCashSessionRepository(q Querier) *CashSessionRepo {
	return &CashSessionRepo{q: q}
}

const sessionColumns = `
	id, register_id, status, currency, opening_balance, opened_by, opened_at, closed_by, closed_at,
	computed_balance, declared_balance, discrepancy, discrepancy_pct, classification, withdrawal,
	final_balance, notes`

// Create inserta la sesión; el índice único parcial garantiza una sola sesión OPEN por caja.
func (r *CashSessionRepo) Create(ctx context.Context, s *entity.CashSession) error {
	query := `
		INSERT INTO cash_sessions (id, register_id, status, currency, opening_balance, opened_by, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.RegisterID, s.Status, s.Currency, s.OpeningBalance.Decimal(), s.OpenedBy, s.OpenedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && violatedConstraint(err) == constraintOneOpenSession {
			return fmt.Errorf("caja %s: %w", s.RegisterID, domain.ErrAlreadyOpen)
		}
		return wrap("create cash session", err)
	}
	return nil
}

func (r *CashSessionRepo) GetByID(ctx context.Context, id string) (*entity.CashSession, error) {
	if id == "" {
		return nil, nil
	}
	query := `SELECT ` + sessionColumns + ` FROM cash_sessions WHERE id = $1`
	s, err := scanSession(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get cash session", err)
	}
	return s, nil
}

// Seal escribe el cierre una sola vez: solo actualiza si la sesión sigue OPEN.
func (r *CashSessionRepo) Seal(ctx context.Context, s *entity.CashSession) error {
	query := `
		UPDATE cash_sessions SET
			status = $2, closed_by = $3, closed_at = $4, computed_balance = $5, declared_balance = $6,
			discrepancy = $7, discrepancy_pct = $8, classification = $9, withdrawal = $10,
			final_balance = $11, notes = $12
		WHERE id = $1 AND status = 'OPEN'`
	tag, err := r.q.Exec(ctx, query,
		s.ID, s.Status, s.ClosedBy, s.ClosedAt,
		decimalPtr(s.ComputedBalance), decimalPtr(s.DeclaredBalance), decimalPtr(s.Discrepancy),
		s.DiscrepancyPct, s.Classification, decimalPtr(s.Withdrawal), decimalPtr(s.FinalBalance), s.Notes,
	)
	if err != nil {
		return wrap("seal cash session", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sesión %s ya sellada: %w", s.ID, domain.ErrConflict)
	}
	return nil
}

// ListByRegister devuelve las sesiones de la caja, la más reciente primero.
func (r *CashSessionRepo) ListByRegister(ctx context.Context, registerID string, limit, offset int) ([]*entity.CashSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM cash_sessions WHERE register_id = $1
		ORDER BY opened_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, registerID, limit, offset)
	if err != nil {
		return nil, wrap("list cash sessions", err)
	}
	defer rows.Close()

	out := make([]*entity.CashSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, wrap("list cash sessions", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list cash sessions", err)
	}
	return out, nil
}

func (r *CashSessionRepo) CountByRegister(ctx context.Context, registerID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM cash_sessions WHERE register_id = $1`, registerID).Scan(&n)
	if err != nil {
		return 0, wrap("count cash sessions", err)
	}
	return n, nil
}

func scanSession(row pgxScanner) (*entity.CashSession, error) {
	var (
		s                                                      entity.CashSession
		opening                                                decimal.Decimal
		computed, declared, discrepancy, withdrawal, finalBal *decimal.Decimal
	)
	err := row.Scan(
		&s.ID, &s.RegisterID, &s.Status, &s.Currency, &opening, &s.OpenedBy, &s.OpenedAt,
		&s.ClosedBy, &s.ClosedAt, &computed, &declared, &discrepancy, &s.DiscrepancyPct,
		&s.Classification, &withdrawal, &finalBal, &s.Notes,
	)
	if err != nil {
		return nil, err
	}
	if s.OpeningBalance, err = toMoney(opening, s.Currency); err != nil {
		return nil, err
	}
	if s.ComputedBalance, err = toMoneyPtr(computed, s.Currency); err != nil {
		return nil, err
	}
	if s.DeclaredBalance, err = toMoneyPtr(declared, s.Currency); err != nil {
		return nil, err
	}
	if s.Discrepancy, err = toMoneyPtr(discrepancy, s.Currency); err != nil {
		return nil, err
	}
	if s.Withdrawal, err = toMoneyPtr(withdrawal, s.Currency); err != nil {
		return nil, err
	}
	if s.FinalBalance, err = toMoneyPtr(finalBal, s.Currency); err != nil {
		return nil, err
	}
	return &s, nil
}
