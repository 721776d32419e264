package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Caja-api/internal/domain"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
)

var _ repository.CashMovementRepository = (*CashMovementRepo)(nil)

// CashMovementRepo es el libro de caja sobre PostgreSQL. Solo INSERT: un trigger rechaza UPDATE y DELETE.
type CashMovementRepo struct {
	q Querier
}

// NewCashMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCashMovementRepository(q Querier) *CashMovementRepo {
	return &CashMovementRepo{q: q}
}

func (r *CashMovementRepo) Append(ctx context.Context, m *entity.CashMovement) error {
	query := `
		INSERT INTO cash_movements (id, register_id, session_id, sequence, kind, amount, balance_after,
			currency, actor_id, reference_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.RegisterID, m.SessionID, m.Sequence, m.Kind, m.Amount.Decimal(), m.BalanceAfter.Decimal(),
		m.Amount.Currency, m.ActorID, nullString(m.ReferenceID), m.Note, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			switch violatedConstraint(err) {
			case constraintReference:
				return fmt.Errorf("referencia %s: %w", m.ReferenceID, domain.ErrDuplicateMovement)
			case constraintSequence:
				return fmt.Errorf("secuencia %d de la caja %s: %w", m.Sequence, m.RegisterID, domain.ErrConflict)
			}
		}
		return wrap("append cash movement", err)
	}
	return nil
}

// ListBySession devuelve el libro de la sesión en orden de secuencia.
func (r *CashMovementRepo) ListBySession(ctx context.Context, sessionID string) ([]*entity.CashMovement, error) {
	query := `
		SELECT id, register_id, session_id, sequence, kind, amount, balance_after, currency,
			actor_id, COALESCE(reference_id, ''), note, created_at
		FROM cash_movements WHERE session_id = $1
		ORDER BY sequence`
	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, wrap("list cash movements", err)
	}
	defer rows.Close()

	out := make([]*entity.CashMovement, 0)
	for rows.Next() {
		var (
			m             entity.CashMovement
			amount, after decimal.Decimal
			currency      string
		)
		if err := rows.Scan(
			&m.ID, &m.RegisterID, &m.SessionID, &m.Sequence, &m.Kind, &amount, &after, &currency,
			&m.ActorID, &m.ReferenceID, &m.Note, &m.CreatedAt,
		); err != nil {
			return nil, wrap("scan cash movement", err)
		}
		if m.Amount, err = toMoney(amount, currency); err != nil {
			return nil, err
		}
		if m.BalanceAfter, err = toMoney(after, currency); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list cash movements", err)
	}
	return out, nil
}

func (r *CashMovementRepo) ExistsReference(ctx context.Context, registerID, referenceID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cash_movements WHERE register_id = $1 AND reference_id = $2)`,
		registerID, referenceID,
	).Scan(&exists)
	if err != nil {
		return false, wrap("exists cash movement reference", err)
	}
	return exists, nil
}
