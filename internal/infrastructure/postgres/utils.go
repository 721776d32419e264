package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Caja-api/internal/domain"
	"github.com/jhoicas/Caja-api/internal/domain/money"
)

// Querier es lo común entre *pgxpool.Pool y pgx.Tx: los repos funcionan con ambos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxScanner abstrae pgx.Row y pgx.Rows para reutilizar los scan*.
type pgxScanner interface {
	Scan(dest ...any) error
}

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Nombres de constraints del esquema de caja.
const (
	constraintOneOpenSession = "uq_cash_sessions_one_open"
	constraintReference      = "uq_cash_movements_reference"
	constraintSequence       = "uq_cash_movements_sequence"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// violatedConstraint devuelve el nombre del constraint de un PgError, o "".
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// isRetryable indica conflictos de serialización o deadlocks: la transacción completa puede reintentarse.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// isUnavailable indica fallas de conexión o de red: la base no respondió.
func isUnavailable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// clase 08: connection exception; 57P0x: el servidor se está apagando
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr) || pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// wrap agrega contexto de la operación y traduce fallas de conexión a ErrStorageUnavailable.
func wrap(op string, err error) error {
	if isUnavailable(err) {
		return domain.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// toMoney convierte un NUMERIC leído de la base al monto de la moneda de la caja.
func toMoney(d decimal.Decimal, currency string) (money.Money, error) {
	m, err := money.FromDecimal(d, currency)
	if err != nil {
		return money.Money{}, fmt.Errorf("monto almacenado %s %s: %w", d, currency, err)
	}
	return m, nil
}

func toMoneyPtr(d *decimal.Decimal, currency string) (*money.Money, error) {
	if d == nil {
		return nil, nil
	}
	m, err := toMoney(*d, currency)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func decimalPtr(m *money.Money) *decimal.Decimal {
	if m == nil {
		return nil
	}
	d := m.Decimal()
	return &d
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
