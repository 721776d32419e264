package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migration es un paso de esquema idempotente, aplicado una sola vez y en orden de versión.
type migration struct {
	Version string
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: "20250101000001",
		Name:    "create_cash_registers",
		SQL: `
CREATE TABLE IF NOT EXISTS cash_registers (
    id                 UUID PRIMARY KEY,
    company_id         TEXT NOT NULL,
    branch_id          TEXT NOT NULL DEFAULT '',
    name               TEXT NOT NULL,
    currency           CHAR(3) NOT NULL,
    status             TEXT NOT NULL DEFAULT 'CLOSED' CHECK (status IN ('OPEN', 'CLOSED')),
    opening_balance    NUMERIC(20,4) NOT NULL DEFAULT 0,
    current_balance    NUMERIC(20,4) NOT NULL DEFAULT 0,
    current_session_id UUID,
    last_sequence      BIGINT NOT NULL DEFAULT 0,
    version            BIGINT NOT NULL DEFAULT 1,
    last_opened_at     TIMESTAMPTZ,
    last_opened_by     TEXT NOT NULL DEFAULT '',
    last_closed_at     TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cash_registers_company ON cash_registers (company_id, branch_id);
CREATE INDEX IF NOT EXISTS idx_cash_registers_open ON cash_registers (id) WHERE status = 'OPEN';
`,
	},
	{
		Version: "20250101000002",
		Name:    "create_cash_sessions",
		SQL: `
CREATE TABLE IF NOT EXISTS cash_sessions (
    id               UUID PRIMARY KEY,
    register_id      UUID NOT NULL REFERENCES cash_registers (id),
    status           TEXT NOT NULL CHECK (status IN ('OPEN', 'CLOSED')),
    currency         CHAR(3) NOT NULL,
    opening_balance  NUMERIC(20,4) NOT NULL,
    opened_by        TEXT NOT NULL,
    opened_at        TIMESTAMPTZ NOT NULL,
    closed_by        TEXT NOT NULL DEFAULT '',
    closed_at        TIMESTAMPTZ,
    computed_balance NUMERIC(20,4),
    declared_balance NUMERIC(20,4),
    discrepancy      NUMERIC(20,4),
    discrepancy_pct  NUMERIC(24,2),
    classification   TEXT NOT NULL DEFAULT '',
    withdrawal       NUMERIC(20,4),
    final_balance    NUMERIC(20,4),
    notes            TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_sessions_one_open ON cash_sessions (register_id) WHERE status = 'OPEN';
CREATE INDEX IF NOT EXISTS idx_cash_sessions_register ON cash_sessions (register_id, opened_at DESC);
`,
	},
	{
		Version: "20250101000003",
		Name:    "create_cash_movements",
		SQL: `
CREATE TABLE IF NOT EXISTS cash_movements (
    id            UUID PRIMARY KEY,
    register_id   UUID NOT NULL REFERENCES cash_registers (id),
    session_id    UUID NOT NULL REFERENCES cash_sessions (id),
    sequence      BIGINT NOT NULL,
    kind          TEXT NOT NULL CHECK (kind IN ('OPENING_DEPOSIT', 'SALE', 'EXPENSE', 'MANUAL_ADJUSTMENT', 'CLOSING_WITHDRAWAL')),
    amount        NUMERIC(20,4) NOT NULL,
    balance_after NUMERIC(20,4) NOT NULL,
    currency      CHAR(3) NOT NULL,
    actor_id      TEXT NOT NULL,
    reference_id  TEXT,
    note          TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_cash_movements_sequence UNIQUE (register_id, sequence)
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_movements_reference ON cash_movements (register_id, reference_id) WHERE reference_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_cash_movements_session ON cash_movements (session_id, sequence);
`,
	},
	{
		Version: "20250101000004",
		Name:    "cash_movements_append_only",
		SQL: `
CREATE OR REPLACE FUNCTION cash_movements_append_only() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'cash_movements es de solo inserción';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_cash_movements_append_only ON cash_movements;
CREATE TRIGGER trg_cash_movements_append_only
    BEFORE UPDATE OR DELETE ON cash_movements
    FOR EACH ROW EXECUTE FUNCTION cash_movements_append_only();
`,
	},
}

// Migrate aplica las migraciones pendientes. Cada una corre en su propia transacción
// y queda registrada en cash_schema_migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cash_schema_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range migrations {
		if err := applyMigration(ctx, pool, m); err != nil {
			return fmt.Errorf("migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, m migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// serializa instancias que arrancan a la vez
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('cash_schema_migrations'))`); err != nil {
		return err
	}
	var applied bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cash_schema_migrations WHERE version = $1)`, m.Version).Scan(&applied); err != nil {
		return err
	}
	if applied {
		return nil
	}
	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO cash_schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
