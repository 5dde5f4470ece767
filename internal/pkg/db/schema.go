package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS action_audit (
		id BIGSERIAL PRIMARY KEY,
		queue_id BIGINT NOT NULL,
		action VARCHAR(20) NOT NULL,
		operator_id BIGINT NOT NULL DEFAULT 0,
		outcome VARCHAR(20) NOT NULL,
		error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_action_audit_queue ON action_audit (queue_id, created_at DESC);
`

// Migrate creates the audit tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
