// Package repository provides persistence for operator actions and view state.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"queuebot/internal/model"
)

// AuditRepository stores one row per operator action attempt.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository instance.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Record inserts entry and fills in its ID and CreatedAt.
func (r *AuditRepository) Record(ctx context.Context, entry *model.ActionAudit) error {
	const query = `
		INSERT INTO action_audit (queue_id, action, operator_id, outcome, error, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		entry.QueueID,
		string(entry.Action),
		entry.OperatorID,
		string(entry.Outcome),
		entry.Error,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record action audit: %w", err)
	}

	return nil
}

// ListByQueue returns the most recent attempts for a queue record, newest first.
func (r *AuditRepository) ListByQueue(ctx context.Context, queueID int64, limit int) ([]*model.ActionAudit, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT id, queue_id, action, operator_id, outcome, error, created_at
		FROM action_audit
		WHERE queue_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, queueID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list action audit: %w", err)
	}
	defer rows.Close()

	var entries []*model.ActionAudit
	for rows.Next() {
		var (
			e       model.ActionAudit
			action  string
			outcome string
		)
		if err := rows.Scan(&e.ID, &e.QueueID, &action, &e.OperatorID, &outcome, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action audit: %w", err)
		}
		e.Action = model.ActionKind(action)
		e.Outcome = model.AuditOutcome(outcome)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action audit: %w", err)
	}

	return entries, nil
}

// NopAudit discards audit entries. It is used when no database is configured.
type NopAudit struct{}

// Record does nothing.
func (NopAudit) Record(context.Context, *model.ActionAudit) error { return nil }
