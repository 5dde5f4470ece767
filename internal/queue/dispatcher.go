package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"queuebot/internal/metrics"
	"queuebot/internal/model"
	"queuebot/internal/pkg/lock"
)

// Actioner sends an action to the backend and returns the updated record.
type Actioner interface {
	PerformAction(ctx context.Context, req model.ActionRequest) (*model.TransactionQueue, error)
}

// AuditRecorder stores one entry per action attempt.
type AuditRecorder interface {
	Record(ctx context.Context, entry *model.ActionAudit) error
}

// ActionCommand is an operator's request to act on one queue record.
type ActionCommand struct {
	QueueID    int64
	Kind       model.ActionKind
	Overrides  model.Overrides
	Confirmed  bool
	OperatorID int64
}

// Dispatcher validates and sends operator actions, then applies the
// backend's returned record to the store.
type Dispatcher struct {
	actioner Actioner
	store    *Store
	rows     *lock.KeyLock
	audit    AuditRecorder
}

// NewDispatcher creates a Dispatcher. rows may be shared between dispatchers
// so that one record is never acted on twice at once; audit may be nil.
func NewDispatcher(actioner Actioner, store *Store, rows *lock.KeyLock, audit AuditRecorder) *Dispatcher {
	if rows == nil {
		rows = lock.NewKeyLock()
	}
	return &Dispatcher{
		actioner: actioner,
		store:    store,
		rows:     rows,
		audit:    audit,
	}
}

// PerformAction sends cmd to the backend. Retry and cancel must be
// confirmed; complete must carry every override its queue type requires.
// Nothing is sent when validation fails, and a failed send is not retried.
func (d *Dispatcher) PerformAction(ctx context.Context, cmd ActionCommand) (*model.TransactionQueue, error) {
	req, err := d.prepare(cmd)
	if err != nil {
		d.record(ctx, cmd, model.OutcomeRejected, err)
		return nil, err
	}

	if !d.rows.TryLock(cmd.QueueID) {
		d.record(ctx, cmd, model.OutcomeRejected, ErrActionInFlight)
		return nil, ErrActionInFlight
	}
	defer d.rows.Unlock(cmd.QueueID)

	start := time.Now()
	rec, err := d.actioner.PerformAction(ctx, req)
	metrics.ActionLatency.WithLabelValues(string(cmd.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		d.record(ctx, cmd, model.OutcomeFailed, err)
		log.Warn().
			Err(err).
			Int64("queue_id", cmd.QueueID).
			Str("action", string(cmd.Kind)).
			Int64("operator_id", cmd.OperatorID).
			Msg("Queue action failed")
		return nil, fmt.Errorf("failed to %s queue %d: %w", cmd.Kind, cmd.QueueID, err)
	}

	d.record(ctx, cmd, model.OutcomeSuccess, nil)
	log.Info().
		Int64("queue_id", cmd.QueueID).
		Str("action", string(cmd.Kind)).
		Int64("operator_id", cmd.OperatorID).
		Str("status", string(rec.Status)).
		Msg("Queue action accepted")

	if rec.ID == 0 {
		rec.ID = cmd.QueueID
	}
	d.store.applyRecord(SourceAction, *rec)
	return rec, nil
}

// InFlight reports whether an action is currently being sent for id.
func (d *Dispatcher) InFlight(id int64) bool {
	return d.rows.IsLocked(id)
}

func (d *Dispatcher) prepare(cmd ActionCommand) (model.ActionRequest, error) {
	if !cmd.Kind.Valid() {
		return model.ActionRequest{}, fmt.Errorf("%w: %q", ErrInvalidAction, cmd.Kind)
	}
	if cmd.QueueID <= 0 {
		return model.ActionRequest{}, fmt.Errorf("%w: queue id %d", ErrInvalidAction, cmd.QueueID)
	}
	if cmd.Kind.NeedsConfirmation() && !cmd.Confirmed {
		return model.ActionRequest{}, ErrConfirmationRequired
	}

	if cmd.Kind != model.ActionComplete {
		return model.ActionRequest{TxnID: cmd.QueueID, Type: cmd.Kind}, nil
	}

	rec, ok := d.store.Get(cmd.QueueID)
	if !ok {
		return model.ActionRequest{}, ErrQueueNotVisible
	}
	if missing := MissingFields(rec.Type, cmd.Overrides); len(missing) > 0 {
		return model.ActionRequest{}, &MissingFieldsError{Type: rec.Type, Fields: missing}
	}
	return completeRequest(cmd.QueueID, rec.Type, cmd.Overrides), nil
}

func (d *Dispatcher) record(ctx context.Context, cmd ActionCommand, outcome model.AuditOutcome, cause error) {
	metrics.ActionsTotal.WithLabelValues(string(cmd.Kind), string(outcome)).Inc()
	if d.audit == nil {
		return
	}

	entry := &model.ActionAudit{
		QueueID:    cmd.QueueID,
		Action:     cmd.Kind,
		OperatorID: cmd.OperatorID,
		Outcome:    outcome,
	}
	if cause != nil {
		msg := cause.Error()
		entry.Error = &msg
	}

	if err := d.audit.Record(context.WithoutCancel(ctx), entry); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().
			Err(err).
			Int64("queue_id", cmd.QueueID).
			Str("action", string(cmd.Kind)).
			Msg("Failed to record action audit")
	}
}
