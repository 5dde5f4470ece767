package live

import (
	"encoding/json"
	"errors"
	"fmt"

	"queuebot/internal/model"
)

// MessageTypeQueueUpdate tags a push that carries a full queue record.
const MessageTypeQueueUpdate = "queue_update"

// ErrEmptyRecord is returned for a queue_update without a usable record.
var ErrEmptyRecord = errors.New("queue update carries no record id")

// Envelope is the frame shape the backend pushes.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a raw frame.
func DecodeEnvelope(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("failed to decode push frame: %w", err)
	}
	return &env, nil
}

// QueueRecord decodes the payload of a queue_update envelope.
func (e *Envelope) QueueRecord() (model.TransactionQueue, error) {
	var rec model.TransactionQueue
	if err := json.Unmarshal(e.Data, &rec); err != nil {
		return model.TransactionQueue{}, fmt.Errorf("failed to decode queue record: %w", err)
	}
	if rec.ID == 0 {
		return model.TransactionQueue{}, ErrEmptyRecord
	}
	return rec, nil
}
