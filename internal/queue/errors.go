package queue

import (
	"errors"
	"fmt"
	"strings"

	"queuebot/internal/model"
)

// Common errors for queue view-model operations.
var (
	ErrInvalidFilter        = errors.New("invalid queue filter")
	ErrInvalidPage          = errors.New("page must be 1 or greater")
	ErrInvalidAction        = errors.New("invalid queue action")
	ErrConfirmationRequired = errors.New("action requires confirmation")
	ErrQueueNotVisible      = errors.New("queue record is not on the current page")
	ErrActionInFlight       = errors.New("an action is already in progress for this queue record")
	ErrMissingOverride      = errors.New("required field missing")
)

// MissingFieldsError lists the override fields a complete action lacks.
type MissingFieldsError struct {
	Type   model.QueueType
	Fields []model.OverrideField
}

func (e *MissingFieldsError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("%s: %s requires %s", ErrMissingOverride, e.Type, strings.Join(names, ", "))
}

func (e *MissingFieldsError) Unwrap() error {
	return ErrMissingOverride
}
