package model

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ActionKind is an operator-requested transition of a queue record.
type ActionKind string

// Actions understood by the backend action endpoint.
const (
	ActionRetry    ActionKind = "retry"
	ActionCancel   ActionKind = "cancel"
	ActionComplete ActionKind = "complete"
)

// Valid reports whether k is a known action.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionRetry, ActionCancel, ActionComplete:
		return true
	}
	return false
}

// NeedsConfirmation reports whether the operator must confirm the action
// with a yes/no prompt before it is sent.
func (k ActionKind) NeedsConfirmation() bool {
	return k == ActionRetry || k == ActionCancel
}

// OverrideField names an operator-supplied field of a complete action.
type OverrideField string

// Override fields.
const (
	FieldUsername OverrideField = "username"
	FieldPassword OverrideField = "password"
	FieldBalance  OverrideField = "balance"
)

// Overrides carries the optional values an operator enters when completing
// a queue record by hand.
type Overrides struct {
	Username string
	Password string
	Balance  string
}

// Value returns the override value for field, trimmed of surrounding space.
func (o Overrides) Value(field OverrideField) string {
	switch field {
	case FieldUsername:
		return strings.TrimSpace(o.Username)
	case FieldPassword:
		return strings.TrimSpace(o.Password)
	case FieldBalance:
		return strings.TrimSpace(o.Balance)
	}
	return ""
}

// ActionRequest is the body of the backend action endpoint.
type ActionRequest struct {
	TxnID       int64      `json:"txn_id" validate:"required,gt=0"`
	Type        ActionKind `json:"type" validate:"required,oneof=retry cancel complete"`
	NewPassword string     `json:"new_password,omitempty"`
	NewBalance  string     `json:"new_balance,omitempty"`
	NewUsername string     `json:"new_username,omitempty"`
}

var validate = validator.New()

// Validate checks the request shape before it goes on the wire.
func (r *ActionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid action request: %w", err)
	}
	return nil
}
