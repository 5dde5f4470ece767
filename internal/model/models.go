// Package model defines the data models for the transaction-queue console.
package model

import (
	"strings"
	"time"
)

// QueueType identifies the game-provider operation a queue record carries.
// The set is open-ended: unknown values are kept as-is.
type QueueType string

// Known queue types.
const (
	QueueTypeRecharge       QueueType = "recharge_game"
	QueueTypeRedeem         QueueType = "redeem_game"
	QueueTypeAddUser        QueueType = "add_user_game"
	QueueTypeCreate         QueueType = "create_game"
	QueueTypeChangePassword QueueType = "change_password_game"
)

var typeLabels = map[QueueType]string{
	QueueTypeRecharge:       "Recharge",
	QueueTypeRedeem:         "Redeem",
	QueueTypeAddUser:        "Add user",
	QueueTypeCreate:         "Create account",
	QueueTypeChangePassword: "Change password",
}

// Label returns the display name of the queue type.
func (t QueueType) Label() string {
	if label, ok := typeLabels[t]; ok {
		return label
	}
	if t == "" {
		return "Unknown"
	}
	return titleCase(string(t))
}

// QueueStatus is the backend-owned lifecycle state of a queue record.
type QueueStatus string

// Statuses reported by the backend.
const (
	StatusPending    QueueStatus = "pending"
	StatusProcessing QueueStatus = "processing"
	StatusCompleted  QueueStatus = "completed"
	StatusFailed     QueueStatus = "failed"
	StatusCancelled  QueueStatus = "cancelled"
)

var statusLabels = map[QueueStatus]string{
	StatusPending:    "Pending",
	StatusProcessing: "Processing",
	StatusCompleted:  "Completed",
	StatusFailed:     "Failed",
	StatusCancelled:  "Cancelled",
}

// Label returns the badge text shown for the status.
func (s QueueStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	if s == "" {
		return "Unknown"
	}
	return titleCase(string(s))
}

// TransactionQueue is a single pending or historical game-provider operation.
// Status and Data are owned by the backend; the console only ever replaces
// its local copy with what the backend returns.
type TransactionQueue struct {
	ID           int64       `json:"id"`
	Type         QueueType   `json:"type"`
	Status       QueueStatus `json:"status"`
	Amount       string      `json:"amount"`
	BonusAmount  string      `json:"bonus_amount"`
	UserID       int64       `json:"user_id"`
	UserUsername string      `json:"user_username"`
	UserEmail    string      `json:"user_email"`
	Game         string      `json:"game"`
	GameUsername string      `json:"game_username"`
	Data         QueueData   `json:"data"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// QueuePage is one page of the backend's paginated queue listing.
type QueuePage struct {
	Count    int                `json:"count"`
	Next     *string            `json:"next"`
	Previous *string            `json:"previous"`
	Results  []TransactionQueue `json:"results"`
}

// FilterKind selects which slice of the queue the console is looking at.
type FilterKind string

// Filter kinds accepted by the listing endpoint.
const (
	FilterProcessing FilterKind = "processing"
	FilterHistory    FilterKind = "history"
	FilterRecharge   FilterKind = FilterKind(QueueTypeRecharge)
	FilterRedeem     FilterKind = FilterKind(QueueTypeRedeem)
	FilterAddUser    FilterKind = FilterKind(QueueTypeAddUser)
)

// FilterKinds returns every filter kind in display order.
func FilterKinds() []FilterKind {
	return []FilterKind{FilterProcessing, FilterHistory, FilterRecharge, FilterRedeem, FilterAddUser}
}

// Label returns the display name of the filter.
func (k FilterKind) Label() string {
	switch k {
	case FilterProcessing:
		return "Processing"
	case FilterHistory:
		return "History"
	}
	return QueueType(k).Label()
}

// Valid reports whether k is one of the known filter kinds.
func (k FilterKind) Valid() bool {
	for _, known := range FilterKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// ListParams are the query parameters of a queue listing request.
type ListParams struct {
	Filter   FilterKind
	Page     int
	PageSize int
	Search   string
	Status   QueueStatus
	DateFrom string
	DateTo   string
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
