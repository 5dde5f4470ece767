package model

// ViewState is the part of an operator's view that survives a restart.
type ViewState struct {
	Filter   FilterKind  `json:"filter"`
	Page     int         `json:"page"`
	Search   string      `json:"search,omitempty"`
	Status   QueueStatus `json:"status,omitempty"`
	DateFrom string      `json:"date_from,omitempty"`
	DateTo   string      `json:"date_to,omitempty"`
}
