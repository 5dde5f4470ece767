package model

import "github.com/shopspring/decimal"

// Pagination is the page navigation state derived from a listing response.
type Pagination struct {
	Page        int
	PageSize    int
	Count       int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// NewPagination computes navigation state for page of size pageSize.
// Next/previous availability follows the backend's links, not arithmetic.
func NewPagination(page, pageSize int, p *QueuePage) Pagination {
	pg := Pagination{Page: page, PageSize: pageSize}
	if p == nil {
		return pg
	}

	pg.Count = p.Count
	if pageSize > 0 && p.Count > 0 {
		pg.TotalPages = (p.Count + pageSize - 1) / pageSize
	}
	pg.HasNext = p.Next != nil && *p.Next != ""
	pg.HasPrevious = p.Previous != nil && *p.Previous != ""
	return pg
}

// FormatAmount renders a decimal-as-string money field with two places.
// Values that do not parse are returned unchanged.
func FormatAmount(s string) string {
	if s == "" {
		return "-"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.StringFixed(2)
}
