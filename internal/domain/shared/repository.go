package shared

import "context"

// Filter is the paging and ordering part of every listing query. OrderBy is
// checked against a per-entity whitelist before it reaches SQL.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// DefaultFilter lists the newest rows first, twenty per page
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// Offset returns the row offset for the current page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Paginated is one page of results plus the total row count
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// SequenceKind names an independent human readable numbering series
type SequenceKind string

const (
	SequenceMovement    SequenceKind = "MVT"
	SequenceLot         SequenceKind = "LOT"
	SequenceReservation SequenceKind = "RES"
	SequenceTransfer    SequenceKind = "TRF"
	SequenceInventory   SequenceKind = "INV"
)

// SequenceGenerator hands out collision free references such as MVT-2026-000042.
// Implementations must be safe for concurrent callers.
type SequenceGenerator interface {
	Next(ctx context.Context, kind SequenceKind) (string, error)
}
