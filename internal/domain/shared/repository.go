package shared

import "strings"

// Filter represents query filter options for list reads.
// IncludeDeleted must be set explicitly to see soft-deleted rows.
type Filter struct {
	Page           int
	PageSize       int
	OrderBy        string
	OrderDir       string
	Search         string
	Filters        map[string]interface{}
	IncludeDeleted bool
}

const (
	// DefaultPageSize is used when the caller does not ask for a size
	DefaultPageSize = 20
	// MaxPageSize caps page_size
	MaxPageSize = 100
)

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: DefaultPageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
}

// Normalize clamps pagination values into their allowed ranges
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.Filters == nil {
		f.Filters = make(map[string]interface{})
	}
}

// NewListFilter builds a normalized filter for a list request. An empty
// ordering leaves the repository default in place.
func NewListFilter(page, pageSize int, search, ordering string) Filter {
	f := Filter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(search),
	}
	f.ApplyOrdering(ordering)
	f.Normalize()
	return f
}

// ApplyOrdering reads an ordering parameter such as "-due_date".
// A leading "-" sorts descending.
func (f *Filter) ApplyOrdering(ordering string) {
	ordering = strings.TrimSpace(ordering)
	if ordering == "" {
		return
	}
	if field, ok := strings.CutPrefix(ordering, "-"); ok {
		f.OrderBy, f.OrderDir = field, "desc"
		return
	}
	f.OrderBy, f.OrderDir = ordering, "asc"
}

// Offset returns the row offset for the current page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// FindOptions controls single-record reads
type FindOptions struct {
	IncludeDeleted bool
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
