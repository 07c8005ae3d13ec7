package persistence

import (
	"strings"

	"github.com/taskprod/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns defaultDir (or DESC when that is empty) for invalid input.
func ValidateSortOrder(orderDir, defaultDir string) string {
	switch strings.ToUpper(strings.TrimSpace(orderDir)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	if strings.EqualFold(defaultDir, "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// SortSpec describes the orderable columns of one table
type SortSpec struct {
	Allowed      map[string]bool
	DefaultField string
	DefaultDir   string
}

// CategorySortFields contains allowed sort fields for categories
var CategorySortFields = SortSpec{
	Allowed: map[string]bool{
		"name":       true,
		"created_at": true,
		"updated_at": true,
	},
	DefaultField: "created_at",
	DefaultDir:   "desc",
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = SortSpec{
	Allowed: map[string]bool{
		"name":       true,
		"price":      true,
		"stock":      true,
		"created_at": true,
		"updated_at": true,
	},
	DefaultField: "created_at",
	DefaultDir:   "desc",
}

// TaskSortFields contains allowed sort fields for tasks
var TaskSortFields = SortSpec{
	Allowed: map[string]bool{
		"due_date":   true,
		"title":      true,
		"status":     true,
		"created_at": true,
		"updated_at": true,
	},
	DefaultField: "due_date",
	DefaultDir:   "asc",
}

// applyOrdering orders by the validated field with id as a tiebreaker so
// pages stay stable. Column names come only from the whitelist.
func applyOrdering(query *gorm.DB, filter shared.Filter, spec SortSpec) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, spec.Allowed, spec.DefaultField)
	dir := ValidateSortOrder(spec.DefaultDir, spec.DefaultDir)
	if field == strings.TrimSpace(filter.OrderBy) {
		dir = ValidateSortOrder(filter.OrderDir, spec.DefaultDir)
	}
	return query.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: field}, Desc: dir == "DESC"},
		{Column: clause.Column{Name: "id"}},
	}})
}

// applyPagination applies offset and limit for a normalized filter
func applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.PageSize <= 0 {
		return query
	}
	return query.Offset(filter.Offset()).Limit(filter.PageSize)
}

// applySearch adds a case-insensitive substring match over columns. It uses
// LOWER/LIKE so the same query runs on PostgreSQL and SQLite.
func applySearch(query *gorm.DB, search string, columns ...string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" || len(columns) == 0 {
		return query
	}
	pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
	conds := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, col := range columns {
		conds = append(conds, "LOWER("+col+") LIKE ? ESCAPE '\\'")
		args = append(args, pattern)
	}
	return query.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// applyNotDeleted hides soft-deleted rows unless asked otherwise
func applyNotDeleted(query *gorm.DB, includeDeleted bool) *gorm.DB {
	if includeDeleted {
		return query
	}
	return query.Where("is_deleted = ?", false)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
