package persistence

import (
	"errors"

	"github.com/taskprod/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrReferenceNotFound is returned when a foreign key points at a missing row
var ErrReferenceNotFound = shared.NewDomainError("INVALID_INPUT", "Referenced resource does not exist")

// translateError maps driver-level errors onto domain errors. It relies on
// gorm's TranslateError so both dialects report the same sentinels.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrReferenceNotFound
	default:
		return err
	}
}

// forUpdate adds a row lock where the dialect supports it
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
