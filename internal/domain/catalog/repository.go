package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/shared"
)

// CategoryRepository defines the interface for category persistence.
// Reads hide soft-deleted rows unless the options ask for them.
type CategoryRepository interface {
	// FindByID finds a category by its ID
	FindByID(ctx context.Context, id uuid.UUID, opts shared.FindOptions) (*Category, error)

	// FindAll finds categories matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Category, error)

	// Count counts categories matching the filter, ignoring pagination
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindChildren finds the direct children of a category
	FindChildren(ctx context.Context, parentID uuid.UUID, opts shared.FindOptions) ([]Category, error)

	// Create inserts a new category
	Create(ctx context.Context, category *Category) error

	// Modify loads the category under a row lock, applies fn and saves the
	// result in the same transaction. An error from fn aborts the write.
	Modify(ctx context.Context, id uuid.UUID, opts shared.FindOptions, fn func(*Category) error) (*Category, error)
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID, opts shared.FindOptions) (*Product, error)

	// FindAll finds products matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// Count counts products matching the filter, ignoring pagination
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Create inserts a new product
	Create(ctx context.Context, product *Product) error

	// Modify loads the product under a row lock, applies fn and saves it
	Modify(ctx context.Context, id uuid.UUID, opts shared.FindOptions, fn func(*Product) error) (*Product, error)
}
