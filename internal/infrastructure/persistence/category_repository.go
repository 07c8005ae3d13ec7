package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/catalog"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCategoryRepository implements CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormCategoryRepository) WithTx(tx *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: tx}
}

// FindByID finds a category by its ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID, opts shared.FindOptions) (*catalog.Category, error) {
	var model models.CategoryModel
	query := applyNotDeleted(r.db.WithContext(ctx), opts.IncludeDeleted)
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds all categories matching the filter
func (r *GormCategoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Category, error) {
	var rows []models.CategoryModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CategoryModel{}), filter)
	query = applyPagination(applyOrdering(query, filter, CategorySortFields), filter)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	categories := make([]catalog.Category, len(rows))
	for i := range rows {
		categories[i] = *rows[i].ToDomain()
	}
	return categories, nil
}

// Count counts categories matching the filter
func (r *GormCategoryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CategoryModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindChildren finds all direct children of a category
func (r *GormCategoryRepository) FindChildren(ctx context.Context, parentID uuid.UUID, opts shared.FindOptions) ([]catalog.Category, error) {
	var rows []models.CategoryModel
	query := applyNotDeleted(r.db.WithContext(ctx), opts.IncludeDeleted)
	if err := query.
		Where("parent_id = ?", parentID).
		Order("name ASC").Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	children := make([]catalog.Category, len(rows))
	for i := range rows {
		children[i] = *rows[i].ToDomain()
	}
	return children, nil
}

// Create inserts a new category
func (r *GormCategoryRepository) Create(ctx context.Context, category *catalog.Category) error {
	model := models.CategoryModelFromDomain(category)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Modify loads the category under a row lock, applies fn and saves the result
func (r *GormCategoryRepository) Modify(ctx context.Context, id uuid.UUID, opts shared.FindOptions, fn func(*catalog.Category) error) (*catalog.Category, error) {
	var updated *catalog.Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.CategoryModel
		query := applyNotDeleted(forUpdate(tx), opts.IncludeDeleted)
		if err := query.First(&model, "id = ?", id).Error; err != nil {
			return translateError(err)
		}

		category := model.ToDomain()
		previousParent := category.ParentID
		if err := fn(category); err != nil {
			return err
		}
		if category.ParentID != nil && !sameParent(previousParent, category.ParentID) {
			if err := lockCategoryTree(tx); err != nil {
				return translateError(err)
			}
			if err := catalog.CheckAncestry(ctx, category.ID, *category.ParentID, categoryParentLookup(tx)); err != nil {
				return err
			}
		}
		category.IncrementVersion()

		if err := tx.Omit(clause.Associations).Save(models.CategoryModelFromDomain(category)).Error; err != nil {
			return translateError(err)
		}
		updated = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *GormCategoryRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = applyNotDeleted(query, filter.IncludeDeleted)
	query = applySearch(query, filter.Search, "name", "description")

	for key, value := range filter.Filters {
		switch key {
		case "parent":
			// nil selects root categories
			if value == nil {
				query = query.Where("parent_id IS NULL")
			} else {
				query = query.Where("parent_id = ?", value)
			}
		case "is_active":
			query = query.Where("is_active = ?", value)
		}
	}

	return query
}

// Ensure GormCategoryRepository implements CategoryRepository
var _ catalog.CategoryRepository = (*GormCategoryRepository)(nil)

// categoryTreeLockKey names the advisory lock that serializes parent moves
const categoryTreeLockKey int64 = 0x63617465676f7279

// lockCategoryTree holds the tree lock until the transaction ends, so two
// concurrent moves cannot both pass the ancestry walk. SQLite already
// serializes writers.
func lockCategoryTree(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", categoryTreeLockKey).Error
}

// categoryParentLookup reads parent links through tx, deleted rows included
func categoryParentLookup(tx *gorm.DB) catalog.ParentLookup {
	return func(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
		var model models.CategoryModel
		if err := tx.WithContext(ctx).Select("id", "parent_id").First(&model, "id = ?", id).Error; err != nil {
			return nil, translateError(err)
		}
		return model.ParentID, nil
	}
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
