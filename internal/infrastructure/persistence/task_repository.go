package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/domain/tasking"
	"github.com/taskprod/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository implements TaskRepository using GORM
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GormTaskRepository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormTaskRepository) WithTx(tx *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: tx}
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id uuid.UUID, opts shared.FindOptions) (*tasking.Task, error) {
	var model models.TaskModel
	query := applyNotDeleted(r.db.WithContext(ctx), opts.IncludeDeleted)
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds all tasks matching the filter
func (r *GormTaskRepository) FindAll(ctx context.Context, filter shared.Filter) ([]tasking.Task, error) {
	var rows []models.TaskModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.TaskModel{}), filter)
	query = applyPagination(applyOrdering(query, filter, TaskSortFields), filter)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTasks(rows), nil
}

// Count counts tasks matching the filter
func (r *GormTaskRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.TaskModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindDueBetween returns non-deleted tasks in statuses due within [from, to]
func (r *GormTaskRepository) FindDueBetween(ctx context.Context, from, to time.Time, statuses []tasking.TaskStatus) ([]tasking.Task, error) {
	var rows []models.TaskModel
	query := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Where("due_date >= ? AND due_date <= ?", from.UTC(), to.UTC())
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if err := query.Order("due_date ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTasks(rows), nil
}

// Create inserts a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *tasking.Task) error {
	model := models.TaskModelFromDomain(task)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Modify loads the task under a row lock, applies fn and saves the result
func (r *GormTaskRepository) Modify(ctx context.Context, id uuid.UUID, opts shared.FindOptions, fn func(*tasking.Task) error) (*tasking.Task, error) {
	var updated *tasking.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.TaskModel
		query := applyNotDeleted(forUpdate(tx), opts.IncludeDeleted)
		if err := query.First(&model, "id = ?", id).Error; err != nil {
			return translateError(err)
		}

		task := model.ToDomain()
		if err := fn(task); err != nil {
			return err
		}
		task.IncrementVersion()

		if err := tx.Omit(clause.Associations).Save(models.TaskModelFromDomain(task)).Error; err != nil {
			return translateError(err)
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *GormTaskRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = applyNotDeleted(query, filter.IncludeDeleted)
	query = applySearch(query, filter.Search, "title", "description")

	for key, value := range filter.Filters {
		switch key {
		case tasking.FilterStatus:
			query = query.Where("status = ?", value)
		case tasking.FilterProduct:
			query = query.Where("product_id = ?", value)
		case tasking.FilterAssignedUser, tasking.FilterOwner:
			query = query.Where("assigned_user_id = ?", value)
		}
	}

	return query
}

func toTasks(rows []models.TaskModel) []tasking.Task {
	tasks := make([]tasking.Task, len(rows))
	for i := range rows {
		tasks[i] = *rows[i].ToDomain()
	}
	return tasks
}

// Ensure GormTaskRepository implements TaskRepository
var _ tasking.TaskRepository = (*GormTaskRepository)(nil)
