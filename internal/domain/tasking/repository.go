package tasking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/shared"
)

// Filter keys understood by TaskRepository.FindAll
const (
	FilterStatus       = "status"
	FilterProduct      = "product"
	FilterAssignedUser = "assigned_user"
	// FilterOwner carries the actor scope and is applied on top of any
	// assigned_user filter
	FilterOwner = "owner"
)

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	// FindByID finds a task by its ID
	FindByID(ctx context.Context, id uuid.UUID, opts shared.FindOptions) (*Task, error)

	// FindAll finds tasks matching the filter. An owner entry in
	// filter.Filters restricts the result to that user's tasks.
	FindAll(ctx context.Context, filter shared.Filter) ([]Task, error)

	// Count counts tasks matching the filter, ignoring pagination
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindDueBetween returns non-deleted tasks in one of statuses whose due
	// date lies within [from, to]
	FindDueBetween(ctx context.Context, from, to time.Time, statuses []TaskStatus) ([]Task, error)

	// Create inserts a new task
	Create(ctx context.Context, task *Task) error

	// Modify loads the task under a row lock, applies fn and saves it
	Modify(ctx context.Context, id uuid.UUID, opts shared.FindOptions, fn func(*Task) error) (*Task, error)
}
