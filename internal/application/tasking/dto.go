package tasking

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/tasking"
)

// CreateTaskRequest represents a request to create a task
type CreateTaskRequest struct {
	ProductID      uuid.UUID          `json:"product" binding:"required"`
	Title          string             `json:"title" binding:"required,min=1,max=255"`
	Description    string             `json:"description"`
	Status         tasking.TaskStatus `json:"status" binding:"omitempty,oneof=pending inprogress completed"`
	AssignedUserID uuid.UUID          `json:"assigned_user" binding:"required"`
	DueDate        time.Time          `json:"due_date" binding:"required"`
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	ProductID      *uuid.UUID          `json:"product"`
	Title          *string             `json:"title" binding:"omitempty,min=1,max=255"`
	Description    *string             `json:"description"`
	Status         *tasking.TaskStatus `json:"status" binding:"omitempty,oneof=pending inprogress completed"`
	AssignedUserID *uuid.UUID          `json:"assigned_user"`
	DueDate        *time.Time          `json:"due_date"`
}

// TaskResponse represents a task in API responses
type TaskResponse struct {
	ID             uuid.UUID          `json:"id"`
	ProductID      uuid.UUID          `json:"product"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Status         tasking.TaskStatus `json:"status"`
	AssignedUserID uuid.UUID          `json:"assigned_user"`
	DueDate        time.Time          `json:"due_date"`
	IsDeleted      bool               `json:"is_deleted"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// TaskListFilter represents filter options for task list. The uuid filters
// come from the "product" and "assigned_user" query parameters.
type TaskListFilter struct {
	Search         string     `form:"search"`
	Status         string     `form:"status"`
	ProductID      *uuid.UUID `form:"-"`
	AssignedUserID *uuid.UUID `form:"-"`
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	Ordering       string     `form:"ordering"`
}

// ToTaskResponse converts a domain Task to TaskResponse
func ToTaskResponse(t *tasking.Task) TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		ProductID:      t.ProductID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		AssignedUserID: t.AssignedUserID,
		DueDate:        t.DueDate,
		IsDeleted:      t.IsDeleted,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// ToTaskResponses converts a slice of domain Tasks
func ToTaskResponses(tasks []tasking.Task) []TaskResponse {
	responses := make([]TaskResponse, len(tasks))
	for i := range tasks {
		responses[i] = ToTaskResponse(&tasks[i])
	}
	return responses
}
