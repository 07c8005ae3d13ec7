package tasking

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/shared"
)

// AggregateTypeTask names the task aggregate in events and decisions
const AggregateTypeTask = "task"

// MaxTitleLength is the longest accepted task title
const MaxTitleLength = 255

// TaskStatus is the progress state of a task. Any value may follow any other.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "inprogress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// IsValid reports whether s is a known status
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// OpenStatuses are the statuses that still receive reminders
func OpenStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusPending, TaskStatusInProgress}
}

// Task is a unit of work on a product, owned by its assigned user.
// Tasks carry no is_active flag and no created_by/updated_by stamps.
type Task struct {
	shared.BaseAggregateRoot
	ProductID      uuid.UUID
	Title          string
	Description    string
	Status         TaskStatus
	AssignedUserID uuid.UUID
	DueDate        time.Time
	IsDeleted      bool
}

// NewTaskInput carries the fields of a new task
type NewTaskInput struct {
	ProductID      uuid.UUID
	Title          string
	Description    string
	Status         TaskStatus
	AssignedUserID uuid.UUID
	DueDate        time.Time
}

// NewTask creates a task. now is the submission time the due date is checked against.
func NewTask(actorID uuid.UUID, in NewTaskInput, now time.Time) (*Task, error) {
	if in.Status == "" {
		in.Status = TaskStatusPending
	}
	title := strings.TrimSpace(in.Title)

	verr := &shared.ValidationError{}
	if in.ProductID == uuid.Nil {
		verr.Add("product", "This field is required")
	}
	if in.AssignedUserID == uuid.Nil {
		verr.Add("assigned_user", "This field is required")
	}
	appendFieldErrors(verr, validateTitle(title))
	appendFieldErrors(verr, validateStatus(in.Status))
	appendFieldErrors(verr, ValidateDueDate(in.DueDate, now))
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	task := &Task{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         in.ProductID,
		Title:             title,
		Description:       in.Description,
		Status:            in.Status,
		AssignedUserID:    in.AssignedUserID,
		DueDate:           in.DueDate.UTC(),
	}
	task.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeTask, shared.TransitionCreated, task.ID, actorID))
	return task, nil
}

// Rename changes title and description
func (t *Task) Rename(title, description string) error {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return err
	}
	t.Title = title
	t.Description = description
	t.Touch()
	return nil
}

// SetStatus changes the status without any transition rules
func (t *Task) SetStatus(status TaskStatus) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	t.Status = status
	t.Touch()
	return nil
}

// Reschedule sets a new due date, which must lie after now
func (t *Task) Reschedule(dueDate, now time.Time) error {
	if err := ValidateDueDate(dueDate, now); err != nil {
		return err
	}
	t.DueDate = dueDate.UTC()
	t.Touch()
	return nil
}

// Reassign hands the task to another user
func (t *Task) Reassign(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewValidationError("assigned_user", "This field is required")
	}
	t.AssignedUserID = userID
	t.Touch()
	return nil
}

// MoveToProduct attaches the task to another product
func (t *Task) MoveToProduct(productID uuid.UUID) error {
	if productID == uuid.Nil {
		return shared.NewValidationError("product", "This field is required")
	}
	t.ProductID = productID
	t.Touch()
	return nil
}

// SoftDelete hides the task. Returns false when it was already deleted.
func (t *Task) SoftDelete(actorID uuid.UUID) bool {
	if t.IsDeleted {
		return false
	}
	t.IsDeleted = true
	t.Touch()
	t.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeTask, shared.TransitionSoftDeleted, t.ID, actorID))
	return true
}

// Restore reverses SoftDelete. Returns false when the task was not deleted.
func (t *Task) Restore(actorID uuid.UUID) bool {
	if !t.IsDeleted {
		return false
	}
	t.IsDeleted = false
	t.Touch()
	t.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeTask, shared.TransitionRestored, t.ID, actorID))
	return true
}

// MarkChanged records an update event once all field changes are applied
func (t *Task) MarkChanged(actorID uuid.UUID) {
	t.AddDomainEvent(shared.NewLifecycleEvent(AggregateTypeTask, shared.TransitionUpdated, t.ID, actorID))
}

// IsOwnedBy reports whether userID is the assigned user
func (t *Task) IsOwnedBy(userID uuid.UUID) bool {
	return t.AssignedUserID == userID
}

// IsReminderEligible reports whether a reminder may still be sent
func (t *Task) IsReminderEligible() bool {
	return !t.IsDeleted && t.Status != TaskStatusCompleted
}

// ValidateDueDate rejects due dates that are not strictly after now
func ValidateDueDate(dueDate, now time.Time) error {
	if dueDate.IsZero() {
		return shared.NewValidationError("due_date", "This field is required")
	}
	if !dueDate.After(now) {
		return shared.NewValidationError("due_date", "due_date must be in the future.")
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return shared.NewValidationError("title", "This field may not be blank")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return shared.NewValidationError("title", "Ensure this field has no more than 255 characters")
	}
	return nil
}

func validateStatus(status TaskStatus) error {
	if !status.IsValid() {
		return shared.NewValidationError("status", "\""+string(status)+"\" is not a valid choice.")
	}
	return nil
}

func appendFieldErrors(verr *shared.ValidationError, err error) {
	if fe, ok := err.(*shared.ValidationError); ok {
		verr.Fields = append(verr.Fields, fe.Fields...)
	}
}
