package tasking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/authz"
	"github.com/taskprod/backend/internal/domain/catalog"
	"github.com/taskprod/backend/internal/domain/identity"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/domain/tasking"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// TaskService handles task operations. Tasks outside the actor's scope
// are reported as not found.
type TaskService struct {
	taskRepo    tasking.TaskRepository
	productRepo catalog.ProductRepository
	userRepo    identity.UserRepository
	publisher   shared.EventPublisher
	now         func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo tasking.TaskRepository,
	productRepo catalog.ProductRepository,
	userRepo identity.UserRepository,
	publisher shared.EventPublisher,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		now:         shared.Now,
	}
}

// Create creates a task. Any authenticated actor may assign it to any
// active user.
func (s *TaskService) Create(ctx context.Context, actor authz.Actor, req CreateTaskRequest) (*TaskResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCreate, authz.Collection(authz.ResourceTask)); err != nil {
		return nil, err
	}

	verr := &shared.ValidationError{}
	if req.ProductID != uuid.Nil {
		if err := s.checkProduct(ctx, req.ProductID, verr); err != nil {
			return nil, err
		}
	}
	if req.AssignedUserID != uuid.Nil {
		if err := s.checkAssignee(ctx, req.AssignedUserID, verr); err != nil {
			return nil, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	task, err := tasking.NewTask(actor.UserID, tasking.NewTaskInput{
		ProductID:      req.ProductID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		AssignedUserID: req.AssignedUserID,
		DueDate:        req.DueDate,
	}, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	s.publish(ctx, task)

	resp := ToTaskResponse(task)
	return &resp, nil
}

// GetByID retrieves a task visible to the actor
func (s *TaskService) GetByID(ctx context.Context, actor authz.Actor, id uuid.UUID) (*TaskResponse, error) {
	if !actor.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}

	task, err := s.taskRepo.FindByID(ctx, id, shared.FindOptions{})
	if err != nil {
		return nil, err
	}
	if err := visible(actor, authz.ActionRetrieve, task); err != nil {
		return nil, err
	}

	resp := ToTaskResponse(task)
	return &resp, nil
}

// List returns non-deleted tasks. Non-staff actors only ever see their
// own tasks, whatever the other filters say.
func (s *TaskService) List(ctx context.Context, actor authz.Actor, filter TaskListFilter) (*shared.Paginated[TaskResponse], error) {
	if err := authz.Authorize(actor, authz.ActionList, authz.Collection(authz.ResourceTask)); err != nil {
		return nil, err
	}

	domainFilter := shared.NewListFilter(filter.Page, filter.PageSize, filter.Search, filter.Ordering)
	if owner := authz.OwnerScope(actor); owner != nil {
		domainFilter.Filters[tasking.FilterOwner] = *owner
	}
	if filter.Status != "" {
		status := tasking.TaskStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.NewValidationError("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", filter.Status))
		}
		domainFilter.Filters[tasking.FilterStatus] = status
	}
	if filter.ProductID != nil {
		domainFilter.Filters[tasking.FilterProduct] = *filter.ProductID
	}
	if filter.AssignedUserID != nil {
		domainFilter.Filters[tasking.FilterAssignedUser] = *filter.AssignedUserID
	}

	tasks, err := s.taskRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.taskRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToTaskResponses(tasks), total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// Update applies a partial update. A due_date in the request must lie in
// the future.
func (s *TaskService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, req UpdateTaskRequest) (*TaskResponse, error) {
	if !actor.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}

	verr := &shared.ValidationError{}
	if req.ProductID != nil {
		if err := s.checkProduct(ctx, *req.ProductID, verr); err != nil {
			return nil, err
		}
	}
	if req.AssignedUserID != nil {
		if err := s.checkAssignee(ctx, *req.AssignedUserID, verr); err != nil {
			return nil, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	task, err := s.taskRepo.Modify(ctx, id, shared.FindOptions{}, func(t *tasking.Task) error {
		if err := visible(actor, authz.ActionUpdate, t); err != nil {
			return err
		}

		verr := &shared.ValidationError{}
		if req.Title != nil || req.Description != nil {
			title, description := t.Title, t.Description
			if req.Title != nil {
				title = *req.Title
			}
			if req.Description != nil {
				description = *req.Description
			}
			collect(verr, t.Rename(title, description))
		}
		if req.Status != nil {
			collect(verr, t.SetStatus(*req.Status))
		}
		if req.DueDate != nil {
			collect(verr, t.Reschedule(*req.DueDate, now))
		}
		if req.ProductID != nil {
			collect(verr, t.MoveToProduct(*req.ProductID))
		}
		if req.AssignedUserID != nil {
			collect(verr, t.Reassign(*req.AssignedUserID))
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		t.MarkChanged(actor.UserID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, task)

	resp := ToTaskResponse(task)
	return &resp, nil
}

// SoftDelete hides a task. Deleting an already deleted task succeeds.
func (s *TaskService) SoftDelete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !actor.IsAuthenticated() {
		return shared.ErrUnauthorized
	}

	task, err := s.taskRepo.Modify(ctx, id, shared.FindOptions{IncludeDeleted: true}, func(t *tasking.Task) error {
		if err := visible(actor, authz.ActionSoftDelete, t); err != nil {
			return err
		}
		t.SoftDelete(actor.UserID)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, task)
	return nil
}

// Restore brings back a soft-deleted task. Staff only.
func (s *TaskService) Restore(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := authz.Authorize(actor, authz.ActionRestore, authz.Collection(authz.ResourceTask)); err != nil {
		return err
	}

	task, err := s.taskRepo.Modify(ctx, id, shared.FindOptions{IncludeDeleted: true}, func(t *tasking.Task) error {
		t.Restore(actor.UserID)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, task)
	return nil
}

// visible hides tasks the actor may not act on behind ErrNotFound
func visible(actor authz.Actor, action authz.Action, task *tasking.Task) error {
	if authz.Decide(actor, action, authz.Owned(authz.ResourceTask, task.AssignedUserID)) == authz.Deny {
		return shared.ErrNotFound
	}
	return nil
}

func (s *TaskService) checkProduct(ctx context.Context, productID uuid.UUID, verr *shared.ValidationError) error {
	if _, err := s.productRepo.FindByID(ctx, productID, shared.FindOptions{}); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			verr.Add("product", invalidPK(productID))
			return nil
		}
		return err
	}
	return nil
}

func (s *TaskService) checkAssignee(ctx context.Context, userID uuid.UUID, verr *shared.ValidationError) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			verr.Add("assigned_user", invalidPK(userID))
			return nil
		}
		return err
	}
	if !user.IsActive {
		verr.Add("assigned_user", invalidPK(userID))
	}
	return nil
}

func (s *TaskService) publish(ctx context.Context, task *tasking.Task) {
	if err := shared.PublishAndClear(ctx, s.publisher, task); err != nil {
		logger.L(ctx).Error("Failed to publish task events",
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
	}
}

func invalidPK(id uuid.UUID) string {
	return fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", id)
}

func collect(verr *shared.ValidationError, err error) {
	if err == nil {
		return
	}
	var fe *shared.ValidationError
	if errors.As(err, &fe) {
		verr.Fields = append(verr.Fields, fe.Fields...)
		return
	}
	verr.Add("non_field_errors", err.Error())
}
