package tasking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/taskprod/backend/internal/domain/authz"
	"github.com/taskprod/backend/internal/domain/catalog"
	"github.com/taskprod/backend/internal/domain/identity"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/domain/tasking"
)

var (
	fixedNow    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	liveOnly    = shared.FindOptions{}
	withDeleted = shared.FindOptions{IncludeDeleted: true}
)

type taskFixture struct {
	tasks    *MockTaskRepository
	products *MockProductRepository
	users    *MockUserRepository
	service  *TaskService
}

func newTaskFixture() *taskFixture {
	f := &taskFixture{
		tasks:    new(MockTaskRepository),
		products: new(MockProductRepository),
		users:    new(MockUserRepository),
	}
	f.service = NewTaskService(f.tasks, f.products, f.users, nil)
	f.service.now = func() time.Time { return fixedNow }
	return f
}

func newUser(isStaff bool) *identity.User {
	return &identity.User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          "user-" + uuid.NewString()[:8],
		Email:             "u@example.com",
		IsStaff:           isStaff,
		IsActive:          true,
	}
}

func actorFor(u *identity.User) authz.Actor {
	return authz.Actor{UserID: u.ID, IsStaff: u.IsStaff}
}

func newProduct(t *testing.T) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(uuid.New(), uuid.New(), "Hammer", decimal.RequireFromString("9.99"), 5, "")
	require.NoError(t, err)
	return p
}

func newTask(t *testing.T, productID, ownerID uuid.UUID) *tasking.Task {
	t.Helper()
	task, err := tasking.NewTask(ownerID, tasking.NewTaskInput{
		ProductID:      productID,
		Title:          "Restock",
		AssignedUserID: ownerID,
		DueDate:        fixedNow.Add(24 * time.Hour),
	}, fixedNow)
	require.NoError(t, err)
	task.ClearDomainEvents()
	return task
}

func TestTaskService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("regular user may assign to someone else", func(t *testing.T) {
		f := newTaskFixture()
		creator, assignee := newUser(false), newUser(false)
		product := newProduct(t)
		f.products.On("FindByID", ctx, product.ID, liveOnly).Return(product, nil)
		f.users.On("FindByID", ctx, assignee.ID).Return(assignee, nil)
		f.tasks.On("Create", ctx, mock.AnythingOfType("*tasking.Task")).Return(nil)

		resp, err := f.service.Create(ctx, actorFor(creator), CreateTaskRequest{
			ProductID:      product.ID,
			Title:          "Restock",
			AssignedUserID: assignee.ID,
			DueDate:        fixedNow.Add(24 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, assignee.ID, resp.AssignedUserID)
		assert.Equal(t, tasking.TaskStatusPending, resp.Status)
	})

	t.Run("due date must be in the future", func(t *testing.T) {
		f := newTaskFixture()
		owner := newUser(false)
		product := newProduct(t)
		f.products.On("FindByID", ctx, product.ID, liveOnly).Return(product, nil)
		f.users.On("FindByID", ctx, owner.ID).Return(owner, nil)

		for _, due := range []time.Time{fixedNow, fixedNow.Add(-time.Minute)} {
			_, err := f.service.Create(ctx, actorFor(owner), CreateTaskRequest{
				ProductID: product.ID, Title: "Restock", AssignedUserID: owner.ID, DueDate: due,
			})
			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "due_date", verr.Fields[0].Field)
		}
		f.tasks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("deleted product and inactive assignee", func(t *testing.T) {
		f := newTaskFixture()
		owner := newUser(false)
		inactive := newUser(false)
		inactive.IsActive = false
		productID := uuid.New()
		f.products.On("FindByID", ctx, productID, liveOnly).Return(nil, shared.ErrNotFound)
		f.users.On("FindByID", ctx, inactive.ID).Return(inactive, nil)

		_, err := f.service.Create(ctx, actorFor(owner), CreateTaskRequest{
			ProductID: productID, Title: "Restock", AssignedUserID: inactive.ID, DueDate: fixedNow.Add(time.Hour),
		})
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 2)
		assert.Equal(t, "product", verr.Fields[0].Field)
		assert.Equal(t, "assigned_user", verr.Fields[1].Field)
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newTaskFixture()
		_, err := f.service.Create(ctx, authz.Actor{}, CreateTaskRequest{})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}

func TestTaskService_List_ScopesNonStaff(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture()
	alice, bob := newUser(false), newUser(false)

	// bob asks for alice's tasks; the owner scope still applies
	scoped := mock.MatchedBy(func(filter shared.Filter) bool {
		return filter.Filters[tasking.FilterOwner] == bob.ID &&
			filter.Filters[tasking.FilterAssignedUser] == alice.ID
	})
	f.tasks.On("FindAll", ctx, scoped).Return([]tasking.Task{}, nil)
	f.tasks.On("Count", ctx, scoped).Return(int64(0), nil)

	page, err := f.service.List(ctx, actorFor(bob), TaskListFilter{AssignedUserID: &alice.ID})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	f.tasks.AssertExpectations(t)
}

func TestTaskService_List_StaffSeesAll(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture()
	admin := newUser(true)
	task := newTask(t, uuid.New(), uuid.New())

	unscoped := mock.MatchedBy(func(filter shared.Filter) bool {
		_, scoped := filter.Filters[tasking.FilterOwner]
		return !scoped && filter.Filters[tasking.FilterStatus] == tasking.TaskStatusPending
	})
	f.tasks.On("FindAll", ctx, unscoped).Return([]tasking.Task{*task}, nil)
	f.tasks.On("Count", ctx, unscoped).Return(int64(1), nil)

	page, err := f.service.List(ctx, actorFor(admin), TaskListFilter{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = f.service.List(ctx, actorFor(admin), TaskListFilter{Status: "done"})
	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTaskService_GetByID(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture()
	owner, other, admin := newUser(false), newUser(false), newUser(true)
	task := newTask(t, uuid.New(), owner.ID)
	f.tasks.On("FindByID", ctx, task.ID, liveOnly).Return(task, nil)

	_, err := f.service.GetByID(ctx, actorFor(owner), task.ID)
	assert.NoError(t, err)

	_, err = f.service.GetByID(ctx, actorFor(other), task.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "foreign tasks look absent")

	_, err = f.service.GetByID(ctx, actorFor(admin), task.ID)
	assert.NoError(t, err)
}

func TestTaskService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("owner changes status", func(t *testing.T) {
		f := newTaskFixture()
		owner := newUser(false)
		task := newTask(t, uuid.New(), owner.ID)
		f.tasks.On("Modify", ctx, task.ID, liveOnly).Return(task, nil)

		status := tasking.TaskStatusCompleted
		resp, err := f.service.Update(ctx, actorFor(owner), task.ID, UpdateTaskRequest{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, tasking.TaskStatusCompleted, resp.Status)
		assert.Equal(t, "Restock", resp.Title)
	})

	t.Run("non-owner gets not found", func(t *testing.T) {
		f := newTaskFixture()
		owner, other := newUser(false), newUser(false)
		task := newTask(t, uuid.New(), owner.ID)
		f.tasks.On("Modify", ctx, task.ID, liveOnly).Return(task, nil)

		title := "Hijack"
		_, err := f.service.Update(ctx, actorFor(other), task.ID, UpdateTaskRequest{Title: &title})
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, "Restock", task.Title)
	})

	t.Run("due date is re-checked", func(t *testing.T) {
		f := newTaskFixture()
		owner := newUser(false)
		task := newTask(t, uuid.New(), owner.ID)
		f.tasks.On("Modify", ctx, task.ID, liveOnly).Return(task, nil)

		past := fixedNow.Add(-time.Hour)
		_, err := f.service.Update(ctx, actorFor(owner), task.ID, UpdateTaskRequest{DueDate: &past})
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "due_date", verr.Fields[0].Field)
	})
}

func TestTaskService_SoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture()
	owner, other, admin := newUser(false), newUser(false), newUser(true)
	task := newTask(t, uuid.New(), owner.ID)
	f.tasks.On("Modify", ctx, task.ID, withDeleted).Return(task, nil)

	assert.ErrorIs(t, f.service.SoftDelete(ctx, actorFor(other), task.ID), shared.ErrNotFound)
	assert.False(t, task.IsDeleted)

	require.NoError(t, f.service.SoftDelete(ctx, actorFor(owner), task.ID))
	assert.True(t, task.IsDeleted)
	require.NoError(t, f.service.SoftDelete(ctx, actorFor(owner), task.ID))

	assert.ErrorIs(t, f.service.Restore(ctx, actorFor(owner), task.ID), shared.ErrForbidden)

	require.NoError(t, f.service.Restore(ctx, actorFor(admin), task.ID))
	assert.False(t, task.IsDeleted)
}
