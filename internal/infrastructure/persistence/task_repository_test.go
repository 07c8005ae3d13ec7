package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/domain/tasking"
)

func TestGormTaskRepository_OwnerScopeAndDefaultOrdering(t *testing.T) {
	db := newTestDatabase(t)
	admin := seedUser(t, db.DB, "admin")
	alice := seedUser(t, db.DB, "alice")
	bob := seedUser(t, db.DB, "bob")
	category := seedCategory(t, db.DB, admin.ID, "Tools", nil)
	product := seedProduct(t, db.DB, admin.ID, category.ID, "Saw", "10.00")
	repo := NewGormTaskRepository(db.DB)
	ctx := context.Background()

	base := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	late := seedTask(t, db.DB, alice.ID, product.ID, "late", base.Add(2*time.Hour))
	early := seedTask(t, db.DB, alice.ID, product.ID, "early", base)
	seedTask(t, db.DB, bob.ID, product.ID, "bobs", base.Add(time.Hour))

	filter := shared.DefaultFilter()
	filter.OrderBy, filter.OrderDir = "", ""
	filter.Filters[tasking.FilterOwner] = alice.ID
	got, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID)
	assert.Equal(t, late.ID, got[1].ID)

	// an assigned_user filter cannot widen the owner scope
	filter.Filters[tasking.FilterAssignedUser] = bob.ID
	got, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGormTaskRepository_FindDueBetween(t *testing.T) {
	db := newTestDatabase(t)
	admin := seedUser(t, db.DB, "admin")
	alice := seedUser(t, db.DB, "alice")
	category := seedCategory(t, db.DB, admin.ID, "Tools", nil)
	product := seedProduct(t, db.DB, admin.ID, category.ID, "Saw", "10.00")
	repo := NewGormTaskRepository(db.DB)
	ctx := context.Background()

	target := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	inWindow := seedTask(t, db.DB, alice.ID, product.ID, "in window", target)
	seedTask(t, db.DB, alice.ID, product.ID, "too late", target.Add(10*time.Minute))
	done := seedTask(t, db.DB, alice.ID, product.ID, "done", target.Add(30*time.Second))
	deleted := seedTask(t, db.DB, alice.ID, product.ID, "deleted", target.Add(-30*time.Second))

	_, err := repo.Modify(ctx, done.ID, shared.FindOptions{}, func(task *tasking.Task) error {
		return task.SetStatus(tasking.TaskStatusCompleted)
	})
	require.NoError(t, err)
	_, err = repo.Modify(ctx, deleted.ID, shared.FindOptions{}, func(task *tasking.Task) error {
		task.SoftDelete(alice.ID)
		return nil
	})
	require.NoError(t, err)

	got, err := repo.FindDueBetween(ctx, target.Add(-time.Minute), target.Add(time.Minute), tasking.OpenStatuses())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inWindow.ID, got[0].ID)
	assert.True(t, target.Equal(got[0].DueDate))
}

func TestGormTaskRepository_StatusFilterAndSearch(t *testing.T) {
	db := newTestDatabase(t)
	admin := seedUser(t, db.DB, "admin")
	alice := seedUser(t, db.DB, "alice")
	category := seedCategory(t, db.DB, admin.ID, "Tools", nil)
	product := seedProduct(t, db.DB, admin.ID, category.ID, "Saw", "10.00")
	repo := NewGormTaskRepository(db.DB)
	ctx := context.Background()

	due := time.Now().UTC().Add(24 * time.Hour)
	sharpen := seedTask(t, db.DB, alice.ID, product.ID, "Sharpen blade", due)
	seedTask(t, db.DB, alice.ID, product.ID, "Oil hinge", due)

	_, err := repo.Modify(ctx, sharpen.ID, shared.FindOptions{}, func(task *tasking.Task) error {
		return task.SetStatus(tasking.TaskStatusInProgress)
	})
	require.NoError(t, err)

	filter := shared.DefaultFilter()
	filter.Filters[tasking.FilterStatus] = tasking.TaskStatusInProgress
	got, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sharpen.ID, got[0].ID)

	filter = shared.DefaultFilter()
	filter.Search = "hinge"
	got, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Oil hinge", got[0].Title)
}
