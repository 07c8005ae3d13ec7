package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskprod/backend/internal/domain/identity"
	"github.com/taskprod/backend/internal/domain/shared"
)

func TestGormUserRepository_Lookups(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormUserRepository(db.DB)
	ctx := context.Background()

	alice := seedUser(t, db.DB, "Alice")

	byName, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byEmail, err := repo.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	exists, err := repo.ExistsByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(ctx, "")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindByEmail(ctx, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormUserRepository_DuplicateUsername(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormUserRepository(db.DB)

	seedUser(t, db.DB, "alice")

	dup, err := identity.NewUser(identity.NewUserInput{Username: "alice", Password: "Str0ng-passphrase!"}, identity.DefaultPasswordPolicy())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dup)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormUserRepository_BlankEmailsDoNotCollide(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormUserRepository(db.DB)
	policy := identity.DefaultPasswordPolicy()

	for _, name := range []string{"first", "second"} {
		user, err := identity.NewUser(identity.NewUserInput{Username: name, Password: "Str0ng-passphrase!"}, policy)
		require.NoError(t, err)
		require.NoError(t, repo.Create(context.Background(), user))
	}
}

func TestGormUserRepository_Update(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormUserRepository(db.DB)
	ctx := context.Background()

	alice := seedUser(t, db.DB, "alice")
	require.NoError(t, alice.SetPassword("An0ther-passphrase!", identity.DefaultPasswordPolicy()))
	alice.RecordLogin()
	require.NoError(t, repo.Update(ctx, alice))

	reloaded, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.VerifyPassword("An0ther-passphrase!"))
	assert.NotNil(t, reloaded.LastLoginAt)
	assert.Equal(t, 2, reloaded.Version)

	ghost := *alice
	ghost.ID = uuid.New()
	assert.ErrorIs(t, repo.Update(ctx, &ghost), shared.ErrNotFound)
}
