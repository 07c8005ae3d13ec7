package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/taskprod/backend/internal/domain/catalog"
	"github.com/taskprod/backend/internal/domain/identity"
	"github.com/taskprod/backend/internal/domain/tasking"
	"github.com/taskprod/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	identity.BcryptCost = 4
}

// newTestDatabase opens a migrated in-memory SQLite database
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newMockGormDB wraps sqlmock in a postgres dialector
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func seedUser(t *testing.T, db *gorm.DB, username string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(identity.NewUserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "Str0ng-passphrase!",
	}, identity.DefaultPasswordPolicy())
	require.NoError(t, err)
	require.NoError(t, NewGormUserRepository(db).Create(t.Context(), user))
	return user
}

func seedCategory(t *testing.T, db *gorm.DB, actor uuid.UUID, name string, parent *uuid.UUID) *catalog.Category {
	t.Helper()
	category, err := catalog.NewCategory(actor, name, name+" things", parent)
	require.NoError(t, err)
	require.NoError(t, NewGormCategoryRepository(db).Create(t.Context(), category))
	return category
}

func seedProduct(t *testing.T, db *gorm.DB, actor, categoryID uuid.UUID, name string, price string) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(actor, categoryID, name, decimal.RequireFromString(price), 5, "")
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db).Create(t.Context(), product))
	return product
}

func seedTask(t *testing.T, db *gorm.DB, owner, productID uuid.UUID, title string, due time.Time) *tasking.Task {
	t.Helper()
	task, err := tasking.NewTask(owner, tasking.NewTaskInput{
		ProductID:      productID,
		Title:          title,
		AssignedUserID: owner,
		DueDate:        due,
	}, due.Add(-24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, NewGormTaskRepository(db).Create(t.Context(), task))
	return task
}
