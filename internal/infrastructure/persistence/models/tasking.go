package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/tasking"
)

// TaskModel is the persistence model for the Task domain entity.
// Tasks go with their product and with their assigned user.
type TaskModel struct {
	AggregateModel
	ProductID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	Product        *ProductModel      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Title          string             `gorm:"type:varchar(255);not null"`
	Description    string             `gorm:"type:text;not null"`
	Status         tasking.TaskStatus `gorm:"type:varchar(32);not null;index"`
	AssignedUserID uuid.UUID          `gorm:"type:uuid;not null;index"`
	AssignedUser   *UserModel         `gorm:"foreignKey:AssignedUserID;constraint:OnDelete:CASCADE"`
	DueDate        time.Time          `gorm:"not null;index"`
	IsDeleted      bool               `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (TaskModel) TableName() string {
	return "tasks"
}

// ToDomain converts the persistence model to a domain Task entity.
func (m *TaskModel) ToDomain() *tasking.Task {
	return &tasking.Task{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ProductID:         m.ProductID,
		Title:             m.Title,
		Description:       m.Description,
		Status:            m.Status,
		AssignedUserID:    m.AssignedUserID,
		DueDate:           m.DueDate.UTC(),
		IsDeleted:         m.IsDeleted,
	}
}

// FromDomain populates the persistence model from a domain Task entity.
func (m *TaskModel) FromDomain(t *tasking.Task) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.ProductID = t.ProductID
	m.Title = t.Title
	m.Description = t.Description
	m.Status = t.Status
	m.AssignedUserID = t.AssignedUserID
	m.DueDate = t.DueDate.UTC()
	m.IsDeleted = t.IsDeleted
}

// TaskModelFromDomain creates a new persistence model from a domain Task entity.
func TaskModelFromDomain(t *tasking.Task) *TaskModel {
	m := &TaskModel{}
	m.FromDomain(t)
	return m
}
