package models

import (
	"time"

	"github.com/taskprod/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity.
// Email is nullable so that many accounts may leave it blank while
// present addresses stay unique.
type UserModel struct {
	AggregateModel
	Username     string     `gorm:"type:varchar(150);not null;uniqueIndex:idx_users_username"`
	Email        *string    `gorm:"type:varchar(254);uniqueIndex:idx_users_email"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	FirstName    string     `gorm:"type:varchar(150);not null"`
	LastName     string     `gorm:"type:varchar(150);not null"`
	IsStaff      bool       `gorm:"not null"`
	IsActive     bool       `gorm:"not null"`
	LastLoginAt  *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	user := &identity.User{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Username:          m.Username,
		PasswordHash:      m.PasswordHash,
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		IsStaff:           m.IsStaff,
		IsActive:          m.IsActive,
	}
	if m.Email != nil {
		user.Email = *m.Email
	}
	if m.LastLoginAt != nil {
		t := m.LastLoginAt.UTC()
		user.LastLoginAt = &t
	}
	return user
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Username = u.Username
	m.Email = nil
	if u.Email != "" {
		email := u.Email
		m.Email = &email
	}
	m.PasswordHash = u.PasswordHash
	m.FirstName = u.FirstName
	m.LastName = u.LastName
	m.IsStaff = u.IsStaff
	m.IsActive = u.IsActive
	m.LastLoginAt = u.LastLoginAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
