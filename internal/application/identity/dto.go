package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/identity"
)

// RegisterInput contains the input for registration
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginInput contains the input for user login
type LoginInput struct {
	Username string
	Password string
	IP       string // Client IP for login tracking
}

// TokenResult carries an issued token pair
type TokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	TokenResult
	User UserInfo
}

// UserInfo is the public view of a user. The password hash never leaves
// the domain.
type UserInfo struct {
	ID        uuid.UUID
	Username  string
	Email     string
	FirstName string
	LastName  string
	IsStaff   bool
}

// ToUserInfo converts a domain user
func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsStaff:   u.IsStaff,
	}
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID       uuid.UUID
	RefreshToken string
}

// PasswordResetConfirmInput carries the second step of a password reset
type PasswordResetConfirmInput struct {
	UID         string
	Token       string
	NewPassword string
}

// AdminInput holds bootstrap admin credentials
type AdminInput struct {
	Username string
	Email    string
	Password string
}
