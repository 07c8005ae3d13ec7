package identity

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taskprod/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for password hashes. Tests lower it.
var BcryptCost = 12

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_@+.\-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// User is an account that can authenticate. IsStaff marks administrators.
type User struct {
	shared.BaseAggregateRoot
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsStaff      bool
	IsActive     bool
	LastLoginAt  *time.Time
}

// NewUserInput carries registration fields
type NewUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// NewUser creates an active, non-staff user. The password is checked
// against policy with the user's own attributes before hashing.
func NewUser(in NewUserInput, policy *PasswordPolicy) (*User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	verr := &shared.ValidationError{}
	if err := validateUsername(username); err != nil {
		verr.Add("username", err.Error())
	}
	if email != "" {
		if err := validateEmail(email); err != nil {
			verr.Add("email", err.Error())
		}
	}
	if utf8.RuneCountInString(in.FirstName) > 150 {
		verr.Add("first_name", "Ensure this field has no more than 150 characters")
	}
	if utf8.RuneCountInString(in.LastName) > 150 {
		verr.Add("last_name", "Ensure this field has no more than 150 characters")
	}
	if policy != nil {
		for _, msg := range policy.Check(in.Password, username, email, in.FirstName, in.LastName) {
			verr.Add("password", msg)
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		IsActive:          true,
	}
	return user, nil
}

// NewStaffUser creates an administrator account
func NewStaffUser(in NewUserInput, policy *PasswordPolicy) (*User, error) {
	user, err := NewUser(in, policy)
	if err != nil {
		return nil, err
	}
	user.IsStaff = true
	return user, nil
}

// SetPassword replaces the password hash after checking policy.
// Any token bound to the previous hash stops verifying.
func (u *User) SetPassword(newPassword string, policy *PasswordPolicy) error {
	if policy != nil {
		if msgs := policy.Check(newPassword, u.Username, u.Email, u.FirstName, u.LastName); len(msgs) > 0 {
			verr := &shared.ValidationError{}
			for _, msg := range msgs {
				verr.Add("new_password", msg)
			}
			return verr
		}
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	u.Touch()
	return nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// CanLogin reports whether the account may authenticate
func (u *User) CanLogin() bool {
	return u.IsActive
}

// RecordLogin stamps the last successful login
func (u *User) RecordLogin() {
	now := shared.Now()
	u.LastLoginAt = &now
	u.Touch()
}

// HasEmail reports whether messages can be delivered to the user
func (u *User) HasEmail() bool {
	return u.Email != ""
}

func validateUsername(username string) error {
	if username == "" {
		return shared.NewDomainError("INVALID_USERNAME", "This field may not be blank")
	}
	if utf8.RuneCountInString(username) > 150 {
		return shared.NewDomainError("INVALID_USERNAME", "Ensure this field has no more than 150 characters")
	}
	if !usernameRegex.MatchString(username) {
		return shared.NewDomainError("INVALID_USERNAME", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 254 {
		return shared.NewDomainError("INVALID_EMAIL", "Ensure this field has no more than 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Enter a valid email address")
	}
	return nil
}

// ValidateEmail checks an email address supplied outside registration
func ValidateEmail(email string) error {
	return validateEmail(strings.ToLower(strings.TrimSpace(email)))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
