package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskprod/backend/internal/domain/identity"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/infrastructure/auth"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"github.com/taskprod/backend/internal/infrastructure/mail"
	"go.uber.org/zap"
)

// Auth errors. Refresh failures are authentication errors; logout
// failures are plain bad requests.
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	ErrRefreshRejected    = shared.NewDomainError("TOKEN_INVALID", "Token is invalid or expired")
	ErrLogoutRejected     = shared.NewDomainError("INVALID_TOKEN", "invalid token")
)

// ResetEmailSubject is the subject of password reset messages
const ResetEmailSubject = "Password reset request"

// AuthService handles registration, token lifecycle and password resets
type AuthService struct {
	userRepo    identity.UserRepository
	jwtService  *auth.JWTService
	blacklist   auth.TokenBlacklist
	resetTokens *auth.PasswordResetTokens
	sender      mail.Sender
	policy      *identity.PasswordPolicy
	logger      *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	resetTokens *auth.PasswordResetTokens,
	sender mail.Sender,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		jwtService:  jwtService,
		blacklist:   blacklist,
		resetTokens: resetTokens,
		sender:      sender,
		policy:      identity.DefaultPasswordPolicy(),
		logger:      logger,
	}
}

// Register creates a regular user
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserInfo, error) {
	user, err := identity.NewUser(identity.NewUserInput{
		Username:  input.Username,
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}, s.policy)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUnique(ctx, user); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "A user with that username or email already exists")
		}
		return nil, err
	}

	logger.L(ctx).Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)
	info := ToUserInfo(user)
	return &info, nil
}

func (s *AuthService) ensureUnique(ctx context.Context, user *identity.User) error {
	exists, err := s.userRepo.ExistsByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "A user with that username already exists")
	}
	if !user.HasEmail() {
		return nil
	}
	exists, err = s.userRepo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "A user with that email already exists")
	}
	return nil
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	log := logger.L(ctx).With(zap.String("username", input.Username))

	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Warn("User not found during login")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(input.Password) {
		log.Warn("Invalid password attempt")
		return nil, ErrInvalidCredentials
	}
	if !user.CanLogin() {
		log.Warn("Login attempt for inactive account")
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	user.RecordLogin()
	if err := s.userRepo.Update(ctx, user); err != nil {
		// the login itself succeeded
		log.Error("Failed to record login", zap.Error(err))
	}

	log.Info("User logged in successfully", zap.String("user_id", user.ID.String()), zap.String("ip", input.IP))
	return &LoginResult{TokenResult: *tokens, User: ToUserInfo(user)}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. A token can be exchanged only once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenResult, error) {
	log := logger.L(ctx)

	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		log.Warn("Refresh token validation failed", zap.Error(err))
		return nil, ErrRefreshRejected
	}

	revoked, err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if !revoked {
		log.Warn("Refresh token replayed", zap.String("user_id", claims.UserID))
		return nil, ErrRefreshRejected
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, ErrRefreshRejected
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrRefreshRejected
		}
		return nil, err
	}
	if !user.CanLogin() {
		log.Warn("Token refresh for inactive user", zap.String("user_id", userID.String()))
		return nil, ErrRefreshRejected
	}

	return s.issue(user)
}

// Logout revokes the caller's refresh token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if strings.TrimSpace(input.RefreshToken) == "" {
		return shared.NewValidationError("refresh", "refresh token required")
	}

	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		return ErrLogoutRejected
	}
	if claims.UserID != input.UserID.String() {
		return ErrLogoutRejected
	}

	revoked, err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL())
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if !revoked {
		return ErrLogoutRejected
	}

	logger.L(ctx).Info("User logged out", zap.String("user_id", input.UserID.String()))
	return nil
}

// RequestPasswordReset mails a reset token to the active user owning email
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return shared.NewValidationError("email", "This field may not be blank")
	}
	if err := identity.ValidateEmail(email); err != nil {
		return shared.NewValidationError("email", "Enter a valid email address")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewValidationError("email", "No user with this email.")
		}
		return err
	}
	if !user.CanLogin() {
		return shared.NewValidationError("email", "No user with this email.")
	}

	token, err := s.resetTokens.Make(user.ID, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: ResetEmailSubject,
		Body:    ResetEmailBody(auth.EncodeUID(user.ID), token),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	logger.L(ctx).Info("Password reset requested", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetEmailBody renders the password reset message
func ResetEmailBody(uid, token string) string {
	return "Use the following token to reset password:\n\n" +
		"uid: " + uid + "\n" +
		"token: " + token + "\n\n" +
		"POST to /api/v1/auth/password-reset-confirm with {'uid','token','new_password'}"
}

// ConfirmPasswordReset verifies a reset token and sets the new password.
// Every failure is reported as a validation error.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, input PasswordResetConfirmInput) error {
	verr := &shared.ValidationError{}
	if input.UID == "" {
		verr.Add("uid", "This field may not be blank")
	}
	if input.Token == "" {
		verr.Add("token", "This field may not be blank")
	}
	if input.NewPassword == "" {
		verr.Add("new_password", "This field may not be blank")
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	userID, err := auth.DecodeUID(input.UID)
	if err != nil {
		return shared.NewValidationError("uid", "Invalid uid")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewValidationError("uid", "Invalid uid")
		}
		return err
	}
	if err := s.resetTokens.Check(user.ID, user.PasswordHash, input.Token); err != nil {
		return shared.NewValidationError("token", "Invalid token")
	}

	if err := user.SetPassword(input.NewPassword, s.policy); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	logger.L(ctx).Info("Password reset completed", zap.String("user_id", user.ID.String()))
	return nil
}

// EnsureAdmin creates a staff user unless the username is taken. It
// reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, input AdminInput) (bool, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	// bootstrap credentials come from the operator; no strength checks
	user, err := identity.NewStaffUser(identity.NewUserInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	}, nil)
	if err != nil {
		return false, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return false, err
	}

	s.logger.Info("Admin user created", zap.String("username", user.Username))
	return true, nil
}

func (s *AuthService) issue(user *identity.User) (*TokenResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		IsStaff:  user.IsStaff,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate token pair: %w", err)
	}
	return &TokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}, nil
}
