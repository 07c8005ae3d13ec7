package auth

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/infrastructure/config"
)

const purposePasswordReset = "password_reset"

// ErrInvalidResetToken covers every reason a reset token is refused
var ErrInvalidResetToken = errors.New("invalid or expired password reset token")

type resetClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// PasswordResetTokens mints and checks password reset tokens. The signing
// key mixes in the user's current password hash, so a token stops working
// as soon as the password changes.
type PasswordResetTokens struct {
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

// NewPasswordResetTokens creates the token generator
func NewPasswordResetTokens(cfg config.JWTConfig) *PasswordResetTokens {
	return &PasswordResetTokens{
		secret:  []byte(cfg.Secret),
		timeout: cfg.PasswordResetTimeout,
		now:     time.Now,
	}
}

func (p *PasswordResetTokens) key(passwordHash string) []byte {
	key := make([]byte, 0, len(p.secret)+1+len(passwordHash))
	key = append(key, p.secret...)
	key = append(key, ':')
	return append(key, passwordHash...)
}

// Make returns a token for userID bound to passwordHash
func (p *PasswordResetTokens) Make(userID uuid.UUID, passwordHash string) (string, error) {
	now := p.now()
	claims := resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.timeout)),
		},
		Purpose: purposePasswordReset,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key(passwordHash))
}

// Check verifies that token was minted for userID while passwordHash was current
func (p *PasswordResetTokens) Check(userID uuid.UUID, passwordHash, token string) error {
	parsed, err := jwt.ParseWithClaims(token, &resetClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidResetToken
		}
		return p.key(passwordHash), nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return ErrInvalidResetToken
	}

	claims, ok := parsed.Claims.(*resetClaims)
	if !ok || claims.Purpose != purposePasswordReset || claims.Subject != userID.String() {
		return ErrInvalidResetToken
	}
	return nil
}

// EncodeUID renders a user id the way it travels in reset links
func EncodeUID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeUID reverses EncodeUID
func DecodeUID(uid string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return uuid.Nil, ErrInvalidResetToken
	}
	id, err := uuid.ParseBytes(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidResetToken
	}
	return id, nil
}
