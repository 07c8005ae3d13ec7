package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskprod/backend/internal/infrastructure/config"
)

func newTestResetTokens() *PasswordResetTokens {
	return NewPasswordResetTokens(config.JWTConfig{
		Secret:               "test-secret-key-at-least-32-chars",
		PasswordResetTimeout: 72 * time.Hour,
	})
}

func TestPasswordResetTokens_RoundTrip(t *testing.T) {
	tokens := newTestResetTokens()
	userID := uuid.New()

	token, err := tokens.Make(userID, "hash-v1")
	require.NoError(t, err)

	assert.NoError(t, tokens.Check(userID, "hash-v1", token))
}

func TestPasswordResetTokens_InvalidAfterPasswordChange(t *testing.T) {
	tokens := newTestResetTokens()
	userID := uuid.New()

	token, err := tokens.Make(userID, "hash-v1")
	require.NoError(t, err)

	assert.ErrorIs(t, tokens.Check(userID, "hash-v2", token), ErrInvalidResetToken)
}

func TestPasswordResetTokens_OtherUser(t *testing.T) {
	tokens := newTestResetTokens()

	token, err := tokens.Make(uuid.New(), "hash")
	require.NoError(t, err)

	assert.ErrorIs(t, tokens.Check(uuid.New(), "hash", token), ErrInvalidResetToken)
}

func TestPasswordResetTokens_Expired(t *testing.T) {
	tokens := newTestResetTokens()
	userID := uuid.New()
	issued := time.Now().Add(-73 * time.Hour)
	tokens.now = func() time.Time { return issued }

	token, err := tokens.Make(userID, "hash")
	require.NoError(t, err)

	tokens.now = time.Now
	assert.ErrorIs(t, tokens.Check(userID, "hash", token), ErrInvalidResetToken)
}

func TestPasswordResetTokens_AccessTokenIsNotAResetToken(t *testing.T) {
	tokens := newTestResetTokens()
	userID := uuid.New()

	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(GenerateTokenInput{UserID: userID, Username: "u"})
	require.NoError(t, err)

	assert.ErrorIs(t, tokens.Check(userID, "", pair.AccessToken), ErrInvalidResetToken)
	assert.ErrorIs(t, tokens.Check(userID, "hash", "garbage"), ErrInvalidResetToken)
}

func TestUIDEncoding(t *testing.T) {
	id := uuid.New()

	uid := EncodeUID(id)
	assert.NotContains(t, uid, "=")

	decoded, err := DecodeUID(uid)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)

	_, err = DecodeUID("!!!")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
	_, err = DecodeUID(EncodeUID(uuid.Nil)[:4])
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}
