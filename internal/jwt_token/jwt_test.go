package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer", "test-audience")
var userID = id.UserID(uuid.New())

func Test_GenerateAccessToken(t *testing.T) {
	now := time.Now()
	issued, err := jwtService.GenerateAccessToken(userID, now, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.JTI)

	claims, err := jwtService.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func Test_GenerateAccessToken_UniqueJTI(t *testing.T) {
	a, err := jwtService.GenerateAccessToken(userID, time.Now(), time.Hour)
	require.NoError(t, err)
	b, err := jwtService.GenerateAccessToken(userID, time.Now(), time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a.JTI, b.JTI)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	issued, err := jwtService.GenerateAccessToken(userID, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(issued.Token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-key", "test-issuer", "test-audience")
	issued, err := other.GenerateAccessToken(userID, time.Now(), time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(issued.Token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	other := NewJWTService("test-signing-key", "test-issuer", "someone-else")
	issued, err := other.GenerateAccessToken(userID, time.Now(), time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(issued.Token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: userID.String()})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(signed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_AdapterMapsClaims(t *testing.T) {
	issued, err := jwtService.GenerateAccessToken(userID, time.Now(), time.Hour)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}
