package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestNewJWTValidatorRequiresSecret(t *testing.T) {
	_, err := NewJWTValidator("")
	assert.ErrorIs(t, err, ErrMissingSecret)

	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestValidate(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	token := signToken(t, testSecret, jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "admin@dec.example",
		Role:  "ADMIN",
	})

	claims, err := v.Validate(token)

	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Sub)
	assert.Equal(t, "admin@dec.example", claims.Email)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.True(t, claims.IsAdmin())
}

func TestValidateExpiredToken(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	token := signToken(t, testSecret, jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err = v.Validate(token)

	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateWrongSecret(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	token := signToken(t, "some-other-secret", jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
	})

	_, err = v.Validate(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsUnexpectedSigningMethod(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	// alg=none tokens must never pass
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Validate(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateMissingSubject(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	token := signToken(t, testSecret, jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "user@dec.example",
	})

	_, err = v.Validate(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateGarbageToken(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	_, err = v.Validate("not.a.token")

	assert.ErrorIs(t, err, ErrInvalidToken)
}
