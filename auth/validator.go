package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dec-learning/platform-backend/middleware"
)

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrMissingSecret is returned when the validator is constructed
	// without a signing secret
	ErrMissingSecret = errors.New("missing signing secret")
)

// tokenClaims represents the custom claims in the JWT token
type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// JWTValidator validates HMAC-signed JWT tokens issued by the identity
// service.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a new JWT validator for HS256 tokens.
func NewJWTValidator(secret string) (*JWTValidator, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &JWTValidator{secret: []byte(secret)}, nil
}

// Validate parses and verifies a token and returns its claims.
func (v *JWTValidator) Validate(tokenString string) (*middleware.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	return &middleware.Claims{
		Sub:   claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}
