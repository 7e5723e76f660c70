package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dec-learning/platform-backend/utils"
)

// TokenValidator validates a bearer token and returns the claims it carries.
type TokenValidator interface {
	Validate(tokenString string) (*Claims, error)
}

// AuthMiddleware handles token-based authentication for protected routes
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// RequireAuth validates the bearer token and injects the claims into the
// request context. Requests without a valid token are rejected with 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			_ = utils.WriteUnauthorized(w, "Missing authentication token")
			return
		}

		claims, err := m.validator.Validate(token)
		if err != nil {
			m.logger.Warn("Token validation failed",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose claims do not carry the
// given role. It must be mounted after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				_ = utils.WriteUnauthorized(w, "Missing authentication token")
				return
			}
			if claims.Role != role {
				m.logger.Warn("Insufficient role for request",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("required_role", role),
					zap.String("actual_role", claims.Role))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken pulls the token out of the Authorization header.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
