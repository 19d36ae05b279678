package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lifetag/lifetag-api/internal/handler"
	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/pkg/auth"
)

// Context keys set by Authenticate.
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserType  = "user_type"
)

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate verifies the bearer token and sets the caller's identity in
// the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.jwt.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserType, claims.UserType)
		c.Next()
	}
}

// RequireAdmin rejects callers whose token does not carry the admin type.
// Services re-verify the admin profile against the store before acting, so
// a stale token cannot slip a revoked admin through.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextUserType) != model.UserTypeAdmin {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("admin privileges required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
