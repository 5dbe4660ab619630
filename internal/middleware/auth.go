package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/regsalud/reps-sync/pkg/auth"
)

const ContextActingUser = "acting_user"

// AuthMiddleware validates the bearer token and stores the acting-user
// identity for audit attribution downstream.
type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextActingUser, claims.Email)
		c.Next()
	}
}

// ActingUser returns the authenticated user identity, or "system" when the
// request did not pass through authentication (e.g. the CLI path).
func ActingUser(c *gin.Context) string {
	if u := c.GetString(ContextActingUser); u != "" {
		return u
	}
	return "system"
}
