package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizdeck/quizdeck-backend/internal/auth"
	usersdomain "github.com/quizdeck/quizdeck-backend/internal/users/domain"
)

// RoleResolver resolves a user's current role; the role service implements
// it backed by the role cache.
type RoleResolver interface {
	RoleOf(ctx context.Context, uid string) (usersdomain.Role, error)
}

// RequireRole rejects requests whose authenticated user does not have one of
// the allowed roles. Must run after FirebaseAuthMiddleware.
func RequireRole(resolver RoleResolver, allowed ...usersdomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := auth.UserFirebaseUID(c)
		if uid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		role, err := resolver.RoleOf(c.Request.Context(), uid)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "could not resolve user role"})
			c.Abort()
			return
		}

		for _, a := range allowed {
			if role == a {
				c.Set("role", string(role))
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		c.Abort()
	}
}
