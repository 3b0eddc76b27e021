package middlewares

import (
	"net/http"
	"strings"

	"github.com/Kariqs/farmart-api/models"
	"github.com/gin-gonic/gin"
)

// RequireRole must run after RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		caller, exists := CurrentCaller(ctx)
		if !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "missing_token", "message": "User not found in context"})
			return
		}

		for _, role := range roles {
			if caller.Role == role {
				ctx.Next()
				return
			}
		}

		names := make([]string, 0, len(roles))
		for _, role := range roles {
			names = append(names, string(role))
		}
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code":    "access_denied",
			"message": "This action requires the " + strings.Join(names, " or ") + " role",
		})
	}
}
