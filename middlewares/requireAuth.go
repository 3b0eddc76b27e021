package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Kariqs/farmart-api/models"
	"github.com/Kariqs/farmart-api/services"
	"github.com/Kariqs/farmart-api/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	userKey   = "user"
	callerKey = "caller"
)

// RequireAuth resolves the bearer token to a stored user. A missing token is
// 401; a token that cannot be parsed or has expired is 422; a valid token for
// an account that no longer exists is 401.
func RequireAuth(db *gorm.DB, tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "missing_token", "message": "Missing Authorization header"})
			return
		}

		scheme, tokenString, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"code": "invalid_token", "message": "Authorization header must be 'Bearer <token>'"})
			return
		}

		claims, err := tokens.ParseToken(strings.TrimSpace(tokenString))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"code": "invalid_token", "message": "Token is invalid or expired"})
			return
		}

		var user models.User
		if err := db.WithContext(ctx.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unknown_user", "message": "User not found"})
				return
			}
			slog.ErrorContext(ctx.Request.Context(), "auth user lookup failed", "user_id", claims.UserID, "error", err)
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": "Internal server error"})
			return
		}

		ctx.Set(userKey, user)
		ctx.Set(callerKey, services.Caller{ID: user.ID, Role: user.Role})
		ctx.Next()
	}
}

func CurrentCaller(ctx *gin.Context) (services.Caller, bool) {
	value, exists := ctx.Get(callerKey)
	if !exists {
		return services.Caller{}, false
	}
	caller, ok := value.(services.Caller)
	return caller, ok
}

func CurrentUser(ctx *gin.Context) (models.User, bool) {
	value, exists := ctx.Get(userKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}
