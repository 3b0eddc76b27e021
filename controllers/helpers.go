package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Kariqs/farmart-api/middlewares"
	"github.com/Kariqs/farmart-api/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	msgInvalidInput        = "Invalid request body"
	msgInternalServerError = "Internal server error"
)

func sendJSONResponse(ctx *gin.Context, status int, data any) {
	ctx.JSON(status, data)
}

func sendErrorResponse(ctx *gin.Context, status int, code, message string) {
	sendJSONResponse(ctx, status, gin.H{"code": code, "message": message})
}

// respondWithServiceError maps a service error to its status and stable code.
// Causes of internal and upstream failures are logged, never returned.
func respondWithServiceError(ctx *gin.Context, logger *slog.Logger, err error) {
	serviceErr := services.AsError(err)
	switch serviceErr.Kind {
	case services.KindInternal, services.KindUpstream:
		logger.ErrorContext(ctx.Request.Context(), serviceErr.Message,
			"kind", serviceErr.Kind.String(), "path", ctx.Request.URL.Path, "error", err)
	}
	sendErrorResponse(ctx, serviceErr.Kind.HTTPStatus(), serviceErr.Code, serviceErr.Message)
}

func respondWithBindError(ctx *gin.Context, err error) {
	sendErrorResponse(ctx, http.StatusBadRequest, "validation_error", validationMessage(err))
}

func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return msgInvalidInput
	}

	problems := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		switch fieldErr.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fieldErr.Field()))
		case "email":
			problems = append(problems, fmt.Sprintf("%s must be a valid email", fieldErr.Field()))
		case "oneof":
			problems = append(problems, fmt.Sprintf("%s must be one of [%s]", fieldErr.Field(), fieldErr.Param()))
		case "min", "max":
			problems = append(problems, fmt.Sprintf("%s must be %s %s", fieldErr.Field(), map[string]string{"min": "at least", "max": "at most"}[fieldErr.Tag()], fieldErr.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid", fieldErr.Field()))
		}
	}
	return strings.Join(problems, "; ")
}

// withTransaction runs fn in one unit of work, committing only when fn
// succeeds.
func withTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return services.Internal("Unable to start transaction", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return services.Internal("Failed to save changes", err)
	}
	return nil
}

func parseID(ctx *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(param), 10, 64)
	if err != nil || id == 0 {
		sendErrorResponse(ctx, http.StatusBadRequest, "invalid_id", fmt.Sprintf("Invalid %s", param))
		return 0, false
	}
	return uint(id), true
}

func requireCaller(ctx *gin.Context) (services.Caller, bool) {
	caller, ok := middlewares.CurrentCaller(ctx)
	if !ok {
		sendErrorResponse(ctx, http.StatusUnauthorized, "missing_token", "Authentication required")
		return services.Caller{}, false
	}
	return caller, true
}
