package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Kariqs/farmart-api/middlewares"
	"github.com/Kariqs/farmart-api/models"
	"github.com/Kariqs/farmart-api/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	bcryptCost = 10

	msgUserAlreadyExists     = "user already exists"
	msgInvalidCredentials    = "invalid email or password"
	msgFailedToGenerateToken = "failed to generate token"
)

type AuthController struct {
	db     *gorm.DB
	tokens *utils.TokenIssuer
	logger *slog.Logger
}

func NewAuthController(db *gorm.DB, tokens *utils.TokenIssuer, logger *slog.Logger) *AuthController {
	return &AuthController{db: db, tokens: tokens, logger: logger}
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func comparePasswords(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (c *AuthController) findUserByEmail(ctx *gin.Context, email string) (models.User, error) {
	var user models.User
	result := c.db.WithContext(ctx.Request.Context()).Where("email = ?", email).First(&user)
	return user, result.Error
}

// Signup registers a farmer or buyer account and logs it in.
func (c *AuthController) Signup(ctx *gin.Context) {
	var signUpData models.SignupData
	if err := ctx.ShouldBindJSON(&signUpData); err != nil {
		respondWithBindError(ctx, err)
		return
	}

	role, ok := models.ParseRole(signUpData.Role)
	if !ok {
		sendErrorResponse(ctx, http.StatusBadRequest, "validation_error", "role must be farmer or buyer")
		return
	}
	email := strings.ToLower(strings.TrimSpace(signUpData.Email))

	_, err := c.findUserByEmail(ctx, email)
	if err == nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "user_exists", msgUserAlreadyExists)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.logger.ErrorContext(ctx.Request.Context(), "database error during user check", "error", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "internal_error", msgInternalServerError)
		return
	}

	hashedPassword, err := hashPassword(signUpData.Password)
	if err != nil {
		c.logger.ErrorContext(ctx.Request.Context(), "password hashing error", "error", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "internal_error", msgInternalServerError)
		return
	}

	user := models.User{
		Name:     strings.TrimSpace(signUpData.Name),
		Email:    email,
		Password: hashedPassword,
		Role:     role,
	}
	if err := c.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		// A concurrent signup for the same email won the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			sendErrorResponse(ctx, http.StatusBadRequest, "user_exists", msgUserAlreadyExists)
			return
		}
		c.logger.ErrorContext(ctx.Request.Context(), "user creation error", "error", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "internal_error", msgInternalServerError)
		return
	}

	token, err := c.tokens.GenerateToken(user)
	if err != nil {
		c.logger.ErrorContext(ctx.Request.Context(), "jwt generation error", "error", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "internal_error", msgFailedToGenerateToken)
		return
	}

	c.logger.InfoContext(ctx.Request.Context(), "user registered", "user_id", user.ID, "role", user.Role)
	sendJSONResponse(ctx, http.StatusCreated, gin.H{"token": token, "user": user})
}

func (c *AuthController) Login(ctx *gin.Context) {
	var loginData models.LoginData
	if err := ctx.ShouldBindJSON(&loginData); err != nil {
		respondWithBindError(ctx, err)
		return
	}

	user, err := c.findUserByEmail(ctx, strings.ToLower(strings.TrimSpace(loginData.Email)))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.logger.ErrorContext(ctx.Request.Context(), "database error during login", "error", err)
			sendErrorResponse(ctx, http.StatusInternalServerError, "internal_error", msgInternalServerError)
			return
		}
		sendErrorResponse(ctx, http.StatusUnauthorized, "invalid_credentials", msgInvalidCredentials)
		return
	}
	if err := comparePasswords(user.Password, loginData.Password); err != nil {
		sendErrorResponse(ctx, http.StatusUnauthorized, "invalid_credentials", msgInvalidCredentials)
		return
	}

	token, err := c.tokens.GenerateToken(user)
	if err != nil {
		c.logger.ErrorContext(ctx.Request.Context(), "jwt generation error", "error", err)
		sendErrorResponse(ctx, http.StatusInternalServerError, "internal_error", msgFailedToGenerateToken)
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{"token": token, "user": user})
}

func (c *AuthController) Me(ctx *gin.Context) {
	user, ok := middlewares.CurrentUser(ctx)
	if !ok {
		sendErrorResponse(ctx, http.StatusUnauthorized, "missing_token", "Authentication required")
		return
	}
	sendJSONResponse(ctx, http.StatusOK, user)
}
