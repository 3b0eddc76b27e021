package controllers

import (
	"log/slog"
	"net/http"

	"github.com/Kariqs/farmart-api/models"
	"github.com/Kariqs/farmart-api/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CartController struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewCartController(db *gorm.DB, logger *slog.Logger) *CartController {
	return &CartController{db: db, logger: logger}
}

func (c *CartController) GetCart(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	cart, err := services.GetCart(ctx.Request.Context(), c.db, caller)
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"cart":  cart,
		"total": services.CartTotal(cart),
	})
}

func (c *CartController) AddCartItem(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	var input models.CartItemInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		respondWithBindError(ctx, err)
		return
	}

	var item *models.CartItem
	err := withTransaction(c.db, func(tx *gorm.DB) error {
		var err error
		item, err = services.AddCartItem(ctx.Request.Context(), tx, caller, input)
		return err
	})
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusCreated, item)
}

func (c *CartController) UpdateCartItem(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var input models.CartItemUpdate
	if err := ctx.ShouldBindJSON(&input); err != nil {
		respondWithBindError(ctx, err)
		return
	}

	var item *models.CartItem
	err := withTransaction(c.db, func(tx *gorm.DB) error {
		var err error
		item, err = services.UpdateCartItem(ctx.Request.Context(), tx, caller, id, input.Quantity)
		return err
	})
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, item)
}

func (c *CartController) RemoveCartItem(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	err := withTransaction(c.db, func(tx *gorm.DB) error {
		return services.RemoveCartItem(ctx.Request.Context(), tx, caller, id)
	})
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": "Item removed from cart"})
}
