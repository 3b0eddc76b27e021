package controllers

import (
	"net/http"

	"github.com/Kariqs/farmart-api/initializers"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DefaultController struct {
	db *gorm.DB
}

func NewDefaultController(db *gorm.DB) *DefaultController {
	return &DefaultController{db: db}
}

func (c *DefaultController) GetHome(ctx *gin.Context) {
	message := `Welcome to FarmArt API. Farmers list animals, buyers order and pay for them.

The following are the endpoints for this API:

AUTH
- POST "/auth/signup" - Create a farmer or buyer account
- POST "/auth/login" - Access user account
- GET "/auth/me" - Current user

ANIMALS
- GET "/animals" - Browse available animals (type, breed, search, min_age, max_age, min_price, max_price, page, per_page)
- GET "/animals/:id" - Get animal by ID
- POST "/animals" - Create listing (farmer)
- PUT "/animals/:id" - Update listing (owner)
- DELETE "/animals/:id" - Delete listing (owner)
- POST "/animals/:id/images" - Upload listing images (owner)

CART
- GET "/carts" - View cart (buyer)
- POST "/carts/items" - Add animal to cart
- PUT "/carts/items/:id" - Change quantity
- DELETE "/carts/items/:id" - Remove item

ORDERS
- GET "/orders" - List orders
- GET "/orders/:id" - Get order by ID
- POST "/orders" - Place order from cart (buyer)
- POST "/orders/:id/pay" - Pay for order (buyer)
- POST "/orders/:id/confirm" - Confirm paid order (farmer)
- POST "/orders/:id/reject" - Reject pending order (farmer)`

	ctx.JSON(http.StatusOK, gin.H{
		"message": message,
	})
}

func (c *DefaultController) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (c *DefaultController) Readyz(ctx *gin.Context) {
	if err := initializers.CheckHealth(ctx.Request.Context(), c.db); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
