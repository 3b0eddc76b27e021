package routes

import (
	"github.com/Kariqs/farmart-api/controllers"
	"github.com/Kariqs/farmart-api/middlewares"
	"github.com/Kariqs/farmart-api/models"
	"github.com/gin-gonic/gin"
)

func CartRoutes(server *gin.Engine, deps Dependencies) {
	cartController := controllers.NewCartController(deps.DB, deps.Logger)

	carts := server.Group("/carts", middlewares.RequireAuth(deps.DB, deps.Tokens), middlewares.RequireRole(models.RoleBuyer))
	{
		carts.GET("", cartController.GetCart)
		carts.POST("/items", cartController.AddCartItem)
		carts.PUT("/items/:id", cartController.UpdateCartItem)
		carts.DELETE("/items/:id", cartController.RemoveCartItem)
	}
}
