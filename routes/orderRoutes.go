package routes

import (
	"github.com/Kariqs/farmart-api/controllers"
	"github.com/Kariqs/farmart-api/middlewares"
	"github.com/gin-gonic/gin"
)

// OrderRoutes leaves role checks on transitions to the order engine.
func OrderRoutes(server *gin.Engine, deps Dependencies) {
	orderController := controllers.NewOrderController(deps.DB, deps.Engine, deps.Mailer, deps.Logger)

	server.POST("/orders/mpesa/callback", orderController.MpesaCallback)

	orders := server.Group("/orders", middlewares.RequireAuth(deps.DB, deps.Tokens))
	{
		orders.GET("", orderController.GetOrders)
		orders.POST("", orderController.CreateOrder)
		orders.GET("/:id", orderController.GetOrder)
		orders.POST("/:id/pay", orderController.PayOrder)
		orders.POST("/:id/confirm", orderController.ConfirmOrder)
		orders.POST("/:id/reject", orderController.RejectOrder)
	}
}
