package routes

import (
	"github.com/Kariqs/farmart-api/controllers"
	"github.com/Kariqs/farmart-api/middlewares"
	"github.com/gin-gonic/gin"
)

func AuthRoutes(server *gin.Engine, deps Dependencies) {
	authController := controllers.NewAuthController(deps.DB, deps.Tokens, deps.Logger)

	auth := server.Group("/auth")
	{
		auth.POST("/signup", authController.Signup)
		auth.POST("/login", authController.Login)
		auth.GET("/me", middlewares.RequireAuth(deps.DB, deps.Tokens), authController.Me)
	}
}
