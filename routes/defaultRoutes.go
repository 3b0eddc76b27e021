package routes

import (
	"github.com/Kariqs/farmart-api/controllers"
	"github.com/gin-gonic/gin"
)

func DefaultRoutes(server *gin.Engine, deps Dependencies) {
	home := controllers.NewDefaultController(deps.DB)
	server.GET("/", home.GetHome)
	server.GET("/healthz", home.Healthz)
	server.GET("/readyz", home.Readyz)
}
