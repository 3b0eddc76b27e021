package routes

import (
	"github.com/Kariqs/farmart-api/controllers"
	"github.com/Kariqs/farmart-api/middlewares"
	"github.com/Kariqs/farmart-api/models"
	"github.com/gin-gonic/gin"
)

func AnimalRoutes(server *gin.Engine, deps Dependencies) {
	animalController := controllers.NewAnimalController(deps.DB, deps.Uploader, deps.Logger)

	animals := server.Group("/animals")
	{
		animals.GET("", animalController.GetAnimals)
		animals.GET("/:id", animalController.GetAnimal)
	}

	farmer := animals.Group("", middlewares.RequireAuth(deps.DB, deps.Tokens), middlewares.RequireRole(models.RoleFarmer))
	{
		farmer.POST("", animalController.CreateAnimal)
		farmer.PUT("/:id", animalController.UpdateAnimal)
		farmer.DELETE("/:id", animalController.DeleteAnimal)
		farmer.POST("/:id/images", animalController.UploadAnimalImages)
	}
}
