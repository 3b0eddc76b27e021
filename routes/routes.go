package routes

import (
	"log/slog"

	"github.com/Kariqs/farmart-api/services"
	"github.com/Kariqs/farmart-api/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies is everything the handlers need. Uploader and Mailer may be
// nil or disabled.
type Dependencies struct {
	DB       *gorm.DB
	Tokens   *utils.TokenIssuer
	Engine   *services.OrderEngine
	Uploader utils.ImageUploader
	Mailer   *utils.Mailer
	Logger   *slog.Logger
}

func Register(server *gin.Engine, deps Dependencies) {
	DefaultRoutes(server, deps)
	AuthRoutes(server, deps)
	AnimalRoutes(server, deps)
	CartRoutes(server, deps)
	OrderRoutes(server, deps)
}
