package controllers

import (
	"log/slog"
	"net/http"

	"github.com/Kariqs/farmart-api/models"
	"github.com/Kariqs/farmart-api/services"
	"github.com/Kariqs/farmart-api/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxImagesPerUpload = 10

type AnimalController struct {
	db       *gorm.DB
	uploader utils.ImageUploader
	logger   *slog.Logger
}

// NewAnimalController accepts a nil uploader; image uploads then answer 503.
func NewAnimalController(db *gorm.DB, uploader utils.ImageUploader, logger *slog.Logger) *AnimalController {
	return &AnimalController{db: db, uploader: uploader, logger: logger}
}

func (c *AnimalController) GetAnimals(ctx *gin.Context) {
	var filter models.AnimalFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		respondWithBindError(ctx, err)
		return
	}

	animals, pagination, err := services.ListAnimals(ctx.Request.Context(), c.db, filter)
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"animals":  animals,
		"metadata": pagination,
	})
}

func (c *AnimalController) GetAnimal(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	animal, err := services.GetAnimal(ctx.Request.Context(), c.db, id)
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, animal)
}

func (c *AnimalController) CreateAnimal(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	var input models.AnimalInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		respondWithBindError(ctx, err)
		return
	}

	var animal *models.Animal
	err := withTransaction(c.db, func(tx *gorm.DB) error {
		var err error
		animal, err = services.CreateAnimal(ctx.Request.Context(), tx, caller, input)
		return err
	})
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusCreated, animal)
}

func (c *AnimalController) UpdateAnimal(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var input models.AnimalUpdate
	if err := ctx.ShouldBindJSON(&input); err != nil {
		respondWithBindError(ctx, err)
		return
	}

	var animal *models.Animal
	err := withTransaction(c.db, func(tx *gorm.DB) error {
		var err error
		animal, err = services.UpdateAnimal(ctx.Request.Context(), tx, caller, id, input)
		return err
	})
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, animal)
}

func (c *AnimalController) DeleteAnimal(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	err := withTransaction(c.db, func(tx *gorm.DB) error {
		return services.DeleteAnimal(ctx.Request.Context(), tx, caller, id)
	})
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"message": "Animal deleted successfully"})
}

// UploadAnimalImages stores multipart "images" files and attaches them to
// the listing. Files that fail to upload are reported, not fatal.
func (c *AnimalController) UploadAnimalImages(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if c.uploader == nil {
		sendErrorResponse(ctx, http.StatusServiceUnavailable, "storage_unavailable", "Image storage is not configured")
		return
	}

	if _, err := services.AuthorizeAnimalOwner(ctx.Request.Context(), c.db, caller, id); err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, "validation_error", "Invalid form data")
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		sendErrorResponse(ctx, http.StatusBadRequest, "validation_error", "No files uploaded")
		return
	}
	if len(files) > maxImagesPerUpload {
		sendErrorResponse(ctx, http.StatusBadRequest, "validation_error", "Too many files in one upload")
		return
	}

	uploadedUrls := []string{}
	var failedUploads []string
	for _, file := range files {
		f, openErr := file.Open()
		if openErr != nil {
			c.logger.WarnContext(ctx.Request.Context(), "error opening upload", "file", file.Filename, "error", openErr)
			failedUploads = append(failedUploads, file.Filename)
			continue
		}

		url, uploadErr := c.uploader.Upload(ctx.Request.Context(), utils.AnimalImageKey(id, file.Filename), f, file.Header.Get("Content-Type"))
		f.Close()
		if uploadErr != nil {
			c.logger.WarnContext(ctx.Request.Context(), "error uploading image", "file", file.Filename, "error", uploadErr)
			failedUploads = append(failedUploads, file.Filename)
			continue
		}
		uploadedUrls = append(uploadedUrls, url)
	}

	var images []models.AnimalImage
	err = withTransaction(c.db, func(tx *gorm.DB) error {
		var err error
		images, err = services.AddAnimalImages(ctx.Request.Context(), tx, caller, id, uploadedUrls)
		return err
	})
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}

	response := gin.H{
		"message": "Files processed",
		"urls":    uploadedUrls,
		"images":  images,
	}
	if len(failedUploads) > 0 {
		response["failed"] = failedUploads
	}
	sendJSONResponse(ctx, http.StatusOK, response)
}
