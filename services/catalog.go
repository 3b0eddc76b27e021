package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/Kariqs/farmart-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalPages int   `json:"totalPages"`
}

// ListAnimals returns one page of available listings matching filter.
func ListAnimals(ctx context.Context, db *gorm.DB, filter models.AnimalFilter) ([]models.Animal, Pagination, error) {
	page, perPage := filter.Page, filter.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	var minPrice, maxPrice *decimal.Decimal
	if filter.MinPrice != "" {
		value, err := decimal.NewFromString(filter.MinPrice)
		if err != nil {
			return nil, Pagination{}, Validation("invalid_filter", "min_price must be a number")
		}
		minPrice = &value
	}
	if filter.MaxPrice != "" {
		value, err := decimal.NewFromString(filter.MaxPrice)
		if err != nil {
			return nil, Pagination{}, Validation("invalid_filter", "max_price must be a number")
		}
		maxPrice = &value
	}

	matching := func(query *gorm.DB) *gorm.DB {
		query = query.Where("status = ?", models.AnimalAvailable)
		if filter.Type != "" {
			query = query.Where("LOWER(animal_type) = ?", strings.ToLower(filter.Type))
		}
		if filter.Breed != "" {
			query = query.Where("LOWER(breed) = ?", strings.ToLower(filter.Breed))
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			query = query.Where("LOWER(title) LIKE ? OR LOWER(breed) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
		}
		if filter.MinAge != nil {
			query = query.Where("age >= ?", *filter.MinAge)
		}
		if filter.MaxAge != nil {
			query = query.Where("age <= ?", *filter.MaxAge)
		}
		if minPrice != nil {
			query = query.Where("price >= ?", *minPrice)
		}
		if maxPrice != nil {
			query = query.Where("price <= ?", *maxPrice)
		}
		return query
	}

	var total int64
	if err := db.WithContext(ctx).Model(&models.Animal{}).Scopes(matching).Count(&total).Error; err != nil {
		return nil, Pagination{}, Internal("Unable to count animals", err)
	}

	var animals []models.Animal
	if err := db.WithContext(ctx).Scopes(matching).Preload("Images").
		Order("created_at DESC").Order("id DESC").
		Limit(perPage).Offset((page - 1) * perPage).
		Find(&animals).Error; err != nil {
		return nil, Pagination{}, Internal("Unable to fetch animals", err)
	}

	return animals, Pagination{
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}, nil
}

func GetAnimal(ctx context.Context, db *gorm.DB, id uint) (*models.Animal, error) {
	var animal models.Animal
	if err := db.WithContext(ctx).Preload("Images").First(&animal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("Animal not found")
		}
		return nil, Internal("Unable to retrieve animal", err)
	}
	return &animal, nil
}

func CreateAnimal(ctx context.Context, tx *gorm.DB, caller Caller, input models.AnimalInput) (*models.Animal, error) {
	if err := RequireFarmer(caller); err != nil {
		return nil, err
	}
	if !input.Price.IsPositive() {
		return nil, Validation("invalid_price", "Price must be greater than zero")
	}

	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
	}

	animal := models.Animal{
		FarmerID:    caller.ID,
		Title:       strings.TrimSpace(input.Title),
		AnimalType:  strings.TrimSpace(input.AnimalType),
		Breed:       strings.TrimSpace(input.Breed),
		Age:         input.Age,
		Price:       input.Price.Round(2),
		Quantity:    quantity,
		Description: input.Description,
		Status:      models.AnimalAvailable,
	}
	if err := tx.WithContext(ctx).Create(&animal).Error; err != nil {
		return nil, Internal("Failed to create animal", err)
	}
	return &animal, nil
}

// ownedAnimal loads an animal for mutation by its farmer.
func ownedAnimal(ctx context.Context, tx *gorm.DB, caller Caller, id uint) (*models.Animal, error) {
	if err := RequireFarmer(caller); err != nil {
		return nil, err
	}
	animal, err := GetAnimal(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if animal.FarmerID != caller.ID {
		return nil, AccessDenied("You can only manage your own listings")
	}
	return animal, nil
}

func UpdateAnimal(ctx context.Context, tx *gorm.DB, caller Caller, id uint, input models.AnimalUpdate) (*models.Animal, error) {
	animal, err := ownedAnimal(ctx, tx, caller, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.AnimalType != nil {
		updates["animal_type"] = strings.TrimSpace(*input.AnimalType)
	}
	if input.Breed != nil {
		updates["breed"] = strings.TrimSpace(*input.Breed)
	}
	if input.Age != nil {
		updates["age"] = *input.Age
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, Validation("invalid_price", "Price must be greater than zero")
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}

	status := animal.Status
	if input.Quantity != nil {
		updates["quantity"] = *input.Quantity
		// Restocking a sold-out listing puts it back on sale.
		if status == models.AnimalSold {
			status = models.AnimalAvailable
		}
	}
	if input.Status != nil {
		if animal.Status == models.AnimalSold && input.Quantity == nil {
			return nil, Conflict(CodeInvalidState, "A sold listing must be restocked before its status can change")
		}
		status = *input.Status
	}
	if status != animal.Status {
		updates["status"] = status
	}

	if len(updates) == 0 {
		return animal, nil
	}
	if err := tx.WithContext(ctx).Model(animal).Updates(updates).Error; err != nil {
		return nil, Internal("Failed to update animal", err)
	}
	return GetAnimal(ctx, tx, id)
}

// DeleteAnimal soft-deletes a listing. Listings that appear on any order are
// kept so order history stays intact.
func DeleteAnimal(ctx context.Context, tx *gorm.DB, caller Caller, id uint) error {
	animal, err := ownedAnimal(ctx, tx, caller, id)
	if err != nil {
		return err
	}

	var orderLines int64
	if err := tx.WithContext(ctx).Model(&models.OrderItem{}).Where("animal_id = ?", animal.ID).Count(&orderLines).Error; err != nil {
		return Internal("Unable to check orders for animal", err)
	}
	if orderLines > 0 {
		return Conflict(CodeHasOrders, "Animal is part of existing orders and cannot be deleted")
	}

	if err := tx.WithContext(ctx).Where("animal_id = ?", animal.ID).Delete(&models.CartItem{}).Error; err != nil {
		return Internal("Failed to remove animal from carts", err)
	}
	if err := tx.WithContext(ctx).Where("animal_id = ?", animal.ID).Delete(&models.AnimalImage{}).Error; err != nil {
		return Internal("Failed to delete animal images", err)
	}
	if err := tx.WithContext(ctx).Delete(animal).Error; err != nil {
		return Internal("Failed to delete animal", err)
	}
	return nil
}

// AuthorizeAnimalOwner lets handlers check ownership before doing work
// outside the database, such as uploading files.
func AuthorizeAnimalOwner(ctx context.Context, db *gorm.DB, caller Caller, id uint) (*models.Animal, error) {
	return ownedAnimal(ctx, db, caller, id)
}

func AddAnimalImages(ctx context.Context, tx *gorm.DB, caller Caller, id uint, urls []string) ([]models.AnimalImage, error) {
	animal, err := ownedAnimal(ctx, tx, caller, id)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, nil
	}

	images := make([]models.AnimalImage, 0, len(urls))
	for _, url := range urls {
		images = append(images, models.AnimalImage{Url: url, AnimalID: animal.ID})
	}
	if err := tx.WithContext(ctx).Create(&images).Error; err != nil {
		return nil, Internal("Failed to save animal images", err)
	}
	return images, nil
}
