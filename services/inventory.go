package services

import (
	"fmt"

	"github.com/Kariqs/farmart-api/models"
	"gorm.io/gorm"
)

// reserveAnimal takes quantity units of stock in one conditional update so
// concurrent reservations can never push the count below zero.
func reserveAnimal(tx *gorm.DB, animalID uint, quantity int) error {
	result := tx.Model(&models.Animal{}).
		Where("id = ? AND status = ? AND quantity >= ?", animalID, models.AnimalAvailable, quantity).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	if result.Error != nil {
		return Internal("Failed to reserve stock", result.Error)
	}
	if result.RowsAffected == 0 {
		return Inventory(fmt.Sprintf("Animal %d does not have %d unit(s) available", animalID, quantity))
	}

	// Separate statement: MySQL evaluates SET clauses left to right, so the
	// status cannot be derived from quantity in the same UPDATE portably.
	if err := tx.Model(&models.Animal{}).
		Where("id = ? AND quantity = 0", animalID).
		Update("status", models.AnimalSold).Error; err != nil {
		return Internal("Failed to update animal status", err)
	}
	return nil
}

// releaseAnimal puts quantity units back and reopens a sold-out listing.
func releaseAnimal(tx *gorm.DB, animalID uint, quantity int) error {
	result := tx.Model(&models.Animal{}).
		Where("id = ?", animalID).
		Update("quantity", gorm.Expr("quantity + ?", quantity))
	if result.Error != nil {
		return Internal("Failed to restore stock", result.Error)
	}
	if result.RowsAffected == 0 {
		return Internal(fmt.Sprintf("Animal %d no longer exists", animalID), nil)
	}

	if err := tx.Model(&models.Animal{}).
		Where("id = ? AND status = ? AND quantity > 0", animalID, models.AnimalSold).
		Update("status", models.AnimalAvailable).Error; err != nil {
		return Internal("Failed to update animal status", err)
	}
	return nil
}
