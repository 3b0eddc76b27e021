package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kariqs/farmart-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GetCart returns the caller's cart with its items and their current
// listings. A buyer without a cart gets an empty, unsaved one.
func GetCart(ctx context.Context, db *gorm.DB, caller Caller) (*models.Cart, error) {
	if err := RequireBuyer(caller); err != nil {
		return nil, err
	}

	var cart models.Cart
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("added_at ASC").Order("id ASC") }).
		Preload("Items.Animal").
		Where("buyer_id = ?", caller.ID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Cart{BuyerID: caller.ID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, Internal("Unable to load cart", err)
	}
	return &cart, nil
}

// CartTotal prices the cart at current listing prices.
func CartTotal(cart *models.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, item := range cart.Items {
		if item.Animal == nil {
			continue
		}
		total = total.Add(item.Animal.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// AddCartItem puts an animal in the caller's cart, creating the cart on first
// use. Adding an animal already in the cart increases that line.
func AddCartItem(ctx context.Context, tx *gorm.DB, caller Caller, input models.CartItemInput) (*models.CartItem, error) {
	if err := RequireBuyer(caller); err != nil {
		return nil, err
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, Validation("invalid_quantity", "Quantity must be at least 1")
	}

	animal, err := GetAnimal(ctx, tx, input.AnimalID)
	if err != nil {
		return nil, err
	}
	if animal.Status != models.AnimalAvailable {
		return nil, Inventory(fmt.Sprintf("Animal %d is not available", animal.ID))
	}

	var cart models.Cart
	if err := tx.WithContext(ctx).Where(models.Cart{BuyerID: caller.ID}).FirstOrCreate(&cart).Error; err != nil {
		return nil, Internal("Unable to open cart", err)
	}

	var item models.CartItem
	err = tx.WithContext(ctx).Where("cart_id = ? AND animal_id = ?", cart.ID, animal.ID).First(&item).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.CartItem{CartID: cart.ID, AnimalID: animal.ID, Quantity: quantity}
	case err != nil:
		return nil, Internal("Unable to load cart item", err)
	default:
		item.Quantity += quantity
	}

	if item.Quantity > animal.Quantity {
		return nil, Inventory(fmt.Sprintf("Only %d unit(s) of animal %d available", animal.Quantity, animal.ID))
	}
	if err := tx.WithContext(ctx).Save(&item).Error; err != nil {
		return nil, Internal("Failed to save cart item", err)
	}

	item.Animal = animal
	return &item, nil
}

// ownedCartItem loads a cart line belonging to the caller.
func ownedCartItem(ctx context.Context, tx *gorm.DB, caller Caller, itemID uint) (*models.CartItem, error) {
	if err := RequireBuyer(caller); err != nil {
		return nil, err
	}

	var item models.CartItem
	if err := tx.WithContext(ctx).Preload("Animal").First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("Cart item not found")
		}
		return nil, Internal("Unable to load cart item", err)
	}

	var cart models.Cart
	if err := tx.WithContext(ctx).First(&cart, item.CartID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("Cart item not found")
		}
		return nil, Internal("Unable to load cart", err)
	}
	if cart.BuyerID != caller.ID {
		return nil, AccessDenied("You can only change your own cart")
	}
	return &item, nil
}

func UpdateCartItem(ctx context.Context, tx *gorm.DB, caller Caller, itemID uint, quantity int) (*models.CartItem, error) {
	item, err := ownedCartItem(ctx, tx, caller, itemID)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, Validation("invalid_quantity", "Quantity must be at least 1")
	}
	if item.Animal == nil {
		return nil, Inventory(fmt.Sprintf("Animal %d is no longer listed", item.AnimalID))
	}
	if quantity > item.Animal.Quantity {
		return nil, Inventory(fmt.Sprintf("Only %d unit(s) of animal %d available", item.Animal.Quantity, item.AnimalID))
	}

	if err := tx.WithContext(ctx).Model(item).Update("quantity", quantity).Error; err != nil {
		return nil, Internal("Failed to update cart item", err)
	}
	item.Quantity = quantity
	return item, nil
}

func RemoveCartItem(ctx context.Context, tx *gorm.DB, caller Caller, itemID uint) error {
	item, err := ownedCartItem(ctx, tx, caller, itemID)
	if err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Delete(&models.CartItem{}, item.ID).Error; err != nil {
		return Internal("Failed to remove cart item", err)
	}
	return nil
}
