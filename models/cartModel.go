package models

import (
	"time"

	"gorm.io/gorm"
)

// CartItem rows are hard-deleted when the cart is drained into an order.
type CartItem struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	CartID   uint      `json:"cartId" gorm:"not null;index"`
	AnimalID uint      `json:"animalId" gorm:"not null;index"`
	Quantity int       `json:"quantity" gorm:"not null"`
	AddedAt  time.Time `json:"addedAt" gorm:"autoCreateTime"`
	Animal   *Animal   `json:"animal,omitempty" gorm:"foreignKey:AnimalID"`
}

type Cart struct {
	gorm.Model
	BuyerID uint       `json:"buyerId" gorm:"not null;uniqueIndex"`
	Items   []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

type CartItemInput struct {
	AnimalID uint `json:"animalId" binding:"required"`
	Quantity int  `json:"quantity" binding:"omitempty,min=1"`
}

type CartItemUpdate struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}
