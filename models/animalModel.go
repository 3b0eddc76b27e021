package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AnimalStatus string

const (
	AnimalAvailable AnimalStatus = "available"
	AnimalPending   AnimalStatus = "pending"
	AnimalSold      AnimalStatus = "sold"
)

type AnimalImage struct {
	gorm.Model
	Url      string `json:"url" gorm:"size:500;not null"`
	AnimalID uint   `json:"animalId" gorm:"not null;index"`
}

// Animal is a listing. Quantity is the remaining stock; it is only ever
// decremented through order reservation and incremented through rejection
// or a farmer restocking the listing.
type Animal struct {
	gorm.Model
	FarmerID    uint            `json:"farmerId" gorm:"not null;index"`
	Title       string          `json:"title" gorm:"size:200;not null"`
	AnimalType  string          `json:"animalType" gorm:"size:50;not null;index"`
	Breed       string          `json:"breed" gorm:"size:100;index"`
	Age         *int            `json:"age"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Description string          `json:"description" gorm:"type:text"`
	Status      AnimalStatus    `json:"status" gorm:"size:20;not null;index"`
	Images      []AnimalImage   `json:"images" gorm:"foreignKey:AnimalID;constraint:OnDelete:CASCADE"`
}

type AnimalInput struct {
	Title       string          `json:"title" binding:"required,max=200"`
	AnimalType  string          `json:"animalType" binding:"required,max=50"`
	Breed       string          `json:"breed" binding:"max=100"`
	Age         *int            `json:"age" binding:"omitempty,min=0"`
	Price       decimal.Decimal `json:"price"`
	Quantity    *int            `json:"quantity" binding:"omitempty,min=1"`
	Description string          `json:"description"`
}

// AnimalUpdate carries a partial update; nil fields are left untouched.
type AnimalUpdate struct {
	Title       *string          `json:"title" binding:"omitempty,min=1,max=200"`
	AnimalType  *string          `json:"animalType" binding:"omitempty,min=1,max=50"`
	Breed       *string          `json:"breed" binding:"omitempty,max=100"`
	Age         *int             `json:"age" binding:"omitempty,min=0"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity" binding:"omitempty,min=1"`
	Description *string          `json:"description"`
	Status      *AnimalStatus    `json:"status" binding:"omitempty,oneof=available pending"`
}

type AnimalFilter struct {
	Type     string `form:"type"`
	Breed    string `form:"breed"`
	Search   string `form:"search"`
	MinAge   *int   `form:"min_age" binding:"omitempty,min=0"`
	MaxAge   *int   `form:"max_age" binding:"omitempty,min=0"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PerPage  int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}
